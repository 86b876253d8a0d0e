package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reporter/internal/domain"
)

func TestObservations(t *testing.T) {
	m := New()

	m.ObserveSiteCount(domain.SiteAMP, 3)
	m.ObserveSiteCount(domain.SiteAMP, 4)
	m.ObserveSiteFailure(domain.SiteKNP)
	m.ObserveSiteFailure(domain.SiteKNP)
	m.ObserveRun(1500 * time.Millisecond)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.ChangedPages.WithLabelValues("amp")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SiteFailures.WithLabelValues("knp")))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.RunDuration))
}

func TestObserveSubmission(t *testing.T) {
	m := New()
	at := time.Unix(1719792000, 0)

	m.ObserveSubmission(403, false, at)
	assert.Equal(t, 403.0, testutil.ToFloat64(m.SubmissionStatus))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LastSuccess))

	m.ObserveSubmission(201, true, at)
	assert.Equal(t, 201.0, testutil.ToFloat64(m.SubmissionStatus))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.LastSuccess))
}

func TestPush(t *testing.T) {
	var (
		gotPath string
		gotBody string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.ObserveSiteCount(domain.SiteBNP, 1)

	require.NoError(t, m.Push(context.Background(), srv.URL, "publishing-report"))
	assert.Equal(t, "/metrics/job/publishing-report", gotPath)
	assert.NotEmpty(t, gotBody)
}

func TestPushError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New().Push(context.Background(), srv.URL, "publishing-report")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), srv.URL))
}
