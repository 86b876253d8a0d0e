// Package drupal is a small client for the CMS backend's JSON:API surface:
// query views, taxonomy term listings and taxonomy term creation.
package drupal

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds every request made with the default HTTP client.
const DefaultTimeout = 30 * time.Second

// maxBodySize caps how much of a response body is read.
const maxBodySize = 8 << 20

// Client talks to one backend JSON:API root, e.g.
// "https://cms.example.org/jsonapi".
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the credential sent in the api-key header on writes.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a client for the JSON:API root at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewHTTPClient returns an HTTP client with the given timeout. insecure
// disables TLS certificate verification and is meant for local development
// backends with self-signed certificates.
func NewHTTPClient(timeout time.Duration, insecure bool) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := &http.Client{Timeout: timeout}
	if insecure {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for local backends
		hc.Transport = tr
	}
	return hc
}

// BaseURL returns the JSON:API root the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// Query runs GET {base}/query/{view} with the given filter parameters and
// decodes the JSON:API envelope. Any status other than 200 is returned as a
// *StatusError.
func (c *Client) Query(ctx context.Context, view string, params url.Values) (*Document, error) {
	u := c.baseURL + "/query/" + strings.TrimLeft(view, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", MediaType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", u, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: u, StatusCode: resp.StatusCode, Status: reason(resp)}
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return &doc, nil
}

// CountChangedPages returns the number of pages the publishing_report view
// lists as changed between start and end for the site with the given
// target id. start and end are passed through as-is.
func (c *Client) CountChangedPages(ctx context.Context, siteTargetID int, start, end string) (int, error) {
	params := url.Values{}
	params.Set("filter[changed][min]", start)
	params.Set("filter[changed][max]", end)
	params.Set("filter[site_target_id]", strconv.Itoa(siteTargetID))

	doc, err := c.Query(ctx, "publishing_report", params)
	if err != nil {
		return 0, err
	}
	if _, err := doc.Items(); err != nil {
		return 0, err
	}
	if doc.Meta.Count == nil {
		return 0, fmt.Errorf("%w: missing meta.count", ErrMalformedDocument)
	}
	if *doc.Meta.Count < 0 {
		return 0, fmt.Errorf("%w: negative meta.count %d", ErrMalformedDocument, *doc.Meta.Count)
	}
	return *doc.Meta.Count, nil
}

// CountTermsNamed returns how many terms in the vocabulary have exactly the
// given name. meta.count is used when present, otherwise the length of data.
func (c *Client) CountTermsNamed(ctx context.Context, vocabulary, name string) (int, error) {
	params := url.Values{}
	params.Set("filter[name][value]", name)

	doc, err := c.Query(ctx, "taxonomy_term/"+vocabulary, params)
	if err != nil {
		return 0, err
	}
	if doc.Meta.Count != nil {
		if *doc.Meta.Count < 0 {
			return 0, fmt.Errorf("%w: negative meta.count %d", ErrMalformedDocument, *doc.Meta.Count)
		}
		return *doc.Meta.Count, nil
	}
	items, err := doc.Items()
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// CreateTerm POSTs a new taxonomy term with the given attributes to
// {base}/taxonomy_term/{vocabulary}. The returned error covers encoding and
// transport failures only; the response status is left to the caller.
func (c *Client) CreateTerm(ctx context.Context, vocabulary string, attrs map[string]any) (*Response, error) {
	doc := ResourceDocument{
		Data: Resource{
			Type:       "taxonomy_term--" + vocabulary,
			Attributes: attrs,
		},
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding term: %w", err)
	}

	u := c.baseURL + "/taxonomy_term/" + vocabulary
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", MediaType)
	req.Header.Set("Accept", MediaType)
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	return &Response{
		StatusCode: resp.StatusCode,
		Status:     reason(resp),
		Body:       body,
	}, nil
}

// reason returns the reason phrase of resp.Status without the leading code.
func reason(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
