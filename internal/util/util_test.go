package util

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func sydneyCalendar(t *testing.T) *ReportingCalendar {
	t.Helper()
	cal, err := NewReportingCalendar(ReportingZone)
	if err != nil {
		t.Fatalf("NewReportingCalendar: %v", err)
	}
	return cal
}

func TestPreviousMonth(t *testing.T) {
	cal := sydneyCalendar(t)
	syd := cal.Location()

	tests := []struct {
		name      string
		now       time.Time
		wantLabel string
		wantEnd   int // last day of month
	}{
		{"mid year", time.Date(2024, 7, 15, 9, 0, 0, 0, syd), "2024-06", 30},
		{"31 day month", time.Date(2024, 8, 1, 0, 0, 0, 0, syd), "2024-07", 31},
		{"january rolls back a year", time.Date(2025, 1, 3, 12, 0, 0, 0, syd), "2024-12", 31},
		{"leap february", time.Date(2024, 3, 31, 23, 59, 59, 0, syd), "2024-02", 29},
		{"common february", time.Date(2023, 3, 1, 0, 0, 0, 0, syd), "2023-02", 28},
		{"century leap year", time.Date(2000, 3, 10, 0, 0, 0, 0, syd), "2000-02", 29},
		{"century common year", time.Date(2100, 3, 10, 0, 0, 0, 0, syd), "2100-02", 28},
		{"april", time.Date(2024, 5, 20, 0, 0, 0, 0, syd), "2024-04", 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := cal.PreviousMonth(tt.now)

			if got := p.Label(); got != tt.wantLabel {
				t.Errorf("Label() = %q, want %q", got, tt.wantLabel)
			}
			if p.Start.Day() != 1 || p.Start.Hour() != 0 || p.Start.Minute() != 0 || p.Start.Second() != 0 {
				t.Errorf("Start = %v, want day 1 00:00:00", p.Start)
			}
			if p.End.Day() != tt.wantEnd {
				t.Errorf("End day = %d, want %d", p.End.Day(), tt.wantEnd)
			}
			if p.End.Hour() != 23 || p.End.Minute() != 59 || p.End.Second() != 59 {
				t.Errorf("End = %v, want 23:59:59", p.End)
			}
			if p.Start.Month() != p.Month || p.End.Month() != p.Month {
				t.Errorf("Start/End months %v/%v differ from period month %v", p.Start.Month(), p.End.Month(), p.Month)
			}
			// The second after End is the first instant of now's month.
			next := p.End.Add(time.Second)
			local := tt.now.In(syd)
			if next.Day() != 1 || next.Month() != local.Month() || next.Year() != local.Year() {
				t.Errorf("End+1s = %v, want start of %v %d", next, local.Month(), local.Year())
			}
			if p.Start.Location() != syd || p.End.Location() != syd {
				t.Error("period not expressed in the reporting zone")
			}
		})
	}
}

func TestPreviousMonthUsesReportingZone(t *testing.T) {
	cal := sydneyCalendar(t)

	// 2024-06-30 20:00 UTC is already 1 July in Sydney, so the previous
	// month there is June, not May.
	now := time.Date(2024, 6, 30, 20, 0, 0, 0, time.UTC)
	p := cal.PreviousMonth(now)
	if got := p.Label(); got != "2024-06" {
		t.Errorf("Label() = %q, want %q", got, "2024-06")
	}
	if got := p.StartParam(); got != "2024-06-01 00:00:00" {
		t.Errorf("StartParam() = %q", got)
	}
	if got := p.EndParam(); got != "2024-06-30 23:59:59" {
		t.Errorf("EndParam() = %q", got)
	}
}

func TestPreviousMonthAcrossDaylightSaving(t *testing.T) {
	cal := sydneyCalendar(t)

	// October 2024 starts in AEST (+10) and ends in AEDT (+11).
	p := cal.PreviousMonth(time.Date(2024, 11, 5, 0, 0, 0, 0, cal.Location()))
	if _, off := p.Start.Zone(); off != 10*3600 {
		t.Errorf("Start offset = %d, want +10h", off)
	}
	if _, off := p.End.Zone(); off != 11*3600 {
		t.Errorf("End offset = %d, want +11h", off)
	}
	if got := p.EndParam(); got != "2024-10-31 23:59:59" {
		t.Errorf("EndParam() = %q", got)
	}
}

func TestNewReportingCalendarUnknownZone(t *testing.T) {
	if _, err := NewReportingCalendar("Nowhere/Invalid"); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	NewLogger("info", "json", &buf).Info("hello", "site", "amp")
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"site":"amp"`) {
		t.Errorf("json output = %q", buf.String())
	}

	buf.Reset()
	NewLogger("info", "text", &buf).Info("hello", "site", "amp")
	if !strings.Contains(buf.String(), "level=INFO") || !strings.Contains(buf.String(), "site=amp") {
		t.Errorf("text output = %q", buf.String())
	}

	buf.Reset()
	NewLogger("warn", "text", &buf).Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info line written at warn level: %q", buf.String())
	}
}
