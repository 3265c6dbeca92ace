package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestParseTimeRangeDefaults verifies the default window is the last
// 30 days when no start is given.
func TestParseTimeRangeDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
	start, end, err := parseTimeRange(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d := end.Sub(start); d < 29*24*time.Hour || d > 31*24*time.Hour {
		t.Errorf("default window = %s, want ~30 days", d)
	}
}

// TestParseTimeRangeDateOnly verifies YYYY-MM-DD values parse and a
// date-only end is pushed to the end of that day.
func TestParseTimeRangeDateOnly(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?start=2026-01-01&end=2026-01-31", nil)
	start, end, err := parseTimeRange(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Year() != 2026 || start.Month() != 1 || start.Day() != 1 {
		t.Errorf("start = %v, want 2026-01-01", start)
	}
	if end.Day() != 1 || end.Month() != 2 {
		t.Errorf("end = %v, want start of 2026-02-01 (end of Jan 31)", end)
	}
}

// TestParseTimeRangeRFC3339 verifies full timestamps are accepted.
func TestParseTimeRangeRFC3339(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?start=2026-06-15T10:30:00Z", nil)
	start, _, err := parseTimeRange(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Hour() != 10 || start.Minute() != 30 {
		t.Errorf("start = %v, want 10:30", start)
	}
}

// TestParseTimeRangeInvalid verifies malformed dates error out.
func TestParseTimeRangeInvalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?start=yesterday", nil)
	if _, _, err := parseTimeRange(req); err == nil {
		t.Error("expected error for invalid start date")
	}
}

// TestWriteJSON verifies status and content type.
func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusBadRequest, map[string]string{"error": "nope"})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
	if !strings.Contains(rec.Body.String(), `"nope"`) {
		t.Errorf("body = %q, want the error message", rec.Body.String())
	}
}

// TestSaveSessionRejectsBadJSON verifies malformed bodies get 400
// before any storage access.
func TestSaveSessionRejectsBadJSON(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader("{bad"))
	rec := httptest.NewRecorder()

	s.handleSaveSession(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestSaveSessionRequiresID verifies sessions without an ID are
// rejected; the ID is the idempotency key for retries.
func TestSaveSessionRequiresID(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{"template_name":"Push Day"}`))
	rec := httptest.NewRecorder()

	s.handleSaveSession(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "session ID") {
		t.Errorf("body = %q, want a session ID error", rec.Body.String())
	}
}

// TestCreateTemplateRejectsInvalid verifies template validation runs
// before storage.
func TestCreateTemplateRejectsInvalid(t *testing.T) {
	s := &Server{}
	body := `{"name":"Broken","exercises":[{"name":"Squat","type":"strength","sets":0}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/templates", strings.NewReader(body))
	rec := httptest.NewRecorder()

	s.handleCreateTemplate(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestGetSessionRejectsBadID verifies a malformed UUID path param gets
// 400 without touching storage.
func TestGetSessionRejectsBadID(t *testing.T) {
	s := New(nil, nil, "key", slogDiscard())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/not-a-uuid", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// TestVolumeSummaryRejectsBadBucket verifies the bucket enum is
// enforced.
func TestVolumeSummaryRejectsBadBucket(t *testing.T) {
	s := New(nil, nil, "key", slogDiscard())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats/volume?bucket=year", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "bucket") {
		t.Errorf("body = %q, want a bucket error", rec.Body.String())
	}
}

// TestWriteEndpointsRequireKey verifies the write group sits behind
// API key auth while reads stay open.
func TestWriteEndpointsRequireKey(t *testing.T) {
	s := New(nil, nil, "secret", slogDiscard())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated POST status = %d, want 401", rec.Code)
	}

	// Reads do not require the key; a malformed UUID proves the
	// handler itself ran.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/templates/nope", nil)
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("open GET status = %d, want 400 from the handler", rec.Code)
	}
}
