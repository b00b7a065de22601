package status

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimelineOrderingAndBound(t *testing.T) {
	tl := NewTimeline()
	for i := 0; i < maxEvents+25; i++ {
		tl.Record(fmt.Sprintf("event %d", i), "")
	}
	got := tl.Recent()
	require.Len(t, got, maxEvents)
	require.Equal(t, fmt.Sprintf("event %d", maxEvents+24), got[0].Title)
	require.Equal(t, "event 25", got[len(got)-1].Title)
}

func TestTimelineErrorsAndResolve(t *testing.T) {
	tl := NewTimeline()
	tl.Record("ok event", "")
	require.False(t, tl.HasErrors())

	tl.RecordError("bad event", "something failed")
	require.True(t, tl.HasErrors())

	tl.Resolve()
	require.False(t, tl.HasErrors())
	// Events survive resolution, only the error flag is cleared.
	require.Len(t, tl.Recent(), 2)
}

func TestAPIHandlerReportsErrorState(t *testing.T) {
	tl := NewTimeline()
	h := &APIHandler{Timeline: tl, Branch: "main"}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "main", body["branch"])

	tl.RecordError("webhook failed", "boom")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "error", body["status"])
	require.Equal(t, "Errors Detected", body["message"])
}

func TestPageHandlerPostResolvesAndRedirects(t *testing.T) {
	tl := NewTimeline()
	tl.RecordError("bad event", "")
	h := &PageHandler{Timeline: tl, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/status", rec.Header().Get("Location"))
	require.False(t, tl.HasErrors())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "bad event")
}

func TestSummaryFormat(t *testing.T) {
	s := Summary()
	require.True(t, strings.HasPrefix(s, "SERVER STATUS"))
	require.Contains(t, s, "Uptime:")
	require.Contains(t, s, "Goroutines:")
}
