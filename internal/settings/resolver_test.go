package settings

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFiles(t *testing.T) (staticPath, contactsPath string) {
	t.Helper()
	dir := t.TempDir()
	staticPath = filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(staticPath, []byte(`
settings:
  company_name: "Static Co"
  transfer_mode: "false"
`), 0o644))
	contactsPath = filepath.Join(dir, "contacts.yaml")
	require.NoError(t, os.WriteFile(contactsPath, []byte(`
contacts:
  "+15551234567": "AMS Technician"
`), 0o644))
	return staticPath, contactsPath
}

func TestResolvePrefersRemoteThenStaticThenDefault(t *testing.T) {
	staticPath, contactsPath := writeFiles(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"company_name":"Remote Co","transfer_mode":"true"}`))
	}))
	defer srv.Close()

	r, err := NewResolver(srv.URL, staticPath, contactsPath, testLogger())
	require.NoError(t, err)

	// Before the first fetch the static file answers.
	require.Equal(t, "Static Co", r.Resolve("company_name", "fallback"))

	r.Reload(context.Background())
	require.Equal(t, "Remote Co", r.Resolve("company_name", "fallback"))
	require.True(t, r.ResolveBool("transfer_mode", false))
	require.Equal(t, "fallback", r.Resolve("unknown_key", "fallback"))
}

func TestFetchFailureKeepsLastGoodCache(t *testing.T) {
	staticPath, contactsPath := writeFiles(t)
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"company_name":"Remote Co"}`))
	}))
	defer srv.Close()

	r, err := NewResolver(srv.URL, staticPath, contactsPath, testLogger())
	require.NoError(t, err)
	r.Reload(context.Background())
	require.Equal(t, "Remote Co", r.Resolve("company_name", "fallback"))

	fail.Store(true)
	r.Reload(context.Background())
	require.Equal(t, "Remote Co", r.Resolve("company_name", "fallback"))
}

func TestNoRemoteEndpointUsesStaticOnly(t *testing.T) {
	staticPath, contactsPath := writeFiles(t)
	r, err := NewResolver("", staticPath, contactsPath, testLogger())
	require.NoError(t, err)
	r.Reload(context.Background())
	require.Equal(t, "Static Co", r.Resolve("company_name", "fallback"))
	require.Equal(t, 7, r.ResolveInt("missing_int", 7))
}

func TestDisplayName(t *testing.T) {
	staticPath, contactsPath := writeFiles(t)
	r, err := NewResolver("", staticPath, contactsPath, testLogger())
	require.NoError(t, err)
	require.Equal(t, "AMS Technician", r.DisplayName("+15551234567"))
	require.Equal(t, "Maintenance Team", r.DisplayName("+19990000000"))
}

func TestMissingStaticFileIsAnError(t *testing.T) {
	_, err := NewResolver("", "does/not/exist.yaml", "", testLogger())
	require.Error(t, err)
}
