package telephony

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRESTClientRequiresCredentials(t *testing.T) {
	_, err := NewRESTClient("", "token", testLogger())
	require.ErrorIs(t, err, ErrMissingCredentials)
	_, err = NewRESTClient("AC123", "", testLogger())
	require.ErrorIs(t, err, ErrMissingCredentials)
}

func TestCreateCallPostsFormAndParsesSID(t *testing.T) {
	var gotPath, gotUser string
	var gotForm map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, _, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"CA555"}`))
	}))
	defer srv.Close()

	client, err := NewRESTClient("AC123", "secret", testLogger())
	require.NoError(t, err)
	client.WithBaseURL(srv.URL)

	doc := &Response{}
	doc.Say("hello")
	ref, err := client.CreateCall(context.Background(), CallRequest{
		From:           "+15550001111",
		To:             "+15551234567",
		Document:       doc,
		StatusCallback: "https://example.test/technician_call_ended?emergency_id=abc",
	})
	require.NoError(t, err)
	require.Equal(t, "CA555", ref)
	require.Equal(t, "/Accounts/AC123/Calls.json", gotPath)
	require.Equal(t, "AC123", gotUser)
	require.Equal(t, "+15551234567", gotForm["To"][0])
	require.Contains(t, gotForm["Twiml"][0], "<Say>hello</Say>")
	require.Equal(t, "completed", gotForm["StatusCallbackEvent"][0])
}

func TestSendSMSSurfacesProviderRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, err := NewRESTClient("AC123", "wrong", testLogger())
	require.NoError(t, err)
	client.WithBaseURL(srv.URL)

	err = client.SendSMS(context.Background(), "+15550001111", "+15551234567", "hi")
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}
