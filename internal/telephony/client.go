package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CallRequest describes one outbound voice call.
type CallRequest struct {
	From           string
	To             string
	Document       *Response // inline call-control instructions
	StatusCallback string    // completion-callback URL, optional
}

// Client is the narrow surface the orchestrator needs from the telephony
// provider.
type Client interface {
	SendSMS(ctx context.Context, from, to, body string) error
	// CreateCall places a call and returns the provider's call reference.
	CreateCall(ctx context.Context, req CallRequest) (string, error)
}

var ErrMissingCredentials = errors.New("telephony credentials are not configured")

const defaultAPIBase = "https://api.twilio.com/2010-04-01"

// RESTClient talks to the provider's REST API with basic auth and
// form-encoded bodies.
type RESTClient struct {
	baseURL    string
	accountSID string
	authToken  string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewRESTClient(accountSID, authToken string, logger *slog.Logger) (*RESTClient, error) {
	if accountSID == "" || authToken == "" {
		return nil, ErrMissingCredentials
	}
	return &RESTClient{
		baseURL:    defaultAPIBase,
		accountSID: accountSID,
		authToken:  authToken,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}, nil
}

// WithBaseURL points the client at a different API host, for tests.
func (c *RESTClient) WithBaseURL(base string) *RESTClient {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

func (c *RESTClient) SendSMS(ctx context.Context, from, to, body string) error {
	form := url.Values{}
	form.Set("From", from)
	form.Set("To", to)
	form.Set("Body", body)
	_, err := c.post(ctx, "Messages.json", form)
	return err
}

func (c *RESTClient) CreateCall(ctx context.Context, req CallRequest) (string, error) {
	doc, err := req.Document.Render()
	if err != nil {
		return "", fmt.Errorf("render call document: %w", err)
	}
	form := url.Values{}
	form.Set("From", req.From)
	form.Set("To", req.To)
	form.Set("Twiml", doc)
	if req.StatusCallback != "" {
		form.Set("StatusCallback", req.StatusCallback)
		form.Set("StatusCallbackEvent", "completed")
	}
	payload, err := c.post(ctx, "Calls.json", form)
	if err != nil {
		return "", err
	}
	var out struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("parse call response: %w", err)
	}
	return out.SID, nil
}

func (c *RESTClient) post(ctx context.Context, resource string, form url.Values) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/Accounts/%s/%s", c.baseURL, c.accountSID, resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("provider rejected request",
			"resource", resource, "status", resp.StatusCode)
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return payload, nil
}
