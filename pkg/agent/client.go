package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultBaseURL = "https://agent-prod.studio.lyzr.ai/v3/inference"

	// DefaultUserID identifies this client to the agent service when no
	// account-specific user id is configured.
	DefaultUserID = "compliance-hub@local"
)

// Client talks to the remote agent service. It is a thin transport: it does
// not interpret the result slot beyond decoding the envelope, that is the
// normalizer's job.
type Client struct {
	baseURL    string
	apiKey     string
	userID     string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

func WithUserID(userID string) ClientOption {
	return func(c *Client) {
		c.userID = userID
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(apiKey string, options ...ClientOption) *Client {
	ret := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		userID:  DefaultUserID,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

// CallOptions carries one chat invocation. SessionID is an opaque
// correlation token minted once per UI session and passed through unchanged.
type CallOptions struct {
	AgentID   string
	SessionID string
	Message   string
}

type chatRequest struct {
	UserID    string `json:"user_id"`
	AgentID   string `json:"agent_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Call sends one message to the agent and returns the raw envelope. A non-nil
// error means the transport failed (network, HTTP status, undecodable body);
// an envelope with Success == false is returned as-is for the caller to
// interpret.
func (c *Client) Call(ctx context.Context, opts CallOptions) (*Payload, error) {
	reqData := chatRequest{
		UserID:    c.userID,
		AgentID:   opts.AgentID,
		SessionID: opts.SessionID,
		Message:   opts.Message,
	}

	bodyData, err := json.Marshal(reqData)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request body")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/", bytes.NewBuffer(bodyData))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	log.Debug().
		Str("agent_id", opts.AgentID).
		Str("session_id", opts.SessionID).
		Int("message_length", len(opts.Message)).
		Msg("calling agent")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("agent returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var payload Payload
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, errors.Wrap(err, "failed to parse response body")
	}

	return &payload, nil
}
