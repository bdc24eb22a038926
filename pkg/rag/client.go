package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://rag-prod.studio.lyzr.ai/v3/rag"

// Document is one entry of the knowledge base backing the agent. Status is
// reported by the indexing service; an empty status means the document is
// ready.
type Document struct {
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
	Status   string `json:"status,omitempty"`
}

const (
	DocumentStatusActive     = "active"
	DocumentStatusProcessing = "processing"
	DocumentStatusFailed     = "failed"
)

// Client manages the document collection of one knowledge base. It is fully
// independent of the chat flow; the agent consults the knowledge base on its
// own side.
type Client struct {
	baseURL    string
	apiKey     string
	ragID      string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(apiKey string, ragID string, options ...ClientOption) *Client {
	ret := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		ragID:   ragID,
		httpClient: &http.Client{
			Timeout: 300 * time.Second,
		},
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

type documentsEnvelope struct {
	Success   bool       `json:"success"`
	Error     string     `json:"error,omitempty"`
	Documents []Document `json:"documents,omitempty"`
}

// List returns the documents currently indexed, in the order the service
// reports them. An empty knowledge base yields an empty slice, not an error.
func (c *Client) List(ctx context.Context) ([]Document, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/documents/"+c.ragID+"/", nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	env, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if env.Documents == nil {
		return []Document{}, nil
	}
	return env.Documents, nil
}

// UploadAndTrain uploads one file and triggers indexing. The call returns
// once the service accepted the file; indexing itself may still be running,
// visible as a "processing" document status in List.
func (c *Client) UploadAndTrain(ctx context.Context, fileName string, content io.Reader) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return errors.Wrap(err, "failed to create multipart file field")
	}
	if _, err := io.Copy(part, content); err != nil {
		return errors.Wrap(err, "failed to copy file content")
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, "failed to finalize multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/train/"+c.ragID+"/", &body)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	log.Debug().Str("file_name", fileName).Str("rag_id", c.ragID).Msg("uploading document")

	_, err = c.do(req)
	return err
}

type deleteRequest struct {
	FileNames []string `json:"file_names"`
}

// Delete removes the named documents from the knowledge base.
func (c *Client) Delete(ctx context.Context, fileNames ...string) error {
	if len(fileNames) == 0 {
		return nil
	}

	bodyData, err := json.Marshal(deleteRequest{FileNames: fileNames})
	if err != nil {
		return errors.Wrap(err, "failed to marshal request body")
	}

	req, err := http.NewRequestWithContext(ctx, "DELETE", c.baseURL+"/documents/"+c.ragID+"/", bytes.NewBuffer(bodyData))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	_, err = c.do(req)
	return err
}

func (c *Client) do(req *http.Request) (*documentsEnvelope, error) {
	req.Header.Set("x-api-key", c.apiKey)

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
		return nil, errors.Errorf("knowledge base returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var env documentsEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, errors.Wrap(err, "failed to parse response body")
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "knowledge base request failed"
		}
		return nil, errors.New(msg)
	}

	return &env, nil
}
