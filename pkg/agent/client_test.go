package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallSendsChatRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/chat/", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user-1", body.UserID)
		assert.Equal(t, "agent-1", body.AgentID)
		assert.Equal(t, "sess_abc", body.SessionID)
		assert.Equal(t, "[Query Mode: Checklist] generate one", body.Message)

		_, _ = w.Write([]byte(`{"success":true,"response":{"result":"{\"summary\":\"here\"}"}}`))
	}))
	defer server.Close()

	c := NewClient("test-key", WithBaseURL(server.URL), WithUserID("user-1"))
	payload, err := c.Call(context.Background(), CallOptions{
		AgentID:   "agent-1",
		SessionID: "sess_abc",
		Message:   "[Query Mode: Checklist] generate one",
	})
	require.NoError(t, err)

	require.True(t, payload.Success)
	v, ok := payload.ResultValue()
	require.True(t, ok)
	assert.Equal(t, `{"summary":"here"}`, v)
}

func TestCallSurfacesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewClient("test-key", WithBaseURL(server.URL))
	_, err := c.Call(context.Background(), CallOptions{AgentID: "agent-1", Message: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestCallSurfacesUndecodableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>definitely not json</html>`))
	}))
	defer server.Close()

	c := NewClient("test-key", WithBaseURL(server.URL))
	_, err := c.Call(context.Background(), CallOptions{AgentID: "agent-1", Message: "hi"})
	require.Error(t, err)
}

func TestResultValue(t *testing.T) {
	tests := []struct {
		name    string
		payload *Payload
		want    interface{}
		wantOK  bool
	}{
		{"nil payload", nil, nil, false},
		{"no response", &Payload{Success: true}, nil, false},
		{
			"string result",
			&Payload{Response: &PayloadResponse{Result: json.RawMessage(`"text"`)}},
			"text",
			true,
		},
		{
			"object result",
			&Payload{Response: &PayloadResponse{Result: json.RawMessage(`{"a":1}`)}},
			map[string]interface{}{"a": float64(1)},
			true,
		},
		{
			"garbage result",
			&Payload{Response: &PayloadResponse{Result: json.RawMessage(`{`)}},
			nil,
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.payload.ResultValue()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
