package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Executor turns a final transcript into a spoken response message.
type Executor interface {
	Execute(ctx context.Context, command string) (string, error)
}

// HTTPExecutor sends commands to the controller's execute endpoint.
type HTTPExecutor struct {
	baseURL   string
	authToken string
	client    *http.Client
}

// NewHTTPExecutor creates an executor against the given controller base
// URL. authToken, when set, is forwarded as a bearer token so media
// commands can act on the user's account.
func NewHTTPExecutor(baseURL, authToken string) *HTTPExecutor {
	return &HTTPExecutor{
		baseURL:   baseURL,
		authToken: authToken,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type executeRequest struct {
	Command string `json:"command"`
}

type executeResponse struct {
	Message string `json:"message"`
}

// Execute posts the command and returns the response message. Responses
// with a message are returned as-is regardless of status code, since an
// auth failure or a bad command still carries a speakable message.
func (e *HTTPExecutor) Execute(ctx context.Context, command string) (string, error) {
	body, err := json.Marshal(executeRequest{Command: command})
	if err != nil {
		return "", fmt.Errorf("marshal command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/api/voice/execute", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build execute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-ID", uuid.NewString())
	if e.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+e.authToken)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute command: %w", err)
	}
	defer resp.Body.Close()

	var out executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode execute response (status %d): %w", resp.StatusCode, err)
	}
	if out.Message == "" {
		return "", fmt.Errorf("execute returned status %d with no message", resp.StatusCode)
	}
	return out.Message, nil
}
