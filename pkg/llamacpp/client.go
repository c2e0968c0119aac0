package llamacpp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/menta2k/moji-recognizer/pkg/labels"
	"github.com/menta2k/moji-recognizer/pkg/types"
	"github.com/menta2k/moji-recognizer/pkg/vlm"
)

// DefaultTimeout bounds a request whose context has no deadline
const DefaultTimeout = 5 * time.Minute

// Client classifies characters with a vision model behind a llama.cpp
// server, or any other OpenAI-compatible chat completions endpoint
type Client struct {
	baseURL    string
	model      string
	table      labels.Table
	timeout    time.Duration
	httpClient *http.Client
}

// OpenAI-compatible message format
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // Can be string or []ContentPart
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

// OpenAI-compatible chat completion request
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Stream         bool            `json:"stream"`
}

// OpenAI-compatible chat completion response
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// NewClient creates a classifier for one label table
func NewClient(serverURL, model string, table labels.Table, timeout time.Duration) (*Client, error) {
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	if table.Len() == 0 {
		return nil, fmt.Errorf("label table for %q is empty", table.Family)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		model:   model,
		table:   table,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Ping checks the server's /health endpoint. llama.cpp answers 503 while
// the model is still loading.
func (c *Client) Ping(ctx context.Context) error {
	body, err := c.sendRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	var health healthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return fmt.Errorf("failed to parse health response: %w", err)
	}
	if health.Status != "ok" {
		return fmt.Errorf("server status %q", health.Status)
	}
	return nil
}

// Predict sends the rendered tensor with the vocabulary prompt and converts
// the reply into a probability vector
func (c *Client) Predict(ctx context.Context, t types.Tensor) ([]float64, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	png, err := vlm.EncodePNG(t)
	if err != nil {
		return nil, err
	}

	req := ChatCompletionRequest{
		Model: c.model,
		Messages: []Message{
			{
				Role: "user",
				Content: []ContentPart{
					{Type: "text", Text: vlm.Prompt(c.table)},
					{Type: "image_url", ImageURL: &ImageURL{URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)}},
				},
			},
		},
		Temperature:    0,
		MaxTokens:      1024,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
		Stream:         false,
	}

	respBody, err := c.sendRequest(ctx, http.MethodPost, "/v1/chat/completions", req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	text := messageText(resp.Choices[0].Message)
	if text == "" {
		return nil, fmt.Errorf("empty response from llama.cpp server")
	}
	return vlm.ParseReply(text, c.table)
}

// messageText extracts the reply text (handles both string and array content)
func messageText(m Message) string {
	switch content := m.Content.(type) {
	case string:
		return strings.TrimSpace(content)
	case []interface{}:
		for _, item := range content {
			if partMap, ok := item.(map[string]interface{}); ok {
				if text, ok := partMap["text"].(string); ok && text != "" {
					return strings.TrimSpace(text)
				}
			}
		}
	}
	return ""
}

func (c *Client) sendRequest(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
