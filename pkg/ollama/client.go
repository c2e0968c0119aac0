package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/moji-recognizer/pkg/labels"
	"github.com/menta2k/moji-recognizer/pkg/types"
	"github.com/menta2k/moji-recognizer/pkg/vlm"
)

// DefaultTimeout bounds a request whose context has no deadline.
// Vision models on CPU are slow, so this is generous.
const DefaultTimeout = 120 * time.Second

// Client asks a vision model served by Ollama to pick classes from a label table
type Client struct {
	client  *api.Client
	model   string
	table   labels.Table
	timeout time.Duration
}

// NewClient creates a new Ollama classifier for one label table
func NewClient(ollamaURL, model string, table labels.Table, timeout time.Duration) (*Client, error) {
	parsedURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if table.Len() == 0 {
		return nil, fmt.Errorf("label table for %q is empty", table.Family)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// Drop any path like /api/chat, the SDK adds its own
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	return &Client{
		client:  api.NewClient(baseURL, http.DefaultClient),
		model:   model,
		table:   table,
		timeout: timeout,
	}, nil
}

// Ping checks that the Ollama server is reachable
func (c *Client) Ping(ctx context.Context) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama heartbeat failed: %w", err)
	}
	return nil
}

// Predict renders the tensor back to an image, sends it with the vocabulary
// and turns the model's scored candidates into a probability vector
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

	streamFalse := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: vlm.Prompt(c.table),
				Images:  []api.ImageData{api.ImageData(png)},
			},
		},
		Stream: &streamFalse,
		Format: json.RawMessage(`"json"`),
		Options: map[string]any{
			"temperature": 0,
		},
	}

	var responseContent string
	err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent += resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat error: %w", err)
	}
	if strings.TrimSpace(responseContent) == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}

	return vlm.ParseReply(responseContent, c.table)
}
