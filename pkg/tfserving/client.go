// Package tfserving is a classifier backend for models exported to
// TensorFlow Serving and queried over its REST predict API.
package tfserving

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/menta2k/moji-recognizer/pkg/types"
)

// DefaultTimeout bounds a request whose context has no deadline
const DefaultTimeout = 30 * time.Second

// Client queries one model served by TensorFlow Serving
type Client struct {
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

// PredictRequest is the row-format body of :predict
type PredictRequest struct {
	Instances [][][][]float32 `json:"instances"`
}

// PredictResponse carries one probability vector per instance
type PredictResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error,omitempty"`
}

// ModelStatus is the body of GET /v1/models/<model>
type ModelStatus struct {
	ModelVersionStatus []struct {
		Version string `json:"version"`
		State   string `json:"state"`
	} `json:"model_version_status"`
}

// NewClient creates a client for one served model
func NewClient(serverURL, model string, timeout time.Duration) (*Client, error) {
	if serverURL == "" {
		serverURL = "http://localhost:8501"
	}
	if _, err := url.Parse(serverURL); err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL: strings.TrimSuffix(serverURL, "/"),
		model:   model,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Model returns the served model name
func (c *Client) Model() string {
	return c.model
}

// Predict sends one tensor and returns the raw output vector
func (c *Client) Predict(ctx context.Context, t types.Tensor) ([]float64, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := PredictRequest{Instances: [][][][]float32{t.Rows()}}
	body, err := c.sendRequest(ctx, http.MethodPost, "/v1/models/"+c.model+":predict", req)
	if err != nil {
		return nil, fmt.Errorf("predict request failed: %w", err)
	}

	var resp PredictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("server error: %s", resp.Error)
	}
	if len(resp.Predictions) != 1 {
		return nil, fmt.Errorf("expected 1 prediction, got %d", len(resp.Predictions))
	}
	return resp.Predictions[0], nil
}

// Ping checks that at least one version of the model is AVAILABLE
func (c *Client) Ping(ctx context.Context) error {
	body, err := c.sendRequest(ctx, http.MethodGet, "/v1/models/"+c.model, nil)
	if err != nil {
		return fmt.Errorf("model status request failed: %w", err)
	}

	var status ModelStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return fmt.Errorf("failed to parse model status: %w", err)
	}
	for _, v := range status.ModelVersionStatus {
		if v.State == "AVAILABLE" {
			return nil
		}
	}
	return fmt.Errorf("model %s has no available version", c.model)
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
