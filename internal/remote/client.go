// Package remote implements the HTTP client for the image-processing
// backend. The backend owns all pixel data; this client only moves
// artifact handles, operation names, and parameters across the wire.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/lumagraph-labs/lumagraph/pkg/core"
)

// saveOperation is the backend operation that writes an artifact to disk
// on the backend host.
const saveOperation = "save_image"

// DefaultTimeout bounds a single backend call. Image operations can be
// slow on large inputs, so this is generous.
const DefaultTimeout = 120 * time.Second

// Client talks to one backend instance. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Config holds client configuration.
type Config struct {
	// BaseURL is the backend root, e.g. "http://localhost:8000".
	BaseURL string
	// Timeout bounds each request (optional, DefaultTimeout if zero).
	Timeout time.Duration
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// NewClient creates a backend client.
func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// runRequest is the wire shape of an operation dispatch.
type runRequest struct {
	ImageID    string         `json:"image_id"`
	PluginName string         `json:"plugin_name"`
	Params     map[string]any `json:"params,omitempty"`
}

// runResponse is the backend's answer to a dispatch.
type runResponse struct {
	Success     bool    `json:"success"`
	ResultID    string  `json:"result_id"`
	ResultURL   string  `json:"result_url,omitempty"`
	ExecutionMS float64 `json:"execution_time_ms,omitempty"`
	PluginName  string  `json:"plugin_name,omitempty"`
}

// Apply runs one operation on an artifact and returns the result handle.
func (c *Client) Apply(ctx context.Context, artifactID, operation string, params map[string]any) (string, error) {
	req := runRequest{ImageID: artifactID, PluginName: operation, Params: params}
	var resp runResponse
	if err := c.post(ctx, "/plugins/run", req, &resp); err != nil {
		return "", err
	}
	if resp.ResultID == "" {
		return "", fmt.Errorf("backend returned no result id for %s", operation)
	}
	c.logger.Debug("operation applied", "operation", operation,
		"artifact", artifactID, "result", resp.ResultID, "backend_ms", resp.ExecutionMS)
	return resp.ResultID, nil
}

// Persist writes an artifact to a destination path on the backend host.
// Persistence is itself a backend operation, dispatched like any other.
func (c *Client) Persist(ctx context.Context, artifactID, directory, filename, format string) error {
	params := map[string]any{}
	if directory != "" {
		params["output_path"] = directory
	}
	if filename != "" {
		params["filename"] = filename
	}
	if format != "" {
		params["format"] = format
	}
	_, err := c.Apply(ctx, artifactID, saveOperation, params)
	return err
}

// FetchPreview returns a browser-displayable reference for an artifact.
// The artifact is verified against the backend first so a stale handle
// surfaces here rather than as a broken image.
func (c *Client) FetchPreview(ctx context.Context, artifactID string) (string, error) {
	path := "/images/" + url.PathEscape(artifactID)
	if err := c.get(ctx, path+"/metadata", nil); err != nil {
		return "", err
	}
	return c.baseURL + path + "/preview", nil
}

// ListImages returns the artifacts known to the backend session, oldest
// first. The backend answers with a bare JSON array.
func (c *Client) ListImages(ctx context.Context) ([]core.ImageInfo, error) {
	var images []core.ImageInfo
	if err := c.get(ctx, "/images", &images); err != nil {
		return nil, err
	}
	return images, nil
}

// operationsResponse is the wire shape of the operation catalog. The
// backend groups plugin names by category.
type operationsResponse struct {
	Plugins    []core.OperationSpec `json:"plugins"`
	Categories map[string][]string  `json:"categories"`
}

// ListOperations returns the backend's operation catalog and its
// category names, sorted.
func (c *Client) ListOperations(ctx context.Context) ([]core.OperationSpec, []string, error) {
	var resp operationsResponse
	if err := c.get(ctx, "/plugins", &resp); err != nil {
		return nil, nil, err
	}
	categories := make([]string, 0, len(resp.Categories))
	for name := range resp.Categories {
		categories = append(categories, name)
	}
	sort.Strings(categories)
	return resp.Plugins, categories, nil
}

// Health checks that the backend is reachable and answering.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}

// post sends a JSON body and decodes a JSON answer into out (if non-nil).
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// get fetches a JSON answer into out (if non-nil).
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding backend response: %w", err)
	}
	return nil
}

// decodeError extracts the backend's {"detail": ...} error shape, falling
// back to the raw body.
func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		return fmt.Errorf("backend: %s", detail.Detail)
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = resp.Status
	}
	return fmt.Errorf("backend: %s", msg)
}
