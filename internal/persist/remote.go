package persist

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dvwtools/dvw-cli/api/schemas"
	"go.uber.org/zap"
)

// Client talks to the remote model/settings service. It implements both
// schemas.ModelService and schemas.SettingsService.
type Client struct {
	base string
	http *http.Client
	log  *zap.Logger
}

var (
	_ schemas.ModelService    = (*Client)(nil)
	_ schemas.SettingsService = (*Client)(nil)
)

// NewClient creates a client for the service rooted at baseURL
// (e.g. "http://localhost:8000/api").
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
		log:  logger.Named("remote"),
	}
}

// do issues one request and decodes a JSON response into out (skipped when out
// is nil). Non-2xx responses become errors carrying the status and body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Warn("remote request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	if out == nil {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// ListModels fetches every remote model.
func (c *Client) ListModels(ctx context.Context) ([]schemas.APIModel, error) {
	var out []schemas.APIModel
	if err := c.do(ctx, http.MethodGet, "/models/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetModel fetches a full model with nodes and edges.
func (c *Client) GetModel(ctx context.Context, id string) (schemas.APIModel, error) {
	var out schemas.APIModel
	if err := c.do(ctx, http.MethodGet, "/models/"+id+"/", nil, &out); err != nil {
		return schemas.APIModel{}, err
	}
	return out, nil
}

// CreateModel creates a new remote model and returns it with its assigned id.
func (c *Client) CreateModel(ctx context.Context, req schemas.CreateModelRequest) (schemas.APIModel, error) {
	var out schemas.APIModel
	if err := c.do(ctx, http.MethodPost, "/models/", req, &out); err != nil {
		return schemas.APIModel{}, err
	}
	return out, nil
}

// UpdateModel updates an existing remote model in place.
func (c *Client) UpdateModel(ctx context.Context, id string, req schemas.CreateModelRequest) (schemas.APIModel, error) {
	var out schemas.APIModel
	if err := c.do(ctx, http.MethodPut, "/models/"+id+"/", req, &out); err != nil {
		return schemas.APIModel{}, err
	}
	return out, nil
}

// DeleteModel removes a remote model.
func (c *Client) DeleteModel(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/models/"+id+"/", nil, nil)
}

// GetSettings fetches the workspace settings.
func (c *Client) GetSettings(ctx context.Context) (schemas.Settings, error) {
	var out schemas.Settings
	if err := c.do(ctx, http.MethodGet, "/settings/", nil, &out); err != nil {
		return schemas.Settings{}, err
	}
	return out, nil
}

// PatchSettings applies a partial settings update.
func (c *Client) PatchSettings(ctx context.Context, patch schemas.SettingsPatch) (schemas.Settings, error) {
	var out schemas.Settings
	if err := c.do(ctx, http.MethodPatch, "/settings/", patch, &out); err != nil {
		return schemas.Settings{}, err
	}
	return out, nil
}

// ResetSettings restores the remote settings to defaults.
func (c *Client) ResetSettings(ctx context.Context) (schemas.Settings, error) {
	var out schemas.Settings
	if err := c.do(ctx, http.MethodPost, "/settings/reset/", nil, &out); err != nil {
		return schemas.Settings{}, err
	}
	return out, nil
}
