// SPDX-License-Identifier: Apache-2.0
package builder

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
)

// Client talks to the ROM builder service over HTTP/JSON.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the builder service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Health fetches the service health and version.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.get(ctx, "/api/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckSystem fetches the dependency/readiness report for the builder host.
func (c *Client) CheckSystem(ctx context.Context) (*SystemCheck, error) {
	var out SystemCheck
	if err := c.get(ctx, "/api/system/check", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// InstallDependencies asks the builder host to install missing packages.
// This can take minutes; the caller supplies a suitably generous context.
func (c *Client) InstallDependencies(ctx context.Context) error {
	var out struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := c.post(ctx, "/api/system/install-dependencies", nil, &out); err != nil {
		return err
	}
	if out.Status != "success" {
		return fmt.Errorf("dependency install failed: %s", out.Message)
	}
	return nil
}

// Search queries provider (github, gitlab) for repositories matching query,
// scoped by sourceType (device, kernel, vendor). Both providers share one
// request/response shape; only the path differs. Result order is the
// service's own ranking and is preserved as-is.
func (c *Client) Search(ctx context.Context, provider, query, sourceType string) ([]RepositoryHit, error) {
	switch provider {
	case ProviderGitHub, ProviderGitLab:
	default:
		return nil, fmt.Errorf("unknown search provider %q", provider)
	}

	payload := struct {
		Query      string `json:"query"`
		SourceType string `json:"source_type"`
	}{Query: query, SourceType: sourceType}

	var out struct {
		Status  string          `json:"status"`
		Results []RepositoryHit `json:"results"`
	}
	if err := c.post(ctx, "/api/search/"+provider, payload, &out); err != nil {
		return nil, err
	}
	if out.Status != "success" {
		return nil, fmt.Errorf("search failed: status %q", out.Status)
	}
	return out.Results, nil
}

// StartBuild submits a build request. The config must already be validated;
// the service rejects requests while another build is active.
func (c *Client) StartBuild(ctx context.Context, cfg BuildConfig) (buildID string, err error) {
	if err := cfg.Validate(); err != nil {
		return "", fmt.Errorf("invalid build config: %w", err)
	}

	var out struct {
		Status  string `json:"status"`
		BuildID string `json:"build_id"`
		Message string `json:"message"`
	}
	if err := c.post(ctx, "/api/build/start", cfg, &out); err != nil {
		return "", err
	}
	if out.Status != "success" {
		return "", fmt.Errorf("build rejected: %s", out.Message)
	}
	return out.BuildID, nil
}

// Status fetches the current build status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var out Status
	if err := c.get(ctx, "/api/build/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logs fetches the current build log snapshot. The service returns the full
// tail on every call; callers replace, not append.
func (c *Client) Logs(ctx context.Context) ([]string, error) {
	var out struct {
		Logs []string `json:"logs"`
	}
	if err := c.get(ctx, "/api/build/logs", &out); err != nil {
		return nil, err
	}
	return out.Logs, nil
}

// History fetches recent build records, newest first.
func (c *Client) History(ctx context.Context) ([]BuildRecord, error) {
	var out struct {
		Builds []BuildRecord `json:"builds"`
	}
	if err := c.get(ctx, "/api/builds/history", &out); err != nil {
		return nil, err
	}
	return out.Builds, nil
}

// Build fetches one build record by id. The service returns the record
// directly, without an envelope.
func (c *Client) Build(ctx context.Context, buildID string) (*BuildRecord, error) {
	var out BuildRecord
	if err := c.get(ctx, "/api/builds/"+url.PathEscape(buildID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, dest)
}

func (c *Client) post(ctx context.Context, path string, payload, dest any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("builder service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("builder service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
