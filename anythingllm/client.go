package anythingllm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// probeTimeout bounds only the liveness probe; the workspace listing and
	// generation calls use the client's request timeout.
	probeTimeout = 5 * time.Second

	defaultRequestTimeout = 5 * time.Minute
)

// Client talks to one AnythingLLM deployment.
type Client struct {
	BaseURL string
	APIKey  string

	// HTTPClient is used for all calls; when nil a default client with
	// RequestTimeout is constructed lazily.
	HTTPClient *http.Client

	// RequestTimeout bounds workspace listing and generation calls. Zero
	// means defaultRequestTimeout.
	RequestTimeout time.Duration
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{BaseURL: baseURL, APIKey: apiKey}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.RequestTimeout
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}
	c.HTTPClient = &http.Client{Timeout: timeout}
	return c.HTTPClient
}

type workspaceRecord struct {
	Slug          string `json:"slug"`
	ChatMode      string `json:"chatMode"`
	AgentProvider string `json:"agentProvider"`
	ChatModel     string `json:"chatModel"`
	AgentModel    string `json:"agentModel"`
}

type workspacesResponse struct {
	Workspaces []workspaceRecord `json:"workspaces"`
}

// CheckAvailability verifies that the backend is reachable and that the
// named workspace exists, returning its model configuration when it does.
// Failures are a negative signal, never an error: the caller decides whether
// an unavailable workspace aborts the run. There is no retry here.
func (c *Client) CheckAvailability(ctx context.Context, workspace string) (bool, *WorkspaceConfig) {
	if err := c.probeLiveness(ctx); err != nil {
		log.Error().Err(err).Str("api_base", c.BaseURL).Msg("API endpoint is not accessible")
		return false, nil
	}
	log.Info().Msgf("API endpoint is accessible at %s/api/docs", c.BaseURL)

	records, err := c.listWorkspaces(ctx)
	if err != nil {
		log.Error().Err(err).Str("api_base", c.BaseURL).Msg("Failed to list workspaces")
		return false, nil
	}

	for _, ws := range records {
		if ws.Slug != workspace {
			continue
		}
		log.Info().
			Str("workspace", workspace).
			Str("chat_mode", ws.ChatMode).
			Str("agent_provider", ws.AgentProvider).
			Msg("Workspace is valid")
		return true, &WorkspaceConfig{
			ChatModel:     ws.ChatModel,
			AgentModel:    ws.AgentModel,
			AgentProvider: ws.AgentProvider,
		}
	}

	slugs := make([]string, 0, len(records))
	for _, ws := range records {
		slugs = append(slugs, ws.Slug)
	}
	log.Error().
		Str("workspace", workspace).
		Strs("available", slugs).
		Msg("Workspace not found")
	return false, nil
}

func (c *Client) probeLiveness(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.BaseURL+"/api/docs", nil)
	if err != nil {
		return fmt.Errorf("failed to build liveness probe request: %w", err)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("liveness probe failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("liveness probe returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) listWorkspaces(ctx context.Context) ([]workspaceRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/v1/workspaces", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build workspaces request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("workspaces request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspaces response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("workspaces request returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed workspacesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse workspaces response: %w", err)
	}
	return parsed.Workspaces, nil
}
