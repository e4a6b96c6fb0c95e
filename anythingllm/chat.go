package anythingllm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"appsmith/utils"

	"github.com/rs/zerolog/log"
)

type chatPayload struct {
	Message string `json:"message"`
	Mode    Mode   `json:"mode"`
	Model   string `json:"model,omitempty"`
}

type chatResponse struct {
	// Error may be a string, a bool, or absent depending on the failure;
	// any truthy value means the request failed.
	Error        any     `json:"error"`
	TextResponse *string `json:"textResponse"`
	ChatModel    string  `json:"chatModel"`
	Metrics      struct {
		Model string `json:"model"`
	} `json:"metrics"`
}

// Generate sends one generation request and resolves which model actually
// answered. Unlike CheckAvailability, failures here are errors: generation
// failure is fatal to the enclosing workflow step.
func (c *Client) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	payload := chatPayload{
		Message: req.Prompt,
		Mode:    req.Mode,
		Model:   outgoingModel(req),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &BackendError{Err: fmt.Errorf("failed to encode chat payload: %w", err)}
	}

	url := fmt.Sprintf("%s/api/v1/workspace/%s/chat", c.BaseURL, req.Workspace)
	log.Info().
		Str("url", url).
		Str("mode", string(req.Mode)).
		Str("prompt", utils.FirstN(req.Prompt, 50)).
		Msg("Sending generation request")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &BackendError{Err: fmt.Errorf("failed to build chat request: %w", err)}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return nil, &BackendError{Err: fmt.Errorf("chat request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &BackendError{Err: fmt.Errorf("failed to read chat response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &BackendError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &BackendError{Err: fmt.Errorf("failed to parse chat response: %w", err)}
	}

	if truthy(parsed.Error) {
		return nil, &SemanticError{Reason: fmt.Sprintf("API returned error: %v", parsed.Error)}
	}
	if parsed.TextResponse == nil {
		return nil, &SemanticError{Reason: "missing textResponse field"}
	}

	result := &GenerationResult{
		Text:      *parsed.TextResponse,
		ModelUsed: resolveModelUsed(parsed, req),
	}
	log.Info().Str("model_used", result.ModelUsed).Msg("Response generated successfully")
	return result, nil
}

// outgoingModel picks the model named in the outbound request: the explicit
// override first, then the workspace's mode default, otherwise empty so the
// backend applies its own default.
func outgoingModel(req GenerationRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return req.Config.DefaultModel(req.Mode)
}

// resolveModelUsed attributes the answer to a concrete model. The backend's
// self-report may diverge from what was requested (provider-level routing),
// so its own evidence wins, with the request as a last resort before the
// "unknown" sentinel.
func resolveModelUsed(parsed chatResponse, req GenerationRequest) string {
	if parsed.Metrics.Model != "" {
		return parsed.Metrics.Model
	}
	if parsed.ChatModel != "" {
		return parsed.ChatModel
	}
	if model := req.Config.DefaultModel(req.Mode); model != "" {
		return model
	}
	if req.Model != "" {
		return req.Model
	}
	return UnknownModel
}

func truthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case bool:
		return value
	case string:
		return value != ""
	case float64:
		return value != 0
	default:
		return true
	}
}
