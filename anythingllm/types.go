// Package anythingllm is a client for the AnythingLLM HTTP API, covering the
// two interactions the pipeline needs: probing that a workspace exists and
// sending chat/agent generation requests to it.
package anythingllm

import "fmt"

// Mode is the interaction style used with the backend: direct Q&A ("chat")
// or tool-using ("agent").
type Mode string

const (
	ModeChat  Mode = "chat"
	ModeAgent Mode = "agent"
)

func StringToMode(mode string) (Mode, error) {
	switch mode {
	case "chat":
		return ModeChat, nil
	case "agent":
		return ModeAgent, nil
	default:
		return "", fmt.Errorf("unsupported mode: %q (must be chat or agent)", mode)
	}
}

// WorkspaceConfig holds the model defaults a workspace advertises. It is
// produced once per run by CheckAvailability and treated as authoritative
// afterward; empty strings mean the workspace does not configure that field.
type WorkspaceConfig struct {
	ChatModel     string
	AgentModel    string
	AgentProvider string
}

// DefaultModel returns the workspace's configured model for the given mode,
// or empty when none is configured.
func (c *WorkspaceConfig) DefaultModel(mode Mode) string {
	if c == nil {
		return ""
	}
	if mode == ModeAgent {
		return c.AgentModel
	}
	return c.ChatModel
}

// GenerationRequest describes one generation call. Model is an explicit
// override; when empty the workspace's mode default (or the backend default)
// applies.
type GenerationRequest struct {
	Workspace string
	Prompt    string
	Mode      Mode
	Model     string
	Config    *WorkspaceConfig
}

// GenerationResult is the usable outcome of a generation call. ModelUsed is
// never empty: it reflects the best available evidence of which model
// actually answered, falling back to the literal "unknown".
type GenerationResult struct {
	Text      string
	ModelUsed string
}

// UnknownModel is the terminal fallback for model attribution.
const UnknownModel = "unknown"
