package codegen

import (
	"context"

	"appsmith/anythingllm"
	"appsmith/common"
	"appsmith/sysinfo"

	"github.com/rs/zerolog/log"
)

// GenerationClient is the subset of the backend client the generator needs.
type GenerationClient interface {
	Generate(ctx context.Context, req anythingllm.GenerationRequest) (*anythingllm.GenerationResult, error)
}

// Generator runs one generation call end to end: memory-pressure gating of
// explicit model overrides, the backend call, sanitization, and formatting.
type Generator struct {
	Client GenerationClient

	// HasHeadroom gates explicit model overrides; nil means
	// sysinfo.HasHeadroom.
	HasHeadroom func() bool
}

func NewGenerator(client GenerationClient) *Generator {
	return &Generator{Client: client}
}

func (g *Generator) headroom() bool {
	if g.HasHeadroom != nil {
		return g.HasHeadroom()
	}
	return sysinfo.HasHeadroom()
}

// Generate produces a sanitized code artifact for the given language. An
// explicit model override is silently dropped when memory is under pressure,
// so the backend is not forced to load another large model. Backend and
// semantic errors propagate: generation failure is fatal to the enclosing
// workflow step.
func (g *Generator) Generate(ctx context.Context, req anythingllm.GenerationRequest, language common.Language) (*anythingllm.GenerationResult, error) {
	if req.Model != "" && !g.headroom() {
		log.Warn().Str("model", req.Model).Msg("Dropping explicit model override due to high RAM usage")
		req.Model = ""
	}

	result, err := g.Client.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	result.Text = Sanitize(result.Text, language)
	if language == common.Python {
		result.Text = FormatPython(result.Text)
	}
	return result, nil
}
