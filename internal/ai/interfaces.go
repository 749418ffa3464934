package ai

import (
	"context"

	"careercoach/internal/config"
	"careercoach/internal/schema"
	"careercoach/internal/types"
)

// GenerateRequest is one structured-output call to the model
type GenerateRequest struct {
	Flow         types.FlowName
	SystemPrompt string
	UserPrompt   string
	Schema       *schema.Schema // shape the reply must have
}

// Provider sends a single prompt to a generative model and returns the raw
// JSON reply. Implementations must not validate the reply; the Coach does.
type Provider interface {
	Generate(ctx context.Context, req GenerateRequest) ([]byte, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// OutputCache stores validated flow outputs keyed by a digest of the input
type OutputCache interface {
	Get(ctx context.Context, flow types.FlowName, key string) ([]byte, bool, error)
	Set(ctx context.Context, flow types.FlowName, key string, value []byte) error
}

// PromptSource returns prompt overrides for a flow; *config.PromptStore implements it
type PromptSource interface {
	Get(flow types.FlowName) config.LoadedPrompts
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
	TotalTokens  int64 `json:"totalTokens"`
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
