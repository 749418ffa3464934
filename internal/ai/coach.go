package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"careercoach/internal/config"
	"careercoach/internal/errors"
	"careercoach/internal/schema"
	"careercoach/internal/types"
)

// FlowResult is the validated output of one flow run
type FlowResult struct {
	Flow       types.FlowName  `json:"flow"`
	Output     json.RawMessage `json:"output"`
	TokenUsage *TokenUsage     `json:"tokenUsage,omitempty"`
	Cached     bool            `json:"cached"`
	Duration   time.Duration   `json:"-"`
}

// flowRecord creates empty input and output records for a flow
type flowRecord struct {
	newInput  func() any
	newOutput func() any
	// check runs after schema validation of the reply
	check func(out any) error
}

var flowRecords = map[types.FlowName]flowRecord{
	types.FlowImproveResume: {
		newInput:  func() any { return &types.ImproveResumeInput{} },
		newOutput: func() any { return &types.ImproveResumeOutput{} },
	},
	types.FlowCoverLetter: {
		newInput:  func() any { return &types.CoverLetterInput{} },
		newOutput: func() any { return &types.CoverLetterOutput{} },
	},
	types.FlowRoadmap: {
		newInput:  func() any { return &types.RoadmapInput{} },
		newOutput: func() any { return &types.RoadmapOutput{} },
	},
	types.FlowChat: {
		newInput:  func() any { return &types.ChatInput{} },
		newOutput: func() any { return &types.ChatOutput{} },
	},
	types.FlowAgentDescription: {
		newInput:  func() any { return &types.AgentDescriptionInput{} },
		newOutput: func() any { return &types.AgentDescriptionOutput{} },
	},
	types.FlowJSONConvert: {
		newInput:  func() any { return &types.JSONConvertInput{} },
		newOutput: func() any { return &types.JSONConvertOutput{} },
		check: func(out any) error {
			if !json.Valid([]byte(out.(*types.JSONConvertOutput).JSON)) {
				return fmt.Errorf("json field does not hold a JSON document")
			}
			return nil
		},
	},
	types.FlowAnalyzeResume: {
		newInput:  func() any { return &types.AnalyzeResumeInput{} },
		newOutput: func() any { return &types.AnalyzeResumeOutput{} },
	},
	types.FlowInterviewQuestions: {
		newInput:  func() any { return &types.InterviewQuestionsInput{} },
		newOutput: func() any { return &types.InterviewQuestionsOutput{} },
	},
}

// Coach runs the AI flows. Every run validates its input, makes exactly one
// provider call and validates the reply before returning it.
type Coach struct {
	providers map[types.FlowName]Provider
	prompts   PromptSource
	cache     OutputCache
	logger    *errors.Logger
}

// Option configures a Coach
type Option func(*Coach)

// WithCache serves repeated inputs from cache instead of calling the model
func WithCache(cache OutputCache) Option {
	return func(c *Coach) {
		c.cache = cache
	}
}

// WithPrompts sets the source of prompt overrides
func WithPrompts(prompts PromptSource) Option {
	return func(c *Coach) {
		c.prompts = prompts
	}
}

// NewCoach creates one provider per flow from the application config
func NewCoach(cfg *config.Config, logger *errors.Logger, opts ...Option) (*Coach, error) {
	providers := make(map[types.FlowName]Provider, len(types.AllFlows))
	for _, flow := range types.AllFlows {
		provider, err := NewProvider(cfg.FlowConfig(flow), flow, logger)
		if err != nil {
			for _, p := range providers {
				_ = p.Close()
			}
			return nil, err
		}
		if g, ok := provider.(*GeminiProvider); ok {
			g.SetModelCheckTimeout(cfg.Observability.HealthCheck.AIModelCheckTimeout)
		}
		providers[flow] = provider
	}

	opts = append([]Option{WithPrompts(cfg.Prompts)}, opts...)
	return NewCoachWithProviders(providers, logger, opts...), nil
}

// NewCoachWithProviders creates a Coach around existing providers
func NewCoachWithProviders(providers map[types.FlowName]Provider, logger *errors.Logger, opts ...Option) *Coach {
	c := &Coach{
		providers: providers,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run decodes a raw JSON request for the named flow and runs it.
// The body is checked against the flow's input schema before decoding.
func (c *Coach) Run(ctx context.Context, flow types.FlowName, body []byte) (*FlowResult, error) {
	record, ok := flowRecords[flow]
	if !ok {
		return nil, errors.NewValidationError(errors.ErrCodeUnknownFlow,
			fmt.Sprintf("unknown flow %q", flow), nil)
	}
	schemas, _ := schema.ForFlow(flow)

	if err := schemas.Input.ValidateJSON(body); err != nil {
		return nil, err
	}

	input := record.newInput()
	if err := json.Unmarshal(body, input); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			"request body does not match "+schemas.Input.Name, err)
	}

	return c.execute(ctx, flow, input)
}

func (c *Coach) execute(ctx context.Context, flow types.FlowName, input any) (*FlowResult, error) {
	start := time.Now()
	record, ok := flowRecords[flow]
	if !ok {
		return nil, errors.NewValidationError(errors.ErrCodeUnknownFlow,
			fmt.Sprintf("unknown flow %q", flow), nil)
	}
	schemas, _ := schema.ForFlow(flow)

	if err := schemas.Input.Validate(input); err != nil {
		return nil, err
	}

	req, err := c.buildRequest(flow, schemas.Output, input)
	if err != nil {
		return nil, err
	}

	key, err := cacheKey(input, req)
	if err != nil {
		return nil, err
	}
	if cached, hit := c.cached(ctx, flow, key); hit {
		c.logger.Debug("Flow served from cache", "flow", flow)
		return &FlowResult{Flow: flow, Output: cached, Cached: true, Duration: time.Since(start)}, nil
	}

	provider, ok := c.providers[flow]
	if !ok || provider == nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("no AI provider configured for %s", flow), nil)
	}

	raw, usage, err := provider.Generate(ctx, req)
	if err != nil {
		if _, ok := errors.As(err); !ok {
			err = errors.NewAIError(errors.ErrCodeAIServiceFailed,
				"Failed to generate content for "+string(flow), err)
		}
		c.logger.LogError(err, "AI flow failed", "flow", flow)
		return nil, err
	}

	output, err := c.validateReply(flow, record, schemas.Output, raw)
	if err != nil {
		c.logger.LogError(err, "AI reply rejected", "flow", flow, "reply_length", len(raw))
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, flow, key, output); err != nil {
			c.logger.Warn("Failed to cache flow output", "flow", flow, "error", err)
		}
	}

	duration := time.Since(start)
	c.logger.Debug("AI flow completed", "flow", flow, "duration", duration)
	return &FlowResult{Flow: flow, Output: output, TokenUsage: usage, Duration: duration}, nil
}

func (c *Coach) cached(ctx context.Context, flow types.FlowName, key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	value, hit, err := c.cache.Get(ctx, flow, key)
	if err != nil {
		c.logger.Warn("Output cache lookup failed", "flow", flow, "error", err)
		return nil, false
	}
	return value, hit
}

func (c *Coach) buildRequest(flow types.FlowName, output *schema.Schema, input any) (GenerateRequest, error) {
	defaults := DefaultPrompts[flow]
	var overrides config.LoadedPrompts
	if c.prompts != nil {
		overrides = c.prompts.Get(flow)
	}

	userPrompt, err := renderPrompt(flow, resolvePrompt(overrides.User, defaults.User), input)
	if err != nil {
		return GenerateRequest{}, err
	}

	return GenerateRequest{
		Flow:         flow,
		SystemPrompt: resolvePrompt(overrides.System, defaults.System),
		UserPrompt:   userPrompt,
		Schema:       output,
	}, nil
}

// validateReply checks the model reply and returns it normalized to the
// declared output fields
func (c *Coach) validateReply(flow types.FlowName, record flowRecord, output *schema.Schema, raw []byte) ([]byte, error) {
	if err := output.ValidateJSON(raw); err != nil {
		return nil, invalidReply(flow, err)
	}

	out := record.newOutput()
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, invalidReply(flow, err)
	}
	if record.check != nil {
		if err := record.check(out); err != nil {
			return nil, invalidReply(flow, err)
		}
	}

	normalized, err := json.Marshal(out)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidFormat, "failed to encode flow output", err)
	}
	return normalized, nil
}

func invalidReply(flow types.FlowName, cause error) error {
	appErr := errors.NewValidationError(errors.ErrCodeInvalidAIResponse,
		"AI reply for "+string(flow)+" does not match its schema", cause).
		WithContext("flow", string(flow))
	if schemaErr, ok := errors.As(cause); ok {
		appErr = appErr.WithFields(schemaErr.Fields)
	}
	return appErr
}

// cacheKey is the hex SHA-256 of the canonical input encoding and the
// resolved prompts, so a prompt reload never serves outputs of the old prompt
func cacheKey(input any, req GenerateRequest) (string, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat, "input is not serializable", err)
	}
	h := sha256.New()
	for _, part := range [][]byte{raw, []byte(req.SystemPrompt), []byte(req.UserPrompt)} {
		h.Write(part)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// runFlow executes a flow with a typed input and decodes the typed output
func runFlow[Out any](ctx context.Context, c *Coach, flow types.FlowName, input any) (*Out, *TokenUsage, error) {
	result, err := c.execute(ctx, flow, input)
	if err != nil {
		return nil, nil, err
	}
	var out Out
	if err := json.Unmarshal(result.Output, &out); err != nil {
		return nil, nil, errors.NewInternalError(errors.ErrCodeInvalidFormat, "failed to decode flow output", err)
	}
	return &out, result.TokenUsage, nil
}

func (c *Coach) ImproveResume(ctx context.Context, in types.ImproveResumeInput) (*types.ImproveResumeOutput, *TokenUsage, error) {
	return runFlow[types.ImproveResumeOutput](ctx, c, types.FlowImproveResume, in)
}

func (c *Coach) GenerateCoverLetter(ctx context.Context, in types.CoverLetterInput) (*types.CoverLetterOutput, *TokenUsage, error) {
	return runFlow[types.CoverLetterOutput](ctx, c, types.FlowCoverLetter, in)
}

func (c *Coach) GenerateRoadmap(ctx context.Context, in types.RoadmapInput) (*types.RoadmapOutput, *TokenUsage, error) {
	return runFlow[types.RoadmapOutput](ctx, c, types.FlowRoadmap, in)
}

func (c *Coach) Chat(ctx context.Context, in types.ChatInput) (*types.ChatOutput, *TokenUsage, error) {
	return runFlow[types.ChatOutput](ctx, c, types.FlowChat, in)
}

func (c *Coach) DescribeAgent(ctx context.Context, in types.AgentDescriptionInput) (*types.AgentDescriptionOutput, *TokenUsage, error) {
	return runFlow[types.AgentDescriptionOutput](ctx, c, types.FlowAgentDescription, in)
}

// ConvertToJSON also rejects replies whose json field is not a JSON document
func (c *Coach) ConvertToJSON(ctx context.Context, in types.JSONConvertInput) (*types.JSONConvertOutput, *TokenUsage, error) {
	return runFlow[types.JSONConvertOutput](ctx, c, types.FlowJSONConvert, in)
}

func (c *Coach) AnalyzeResume(ctx context.Context, in types.AnalyzeResumeInput) (*types.AnalyzeResumeOutput, *TokenUsage, error) {
	return runFlow[types.AnalyzeResumeOutput](ctx, c, types.FlowAnalyzeResume, in)
}

func (c *Coach) GenerateInterviewQuestions(ctx context.Context, in types.InterviewQuestionsInput) (*types.InterviewQuestionsOutput, *TokenUsage, error) {
	return runFlow[types.InterviewQuestionsOutput](ctx, c, types.FlowInterviewQuestions, in)
}

// ModelInfo checks model availability for every flow
func (c *Coach) ModelInfo(ctx context.Context) map[types.FlowName]*ModelInfo {
	info := make(map[types.FlowName]*ModelInfo, len(c.providers))
	for flow, p := range c.providers {
		info[flow] = p.GetModelInfo(ctx)
	}
	return info
}

type breakerStatsProvider interface {
	GetCircuitBreakerStats() map[string]any
}

// CircuitBreakerStats returns per-flow breaker stats for providers that have breakers
func (c *Coach) CircuitBreakerStats() map[types.FlowName]map[string]any {
	stats := make(map[types.FlowName]map[string]any)
	for flow, p := range c.providers {
		if sp, ok := p.(breakerStatsProvider); ok {
			stats[flow] = sp.GetCircuitBreakerStats()
		}
	}
	return stats
}

// Close releases every provider
func (c *Coach) Close() error {
	var firstErr error
	for flow, p := range c.providers {
		if err := p.Close(); err != nil {
			c.logger.LogError(err, "Failed to close AI provider", "flow", flow)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
