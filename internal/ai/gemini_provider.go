package ai

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"careercoach/internal/config"
	"careercoach/internal/errors"
	"careercoach/internal/schema"
	"careercoach/internal/types"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

// modelAPI is the part of the genai client the provider uses
type modelAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}

// GeminiProvider implements Provider for Google Gemini. Each flow gets its
// own provider so breakers and settings stay independent.
type GeminiProvider struct {
	models            modelAPI
	flow              types.FlowName
	config            config.OperationAIConfig
	circuitBreaker    *AICircuitBreaker
	modelBreaker      *ModelCircuitBreaker
	modelCheckTimeout time.Duration
	logger            *errors.Logger
}

var _ Provider = (*GeminiProvider)(nil)

// NewProvider creates the provider named in cfg
func NewProvider(cfg config.OperationAIConfig, flow types.FlowName, logger *errors.Logger) (Provider, error) {
	logger.Debug("Initializing AI provider",
		"provider", cfg.Provider,
		"flow", flow,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries,
		"use_system_prompts", *cfg.UseSystemPrompts)

	switch cfg.Provider {
	case "gemini":
		return NewGeminiProvider(cfg, flow, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
}

// NewGeminiProvider creates a Gemini provider for one flow. cfg must come
// from config.Config.FlowConfig so every pointer is set.
func NewGeminiProvider(cfg config.OperationAIConfig, flow types.FlowName, logger *errors.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Timeout: *cfg.Timeout,
		},
	})
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to create Gemini client", err)
	}

	return newGeminiProvider(client.Models, cfg, flow, logger), nil
}

func newGeminiProvider(models modelAPI, cfg config.OperationAIConfig, flow types.FlowName, logger *errors.Logger) *GeminiProvider {
	return &GeminiProvider{
		models:            models,
		flow:              flow,
		config:            cfg,
		circuitBreaker:    NewAICircuitBreaker(string(flow), cfg.CircuitBreaker, logger),
		modelBreaker:      NewModelCircuitBreaker(string(flow), cfg.CircuitBreaker, logger),
		modelCheckTimeout: 10 * time.Second,
		logger:            logger,
	}
}

// SetModelCheckTimeout overrides the timeout used by GetModelInfo
func (g *GeminiProvider) SetModelCheckTimeout(d time.Duration) {
	if d > 0 {
		g.modelCheckTimeout = d
	}
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{Name: g.config.Model}

	checkCtx, cancel := context.WithTimeout(ctx, g.modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.ExecuteModel(func() (*genai.Model, error) {
		return g.models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"flow", g.flow,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version
	return modelInfo
}

// Generate sends the prompts with a response schema derived from req.Schema
// and returns the model's JSON text. With maxRetries at 0 this is exactly
// one GenerateContent call.
func (g *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) ([]byte, *TokenUsage, error) {
	tracer := otel.Tracer("careercoach.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+string(req.Flow))
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.String("ai.flow", string(req.Flow)),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
		attribute.Int("input.prompt_length", len(req.UserPrompt)),
	)

	genaiConfig := g.buildGenerateConfig(req)

	ctx, cancel := context.WithTimeout(ctx, *g.config.Timeout)
	defer cancel()

	result, err := g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, string(req.Flow), func() (*genai.GenerateContentResponse, error) {
			return g.models.GenerateContent(ctx, g.config.Model, genai.Text(req.UserPrompt), genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return nil, nil, classifyProviderError(req.Flow, err)
	}

	text := result.Text()
	if text == "" {
		span.SetAttributes(attribute.Bool("success", false))
		return nil, nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Empty response from model for "+string(req.Flow), nil)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.Bool("success", true))

	return []byte(text), tokenUsage, nil
}

func (g *GeminiProvider) buildGenerateConfig(req GenerateRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if req.Schema != nil {
		cfg.ResponseSchema = toGenaiSchema(req.Schema)
	}
	if *g.config.Temperature > 0 {
		temperature := *g.config.Temperature
		cfg.Temperature = &temperature
	}
	if *g.config.UseSystemPrompts && req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	return cfg
}

// toGenaiSchema converts a flat record declaration into the provider's schema type
func toGenaiSchema(s *schema.Schema) *genai.Schema {
	out := &genai.Schema{
		Type:        genai.TypeObject,
		Title:       s.Name,
		Description: s.Description,
		Properties:  make(map[string]*genai.Schema, len(s.Fields)),
		Required:    s.RequiredFields(),
	}
	for _, f := range s.Fields {
		prop := &genai.Schema{Description: f.Description}
		switch f.Type {
		case schema.TypeBoolean:
			prop.Type = genai.TypeBoolean
		default:
			prop.Type = genai.TypeString
		}
		out.Properties[f.Name] = prop
		out.PropertyOrdering = append(out.PropertyOrdering, f.Name)
	}
	return out
}

// classifyProviderError maps a failed call to an ai-type AppError
func classifyProviderError(flow types.FlowName, err error) error {
	switch {
	case stderrors.Is(err, gobreaker.ErrOpenState), stderrors.Is(err, gobreaker.ErrTooManyRequests):
		return errors.NewAIError(errors.ErrCodeCircuitOpen,
			"AI service temporarily unavailable for "+string(flow), err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewAIError(errors.ErrCodeAITimeout,
			"AI request timed out for "+string(flow), err)
	default:
		return errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to generate content for "+string(flow), err)
	}
}

// executeWithRetry executes an AI operation with retry logic and exponential backoff
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	maxRetries := *g.config.MaxRetries
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", maxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(retryBackoff(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			break
		}
	}

	if maxRetries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, maxRetries, lastErr)
}

// retryBackoff is 2^(attempt-1) seconds plus up to 10% jitter, capped at 30s
func retryBackoff(attempt int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	jitter := time.Duration(0)
	if jitterBig, err := rand.Int(rand.Reader, big.NewInt(int64(float64(baseDelay)*0.1))); err == nil {
		jitter = time.Duration(jitterBig.Int64())
	}
	return min(baseDelay+jitter, 30*time.Second)
}

// isRetryableError reports whether a failed call is worth another attempt:
// network errors and the API's 429/5xx replies
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	code := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case stderrors.As(err, &apiErr):
		code = apiErr.Code
	case stderrors.As(err, &apiErrPtr) && apiErrPtr != nil:
		code = apiErrPtr.Code
	}

	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.circuitBreaker.GetStats(),
		"model_operations": g.modelBreaker.GetModelStats(),
		"overall_healthy":  g.circuitBreaker.IsHealthy() && g.modelBreaker.IsModelHealthy(),
	}
}

// Close implements Provider. The genai client holds no resources in unary mode.
func (g *GeminiProvider) Close() error {
	return nil
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
