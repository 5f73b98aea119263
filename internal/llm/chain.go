package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sentiment-service/internal/gemini"
	"sentiment-service/internal/groq"
	"sentiment-service/internal/models"
	"sentiment-service/internal/openai"
	"sentiment-service/internal/openrouter"
	"sentiment-service/internal/sentiment"

	"go.uber.org/zap"
)

// ProviderType represents the type of LLM provider.
type ProviderType string

const (
	ProviderGemini     ProviderType = "gemini"
	ProviderGroq       ProviderType = "groq"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderOpenAI     ProviderType = "openai"
)

// ProviderConfig holds configuration for a single provider instance. The
// order of entries in the config file is the escalation order.
type ProviderConfig struct {
	Type           ProviderType `yaml:"type"`
	APIKey         string       `yaml:"api_key"`
	ModelName      string       `yaml:"model_name"`
	BaseURL        string       `yaml:"base_url"`
	TimeoutSeconds int          `yaml:"timeout_seconds"`
}

// Provider is one remote classification service. A Classify call issues
// exactly one request; escalation and cooldown policy belong to the Chain.
type Provider interface {
	Classify(ctx context.Context, text string) (*models.SentimentResponse, error)
	Name() string
	Close() error
}

// ChainConfig holds the chain's behavior knobs.
type ChainConfig struct {
	// Cooldown is the delay applied after a rate-limited failure before the
	// next provider is tried.
	Cooldown time.Duration
	// TextTruncateLen caps the characters sent to a provider.
	TextTruncateLen int
}

const (
	defaultCooldown        = 1500 * time.Millisecond
	defaultTextTruncateLen = 500
)

// Chain walks an ordered list of remote providers and falls back to the
// local rule-based classifier when every provider fails. Classify never
// returns an error and never touches stored state.
type Chain struct {
	providers   []Provider
	cooldown    time.Duration
	truncateLen int
	logger      *zap.Logger
}

// NewChain creates a provider chain. An empty provider list is valid: every
// classification then resolves through the rule-based fallback.
func NewChain(providers []Provider, cfg ChainConfig, logger *zap.Logger) *Chain {
	if cfg.Cooldown == 0 {
		cfg.Cooldown = defaultCooldown
	}
	if cfg.TextTruncateLen == 0 {
		cfg.TextTruncateLen = defaultTextTruncateLen
	}

	return &Chain{
		providers:   providers,
		cooldown:    cfg.Cooldown,
		truncateLen: cfg.TextTruncateLen,
		logger:      logger,
	}
}

// NewChainFromConfig builds the providers named in configuration, in order.
// Unknown types and providers that fail to initialize are skipped so one bad
// config entry cannot take the whole chain down.
func NewChainFromConfig(providerCfgs []ProviderConfig, cfg ChainConfig, logger *zap.Logger) *Chain {
	providers := make([]Provider, 0, len(providerCfgs))

	for i, pc := range providerCfgs {
		timeout := time.Duration(pc.TimeoutSeconds) * time.Second

		var provider Provider
		var err error

		switch pc.Type {
		case ProviderGemini:
			provider, err = gemini.NewClient(gemini.Config{
				APIKey:    pc.APIKey,
				ModelName: pc.ModelName,
				Timeout:   timeout,
			}, logger)
		case ProviderGroq:
			provider, err = groq.NewClient(groq.Config{
				APIKey:    pc.APIKey,
				ModelName: pc.ModelName,
				Timeout:   timeout,
			}, logger)
		case ProviderOpenRouter:
			provider, err = openrouter.NewClient(openrouter.Config{
				APIKey:    pc.APIKey,
				ModelName: pc.ModelName,
				Timeout:   timeout,
			}, logger)
		case ProviderOpenAI:
			provider, err = openai.NewClient(openai.Config{
				APIKey:    pc.APIKey,
				ModelName: pc.ModelName,
				BaseURL:   pc.BaseURL,
				Timeout:   timeout,
			}, logger)
		default:
			logger.Warn("Unknown provider type, skipping",
				zap.String("type", string(pc.Type)),
				zap.Int("index", i))
			continue
		}

		if err != nil {
			logger.Error("Failed to create provider",
				zap.String("type", string(pc.Type)),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}

		providers = append(providers, provider)
		logger.Info("Provider initialized",
			zap.String("type", string(pc.Type)),
			zap.String("model", pc.ModelName),
			zap.Int("index", i))
	}

	return NewChain(providers, cfg, logger)
}

// Classify escalates through the providers in order and returns the first
// success, clamped into range and tagged with the provider name. Rate-limited
// failures cool down before the next provider; structural failures move on
// immediately. When every provider is exhausted the rule-based result is
// returned tagged "fallback", so Classify is total.
func (c *Chain) Classify(ctx context.Context, text string) models.Classification {
	truncated := c.truncate(text)

	for i, provider := range c.providers {
		resp, err := provider.Classify(ctx, truncated)
		if err == nil && !resp.Label.Valid() {
			err = fmt.Errorf("invalid sentiment label %q from %s", resp.Label, provider.Name())
		}
		if err == nil {
			return models.Classification{
				Label:      resp.Label,
				Score:      models.Clamp(resp.Score, -1, 1),
				Confidence: models.Clamp(resp.Confidence, 0, 1),
				Provider:   provider.Name(),
			}
		}

		rateLimited := isRateLimitError(err)
		c.logger.Warn("Provider failed",
			zap.String("provider", provider.Name()),
			zap.Bool("rate_limited", rateLimited),
			zap.Error(err))

		if rateLimited && i < len(c.providers)-1 {
			c.wait(ctx)
		}
	}

	result := sentiment.Classify(text)
	result.Provider = models.ProviderFallback
	return result
}

// Providers returns the names of the configured providers in order.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Close closes all providers.
func (c *Chain) Close() error {
	var lastErr error
	for _, provider := range c.providers {
		if err := provider.Close(); err != nil {
			c.logger.Error("Failed to close provider",
				zap.String("provider", provider.Name()),
				zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}

func (c *Chain) truncate(text string) string {
	if len(text) <= c.truncateLen {
		return text
	}
	runes := []rune(text)
	if len(runes) <= c.truncateLen {
		return text
	}
	return string(runes[:c.truncateLen])
}

func (c *Chain) wait(ctx context.Context) {
	select {
	case <-time.After(c.cooldown):
	case <-ctx.Done():
	}
}

// isRateLimitError classifies a provider failure as transient rate limiting.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "resource exhausted") ||
		strings.Contains(msg, "resource_exhausted")
}
