package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"sentiment-service/internal/models"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Client wraps the Gemini API client.
type Client struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	logger    *zap.Logger
	modelName string
	timeout   time.Duration
}

// Config for Gemini client.
type Config struct {
	APIKey    string
	ModelName string // Default: "gemini-2.0-flash-exp"
	Timeout   time.Duration
}

// NewClient creates a new Gemini client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-2.0-flash-exp"
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)

	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SystemInstruction)},
	}

	// Force JSON output
	model.ResponseMIMEType = "application/json"

	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.2),
		TopP:            genai.Ptr[float32](0.9),
		TopK:            genai.Ptr[int32](40),
		MaxOutputTokens: genai.Ptr[int32](200),
	}

	logger.Info("Gemini client initialized", zap.String("model", cfg.ModelName))

	return &Client{
		client:    client,
		model:     model,
		logger:    logger,
		modelName: cfg.ModelName,
		timeout:   cfg.Timeout,
	}, nil
}

// Name identifies the provider in classification results.
func (c *Client) Name() string {
	return "gemini"
}

// Close closes the Gemini client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Classify sends one classification request. Retry and escalation policy is
// owned by the provider chain, not the client.
func (c *Client) Classify(ctx context.Context, text string) (*models.SentimentResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.model.GenerateContent(ctx, genai.Text(BuildPrompt(text)))
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from gemini")
	}

	textPart, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("unexpected response type from gemini")
	}

	result, err := ParseSentimentJSON(string(textPart))
	if err != nil {
		return nil, fmt.Errorf("gemini response: %w", err)
	}

	c.logger.Debug("Gemini classification",
		zap.String("label", string(result.Label)),
		zap.Float64("score", result.Score))

	return result, nil
}

// ParseSentimentJSON parses a provider reply into the strict response shape,
// stripping the markdown code fences some models wrap around JSON. Shared by
// the OpenAI-compatible providers.
func ParseSentimentJSON(content string) (*models.SentimentResponse, error) {
	clean := strings.TrimSpace(content)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var result models.SentimentResponse
	if err := json.Unmarshal([]byte(clean), &result); err != nil {
		return nil, fmt.Errorf("failed to parse sentiment JSON: %w", err)
	}

	if !result.Label.Valid() {
		return nil, fmt.Errorf("invalid sentiment label: %q", result.Label)
	}

	return &result, nil
}
