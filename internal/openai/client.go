package openai

import (
	"context"
	"fmt"
	"time"

	"sentiment-service/internal/gemini"
	"sentiment-service/internal/models"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Client wraps the OpenAI SDK client.
type Client struct {
	client    *openai.Client
	logger    *zap.Logger
	modelName string
	timeout   time.Duration
}

// Config for OpenAI client.
type Config struct {
	APIKey    string
	ModelName string // Default: "gpt-4o-mini"
	BaseURL   string // Optional override for OpenAI-compatible endpoints
	Timeout   time.Duration
}

// NewClient creates a new OpenAI client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	if cfg.ModelName == "" {
		cfg.ModelName = "gpt-4o-mini"
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger.Info("OpenAI client initialized", zap.String("model", cfg.ModelName))

	return &Client{
		client:    openai.NewClientWithConfig(clientCfg),
		logger:    logger,
		modelName: cfg.ModelName,
		timeout:   cfg.Timeout,
	}, nil
}

// Name identifies the provider in classification results.
func (c *Client) Name() string {
	return "openai"
}

// Close closes the OpenAI client.
func (c *Client) Close() error {
	return nil
}

// Classify sends one classification request.
func (c *Client) Classify(ctx context.Context, text string) (*models.SentimentResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: gemini.SystemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: gemini.BuildPrompt(text)},
		},
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from openai")
	}

	result, err := gemini.ParseSentimentJSON(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("openai response: %w", err)
	}

	c.logger.Debug("OpenAI classification",
		zap.String("label", string(result.Label)),
		zap.Float64("score", result.Score))

	return result, nil
}
