package judgment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// openAIClassifier ходит в любой OpenAI-совместимый API (OpenAI, OpenRouter, DeepSeek, vLLM).
type openAIClassifier struct {
	client      *openaigo.Client
	model       string
	temperature float32
	maxTokens   int
	metrics     *Metrics
	logger      *zap.Logger
}

func newOpenAIClassifier(cfg BackendConfig, metrics *Metrics, logger *zap.Logger) (*openAIClassifier, error) {
	if cfg.Model == "" {
		return nil, errors.New("openai judge: model is required")
	}
	clientCfg := openaigo.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.HTTPTimeout}

	return &openAIClassifier{
		client:      openaigo.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		metrics:     metrics,
		logger:      logger.Named("OpenAIJudge"),
	}, nil
}

func (c *openAIClassifier) Name() string { return BackendOpenAI }

func (c *openAIClassifier) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model: c.model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openaigo.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		// go-openai отдает *APIError для не-2xx ответов
		var apiErr *openaigo.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("openai judge: status %d: %w", apiErr.HTTPStatusCode, err)
		}
		return "", fmt.Errorf("openai judge: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty completion", ErrMalformedReply)
	}

	content := resp.Choices[0].Message.Content
	promptTokens, completionTokens := resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	if resp.Usage.TotalTokens == 0 {
		promptTokens, completionTokens = estimateTokens(systemPrompt+prompt), estimateTokens(content)
	}
	c.metrics.ObserveTokens(BackendOpenAI, promptTokens, completionTokens)
	c.logger.Debug("Judge replied",
		zap.String("model", c.model),
		zap.Int("promptTokens", promptTokens),
		zap.Int("completionTokens", completionTokens),
	)
	return content, nil
}
