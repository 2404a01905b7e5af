package judgment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// ollamaClassifier использует нативный /api/chat, а не OpenAI-совместимый слой.
type ollamaClassifier struct {
	client      *api.Client
	model       string
	temperature float32
	metrics     *Metrics
	logger      *zap.Logger
}

func newOllamaClassifier(cfg BackendConfig, metrics *Metrics, logger *zap.Logger) (*ollamaClassifier, error) {
	if cfg.Model == "" {
		return nil, errors.New("ollama judge: model is required")
	}
	// api.NewClient ждет URL без суффикса /v1
	base := strings.TrimSuffix(strings.TrimSuffix(cfg.BaseURL, "/"), "/v1")
	if base == "" {
		base = "http://localhost:11434"
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("ollama judge: parse base url %q: %w", base, err)
	}
	return &ollamaClassifier{
		client:      api.NewClient(parsed, &http.Client{Timeout: cfg.HTTPTimeout}),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		metrics:     metrics,
		logger:      logger.Named("OllamaJudge"),
	}, nil
}

func (c *ollamaClassifier) Name() string { return BackendOllama }

func (c *ollamaClassifier) Complete(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Stream: &stream,
		Format: []byte(`"json"`),
		Options: map[string]interface{}{
			"temperature": c.temperature,
		},
	}

	var last api.ChatResponse
	err := c.client.Chat(ctx, req, func(r api.ChatResponse) error {
		last = r
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama judge: %w", err)
	}
	if strings.TrimSpace(last.Message.Content) == "" {
		return "", fmt.Errorf("%w: empty completion", ErrMalformedReply)
	}

	c.metrics.ObserveTokens(BackendOllama, last.PromptEvalCount, last.EvalCount)
	c.logger.Debug("Judge replied", zap.String("model", c.model), zap.Int("evalCount", last.EvalCount))
	return last.Message.Content, nil
}
