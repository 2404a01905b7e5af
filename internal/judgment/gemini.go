package judgment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

type geminiClassifier struct {
	client      *genai.Client
	model       string
	temperature float32
	metrics     *Metrics
	logger      *zap.Logger
}

func newGeminiClassifier(ctx context.Context, cfg BackendConfig, metrics *Metrics, logger *zap.Logger) (*geminiClassifier, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini judge: API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini judge: create client: %w", err)
	}
	return &geminiClassifier{
		client:      client,
		model:       model,
		temperature: cfg.Temperature,
		metrics:     metrics,
		logger:      logger.Named("GeminiJudge"),
	}, nil
}

func (c *geminiClassifier) Name() string { return BackendGemini }

func (c *geminiClassifier) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
			Temperature:       genai.Ptr(c.temperature),
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini judge: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty completion", ErrMalformedReply)
	}

	promptTokens, completionTokens := 0, 0
	if u := resp.UsageMetadata; u != nil {
		promptTokens, completionTokens = int(u.PromptTokenCount), int(u.CandidatesTokenCount)
	} else {
		promptTokens, completionTokens = estimateTokens(prompt), estimateTokens(text)
	}
	c.metrics.ObserveTokens(BackendGemini, promptTokens, completionTokens)
	c.logger.Debug("Judge replied", zap.String("model", c.model), zap.Int("completionTokens", completionTokens))
	return text, nil
}
