package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// OpenAIClient implementa CompletionClient contra cualquier API compatible con OpenAI (DeepSeek por defecto).
type OpenAIClient struct {
	client openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIClient devuelve ErrCompletionUnavailable si no hay API key; el llamador queda en modo fallback.
func NewOpenAIClient(baseURL, apiKey, model string, timeout time.Duration, logger *zap.Logger) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: api key not configured", ErrCompletionUnavailable)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseURL == "" {
		baseURL = "https://api.deepseek.com/v1"
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		// Un solo intento; el llamador decide el fallback.
		option.WithMaxRetries(0),
	)
	return &OpenAIClient{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	turns := buildTurns(req)
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.role {
		case "system":
			messages = append(messages, openai.SystemMessage(t.content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(t.content))
		default:
			messages = append(messages, openai.UserMessage(t.content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	}
	applyGenerationParams(&params, req.Params)

	start := time.Now()
	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		c.logger.Warn("llm request failed", zap.Error(err), zap.String("model", c.model))
		return "", fmt.Errorf("llm request: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", ErrEmptyCompletion
	}

	content := completion.Choices[0].Message.Content
	c.logger.Debug("llm response received",
		zap.String("model", c.model),
		zap.Int("messages", len(messages)),
		zap.Int("content_length", len(content)),
		zap.Duration("latency", time.Since(start)),
	)
	return content, nil
}

func applyGenerationParams(params *openai.ChatCompletionNewParams, p GenerationParams) {
	if p.Temperature > 0 {
		params.Temperature = openai.Float(p.Temperature)
	}
	if p.MaxTokens > 0 {
		params.MaxTokens = openai.Int(p.MaxTokens)
	}
	if p.TopP > 0 {
		params.TopP = openai.Float(p.TopP)
	}
	if p.FrequencyPenalty != 0 {
		params.FrequencyPenalty = openai.Float(p.FrequencyPenalty)
	}
	if p.PresencePenalty != 0 {
		params.PresencePenalty = openai.Float(p.PresencePenalty)
	}
}
