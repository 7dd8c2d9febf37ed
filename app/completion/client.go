// Package completion turns a natural-language request into a spreadsheet
// formula using an OpenAI-compatible chat completion API.
package completion

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"example/formula-api/app/models"

	openai "github.com/sashabaranov/go-openai"
)

// Client generates one formula result per prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (models.FormulaResult, error)
}

type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAI builds a client; an empty baseURL targets api.openai.com.
func NewOpenAI(apiKey, model, baseURL string, timeout time.Duration) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &OpenAI{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
	}
}

func (c *OpenAI) Generate(ctx context.Context, prompt string) (models.FormulaResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return models.FormulaResult{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.FormulaResult{}, ErrEmptyResponse
	}
	return ParseResult(resp.Choices[0].Message.Content)
}
