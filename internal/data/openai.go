package data

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"telegram-campaign-engine/internal/biz/repo"
)

const (
	deepseekBaseURL = "https://api.deepseek.com/v1"
	moonshotBaseURL = "https://api.moonshot.cn/v1"
)

// OpenAIProvider is an LLM provider speaking the OpenAI chat-completion
// protocol. Compatible vendors differ only in base URL and default model.
type OpenAIProvider struct {
	name         string
	client       *openai.Client
	defaultModel string
}

// NewOpenAICompatible creates a provider against any OpenAI-compatible
// endpoint. An empty baseURL means the OpenAI API itself.
func NewOpenAICompatible(name, apiKey, baseURL, defaultModel string) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIProvider{
		name:         name,
		client:       openai.NewClientWithConfig(config),
		defaultModel: defaultModel,
	}
}

// NewOpenAI creates the OpenAI provider.
func NewOpenAI(apiKey, defaultModel string) *OpenAIProvider {
	if defaultModel == "" {
		defaultModel = "gpt-4o-mini"
	}
	return NewOpenAICompatible("openai", apiKey, "", defaultModel)
}

// NewDeepSeek creates the DeepSeek provider.
func NewDeepSeek(apiKey, defaultModel string) *OpenAIProvider {
	if defaultModel == "" {
		defaultModel = "deepseek-chat"
	}
	return NewOpenAICompatible("deepseek", apiKey, deepseekBaseURL, defaultModel)
}

// NewMoonshot creates the Moonshot provider.
func NewMoonshot(apiKey, defaultModel string) *OpenAIProvider {
	if defaultModel == "" {
		defaultModel = "moonshot-v1-8k"
	}
	return NewOpenAICompatible("moonshot", apiKey, moonshotBaseURL, defaultModel)
}

// Name returns the registry key of this provider.
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Generate sends the prompt as a single user message and returns the
// completion text.
func (p *OpenAIProvider) Generate(ctx context.Context, req repo.GenerateRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", repo.ErrProviderUnavailable, p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", repo.ErrEmptyCompletion
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
