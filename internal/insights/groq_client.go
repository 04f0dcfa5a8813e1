package insights

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// GroqLLMClient implements LLMClient against Groq's OpenAI-compatible chat
// completions API.
type GroqLLMClient struct {
	client  *openai.Client
	modelID string
}

// NewGroqLLMClient creates a new Groq LLM client. baseURL is overridable so
// tests can point the client at a local server.
func NewGroqLLMClient(apiKey, baseURL, modelID string) (*GroqLLMClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("insights: groq api key is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "llama-3.3-70b-versatile"
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL

	return &GroqLLMClient{
		client:  openai.NewClientWithConfig(cfg),
		modelID: modelID,
	}, nil
}

// Complete sends a completion request to Groq and returns the response.
func (c *GroqLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if len(req.Messages) == 0 {
		return LLMResponse{}, errors.New("insights: groq requires at least one message")
	}

	model := req.Model
	if model == "" {
		model = c.modelID
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if systemText := strings.TrimSpace(strings.Join(req.System, "\n\n")); systemText != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemText,
		})
	}
	for _, msg := range req.Messages {
		role := msg.Role
		if role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   int(req.MaxTokens),
	})
	if err != nil {
		return LLMResponse{}, fmt.Errorf("insights: groq completion failed: %w", err)
	}
	usage := TokenUsage{
		InputTokens:  int32(resp.Usage.PromptTokens),
		OutputTokens: int32(resp.Usage.CompletionTokens),
		TotalTokens:  int32(resp.Usage.TotalTokens),
	}

	// An answer with no choices is a successful call that produced no
	// content, not a failure. Callers map empty text to their own sentinel.
	if len(resp.Choices) == 0 {
		return LLMResponse{Usage: usage}, nil
	}

	choice := resp.Choices[0]
	return LLMResponse{
		Text:       choice.Message.Content,
		StopReason: string(choice.FinishReason),
		Usage:      usage,
	}, nil
}
