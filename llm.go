package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// completer is the model boundary: plain text completions for advice, revisions,
// and recalibration notes, and vision completions for meal photos. Both return
// the raw assistant message.
type completer interface {
	CompleteText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteVision(ctx context.Context, systemPrompt, userPrompt string, imagesBase64 []string) (string, error)
}

const (
	visionMaxTokens = 1024
	textMaxTokens   = 512
)

// llmClient talks to any OpenAI-compatible chat completions endpoint.
type llmClient struct {
	client      *openai.Client
	apiKey      string
	visionModel string
	textModel   string
}

func newLLMClient(cfg llmConfig) *llmClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &llmClient{
		client:      openai.NewClientWithConfig(clientConfig),
		apiKey:      cfg.APIKey,
		visionModel: cfg.VisionModel,
		textModel:   cfg.TextModel,
	}
}

var errNoChoices = errors.New("no choices in response")

func (l *llmClient) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if l.apiKey == "" {
		return "", fmt.Errorf("LLM_API_KEY not set")
	}
	resp, err := l.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion (%s): %w", req.Model, err)
	}
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

func (l *llmClient) CompleteText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return l.complete(ctx, openai.ChatCompletionRequest{
		Model: l.textModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		MaxTokens: textMaxTokens,
	})
}

// CompleteVision sends the images ahead of the text prompt in one user message.
func (l *llmClient) CompleteVision(ctx context.Context, systemPrompt, userPrompt string, imagesBase64 []string) (string, error) {
	parts := make([]openai.ChatMessagePart, 0, len(imagesBase64)+1)
	for _, b64 := range imagesBase64 {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: imageDataURI(b64)},
		})
	}
	parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: userPrompt})

	return l.complete(ctx, openai.ChatCompletionRequest{
		Model: l.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		MaxTokens: visionMaxTokens,
	})
}

// imageDataURI passes data: URIs through and assumes bare base64 is JPEG.
func imageDataURI(b64 string) string {
	if strings.HasPrefix(b64, "data:") {
		return b64
	}
	return "data:image/jpeg;base64," + b64
}
