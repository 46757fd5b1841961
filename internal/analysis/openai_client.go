package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/waveline/engage-gateway/internal/model"
)

const classifySystemPrompt = `You are a customer-engagement analyst for a WhatsApp business line.
Given the latest customer message and recent conversation context, respond with a single JSON object:
{"intent": string, "sentiment": "positive"|"neutral"|"negative", "urgency": "low"|"normal"|"high",
"topics": [string], "confidence": number between 0 and 1, "suggested_response": string, "triggers": [string]}.
Respond with JSON only.`

const replySystemPrompt = `You are a helpful WhatsApp support assistant.
Write one short, friendly reply to the customer. Plain text only, no markdown.`

// OpenAIClient backs the analysis boundary with the OpenAI chat API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	return &OpenAIClient{
		client: openai.NewClient(cfg.APIKey),
		model:  cfg.Model,
	}, nil
}

func (c *OpenAIClient) Classify(ctx context.Context, req ClassifyRequest) (*model.Classification, error) {
	var sb strings.Builder
	for _, m := range req.ContextMessages {
		fmt.Fprintf(&sb, "%s: %s\n", m.Sender, m.Text)
	}
	fmt.Fprintf(&sb, "customer: %s", req.Text)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: sb.String()},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai classify: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai classify: empty response")
	}

	var out model.Classification
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return nil, fmt.Errorf("openai classify: decode: %w", err)
	}
	return &out, nil
}

func (c *OpenAIClient) GenerateReply(ctx context.Context, cl *model.Classification, contact *model.Contact, history []*model.Message) (string, error) {
	var sb strings.Builder
	if contact != nil && contact.Name != "" {
		fmt.Fprintf(&sb, "Customer name: %s\n", contact.Name)
	}
	fmt.Fprintf(&sb, "Detected intent: %s, sentiment: %s\n", cl.Intent, cl.Sentiment)
	sb.WriteString("Conversation:\n")
	for _, m := range history {
		fmt.Fprintf(&sb, "%s: %s\n", m.SenderType, m.Content)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: replySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: sb.String()},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai generate reply: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai generate reply: empty response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
