package openai

import (
	"context"
	"fmt"

	"github.com/mikey/phishgard/internal/core"
	"github.com/mikey/phishgard/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient is an implementation of the LLMClient interface using OpenAI
type OpenAIClient struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat:  utils.PhishingPromptFormat,
	}
}

// Classify asks the model whether the email is phishing
func (c *OpenAIClient) Classify(ctx context.Context, email *core.Email) (*core.LLMResult, error) {
	body := c.textProcessor.PromptBody(email, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat,
		c.textProcessor.Normalize(email.From),
		c.textProcessor.Normalize(email.Subject),
		body)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: utils.PhishingSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	responseText := resp.Choices[0].Message.Content
	parsed := utils.ParseClassification(responseText)
	if parsed.Classification == utils.ClassUnknown {
		c.logger.Warn("Could not read classification from OpenAI response",
			zap.String("request_id", resp.ID),
			zap.String("response", responseText))
	}

	c.logger.Debug("OpenAI classification",
		zap.String("request_id", resp.ID),
		zap.String("classification", parsed.Classification),
		zap.Int("confidence", parsed.Confidence))

	return parsed.Result(c.modelName), nil
}
