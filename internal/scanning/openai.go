package scanning

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI implements the Scanner interface using an OpenAI-compatible chat
// completions API with vision support.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a new OpenAI Scanner instance. baseURL may be empty for
// the public API, or point at any OpenAI-compatible endpoint.
func NewOpenAI(apiKey, baseURL, modelName string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if modelName == "" {
		modelName = "gpt-4o"
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		model:  modelName,
	}, nil
}

// ScanReceipt analyzes a receipt and extracts tax-relevant fields
func (o *OpenAI) ScanReceipt(imageData []byte, contentType string) (*ReceiptData, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Prepare image data (convert to PNG if needed)
	finalImageData, mimeType, _, err := prepareImageData(imageData, contentType)
	if err != nil {
		return nil, err
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(finalImageData))

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a tax receipt analyzer. Extract key information from receipt images and justify the categorization decision for tax compliance purposes.",
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: receiptScanPrompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from model")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)

	data, err := Normalize(stripCodeFences(text))
	if err != nil {
		return nil, fmt.Errorf("normalizing model response: %w", err)
	}
	return data, nil
}

// Close closes the OpenAI client (no-op for HTTP client)
func (o *OpenAI) Close() error {
	return nil
}
