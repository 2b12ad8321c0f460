package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiClient talks to the Gemini API through the official SDK.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient builds a Gemini gateway from an API key.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: c}, nil
}

// Close releases the underlying SDK connection.
func (g *GeminiClient) Close() error { return g.client.Close() }

func (g *GeminiClient) Invoke(ctx context.Context, req Request) (string, error) {
	if req.Stream {
		return "", errStreamingUnsupported("gemini")
	}

	m := g.client.GenerativeModel(req.Model)
	if req.SystemInstruction != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemInstruction)},
		}
	}
	if req.Temperature != nil {
		m.SetTemperature(float32(*req.Temperature))
	}
	if req.TopP != nil {
		m.SetTopP(float32(*req.TopP))
	}
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	resp, err := m.GenerateContent(ctx, genai.Text(flattenMessages(req.Messages)))
	if err != nil {
		return "", classifyGeminiError(err)
	}
	text := firstText(resp)
	if text == "" {
		return "", NewError("gemini", CategoryModelError, false, errors.New("no text in response"))
	}
	return text, nil
}

// flattenMessages folds a conversation into one prompt. Gemini's chat
// sessions are stateful; the pipeline only ever sends a single rendered
// prompt, so a flat transcript is sufficient.
func flattenMessages(messages []Message) string {
	if len(messages) == 1 {
		return messages[0].Content
	}
	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
	}
	return b.String()
}

func firstText(r *genai.GenerateContentResponse) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func classifyGeminiError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return classifyStatus("gemini", apiErr.Code, apiErr.Message)
	}
	return classifyTransport("gemini", err)
}
