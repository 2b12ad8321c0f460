package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// anthropicDefaultMaxTokens is required by the messages API when the caller
// does not set a limit.
const anthropicDefaultMaxTokens = 4096

// AnthropicClient talks to the Anthropic messages API.
type AnthropicClient struct {
	APIKey     string
	BaseURL    string // default https://api.anthropic.com
	HTTPClient *http.Client
}

func (c *AnthropicClient) Invoke(ctx context.Context, req Request) (string, error) {
	if req.Stream {
		return "", errStreamingUnsupported("anthropic")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	body := map[string]any{
		"model":      req.Model,
		"max_tokens": maxTokens,
		"messages":   req.Messages,
	}
	if req.SystemInstruction != "" {
		body["system"] = req.SystemInstruction
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		body["top_p"] = *req.TopP
	}

	b, err := json.Marshal(body)
	if err != nil {
		return "", NewError("anthropic", CategoryInvalidRequest, false, fmt.Errorf("encode request: %w", err))
	}
	base := c.BaseURL
	if base == "" {
		base = "https://api.anthropic.com"
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/v1/messages", bytes.NewReader(b))
	if err != nil {
		return "", NewError("anthropic", CategoryInvalidRequest, false, err)
	}
	httpReq.Header.Set("x-api-key", c.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("content-type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = defaultHTTPClient
	}
	res, err := client.Do(httpReq)
	if err != nil {
		return "", classifyTransport("anthropic", err)
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return "", classifyTransport("anthropic", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", classifyStatus("anthropic", res.StatusCode, string(respBody))
	}

	var resp struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", NewError("anthropic", CategoryUnknown, false, fmt.Errorf("decode response: %w", err))
	}
	if len(resp.Content) == 0 {
		return "", NewError("anthropic", CategoryModelError, false, errors.New("no content in response"))
	}
	return resp.Content[0].Text, nil
}
