// Package llm implements the completion and embedding service boundaries
// against an OpenAI-compatible HTTP API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Config struct {
	BaseURL             string
	APIKey              string
	CompletionModel     string
	EmbeddingModel      string
	EmbeddingDimensions int
	Temperature         float64
	Timeout             time.Duration
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Client struct {
	baseURL         string
	apiKey          string
	completionModel string
	embeddingModel  string
	embeddingDims   int
	temperature     float64
	client          *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	completionModel := strings.TrimSpace(cfg.CompletionModel)
	if completionModel == "" {
		completionModel = "gpt-4.1-mini"
	}
	embeddingModel := strings.TrimSpace(cfg.EmbeddingModel)
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:         strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:          strings.TrimSpace(cfg.APIKey),
		completionModel: completionModel,
		embeddingModel:  embeddingModel,
		embeddingDims:   cfg.EmbeddingDimensions,
		temperature:     cfg.Temperature,
		client:          &http.Client{Timeout: timeout},
	}, nil
}

// Complete sends a chat completion and returns the raw text of the first
// choice.
func (c *Client) Complete(ctx context.Context, system string, messages []Message) (string, error) {
	payload := map[string]any{
		"model":       c.completionModel,
		"messages":    buildMessages(system, messages),
		"temperature": c.temperature,
	}
	content, err := c.chatCompletion(ctx, payload)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("model returned empty completion")
	}
	return content, nil
}

// CompleteJSON sends a chat completion constrained to the given JSON schema
// and decodes the result into out. Any deviation from the schema, including
// unknown fields, is a call failure.
func (c *Client) CompleteJSON(ctx context.Context, system string, messages []Message, schemaName string, jsonSchema map[string]any, out any) error {
	payload := map[string]any{
		"model":       c.completionModel,
		"messages":    buildMessages(system, messages),
		"temperature": c.temperature,
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   schemaName,
				"strict": true,
				"schema": jsonSchema,
			},
		},
	}
	content, err := c.chatCompletion(ctx, payload)
	if err != nil {
		return err
	}

	decoder := json.NewDecoder(strings.NewReader(content))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode structured output %q: %w", schemaName, err)
	}
	return nil
}

func (c *Client) chatCompletion(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("chat completion failed status=%d body=%s", resp.StatusCode, string(rawRespBody))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return "", fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty chat completion choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func buildMessages(system string, messages []Message) []Message {
	built := make([]Message, 0, len(messages)+1)
	if strings.TrimSpace(system) != "" {
		built = append(built, Message{Role: "system", Content: system})
	}
	return append(built, messages...)
}
