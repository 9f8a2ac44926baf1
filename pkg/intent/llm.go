package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/printforge/teepress/config"
	"github.com/printforge/teepress/pkg/models"
)

const systemPrompt = `You extract t-shirt design requests from chat messages.
Identify the main phrase to print, the text style (modern, retro, bold, script
or graffiti), whether the user wants accompanying artwork, a description of
that artwork if mentioned, and any color preference. If the user writes
something like "I need a shirt that says 'Coffee is life'", the phrase is
"Coffee is life". Respond with JSON only.`

// requestSchema constrains the model output to the DesignRequest shape.
var requestSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"phrase":            map[string]any{"type": "string"},
		"style":             map[string]any{"type": "string"},
		"wants_image":       map[string]any{"type": "boolean"},
		"image_description": map[string]any{"type": "string"},
		"color_preference":  map[string]any{"type": "string"},
	},
	"required": []string{"phrase", "style", "wants_image"},
}

type llmExtractor struct {
	cfg    config.LLM
	client *http.Client
}

func newLLMExtractor(cfg config.LLM) *llmExtractor {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &llmExtractor{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat any           `json:"response_format"`
	Temperature    float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// extract performs one schema-constrained chat completion and decodes the
// model's JSON into a DesignRequest.
func (l *llmExtractor) extract(ctx context.Context, raw string) (*models.DesignRequest, error) {
	if l.cfg.URL == "" {
		return nil, fmt.Errorf("no llm endpoint configured")
	}

	body := chatRequest{
		Model: l.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: raw},
		},
		ResponseFormat: map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "design_request",
				"schema": requestSchema,
			},
		},
		Temperature: 0.7,
	}
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.URL, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+l.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("llm responded with status %d: %s", resp.StatusCode, string(b))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("chat response contained no choices")
	}

	parsed := &models.DesignRequest{}
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), parsed); err != nil {
		return nil, fmt.Errorf("model output was not schema-conformant: %w", err)
	}
	if err := validateExtracted(parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}
