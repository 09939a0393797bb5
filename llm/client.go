package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"vrscout/config"
	"vrscout/models"
)

const systemPrompt = `You extract postal addresses of vacation rental properties from page text.
Respond with a JSON object: {"street_address": "", "city": "", "state": "", "postal_code": ""}.
Use two-letter US state abbreviations. Leave a field empty if the page does not state it.
If the page contains no property address at all, return all fields empty.
Never invent an address.`

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string    `json:"model"`
	Messages       []message `json:"messages"`
	Temperature    float64   `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to an OpenAI-compatible chat completions endpoint. It is
// the last-resort extraction strategy, only consulted when every
// deterministic strategy came up empty.
type Client struct {
	cfg  config.LLMConfig
	http *http.Client
}

func NewClient(cfg config.LLMConfig, httpClient *http.Client) *Client {
	return &Client{cfg: cfg, http: httpClient}
}

// Confidence is the raw confidence assigned to model-sourced
// candidates.
func (c *Client) Confidence() float64 {
	return c.cfg.Confidence
}

// ExtractAddress asks the model to read a page excerpt and return the
// property address. A nil result with nil error means the model found
// no address.
func (c *Client) ExtractAddress(ctx context.Context, excerpt, marketHint string) (*models.PartialAddress, error) {
	userPrompt := fmt.Sprintf("Market region: %s\n\nPage text:\n%s", marketHint, excerpt)

	req := chatRequest{
		Model: c.cfg.Model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	req.ResponseFormat.Type = "json_object"

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read llm response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm status %d: %s", resp.StatusCode, truncateForLog(respBody))
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return nil, fmt.Errorf("decode llm response: %w", err)
	}
	if chat.Error != nil {
		return nil, fmt.Errorf("llm error: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("llm returned no choices")
	}

	var partial models.PartialAddress
	content := chat.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &partial); err != nil {
		log.Printf("llm: unparseable content: %s", truncateForLog([]byte(content)))
		return nil, fmt.Errorf("parse llm content: %w", err)
	}

	if strings.TrimSpace(partial.Street) == "" {
		return nil, nil
	}
	partial.Confidence = c.cfg.Confidence
	return &partial, nil
}

func truncateForLog(b []byte) string {
	const max = 300
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
