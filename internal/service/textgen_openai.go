package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/cardsmith/internal/config"
	"github.com/timmy/cardsmith/internal/domain"
)

// OpenAITextGenerator calls any OpenAI-compatible chat completions endpoint.
type OpenAITextGenerator struct {
	client   *resty.Client
	model    string
	endpoint string
}

// NewOpenAITextGenerator creates an OpenAI-compatible client.
func NewOpenAITextGenerator(cfg *config.TextGenConfig) *OpenAITextGenerator {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" || strings.Contains(baseURL, "generativelanguage.googleapis.com") {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAITextGenerator{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (g *OpenAITextGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	req := chatRequest{
		Model:    g.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	}

	var resp chatResponse
	httpResp, err := g.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(g.endpoint)
	if err != nil {
		return "", &domain.UpstreamError{Provider: "openai", Err: err}
	}

	if httpResp.IsError() {
		msg := string(httpResp.Body())
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return "", &domain.UpstreamError{Provider: "openai", StatusCode: httpResp.StatusCode(), Err: fmt.Errorf("%s", msg)}
	}
	if resp.Error != nil {
		return "", &domain.UpstreamError{Provider: "openai", Err: fmt.Errorf("%s", resp.Error.Message)}
	}
	if len(resp.Choices) == 0 {
		return "", &domain.UpstreamError{Provider: "openai", Err: fmt.Errorf("no choices in response")}
	}

	return StripCodeFences(resp.Choices[0].Message.Content), nil
}
