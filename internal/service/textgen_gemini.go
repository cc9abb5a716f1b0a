package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/cardsmith/internal/config"
	"github.com/timmy/cardsmith/internal/domain"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiTextGenerator calls the Gemini generateContent REST API.
type GeminiTextGenerator struct {
	client   *resty.Client
	model    string
	apiKey   string
	endpoint string
}

// NewGeminiTextGenerator creates a Gemini client.
// Parameters:
//   - cfg: text generation configuration including model, API key and base URL.
//
// Returns:
//   - *GeminiTextGenerator: initialized client.
func NewGeminiTextGenerator(cfg *config.TextGenConfig) *GeminiTextGenerator {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	return &GeminiTextGenerator{
		client:   client,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		endpoint: fmt.Sprintf("%s/models/%s:generateContent", baseURL, cfg.Model),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type geminiError struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends prompt as a single user turn and returns the concatenated
// text of the first candidate.
func (g *GeminiTextGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}

	var resp geminiResponse
	var apiErr geminiError
	httpResp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("key", g.apiKey).
		SetBody(req).
		SetResult(&resp).
		SetError(&apiErr).
		Post(g.endpoint)
	if err != nil {
		return "", &domain.UpstreamError{Provider: "gemini", Err: err}
	}

	if httpResp.IsError() {
		msg := string(httpResp.Body())
		if apiErr.Error != nil {
			msg = apiErr.Error.Message
		}
		return "", &domain.UpstreamError{Provider: "gemini", StatusCode: httpResp.StatusCode(), Err: fmt.Errorf("%s", msg)}
	}

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", &domain.UpstreamError{Provider: "gemini", Err: fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)}
		}
		return "", &domain.UpstreamError{Provider: "gemini", Err: fmt.Errorf("no candidates in response")}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return StripCodeFences(sb.String()), nil
}
