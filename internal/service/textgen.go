package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/timmy/cardsmith/internal/config"
	"github.com/timmy/cardsmith/internal/domain"
	"golang.org/x/time/rate"
)

// TextGenerator sends a prompt to a hosted text model and returns its raw
// text output with code fences removed.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewTextGenerator builds the configured text client behind the shared
// rate limiter.
func NewTextGenerator(cfg *config.TextGenConfig) (TextGenerator, error) {
	var gen TextGenerator
	switch cfg.Provider {
	case "gemini", "":
		gen = NewGeminiTextGenerator(cfg)
	case "openai":
		gen = NewOpenAITextGenerator(cfg)
	default:
		return nil, fmt.Errorf("unsupported text provider %q", cfg.Provider)
	}
	return NewRateLimitedTextGenerator(gen, cfg.RateLimit, cfg.RateBurst, cfg.Timeout), nil
}

// RateLimitedTextGenerator throttles calls to an upstream text model and
// bounds each call with a timeout.
type RateLimitedTextGenerator struct {
	next    TextGenerator
	limiter *rate.Limiter
	timeout time.Duration
}

// NewRateLimitedTextGenerator wraps next. A non-positive rps disables throttling;
// a non-positive timeout leaves the caller's deadline in charge.
func NewRateLimitedTextGenerator(next TextGenerator, rps float64, burst int, timeout time.Duration) *RateLimitedTextGenerator {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedTextGenerator{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
		timeout: timeout,
	}
}

func (g *RateLimitedTextGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("text generation throttled: %w", err)
	}
	return g.next.Generate(ctx, prompt)
}

var fencePattern = regexp.MustCompile("```(?:json)?\\n?")

// StripCodeFences removes markdown code fences (```json and ```) from model
// output and trims surrounding whitespace.
func StripCodeFences(text string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(text, ""))
}

// ParseJSON decodes fence-stripped model output into out. Any decode failure,
// including a bare null, is reported as a *domain.MalformedResponseError
// tagged with kind.
func ParseJSON(kind, text string, out interface{}) error {
	cleaned := StripCodeFences(text)
	if cleaned == "" {
		return &domain.MalformedResponseError{Kind: kind, Raw: text, Err: fmt.Errorf("empty response")}
	}
	if cleaned == "null" {
		return &domain.MalformedResponseError{Kind: kind, Raw: text, Err: fmt.Errorf("null response")}
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return &domain.MalformedResponseError{Kind: kind, Raw: text, Err: err}
	}
	return nil
}
