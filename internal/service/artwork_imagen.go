package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/cardsmith/internal/config"
	"github.com/timmy/cardsmith/internal/domain"
)

// ImagenArtworkGenerator calls the Imagen predict REST API directly.
type ImagenArtworkGenerator struct {
	client   *resty.Client
	apiKey   string
	endpoint string
	timeout  time.Duration
}

// NewImagenArtworkGenerator creates an Imagen client.
func NewImagenArtworkGenerator(cfg *config.ArtworkConfig) *ImagenArtworkGenerator {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}

	return &ImagenArtworkGenerator{
		client:   client,
		apiKey:   cfg.Credential,
		endpoint: fmt.Sprintf("%s/models/%s:predict", baseURL, cfg.Model),
		timeout:  cfg.Timeout,
	}
}

type imagenRequest struct {
	Instances  []imagenInstance `json:"instances"`
	Parameters imagenParameters `json:"parameters"`
}

type imagenInstance struct {
	Prompt string `json:"prompt"`
}

type imagenParameters struct {
	SampleCount int    `json:"sampleCount"`
	AspectRatio string `json:"aspectRatio"`
}

type imagenResponse struct {
	Predictions []struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded"`
		MimeType           string `json:"mimeType"`
		RaiFilteredReason  string `json:"raiFilteredReason,omitempty"`
	} `json:"predictions"`
}

// imagenAspectRatios are the ratios the predict endpoint accepts.
var imagenAspectRatios = []struct {
	name  string
	ratio float64
}{
	{"1:1", 1},
	{"3:4", 3.0 / 4.0},
	{"4:3", 4.0 / 3.0},
	{"9:16", 9.0 / 16.0},
	{"16:9", 16.0 / 9.0},
}

// nearestAspectRatio maps arbitrary dimensions onto the closest supported ratio.
func nearestAspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return "1:1"
	}
	target := math.Log(float64(width) / float64(height))
	best, bestDist := "1:1", math.Inf(1)
	for _, ar := range imagenAspectRatios {
		if d := math.Abs(math.Log(ar.ratio) - target); d < bestDist {
			best, bestDist = ar.name, d
		}
	}
	return best
}

func (g *ImagenArtworkGenerator) GenerateArtwork(ctx context.Context, prompt string, width, height int) (*ArtworkResult, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req := imagenRequest{
		Instances:  []imagenInstance{{Prompt: prompt}},
		Parameters: imagenParameters{SampleCount: 1, AspectRatio: nearestAspectRatio(width, height)},
	}

	var resp imagenResponse
	var apiErr geminiError
	httpResp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("key", g.apiKey).
		SetBody(req).
		SetResult(&resp).
		SetError(&apiErr).
		Post(g.endpoint)
	if err != nil {
		return nil, &domain.ArtworkGenerationError{Message: "imagen request failed", Err: err}
	}
	if httpResp.IsError() {
		msg := fmt.Sprintf("imagen returned HTTP %d", httpResp.StatusCode())
		if apiErr.Error != nil {
			msg = fmt.Sprintf("%s: %s", msg, apiErr.Error.Message)
		}
		return nil, &domain.ArtworkGenerationError{
			Message: msg,
			Err:     &domain.UpstreamError{Provider: "imagen", StatusCode: httpResp.StatusCode(), Err: fmt.Errorf("%s", httpResp.Status())},
		}
	}

	if len(resp.Predictions) == 0 || resp.Predictions[0].BytesBase64Encoded == "" {
		return nil, &domain.ArtworkGenerationError{Message: "No images generated"}
	}
	pred := resp.Predictions[0]

	data, err := base64.StdEncoding.DecodeString(pred.BytesBase64Encoded)
	if err != nil {
		return nil, &domain.ArtworkGenerationError{Message: "invalid base64 image", Err: err}
	}

	result := &ArtworkResult{
		Data:            data,
		ContentType:     pred.MimeType,
		Width:           width,
		Height:          height,
		HasNsfwConcepts: pred.RaiFilteredReason != "",
	}
	if ct, _, _, err := DetectImage(data); err == nil {
		result.ContentType = ct
	}
	if result.ContentType == "" {
		result.ContentType = "image/png"
	}

	// Keep the provider response without the image payload itself.
	pred.BytesBase64Encoded = ""
	if raw, err := json.Marshal(pred); err == nil {
		result.Response = string(raw)
	}
	return result, nil
}
