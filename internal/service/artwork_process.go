package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/timmy/cardsmith/internal/config"
	"github.com/timmy/cardsmith/internal/domain"
	"github.com/timmy/cardsmith/internal/logger"
)

// ProcessArtworkGenerator delegates image generation to an external command.
// The command is invoked as
//
//	<command> <args...> <credential> <prompt> <width> <height>
//
// and must print {"success": bool, "image": base64, "response": any, "error": string}
// on stdout. Anything written to stderr is treated as failure.
type ProcessArtworkGenerator struct {
	command    string
	args       []string
	credential string
	timeout    time.Duration
}

// NewProcessArtworkGenerator creates a process-backed generator.
func NewProcessArtworkGenerator(cfg *config.ArtworkConfig) *ProcessArtworkGenerator {
	return &ProcessArtworkGenerator{
		command:    cfg.Command,
		args:       cfg.Args,
		credential: cfg.Credential,
		timeout:    cfg.Timeout,
	}
}

type processOutput struct {
	Success  bool            `json:"success"`
	Image    string          `json:"image"`
	Response json.RawMessage `json:"response"`
	Error    string          `json:"error"`
}

func (g *ProcessArtworkGenerator) GenerateArtwork(ctx context.Context, prompt string, width, height int) (*ArtworkResult, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	args := append(append([]string{}, g.args...), g.credential, prompt, strconv.Itoa(width), strconv.Itoa(height))
	cmd := exec.CommandContext(ctx, g.command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	logger.With(logger.Fields{
		logger.FieldComponent: "artwork",
		logger.FieldProvider:  "process",
	}).WithDuration(time.Since(start).Milliseconds()).Debug(ctx, "Artwork command finished")

	if ctx.Err() != nil {
		return nil, &domain.ArtworkGenerationError{Message: "artwork command timed out", Err: ctx.Err()}
	}
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return nil, &domain.ArtworkGenerationError{Message: msg, Err: runErr}
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			// The command may still have explained itself on stdout.
			if out, err := parseProcessOutput(stdout.Bytes()); err == nil && out.Error != "" {
				return nil, &domain.ArtworkGenerationError{Message: out.Error, Err: runErr}
			}
		}
		return nil, &domain.ArtworkGenerationError{Message: "artwork command failed", Err: runErr}
	}

	out, err := parseProcessOutput(stdout.Bytes())
	if err != nil {
		return nil, &domain.ArtworkGenerationError{Message: "invalid artwork command output", Err: err}
	}
	return decodeProcessOutput(out, width, height)
}

func parseProcessOutput(raw []byte) (*processOutput, error) {
	var out processOutput
	if err := json.Unmarshal(bytes.TrimSpace(raw), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func decodeProcessOutput(out *processOutput, width, height int) (*ArtworkResult, error) {
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = "Failed to generate artwork"
		}
		return nil, &domain.ArtworkGenerationError{Message: msg}
	}

	data, err := base64.StdEncoding.DecodeString(out.Image)
	if err != nil {
		return nil, &domain.ArtworkGenerationError{Message: "invalid base64 image", Err: err}
	}
	if len(data) == 0 {
		return nil, &domain.ArtworkGenerationError{Message: "empty image"}
	}

	result := &ArtworkResult{
		Data:        data,
		ContentType: "image/jpeg",
		Width:       width,
		Height:      height,
		Response:    "null",
	}
	if ct, _, _, err := DetectImage(data); err == nil {
		result.ContentType = ct
	}
	if len(out.Response) > 0 {
		result.Response = string(out.Response)
	}
	return result, nil
}

