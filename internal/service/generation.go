package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/cardsmith/internal/domain"
	"github.com/timmy/cardsmith/internal/logger"
	"github.com/timmy/cardsmith/internal/prompts"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// CardGenerationResult is a generated card and what it cost.
type CardGenerationResult struct {
	Card             *domain.Card
	CreditsUsed      int
	RemainingCredits int
	GenerationID     string
	Warnings         []string
}

// CardGenerationService runs the card generation pipeline.
type CardGenerationService struct {
	prompts    *prompts.Builder
	text       TextGenerator
	artwork    ArtworkGenerator
	images     *ImageStore
	ledger     *CreditLedger
	pricing    Pricing
	cardWidth  int
	cardHeight int
}

// CardGenerationConfig holds the collaborators of CardGenerationService.
type CardGenerationConfig struct {
	Prompts    *prompts.Builder
	Text       TextGenerator
	Artwork    ArtworkGenerator
	Images     *ImageStore
	Ledger     *CreditLedger
	Pricing    Pricing
	CardWidth  int
	CardHeight int
}

// NewCardGenerationService creates a new CardGenerationService.
func NewCardGenerationService(cfg CardGenerationConfig) *CardGenerationService {
	return &CardGenerationService{
		prompts:    cfg.Prompts,
		text:       cfg.Text,
		artwork:    cfg.Artwork,
		images:     cfg.Images,
		ledger:     cfg.Ledger,
		pricing:    cfg.Pricing,
		cardWidth:  cfg.CardWidth,
		cardHeight: cfg.CardHeight,
	}
}

// Generate synthesizes one card for userID.
//
// The balance is checked before any upstream call and charged only after the
// card validated; the artwork record and the debit commit in one transaction.
// Any failure before that leaves the balance untouched. Once upstream calls
// start the pipeline no longer follows ctx cancellation, so a disconnecting
// client cannot abandon a half-finished generation.
// Parameters:
//   - ctx: request context.
//   - userID: authenticated account to charge.
//   - req: generation request; normalized in place.
//
// Returns:
//   - *CardGenerationResult: the card, cost and remaining balance.
//   - error: *domain.ValidationError, *domain.InsufficientCreditsError,
//     *domain.InvalidCardError, *domain.MalformedResponseError,
//     *domain.UpstreamError, *domain.ArtworkGenerationError or
//     *domain.PersistenceError.
func (s *CardGenerationService) Generate(ctx context.Context, userID string, req *domain.GenerationRequest) (*CardGenerationResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cost := s.pricing.CardCost()
	if _, err := s.ledger.Reserve(ctx, userID, cost); err != nil {
		return nil, err
	}

	generationID := uuid.NewString()
	ctx = logger.SetGenerationID(context.WithoutCancel(ctx), generationID)
	start := time.Now()
	logger.CtxInfo(ctx, "Generating card %q (power=%s, moves=%t, ability=%t)",
		req.Name, req.PowerLevel, req.GenerateMoves, req.GenerateAbility)

	parts, err := s.generateText(ctx, req)
	if err != nil {
		logger.CtxError(ctx, "Card text generation failed: %v", err)
		return nil, err
	}

	var warnings []string
	if req.BalanceStats {
		warnings = append(warnings, BalanceStats(req.PowerLevel, &parts.Stats)...)
	}

	artPrompt, err := s.prompts.Artwork(req)
	if err != nil {
		return nil, err
	}
	art, err := s.artwork.GenerateArtwork(ctx, artPrompt, s.cardWidth, s.cardHeight)
	if err != nil {
		logger.CtxError(ctx, "Artwork generation failed: %v", err)
		return nil, err
	}

	img := NewImage(artPrompt, art, userID)
	parts.ImageSrc = domain.ImagePath(img.ID)
	card := AssembleCard(req, parts)

	validation := ValidateCard(card)
	if !validation.IsValid {
		balance, _ := s.ledger.Balance(ctx, userID)
		logger.CtxWarn(ctx, "Generated card rejected: %v", validation.Errors)
		return nil, &domain.InvalidCardError{Card: card, Validation: validation, Balance: balance}
	}

	var remaining int
	err = s.images.SaveWith(ctx, img, func(tx *gorm.DB) error {
		var err error
		remaining, err = s.ledger.DebitTx(ctx, tx, userID, cost, domain.ReasonCardGeneration, img.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.With(logger.Fields{
		logger.FieldCount: len(card.Moves),
	}).WithDuration(time.Since(start).Milliseconds()).WithCredits(cost).Info(ctx, "Card generated")

	return &CardGenerationResult{
		Card:             card,
		CreditsUsed:      cost,
		RemainingCredits: remaining,
		GenerationID:     generationID,
		Warnings:         append(warnings, validation.Warnings...),
	}, nil
}

// generateText issues the stats, moves, ability and flavor calls concurrently.
// The first failure cancels the others. Each goroutine writes only its own
// field of parts.
func (s *CardGenerationService) generateText(ctx context.Context, req *domain.GenerationRequest) (CardParts, error) {
	var parts CardParts
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		text, err := s.complete(gctx, kindStats, s.prompts.Stats, req)
		if err != nil {
			return err
		}
		parts.Stats, err = parseStats(text)
		return err
	})
	if req.GenerateMoves {
		g.Go(func() error {
			text, err := s.complete(gctx, kindMoves, s.prompts.Moves, req)
			if err != nil {
				return err
			}
			parts.Moves, err = parseMoves(text)
			return err
		})
	}
	if req.GenerateAbility {
		g.Go(func() error {
			text, err := s.complete(gctx, kindAbility, s.prompts.Ability, req)
			if err != nil {
				return err
			}
			parts.Ability, err = parseAbility(text)
			return err
		})
	}
	g.Go(func() error {
		text, err := s.complete(gctx, kindFlavor, s.prompts.Flavor, req)
		if err != nil {
			return err
		}
		parts.Flavor, err = parseFlavor(text)
		return err
	})

	if err := g.Wait(); err != nil {
		return CardParts{}, err
	}
	return parts, nil
}

// complete renders the prompt for kind and returns the raw model reply.
func (s *CardGenerationService) complete(
	ctx context.Context,
	kind string,
	render func(*domain.GenerationRequest) (string, error),
	req *domain.GenerationRequest,
) (string, error) {
	prompt, err := render(req)
	if err != nil {
		return "", err
	}
	start := time.Now()
	text, err := s.text.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	logger.With(logger.Fields{
		logger.FieldComponent: "textgen",
		"kind":                kind,
	}).WithDuration(time.Since(start).Milliseconds()).Debug(ctx, "Text generated")
	return text, nil
}
