package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/timmy/cardsmith/internal/config"
	"github.com/timmy/cardsmith/internal/domain"
	"github.com/timmy/cardsmith/internal/prompts"
	"github.com/timmy/cardsmith/internal/repository"
	"gorm.io/gorm"
)

// fakeText answers each prompt kind with a canned response.
type fakeText struct {
	mu        sync.Mutex
	responses map[string]string
	calls     map[string]int
}

func newFakeText(responses map[string]string) *fakeText {
	return &fakeText{responses: responses, calls: map[string]int{}}
}

func promptKind(prompt string) string {
	switch {
	case strings.Contains(prompt, "Generate balanced stats"):
		return "stats"
	case strings.Contains(prompt, "moves for"):
		return "moves"
	case strings.Contains(prompt, "Generate 1 ability"):
		return "ability"
	case strings.Contains(prompt, "flavor text"):
		return "flavor"
	}
	return "unknown"
}

func (f *fakeText) Generate(ctx context.Context, prompt string) (string, error) {
	kind := promptKind(prompt)
	f.mu.Lock()
	f.calls[kind]++
	f.mu.Unlock()
	return StripCodeFences(f.responses[kind]), nil
}

func (f *fakeText) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type fakeArtwork struct {
	mu    sync.Mutex
	data  []byte
	err   error
	calls int
}

func (f *fakeArtwork) GenerateArtwork(ctx context.Context, prompt string, width, height int) (*ArtworkResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &ArtworkResult{Data: f.data, ContentType: "image/png", Width: width, Height: height, Response: `{"ok":true}`}, nil
}

type pipeline struct {
	db      *gorm.DB
	users   *repository.UserRepository
	images  *ImageStore
	ledger  *CreditLedger
	text    *fakeText
	artwork *fakeArtwork
	cards   *CardGenerationService
	single  *ImageGenerationService
}

var defaultResponses = map[string]string{
	"stats":   "```json\n{\"hitpoints\":60,\"weaknessTypeId\":6,\"weaknessAmount\":2,\"resistanceTypeId\":null,\"resistanceAmount\":0,\"retreatCost\":1}\n```",
	"moves":   `[{"name":"Zap","description":"Flip a coin.","damageAmount":"20","energyCost":[{"amount":1,"typeId":4}]},{"name":"Bolt","description":"Discard an energy.","damageAmount":30,"energyCost":[{"amount":2,"typeId":11}]}]`,
	"ability": `{"name":"Charge Up","description":"Once per turn, attach an energy."}`,
	"flavor":  `{"dexEntry":"It stores static in its fur.","illustrator":"AI Generated"}`,
}

func newPipeline(t *testing.T, responses map[string]string) *pipeline {
	t.Helper()
	return newPooledPipeline(t, 1, responses)
}

// newPooledPipeline backs the pipeline with up to conns database connections
// so concurrent generations contend on the ledger for real.
func newPooledPipeline(t *testing.T, conns int, responses map[string]string) *pipeline {
	t.Helper()
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:          "sqlite",
		Path:            filepath.Join(t.TempDir(), "pipeline.db"),
		MaxIdleConns:    conns,
		MaxOpenConns:    conns,
		ConnMaxLifetime: time.Hour,
		AutoMigrate:     true,
		LogLevel:        "silent",
	})
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	merged := map[string]string{}
	for k, v := range defaultResponses {
		merged[k] = v
	}
	for k, v := range responses {
		merged[k] = v
	}

	p := &pipeline{
		db:      db,
		users:   repository.NewUserRepository(db),
		text:    newFakeText(merged),
		artwork: &fakeArtwork{data: testPNG(t, 4, 4)},
	}
	p.images = NewImageStore(db, repository.NewImageRepository(db), ImageStoreConfig{CacheTTL: time.Minute, CleanupInterval: time.Minute})
	p.ledger = NewCreditLedger(p.users)
	pricing := Pricing{CardGenerationCost: 10, CreditsPerMegapixel: 5, DefaultImageSize: "1024x576", MaxImageDimension: 2048}
	p.cards = NewCardGenerationService(CardGenerationConfig{
		Prompts:    prompts.NewBuilder(),
		Text:       p.text,
		Artwork:    p.artwork,
		Images:     p.images,
		Ledger:     p.ledger,
		Pricing:    pricing,
		CardWidth:  400,
		CardHeight: 400,
	})
	p.single = NewImageGenerationService(p.artwork, p.images, p.ledger, pricing)
	return p
}

func (p *pipeline) user(t *testing.T, credits int) string {
	t.Helper()
	u := &domain.User{Email: "ash@example.com", PasswordHash: "x", Name: "Ash", Credits: credits}
	if err := p.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

func (p *pipeline) balance(t *testing.T, userID string) int {
	t.Helper()
	b, err := p.ledger.Balance(context.Background(), userID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	return b
}

func (p *pipeline) imageCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := p.db.Model(&domain.ImageMetadata{}).Count(&n).Error; err != nil {
		t.Fatalf("count images: %v", err)
	}
	return n
}

func TestGenerateCardInsufficientCredits(t *testing.T) {
	p := newPipeline(t, nil)
	userID := p.user(t, 5)

	_, err := p.cards.Generate(context.Background(), userID, testRequest())
	var insufficient *domain.InsufficientCreditsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("error = %v, want InsufficientCreditsError", err)
	}
	if insufficient.Available != 5 || insufficient.Required != 10 {
		t.Errorf("insufficient = %+v", insufficient)
	}
	if got := p.balance(t, userID); got != 5 {
		t.Errorf("balance = %d, want 5", got)
	}
	if p.text.total() != 0 || p.artwork.calls != 0 {
		t.Errorf("upstream called despite insufficient credits")
	}
}

func TestGenerateCardSuccess(t *testing.T) {
	p := newPipeline(t, nil)
	userID := p.user(t, 20)
	req := testRequest()
	req.GenerateMoves = true
	req.GenerateAbility = true

	res, err := p.cards.Generate(context.Background(), userID, req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.CreditsUsed != 10 || res.RemainingCredits != 10 {
		t.Errorf("credits used=%d remaining=%d", res.CreditsUsed, res.RemainingCredits)
	}
	if got := p.balance(t, userID); got != 10 {
		t.Errorf("stored balance = %d, want 10", got)
	}
	card := res.Card
	if card.Hitpoints < 40 || card.Hitpoints > 80 {
		t.Errorf("hitpoints %d outside low band", card.Hitpoints)
	}
	if len(card.Images) != 1 {
		t.Fatalf("images = %d, want 1", len(card.Images))
	}
	if len(card.Moves) != 3 || card.Moves[0].Name != "Charge Up" || card.Moves[2].DamageAmount != "30" {
		t.Errorf("moves = %+v", card.Moves)
	}
	if res.GenerationID == "" {
		t.Error("missing generation id")
	}

	id := strings.TrimPrefix(card.Images[0].Src, "/api/images/")
	stored, err := p.images.Retrieve(context.Background(), id)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if stored.ContentType != "image/png" || len(stored.Data) == 0 {
		t.Errorf("stored image = %s (%d bytes)", stored.ContentType, len(stored.Data))
	}

	rows, err := p.users.Transactions(context.Background(), userID, 10)
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(rows) != 1 || rows[0].ReferenceID != id || rows[0].Reason != domain.ReasonCardGeneration {
		t.Errorf("ledger = %+v", rows)
	}
}

func TestGenerateCardSkipsOptionalCalls(t *testing.T) {
	p := newPipeline(t, nil)
	userID := p.user(t, 10)

	res, err := p.cards.Generate(context.Background(), userID, testRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Card.Moves) != 0 {
		t.Errorf("moves generated without being requested")
	}
	if p.text.calls["moves"] != 0 || p.text.calls["ability"] != 0 {
		t.Errorf("calls = %v", p.text.calls)
	}
	if p.text.calls["stats"] != 1 || p.text.calls["flavor"] != 1 {
		t.Errorf("calls = %v", p.text.calls)
	}
}

func TestGenerateCardMalformedMoves(t *testing.T) {
	p := newPipeline(t, map[string]string{"moves": "Sure! Here are some moves: Zap, Bolt"})
	userID := p.user(t, 20)
	req := testRequest()
	req.GenerateMoves = true

	_, err := p.cards.Generate(context.Background(), userID, req)
	var malformed *domain.MalformedResponseError
	if !errors.As(err, &malformed) || malformed.Kind != "moves" {
		t.Fatalf("error = %v, want malformed moves", err)
	}
	if got := p.balance(t, userID); got != 20 {
		t.Errorf("balance = %d, want 20", got)
	}
	if n := p.imageCount(t); n != 0 {
		t.Errorf("images persisted = %d", n)
	}
}

func TestGenerateCardInvalidCardChargesNothing(t *testing.T) {
	p := newPipeline(t, map[string]string{"stats": `{"hitpoints":5,"retreatCost":1}`})
	userID := p.user(t, 20)

	_, err := p.cards.Generate(context.Background(), userID, testRequest())
	var invalid *domain.InvalidCardError
	if !errors.As(err, &invalid) {
		t.Fatalf("error = %v, want InvalidCardError", err)
	}
	if invalid.Balance != 20 || len(invalid.Validation.Errors) == 0 {
		t.Errorf("invalid = %+v", invalid.Validation)
	}
	if got := p.balance(t, userID); got != 20 {
		t.Errorf("balance = %d, want 20", got)
	}
	if n := p.imageCount(t); n != 0 {
		t.Errorf("images persisted = %d", n)
	}
}

func TestGenerateCardRejectsNullMoves(t *testing.T) {
	p := newPipeline(t, map[string]string{"moves": "```json\nnull\n```"})
	userID := p.user(t, 20)
	req := testRequest()
	req.GenerateMoves = true

	_, err := p.cards.Generate(context.Background(), userID, req)
	var malformed *domain.MalformedResponseError
	if !errors.As(err, &malformed) || malformed.Kind != "moves" {
		t.Fatalf("error = %v, want malformed moves", err)
	}
	if got := p.balance(t, userID); got != 20 {
		t.Errorf("balance = %d, want 20", got)
	}
	if p.artwork.calls != 0 {
		t.Error("artwork generated after malformed text")
	}
}

func TestGenerateCardEmptyStatsIsMalformed(t *testing.T) {
	p := newPipeline(t, map[string]string{"stats": "{}", "flavor": `{"unexpected":true}`})
	userID := p.user(t, 20)

	_, err := p.cards.Generate(context.Background(), userID, testRequest())
	var malformed *domain.MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("error = %v, want MalformedResponseError", err)
	}
	var invalid *domain.InvalidCardError
	if errors.As(err, &invalid) {
		t.Fatalf("empty stats surfaced as invalid card")
	}
	if got := p.balance(t, userID); got != 20 {
		t.Errorf("balance = %d, want 20", got)
	}
}

func TestConcurrentCardGenerationsNeverOverdraw(t *testing.T) {
	p := newPooledPipeline(t, 8, nil)
	userID := p.user(t, 25)

	const requests = 4
	start := make(chan struct{})
	errs := make([]error, requests)
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = p.cards.Generate(context.Background(), userID, testRequest())
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		var insufficient *domain.InsufficientCreditsError
		switch {
		case err == nil:
			succeeded++
		case errors.As(err, &insufficient):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 2 {
		t.Errorf("succeeded = %d, want 2", succeeded)
	}
	if got := p.balance(t, userID); got != 5 {
		t.Errorf("balance = %d, want 5", got)
	}
	if n := p.imageCount(t); n != 2 {
		t.Errorf("images persisted = %d, want 2", n)
	}
}

func TestGenerateCardBalanceStats(t *testing.T) {
	p := newPipeline(t, map[string]string{"stats": `{"hitpoints":5,"retreatCost":9}`})
	userID := p.user(t, 20)
	req := testRequest()
	req.BalanceStats = true

	res, err := p.cards.Generate(context.Background(), userID, req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Card.Hitpoints != 40 || res.Card.RetreatCost != domain.MaxRetreatCost {
		t.Errorf("hp=%d retreat=%d", res.Card.Hitpoints, res.Card.RetreatCost)
	}
	if len(res.Warnings) < 2 {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestGenerateCardArtworkFailure(t *testing.T) {
	p := newPipeline(t, nil)
	p.artwork.err = &domain.ArtworkGenerationError{Message: "quota exhausted"}
	userID := p.user(t, 20)

	_, err := p.cards.Generate(context.Background(), userID, testRequest())
	var artErr *domain.ArtworkGenerationError
	if !errors.As(err, &artErr) {
		t.Fatalf("error = %v, want ArtworkGenerationError", err)
	}
	if got := p.balance(t, userID); got != 20 {
		t.Errorf("balance = %d, want 20", got)
	}
}

func TestGenerateCardValidation(t *testing.T) {
	p := newPipeline(t, nil)
	userID := p.user(t, 20)
	req := testRequest()
	req.Name = "  "

	_, err := p.cards.Generate(context.Background(), userID, req)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if p.text.total() != 0 {
		t.Error("text model called for invalid request")
	}
}

func TestGenerateCardSurvivesCancelledContext(t *testing.T) {
	p := newPipeline(t, nil)
	userID := p.user(t, 10)

	// Cancel as soon as the first upstream call happens; the pipeline must
	// still finish and charge exactly once.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for p.text.total() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()
	res, err := p.cards.Generate(ctx, userID, testRequest())
	cancel()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.RemainingCredits != 0 {
		t.Errorf("remaining = %d, want 0", res.RemainingCredits)
	}
}

func TestGenerateImage(t *testing.T) {
	p := newPipeline(t, nil)
	userID := p.user(t, 10)

	res, err := p.single.Generate(context.Background(), userID, "a lighthouse at dusk", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.CreditsUsed != 3 || res.RemainingCredits != 7 {
		t.Errorf("credits used=%d remaining=%d", res.CreditsUsed, res.RemainingCredits)
	}
	if res.ImageURL != "/api/images/"+res.Image.ID {
		t.Errorf("image url = %q", res.ImageURL)
	}
	if string(res.FullResult) != `{"ok":true}` {
		t.Errorf("full result = %s", res.FullResult)
	}
	if res.Image.Width != 1024 || res.Image.Height != 576 {
		t.Errorf("dimensions = %dx%d", res.Image.Width, res.Image.Height)
	}
}

func TestGenerateImageInsufficientCredits(t *testing.T) {
	p := newPipeline(t, nil)
	userID := p.user(t, 2)

	_, err := p.single.Generate(context.Background(), userID, "a lighthouse", "1024x576")
	var insufficient *domain.InsufficientCreditsError
	if !errors.As(err, &insufficient) || insufficient.Required != 3 || insufficient.Available != 2 {
		t.Fatalf("error = %v", err)
	}
	if p.artwork.calls != 0 {
		t.Error("artwork generated without credits")
	}
}

func TestGenerateImageRequiresPrompt(t *testing.T) {
	p := newPipeline(t, nil)
	userID := p.user(t, 10)
	_, err := p.single.Generate(context.Background(), userID, "   ", "")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "prompt" {
		t.Fatalf("error = %v, want prompt ValidationError", err)
	}
}

func TestImageStoreRetrieveMissing(t *testing.T) {
	p := newPipeline(t, nil)
	if _, err := p.images.Retrieve(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestReserveForMissingAccountIsUnauthenticated(t *testing.T) {
	p := newPipeline(t, nil)

	if _, err := p.ledger.Reserve(context.Background(), "no-such-user", 10); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("Reserve error = %v, want ErrUnauthenticated", err)
	}
	if _, err := p.cards.Generate(context.Background(), "no-such-user", testRequest()); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("Generate error = %v, want ErrUnauthenticated", err)
	}
	if p.text.total() != 0 {
		t.Error("text model called for a missing account")
	}
}
