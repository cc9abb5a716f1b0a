package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/cardsmith/internal/config"
	"github.com/timmy/cardsmith/internal/domain"
	"github.com/timmy/cardsmith/internal/logger"
	"github.com/timmy/cardsmith/internal/prompts"
	"github.com/timmy/cardsmith/internal/repository"
	"github.com/timmy/cardsmith/internal/service"
	"gorm.io/gorm"
)

type cannedText struct{}

func (cannedText) Generate(ctx context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "Generate balanced stats"):
		return `{"hitpoints":60,"weaknessTypeId":6,"weaknessAmount":2,"resistanceTypeId":null,"resistanceAmount":0,"retreatCost":1}`, nil
	case strings.Contains(prompt, "moves for"):
		return `[{"name":"Zap","description":"Flip a coin.","damageAmount":"20","energyCost":[{"amount":1,"typeId":4}]}]`, nil
	case strings.Contains(prompt, "Generate 1 ability"):
		return `{"name":"Charge Up","description":"Once per turn, attach an energy."}`, nil
	default:
		return `{"dexEntry":"It stores static in its fur.","illustrator":"AI Generated"}`, nil
	}
}

type pngArtwork struct{ data []byte }

func (a pngArtwork) GenerateArtwork(ctx context.Context, prompt string, width, height int) (*service.ArtworkResult, error) {
	return &service.ArtworkResult{Data: a.data, ContentType: "image/png", Width: width, Height: height, Response: `{"ok":true}`}, nil
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	users  *repository.UserRepository
	auth   *service.AuthService
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:          "sqlite",
		Path:            filepath.Join(t.TempDir(), "api.db"),
		MaxIdleConns:    1,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Hour,
		AutoMigrate:     true,
		LogLevel:        "silent",
	})
	if err != nil {
		t.Fatalf("InitDB: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	users := repository.NewUserRepository(db)
	ledger := service.NewCreditLedger(users)
	store := service.NewImageStore(db, repository.NewImageRepository(db), service.ImageStoreConfig{
		CacheTTL:        time.Minute,
		CleanupInterval: time.Minute,
	})
	pricing := service.Pricing{CardGenerationCost: 10, CreditsPerMegapixel: 5, DefaultImageSize: "1024x576", MaxImageDimension: 2048}
	artwork := pngArtwork{data: tinyPNG(t)}
	auth := service.NewAuthService(users, service.AuthConfig{Secret: "test-secret", Issuer: "cardsmith", TokenTTL: time.Hour})

	svc := Services{
		Cards: service.NewCardGenerationService(service.CardGenerationConfig{
			Prompts:    prompts.NewBuilder(),
			Text:       cannedText{},
			Artwork:    artwork,
			Images:     store,
			Ledger:     ledger,
			Pricing:    pricing,
			CardWidth:  400,
			CardHeight: 400,
		}),
		Images: service.NewImageGenerationService(artwork, store, ledger, pricing),
		Store:  store,
		Auth:   auth,
		DB:     sqlDB,
	}
	server := config.ServerConfig{Mode: "test", CORS: config.CORSConfig{AllowAllOrigins: true}}
	return &testServer{
		router: SetupRouter(svc, server, logger.GetDefault()),
		db:     db,
		users:  users,
		auth:   auth,
	}
}

// userWithCredits creates an account and returns a bearer token for it.
func (s *testServer) userWithCredits(t *testing.T, credits int) (string, string) {
	t.Helper()
	u := &domain.User{Email: "misty@example.com", PasswordHash: "x", Name: "Misty", Credits: credits}
	if err := s.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := s.auth.IssueToken(u.ID)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return u.ID, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

var cardBody = map[string]interface{}{
	"name":          "Sparkitty",
	"baseSetId":     1,
	"supertypeId":   1,
	"typeId":        4,
	"powerLevel":    "low",
	"artworkStyle":  "realistic",
	"generateMoves": true,
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/generate-card"},
		{http.MethodPost, "/api/generate-image"},
		{http.MethodGet, "/api/images"},
		{http.MethodGet, "/api/users/me"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, "", map[string]string{})
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			rec = s.do(t, tt.method, tt.path, "not-a-token", map[string]string{})
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("bad token status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestWrongMethodIs405(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/generate-card"},
		{http.MethodPut, "/api/generate-image"},
		{http.MethodPost, "/api/images/abc"},
		{http.MethodDelete, "/api/auth/signup"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, "", nil)
			if rec.Code != http.StatusMethodNotAllowed {
				t.Fatalf("status = %d, want 405", rec.Code)
			}
		})
	}
}

func TestGenerateCardInsufficientCredits(t *testing.T) {
	s := newTestServer(t)
	_, token := s.userWithCredits(t, 5)

	rec := s.do(t, http.MethodPost, "/api/generate-card", token, cardBody)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["success"] != false {
		t.Errorf("success = %v", body["success"])
	}
	if body["available"] != float64(5) || body["required"] != float64(10) || body["remainingCredits"] != float64(5) {
		t.Errorf("body = %v", body)
	}
}

func TestGenerateCardSuccess(t *testing.T) {
	s := newTestServer(t)
	_, token := s.userWithCredits(t, 25)

	rec := s.do(t, http.MethodPost, "/api/generate-card", token, cardBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["success"] != true || body["creditsUsed"] != float64(10) || body["remainingCredits"] != float64(15) {
		t.Fatalf("body = %v", body)
	}
	card, ok := body["cardData"].(map[string]interface{})
	if !ok {
		t.Fatalf("cardData = %T", body["cardData"])
	}
	layers, _ := card["images"].([]interface{})
	if len(layers) == 0 {
		t.Fatalf("card has no images: %v", card)
	}
	src, _ := layers[0].(map[string]interface{})["src"].(string)
	if !strings.HasPrefix(src, "/api/images/") {
		t.Fatalf("src = %q", src)
	}

	// The stored artwork is served back as raw bytes.
	img := s.do(t, http.MethodGet, src, "", nil)
	if img.Code != http.StatusOK {
		t.Fatalf("image status = %d", img.Code)
	}
	if ct := img.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.Equal(img.Body.Bytes(), tinyPNG(t)) {
		t.Errorf("image bytes differ")
	}
}

func TestGenerateCardValidation(t *testing.T) {
	s := newTestServer(t)
	_, token := s.userWithCredits(t, 25)

	bad := map[string]interface{}{}
	for k, v := range cardBody {
		bad[k] = v
	}
	bad["powerLevel"] = "extreme"

	rec := s.do(t, http.MethodPost, "/api/generate-card", token, bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body := decode(t, rec); body["field"] != "powerLevel" {
		t.Errorf("field = %v", body["field"])
	}
}

func TestGenerateImage(t *testing.T) {
	s := newTestServer(t)
	_, token := s.userWithCredits(t, 10)

	rec := s.do(t, http.MethodPost, "/api/generate-image", token, map[string]string{"prompt": "a thunder cat"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["creditsUsed"] != float64(3) || body["remainingCredits"] != float64(7) {
		t.Errorf("body = %v", body)
	}
	meta, _ := body["imageMetadata"].(map[string]interface{})
	if meta["id"] == "" || meta["id"] == nil {
		t.Errorf("imageMetadata = %v", body["imageMetadata"])
	}

	rec = s.do(t, http.MethodPost, "/api/generate-image", token, map[string]string{"prompt": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank prompt status = %d, want 400", rec.Code)
	}
}

func TestGenerateImageInsufficientCredits(t *testing.T) {
	s := newTestServer(t)
	_, token := s.userWithCredits(t, 2)

	rec := s.do(t, http.MethodPost, "/api/generate-image", token, map[string]string{"prompt": "a thunder cat"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	body := decode(t, rec)
	if body["error"] != "Insufficient credits" || body["required"] != float64(3) || body["available"] != float64(2) {
		t.Errorf("body = %v", body)
	}
}

func TestGetImageNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/images/does-not-exist", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestListImages(t *testing.T) {
	s := newTestServer(t)
	_, token := s.userWithCredits(t, 20)
	for i := 0; i < 2; i++ {
		if rec := s.do(t, http.MethodPost, "/api/generate-image", token, map[string]string{"prompt": "a thunder cat"}); rec.Code != http.StatusOK {
			t.Fatalf("generate status = %d", rec.Code)
		}
	}

	rec := s.do(t, http.MethodGet, "/api/images?limit=1", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	images, _ := body["images"].([]interface{})
	if len(images) != 1 || body["total"] != float64(2) {
		t.Errorf("body = %v", body)
	}
}

func TestSignupAndLogin(t *testing.T) {
	s := newTestServer(t)
	signup := map[string]string{"name": "Brock", "email": "Brock@Example.com", "password": "onix-rocks"}

	rec := s.do(t, http.MethodPost, "/api/auth/signup", "", signup)
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["message"] != "User created successfully" {
		t.Errorf("message = %v", body["message"])
	}
	user, _ := body["user"].(map[string]interface{})
	if user["email"] != "brock@example.com" || user["name"] != "Brock" || user["id"] == nil {
		t.Errorf("user = %v", user)
	}

	rec = s.do(t, http.MethodPost, "/api/auth/signup", "", signup)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate signup status = %d, want 400", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "brock@example.com", "password": "wrong-password"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "brock@example.com", "password": "onix-rocks"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}
	token, _ := decode(t, rec)["token"].(string)

	rec = s.do(t, http.MethodGet, "/api/users/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	me, _ := decode(t, rec)["user"].(map[string]interface{})
	if me["credits"] != float64(domain.InitialCredits) {
		t.Errorf("credits = %v", me["credits"])
	}
}

func TestSignupValidation(t *testing.T) {
	s := newTestServer(t)
	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing name", map[string]string{"email": "a@b.co", "password": "longenough"}},
		{"bad email", map[string]string{"name": "A", "email": "nope", "password": "longenough"}},
		{"short password", map[string]string{"name": "A", "email": "a@b.co", "password": "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/auth/signup", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestDeletedAccountTokenIsUnauthorized(t *testing.T) {
	s := newTestServer(t)
	userID, token := s.userWithCredits(t, 50)
	if err := s.db.Delete(&domain.User{}, "id = ?", userID).Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}

	tests := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodPost, "/api/generate-card", cardBody},
		{http.MethodPost, "/api/generate-image", map[string]string{"prompt": "a thunder cat"}},
		{http.MethodGet, "/api/users/me", nil},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, token, tt.body)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401: %s", rec.Code, rec.Body.String())
			}
		})
	}
}
