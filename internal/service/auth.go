package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/timmy/cardsmith/internal/domain"
	"github.com/timmy/cardsmith/internal/logger"
	"github.com/timmy/cardsmith/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// AuthService registers users and issues and verifies session tokens.
type AuthService struct {
	users    *repository.UserRepository
	secret   []byte
	issuer   string
	tokenTTL time.Duration
	now      func() time.Time
}

// AuthConfig configures token issuance.
type AuthConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(users *repository.UserRepository, cfg AuthConfig) *AuthService {
	return &AuthService{
		users:    users,
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		tokenTTL: cfg.TokenTTL,
		now:      time.Now,
	}
}

// SignupInput is the registration payload.
type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup creates an account with the initial credit grant.
// Returns *domain.ValidationError for bad input and domain.ErrEmailTaken for
// an email that is already registered.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "Name is required")
	}
	email, err := domain.NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(in.Password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, &domain.PersistenceError{Op: "lookup user", Err: err}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Credits:      domain.InitialCredits,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, err
		}
		return nil, &domain.PersistenceError{Op: "create user", Err: err}
	}

	logger.With(logger.Fields{logger.FieldUserID: user.ID}).
		WithCredits(user.Credits).Info(ctx, "User registered")
	return user, nil
}

// Login checks credentials and returns the user with a fresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	normalized, err := domain.NormalizeEmail(email)
	if err != nil {
		return nil, "", domain.ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", &domain.PersistenceError{Op: "lookup user", Err: err}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// IssueToken signs an HS256 token whose subject is userID.
func (s *AuthService) IssueToken(userID string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken returns the user id carried by a valid token, or
// domain.ErrUnauthenticated.
func (s *AuthService) VerifyToken(token string) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", domain.ErrUnauthenticated
	}
	return claims.Subject, nil
}

// Profile returns the current account state, read fresh from the database.
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthenticated
	}
	return user, err
}
