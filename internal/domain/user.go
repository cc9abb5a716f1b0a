package domain

import (
	"regexp"
	"strings"
	"time"
)

const (
	// MinCredits and MaxCredits bound every stored balance.
	MinCredits = 0
	MaxCredits = 1_000_000

	// InitialCredits is granted at signup.
	InitialCredits = 10

	MinPasswordLength = 8
	MaxPasswordLength = 100
	maxEmailLength    = 255
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// User is a credit-bearing account.
type User struct {
	ID               string     `gorm:"type:text;primaryKey" json:"id"`
	Email            string     `gorm:"type:text;not null;uniqueIndex:idx_users_email" json:"email"`
	PasswordHash     string     `gorm:"column:password;type:text;not null" json:"-"`
	Name             string     `gorm:"type:text;not null" json:"name"`
	Credits          int        `gorm:"not null;default:10;check:chk_users_credits,credits >= 0 AND credits <= 1000000" json:"credits"`
	MembershipTier   *string    `gorm:"type:text;index:idx_users_membership" json:"membershipTier,omitempty"`
	MembershipExpiry *time.Time `gorm:"index:idx_users_membership" json:"membershipExpiry,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// TableName returns the database table name for User.
func (User) TableName() string {
	return "users"
}

// IsMembershipActive reports whether the user holds an unexpired membership at now.
func (u *User) IsMembershipActive(now time.Time) bool {
	if u.MembershipTier == nil || *u.MembershipTier == "" || u.MembershipExpiry == nil {
		return false
	}
	return u.MembershipExpiry.After(now)
}

// PublicUser is the subset of a user safe to return to clients.
type PublicUser struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Credits          *int       `json:"credits,omitempty"`
	MembershipTier   *string    `json:"membershipTier,omitempty"`
	MembershipExpiry *time.Time `json:"membershipExpiry,omitempty"`
}

// Public returns the identity fields only.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Profile returns the identity fields plus balance and membership.
func (u *User) Profile() PublicUser {
	p := u.Public()
	credits := u.Credits
	p.Credits = &credits
	p.MembershipTier = u.MembershipTier
	p.MembershipExpiry = u.MembershipExpiry
	return p
}

// NormalizeEmail lowercases and validates an email address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(email) > maxEmailLength {
		return "", NewValidationError("email", "email is too long")
	}
	if !emailPattern.MatchString(email) {
		return "", NewValidationError("email", "invalid email address")
	}
	return email, nil
}

// ValidatePassword checks plaintext password length bounds.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return NewValidationError("password", "password must be at least %d characters long", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return NewValidationError("password", "password must not exceed %d characters", MaxPasswordLength)
	}
	return nil
}

// ValidCreditAmount reports whether amount is a usable positive credit delta.
func ValidCreditAmount(amount int) bool {
	return amount > 0 && amount <= MaxCredits
}
