package domain

import "time"

// CreditReason labels why a balance changed.
type CreditReason string

const (
	ReasonCardGeneration  CreditReason = "card_generation"
	ReasonImageGeneration CreditReason = "image_generation"
	ReasonGrant           CreditReason = "grant"
	ReasonPurchase        CreditReason = "purchase"
)

// CreditTransaction is an append-only record of one applied balance change.
type CreditTransaction struct {
	ID           string       `gorm:"type:text;primaryKey" json:"id"`
	UserID       string       `gorm:"type:text;not null;index" json:"userId"`
	Amount       int          `gorm:"not null" json:"amount"`
	BalanceAfter int          `gorm:"not null" json:"balanceAfter"`
	Reason       CreditReason `gorm:"type:text;not null;index" json:"reason"`
	ReferenceID  string       `gorm:"type:text" json:"referenceId,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}
