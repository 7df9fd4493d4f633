package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// We use 'db' tags for sqlx to map the snake_case columns onto our fields,
// and 'json' tags for the shapes the API sends back.

// PaymentMethod is the payment rail a donor picks in the wizard.
type PaymentMethod string

const (
	PaymentMethodStripe PaymentMethod = "stripe"
	PaymentMethodPayPal PaymentMethod = "paypal"
	PaymentMethodCrypto PaymentMethod = "crypto"
)

// PaymentMethods lists every supported rail in display order.
var PaymentMethods = []PaymentMethod{PaymentMethodStripe, PaymentMethodPayPal, PaymentMethodCrypto}

// ParsePaymentMethod maps a user choice onto a PaymentMethod.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	for _, m := range PaymentMethods {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

// DonationStatus is the lifecycle field of a DonationRecord.
type DonationStatus string

const (
	StatusPending   DonationStatus = "pending"
	StatusCompleted DonationStatus = "completed"
	StatusFailed    DonationStatus = "failed"
)

// CanTransitionTo reports whether moving from s to next is allowed.
// Only pending records move, and only to completed or failed.
func (s DonationStatus) CanTransitionTo(next DonationStatus) bool {
	return s == StatusPending && (next == StatusCompleted || next == StatusFailed)
}

// Valid reports whether s is one of the known statuses.
func (s DonationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Tier is an entry of the donation tier catalog.
type Tier struct {
	Name        string `json:"name" yaml:"name"`
	Amount      string `json:"amount" yaml:"amount"`
	Description string `json:"description" yaml:"description"`
}

// DonationRecord is one entry in the donation ledger.
type DonationRecord struct {
	ID                string          `db:"id" json:"id"`
	Name              string          `db:"name" json:"name"`
	Email             string          `db:"email" json:"email"`
	Tier              string          `db:"tier" json:"tier"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	PaymentMethod     PaymentMethod   `db:"payment_method" json:"payment_method"`
	Status            DonationStatus  `db:"status" json:"status"`
	ProviderSessionID *string         `db:"provider_session_id" json:"provider_session_id,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	CompletedAt       *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
}

// User is an admin account allowed to reconcile donations.
type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// ContentCategory groups the browsable content.
type ContentCategory string

const (
	CategoryProverbs ContentCategory = "proverbs"
	CategoryQuotes   ContentCategory = "quotes"
	CategoryIdioms   ContentCategory = "idioms"
	CategorySimiles  ContentCategory = "similes"
)

// Valid reports whether c is a known category.
func (c ContentCategory) Valid() bool {
	switch c {
	case CategoryProverbs, CategoryQuotes, CategoryIdioms, CategorySimiles:
		return true
	}
	return false
}

// ContentItem is a single proverb, quote, idiom or simile.
type ContentItem struct {
	ID        int64           `db:"id" json:"id" yaml:"-"`
	Category  ContentCategory `db:"category" json:"category" yaml:"category"`
	Text      string          `db:"text" json:"text" yaml:"text"`
	Meaning   string          `db:"meaning" json:"meaning" yaml:"meaning"`
	Origin    string          `db:"origin" json:"origin" yaml:"origin"`
	CreatedAt time.Time       `db:"created_at" json:"created_at" yaml:"-"`
}

// DonorFields is what the donor types into the intake form.
type DonorFields struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
