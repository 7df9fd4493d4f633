package donation

import (
	"errors"

	"wisdom-empire/internal/ledger"
	"wisdom-empire/internal/tiers"
)

var (
	// ErrValidation means the donor form is incomplete; the caller should
	// re-prompt. Nothing has been persisted.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidAmount means a tier amount could not be parsed. Tiers are
	// static, so this is a configuration bug.
	ErrInvalidAmount = tiers.ErrInvalidAmount
	// ErrInitiation means persistence or the checkout provider failed. A
	// pending record may be left behind for reconciliation.
	ErrInitiation = errors.New("payment initiation failed")
	// ErrNotFound means no donation has the requested id.
	ErrNotFound = errors.New("donation not found")
	// ErrNotCompleted means a certificate was requested before payment completed.
	ErrNotCompleted = errors.New("donation not completed")
	// ErrPaymentUnverified means the provider did not confirm a card payment.
	ErrPaymentUnverified = errors.New("payment not verified")
	// ErrInvalidTransition means the record is no longer pending.
	ErrInvalidTransition = ledger.ErrInvalidTransition
)
