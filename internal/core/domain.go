package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  CategoryKind = "INCOME"
	Expense CategoryKind = "EXPENSE"
)

type (
	// CategoryKind determines the sign a category's transactions apply to the
	// user's balance: Income adds, Expense subtracts.
	CategoryKind string

	// Category is externally managed reference data, read-only to the bot.
	Category struct {
		ID   int64
		Name string
		Kind CategoryKind
	}

	// User is one chat identity. Balance is the denormalized running total in
	// rupiah, kept in sync with the transaction log by the ledger engine.
	User struct {
		ID      int64
		ChatJID string
		Name    string
		Balance int64
	}

	// Transaction is a single recorded entry. Amount is always positive; the
	// category kind carries the sign.
	Transaction struct {
		ID         int64
		UserID     int64
		CategoryID int64
		Amount     int64
		Note       string
		CreatedAt  time.Time

		// Denormalized from the category join on reads.
		CategoryName string
		Kind         CategoryKind
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrUnknownCategory = errors.New("unknown category")
)

// Signed returns the transaction's contribution to the balance.
func (t Transaction) Signed() int64 {
	if t.Kind == Expense {
		return -t.Amount
	}
	return t.Amount
}

func (k CategoryKind) Valid() bool {
	return k == Income || k == Expense
}

func (t Transaction) Validate() error {
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if len(t.Note) > 200 {
		return errors.New("note too long (max 200 characters)")
	}
	return nil
}

// NormalizeCategoryName lowers and trims a user-typed category token for the
// case-insensitive store lookup.
func NormalizeCategoryName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
