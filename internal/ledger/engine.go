// Package ledger owns transaction mutation and the paired cached-balance
// update. Every successful call leaves the user's balance equal to the signed
// sum of their surviving transactions; a call that cannot guarantee that on
// return reports a CriticalInconsistencyError instead of a plain failure.
package ledger

import (
	"context"
	"fmt"

	"github.com/fahroediin/whatsapp-cashflow-bot/internal/core"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/log"
)

// TransactionStore is the slice of the relational store the engine mutates.
type TransactionStore interface {
	Insert(ctx context.Context, tx *core.Transaction) error
	UpdateFields(ctx context.Context, id int64, amount *int64, note *string) error
	Delete(ctx context.Context, id int64) error
	DeleteAllForUser(ctx context.Context, userID int64) error
}

// BalanceStore persists the denormalized running balance.
type BalanceStore interface {
	UpdateBalance(ctx context.Context, userID, balance int64) error
}

type Engine struct {
	transactions TransactionStore
	balances     BalanceStore
	logger       *log.Logger
}

func NewEngine(transactions TransactionStore, balances BalanceStore, logger *log.Logger) *Engine {
	return &Engine{
		transactions: transactions,
		balances:     balances,
		logger:       logger.WithComponent(log.ComponentLedger),
	}
}

// Record inserts a new transaction and applies its signed amount to the
// user's balance. An expense larger than the current balance is rejected
// before any write. On success user.Balance holds the new balance.
func (e *Engine) Record(ctx context.Context, user *core.User, category core.Category, amount int64, note string) (core.Transaction, error) {
	if amount <= 0 {
		return core.Transaction{}, core.ErrInvalidAmount
	}
	if category.Kind == core.Expense && amount > user.Balance {
		return core.Transaction{}, &InsufficientBalanceError{Current: user.Balance, Requested: amount}
	}

	tx := core.Transaction{
		UserID:       user.ID,
		CategoryID:   category.ID,
		Amount:       amount,
		Note:         note,
		CategoryName: category.Name,
		Kind:         category.Kind,
	}
	if err := e.transactions.Insert(ctx, &tx); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	newBalance := user.Balance + tx.Signed()
	if err := e.balances.UpdateBalance(ctx, user.ID, newBalance); err != nil {
		// The transaction row exists but the balance does not reflect it.
		e.logger.ErrorContext(ctx, "Balance write failed after insert",
			log.FieldUserID, user.ID,
			log.FieldTxID, tx.ID,
			log.FieldError, err)
		return tx, &CriticalInconsistencyError{Op: log.OpRecord, Cause: err}
	}
	user.Balance = newBalance

	e.logger.InfoContext(ctx, "Transaction recorded",
		log.FieldUserID, user.ID,
		log.FieldTxID, tx.ID,
		log.FieldCategory, category.Name,
		log.FieldKind, string(category.Kind),
		log.FieldAmount, amount,
		log.FieldBalance, newBalance)
	return tx, nil
}

// Edit updates a transaction's amount and/or note. The balance check for an
// expense runs against the reverted balance: the balance as if the
// transaction had never happened.
func (e *Engine) Edit(ctx context.Context, user *core.User, tx core.Transaction, newAmount *int64, newNote *string) error {
	if newAmount == nil && newNote == nil {
		return nil
	}
	if newAmount != nil && *newAmount <= 0 {
		return core.ErrInvalidAmount
	}

	reverted := user.Balance - tx.Signed()
	if newAmount != nil && tx.Kind == core.Expense && *newAmount > reverted {
		return &InsufficientBalanceError{Current: reverted, Requested: *newAmount}
	}

	if err := e.transactions.UpdateFields(ctx, tx.ID, newAmount, newNote); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	if newAmount != nil && *newAmount != tx.Amount {
		delta := *newAmount - tx.Amount
		if tx.Kind == core.Expense {
			delta = -delta
		}
		newBalance := user.Balance + delta
		if err := e.balances.UpdateBalance(ctx, user.ID, newBalance); err != nil {
			e.logger.ErrorContext(ctx, "Balance write failed after edit",
				log.FieldUserID, user.ID,
				log.FieldTxID, tx.ID,
				log.FieldError, err)
			return &CriticalInconsistencyError{Op: log.OpEdit, Cause: err}
		}
		user.Balance = newBalance
	}

	e.logger.InfoContext(ctx, "Transaction edited",
		log.FieldUserID, user.ID,
		log.FieldTxID, tx.ID,
		log.FieldBalance, user.Balance)
	return nil
}

// Delete removes a transaction and restores its signed contribution to the
// balance.
func (e *Engine) Delete(ctx context.Context, user *core.User, tx core.Transaction) error {
	if err := e.transactions.Delete(ctx, tx.ID); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	newBalance := user.Balance - tx.Signed()
	if err := e.balances.UpdateBalance(ctx, user.ID, newBalance); err != nil {
		e.logger.ErrorContext(ctx, "Balance write failed after delete",
			log.FieldUserID, user.ID,
			log.FieldTxID, tx.ID,
			log.FieldError, err)
		return &CriticalInconsistencyError{Op: log.OpDelete, Cause: err}
	}
	user.Balance = newBalance

	e.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldUserID, user.ID,
		log.FieldTxID, tx.ID,
		log.FieldBalance, newBalance)
	return nil
}

// Reset deletes every transaction of the user and forces the balance to
// exactly zero. Irreversible; confirmation is the conversation layer's job.
func (e *Engine) Reset(ctx context.Context, user *core.User) error {
	if err := e.transactions.DeleteAllForUser(ctx, user.ID); err != nil {
		return fmt.Errorf("delete all transactions: %w", err)
	}
	if err := e.balances.UpdateBalance(ctx, user.ID, 0); err != nil {
		e.logger.ErrorContext(ctx, "Balance write failed after reset",
			log.FieldUserID, user.ID,
			log.FieldError, err)
		return &CriticalInconsistencyError{Op: log.OpReset, Cause: err}
	}
	user.Balance = 0

	e.logger.InfoContext(ctx, "Ledger reset", log.FieldUserID, user.ID)
	return nil
}
