// Package report summarizes a user's transactions over a resolved period.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/fahroediin/whatsapp-cashflow-bot/internal/core"
)

// TransactionReader is the read side of the transaction store: all of a
// user's transactions inside [start, end], newest first, joined with their
// category name and kind.
type TransactionReader interface {
	ListByPeriod(ctx context.Context, userID int64, start, end time.Time) ([]core.Transaction, error)
}

type (
	// Row is one detail line of a report.
	Row struct {
		Category string
		Amount   int64
		Note     string
		Time     time.Time
		Kind     core.CategoryKind
	}

	// Summary holds partition totals and ordered detail rows for one period.
	Summary struct {
		Period       core.Period
		TotalIncome  int64
		TotalExpense int64
		// Net is income minus expense for the period. For a daily report it
		// is the user's all-time standing balance instead: today's activity
		// and the standing balance are shown side by side, not conflated.
		Net         int64
		IncomeRows  []Row
		ExpenseRows []Row
	}
)

type Aggregator struct {
	transactions TransactionReader
}

func NewAggregator(transactions TransactionReader) *Aggregator {
	return &Aggregator{transactions: transactions}
}

// Summarize fetches the period's transactions, partitions them by category
// kind and totals each partition.
func (a *Aggregator) Summarize(ctx context.Context, user core.User, period core.Period) (Summary, error) {
	txs, err := a.transactions.ListByPeriod(ctx, user.ID, period.Start, period.End)
	if err != nil {
		return Summary{}, fmt.Errorf("list transactions: %w", err)
	}

	summary := Summary{Period: period}
	for _, tx := range txs {
		row := Row{
			Category: tx.CategoryName,
			Amount:   tx.Amount,
			Note:     tx.Note,
			Time:     tx.CreatedAt,
			Kind:     tx.Kind,
		}
		if tx.Kind == core.Income {
			summary.TotalIncome += tx.Amount
			summary.IncomeRows = append(summary.IncomeRows, row)
		} else {
			summary.TotalExpense += tx.Amount
			summary.ExpenseRows = append(summary.ExpenseRows, row)
		}
	}

	if period.Kind == core.PeriodDaily {
		summary.Net = user.Balance
	} else {
		summary.Net = summary.TotalIncome - summary.TotalExpense
	}
	return summary, nil
}

// Empty reports whether the period had no transactions at all.
func (s Summary) Empty() bool {
	return len(s.IncomeRows) == 0 && len(s.ExpenseRows) == 0
}
