package storage

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/fahroediin/whatsapp-cashflow-bot/internal/core"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/log"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	logger := log.New(log.Config{Level: slog.LevelError, Component: log.ComponentStorage})
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestGetOrCreateRefreshesName(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, err := repo.GetOrCreate(ctx, "628111@s.whatsapp.net", "Budi")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID == 0 || first.Balance != 0 {
		t.Fatalf("unexpected new user: %+v", first)
	}

	second, err := repo.GetOrCreate(ctx, "628111@s.whatsapp.net", "Budi Santoso")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same user, got %d and %d", first.ID, second.ID)
	}
	if second.Name != "Budi Santoso" {
		t.Fatalf("name not refreshed: %q", second.Name)
	}
}

func TestCategorySeed(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	gaji, err := repo.FindByName(ctx, "Gaji")
	if err != nil {
		t.Fatalf("find gaji: %v", err)
	}
	if gaji.Kind != core.Income {
		t.Fatalf("gaji should be income, got %s", gaji.Kind)
	}

	makanan, err := repo.FindByName(ctx, "makanan")
	if err != nil {
		t.Fatalf("find makanan: %v", err)
	}
	if makanan.Kind != core.Expense {
		t.Fatalf("makanan should be expense, got %s", makanan.Kind)
	}

	if _, err := repo.FindByName(ctx, "mystery"); !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var incomes int
	for _, c := range all {
		if c.Kind == core.Income {
			incomes++
		}
	}
	if incomes == 0 || incomes == len(all) {
		t.Fatalf("seed must contain both kinds, got %d/%d income", incomes, len(all))
	}
}

func TestCategoryNamesCaseInsensitivelyUnique(t *testing.T) {
	repo := newTestRepository(t)

	// The unique index collates NOCASE, so a re-cased duplicate must be
	// rejected at the schema level.
	_, err := repo.db.Exec(`INSERT INTO categories (name, kind) VALUES ('GAJI', 'INCOME')`)
	if err == nil {
		t.Fatalf("expected unique violation for re-cased duplicate")
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	user, err := repo.GetOrCreate(ctx, "628222@s.whatsapp.net", "Sari")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	gaji, _ := repo.FindByName(ctx, "gaji")
	makanan, _ := repo.FindByName(ctx, "makanan")

	older := core.Transaction{
		UserID: user.ID, CategoryID: gaji.ID, Amount: 100000,
		CreatedAt: time.Date(2024, 5, 3, 9, 0, 0, 0, core.Timezone),
	}
	if err := repo.Insert(ctx, &older); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if older.ID == 0 {
		t.Fatalf("insert must assign an id")
	}

	newer := core.Transaction{
		UserID: user.ID, CategoryID: makanan.ID, Amount: 15000, Note: "nasi goreng",
		CreatedAt: time.Date(2024, 5, 20, 12, 30, 0, 0, core.Timezone),
	}
	if err := repo.Insert(ctx, &newer); err != nil {
		t.Fatalf("insert: %v", err)
	}

	last, found, err := repo.LastForUser(ctx, user.ID)
	if err != nil || !found {
		t.Fatalf("last: found=%v err=%v", found, err)
	}
	if last.ID != newer.ID || last.CategoryName != "makanan" || last.Kind != core.Expense {
		t.Fatalf("unexpected last transaction: %+v", last)
	}
	if !last.CreatedAt.Equal(newer.CreatedAt) {
		t.Fatalf("created_at mismatch: stored %v, got %v", newer.CreatedAt, last.CreatedAt)
	}

	period, err := core.ResolvePeriod(core.PeriodMonthly, "mei", "2024", time.Date(2024, 6, 1, 0, 0, 0, 0, core.Timezone))
	if err != nil {
		t.Fatalf("resolve period: %v", err)
	}
	listed, err := repo.ListByPeriod(ctx, user.ID, period.Start, period.End)
	if err != nil {
		t.Fatalf("list by period: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 transactions in May, got %d", len(listed))
	}
	if listed[0].ID != newer.ID {
		t.Fatalf("listing must be newest first")
	}
}

func TestUpdateFieldsPartialPatch(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	user, _ := repo.GetOrCreate(ctx, "628333@s.whatsapp.net", "Andi")
	jajan, _ := repo.FindByName(ctx, "jajan")
	tx := core.Transaction{UserID: user.ID, CategoryID: jajan.ID, Amount: 5000, Note: "kopi"}
	if err := repo.Insert(ctx, &tx); err != nil {
		t.Fatalf("insert: %v", err)
	}

	amount := int64(7500)
	if err := repo.UpdateFields(ctx, tx.ID, &amount, nil); err != nil {
		t.Fatalf("update amount: %v", err)
	}
	got, _, _ := repo.LastForUser(ctx, user.ID)
	if got.Amount != 7500 || got.Note != "kopi" {
		t.Fatalf("amount-only patch wrong: %+v", got)
	}

	empty := ""
	if err := repo.UpdateFields(ctx, tx.ID, nil, &empty); err != nil {
		t.Fatalf("clear note: %v", err)
	}
	got, _, _ = repo.LastForUser(ctx, user.ID)
	if got.Amount != 7500 || got.Note != "" {
		t.Fatalf("note must clear to empty, amount untouched: %+v", got)
	}

	if err := repo.UpdateFields(ctx, 99999, &amount, nil); err == nil {
		t.Fatalf("expected error for missing id")
	}
}

func TestDeleteAndReset(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	user, _ := repo.GetOrCreate(ctx, "628444@s.whatsapp.net", "Dewi")
	gaji, _ := repo.FindByName(ctx, "gaji")
	a := core.Transaction{UserID: user.ID, CategoryID: gaji.ID, Amount: 1000}
	b := core.Transaction{UserID: user.ID, CategoryID: gaji.ID, Amount: 2000}
	repo.Insert(ctx, &a)
	repo.Insert(ctx, &b)

	if err := repo.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete(ctx, a.ID); err == nil {
		t.Fatalf("double delete must fail")
	}

	if err := repo.UpdateBalance(ctx, user.ID, 2000); err != nil {
		t.Fatalf("update balance: %v", err)
	}
	refetched, _ := repo.GetOrCreate(ctx, "628444@s.whatsapp.net", "Dewi")
	if refetched.Balance != 2000 {
		t.Fatalf("balance not persisted: %d", refetched.Balance)
	}

	if err := repo.DeleteAllForUser(ctx, user.ID); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if _, found, _ := repo.LastForUser(ctx, user.ID); found {
		t.Fatalf("transactions must be gone after reset")
	}
}

func TestAppendActivity(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	user, _ := repo.GetOrCreate(ctx, "628555@s.whatsapp.net", "Rina")
	if err := repo.AppendActivity(ctx, user.ID, user.ChatJID, "Transaksi Baru", "makanan 15000"); err != nil {
		t.Fatalf("append activity: %v", err)
	}
}
