package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/fahroediin/whatsapp-cashflow-bot/internal/core"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/log"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteRepository is the single persistence backend. It serves the ledger
// engine (transactions and cached balances), the command router (users and
// categories), the report aggregator and the activity log.
type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
	}, nil
}

// runMigrations applies pending schema migrations on a dedicated connection,
// so the migrate lock never ties up the repository's pool.
func runMigrations(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open for migration: %w", err)
	}
	defer db.Close()

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("wrap sqlite connection: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("init migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// GetOrCreate implements bot.UserStore. The display name is refreshed on
// every call so renamed contacts stay current.
func (r *SQLiteRepository) GetOrCreate(ctx context.Context, chatJID, name string) (core.User, error) {
	var user core.User
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (chat_jid, name)
		VALUES (?, ?)
		ON CONFLICT (chat_jid) DO UPDATE SET name = excluded.name, updated_at = CURRENT_TIMESTAMP
		RETURNING id, chat_jid, name, balance`,
		chatJID, name,
	).Scan(&user.ID, &user.ChatJID, &user.Name, &user.Balance)
	if err != nil {
		return core.User{}, fmt.Errorf("get or create user: %w", err)
	}
	return user, nil
}

// UpdateBalance implements ledger.BalanceStore.
func (r *SQLiteRepository) UpdateBalance(ctx context.Context, userID, balance int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET balance = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		balance, userID,
	)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update balance rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update balance: user %d not found", userID)
	}
	return nil
}

// FindByName implements bot.CategoryStore. Lookup is by the normalized name.
func (r *SQLiteRepository) FindByName(ctx context.Context, name string) (core.Category, error) {
	var category core.Category
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, kind FROM categories WHERE name = ?`,
		core.NormalizeCategoryName(name),
	).Scan(&category.ID, &category.Name, &category.Kind)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrUnknownCategory
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("find category: %w", err)
	}
	return category, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, kind FROM categories ORDER BY kind, name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Kind); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// Insert implements ledger.TransactionStore.
func (r *SQLiteRepository) Insert(ctx context.Context, tx *core.Transaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().In(core.Timezone)
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO transactions (user_id, category_id, amount, note, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		tx.UserID, tx.CategoryID, tx.Amount, tx.Note, tx.CreatedAt.UTC(),
	).Scan(&tx.ID)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	r.logger.InfoContext(ctx, "Transaction saved",
		log.FieldTxID, tx.ID,
		log.FieldUserID, tx.UserID,
		log.FieldAmount, tx.Amount)
	return nil
}

// UpdateFields patches only the provided columns. A nil pointer leaves the
// column untouched, so a note can be cleared to "" without resetting it.
func (r *SQLiteRepository) UpdateFields(ctx context.Context, id int64, amount *int64, note *string) error {
	var amountArg sql.NullInt64
	if amount != nil {
		amountArg = sql.NullInt64{Int64: *amount, Valid: true}
	}
	var noteArg sql.NullString
	if note != nil {
		noteArg = sql.NullString{String: *note, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET amount = COALESCE(?, amount), note = COALESCE(?, note)
		WHERE id = ?`,
		amountArg, noteArg, id,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update transaction: id %d not found", id)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("delete transaction: id %d not found", id)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAllForUser(ctx context.Context, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete all transactions: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete all transactions rows affected: %w", err)
	}

	r.logger.InfoContext(ctx, "All transactions deleted",
		log.FieldUserID, userID,
		"deleted", deleted)
	return nil
}

const transactionColumns = `
	t.id, t.user_id, t.category_id, t.amount, t.note, t.created_at, c.name, c.kind`

// LastForUser implements the edit flow's lookup of the newest transaction.
func (r *SQLiteRepository) LastForUser(ctx context.Context, userID int64) (core.Transaction, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ?
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT 1`,
		userID,
	)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, false, nil
	}
	if err != nil {
		return core.Transaction{}, false, fmt.Errorf("last transaction: %w", err)
	}
	return tx, true, nil
}

// ListByPeriod returns the user's transactions inside [start, end],
// newest first.
func (r *SQLiteRepository) ListByPeriod(ctx context.Context, userID int64, start, end time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ? AND t.created_at >= ? AND t.created_at <= ?
		ORDER BY t.created_at DESC, t.id DESC`,
		userID, start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return transactions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var tx core.Transaction
	err := row.Scan(&tx.ID, &tx.UserID, &tx.CategoryID, &tx.Amount, &tx.Note,
		&tx.CreatedAt, &tx.CategoryName, &tx.Kind)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.CreatedAt = tx.CreatedAt.In(core.Timezone)
	return tx, nil
}

// AppendActivity implements audit.Store.
func (r *SQLiteRepository) AppendActivity(ctx context.Context, userID int64, chatJID, label, detail string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_log (user_id, chat_jid, label, detail)
		VALUES (?, ?, ?, ?)`,
		userID, chatJID, label, detail,
	)
	if err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}
