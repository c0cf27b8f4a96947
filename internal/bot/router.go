// Package bot routes inbound chat messages: single-shot commands directly,
// everything else through the per-chat conversation machine. Exactly one text
// reply is produced per inbound message.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fahroediin/whatsapp-cashflow-bot/internal/audit"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/core"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/ledger"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/log"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/report"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/session"
)

// Command is the closed set of command words. Anything that doesn't match is
// an implicit record of shape "category amount [note...]".
type Command int

const (
	CmdRecord Command = iota // implicit, no keyword
	CmdGreeting
	CmdHelp
	CmdReport
	CmdEdit
	CmdDelete
	CmdReset
	CmdCancel
)

func parseCommand(word string) Command {
	switch word {
	case "halo", "hai", "hi", "pagi", "siang", "malam":
		return CmdGreeting
	case "bantuan":
		return CmdHelp
	case "cek":
		return CmdReport
	case "edit", "ubah":
		return CmdEdit
	case "hapus":
		return CmdDelete
	case "reset":
		return CmdReset
	case session.CancelKeyword:
		return CmdCancel
	default:
		return CmdRecord
	}
}

// UserStore reads or creates the user behind a chat identity, keeping the
// display name current.
type UserStore interface {
	GetOrCreate(ctx context.Context, chatJID, name string) (core.User, error)
}

// CategoryStore is the read-only category reference data.
type CategoryStore interface {
	FindByName(ctx context.Context, name string) (core.Category, error)
	List(ctx context.Context) ([]core.Category, error)
}

// TransactionReader is the read side the command handlers need: the newest
// transaction for the edit flow and a period listing for delete and reports.
type TransactionReader interface {
	LastForUser(ctx context.Context, userID int64) (core.Transaction, bool, error)
	ListByPeriod(ctx context.Context, userID int64, start, end time.Time) ([]core.Transaction, error)
}

type Router struct {
	users        UserStore
	categories   CategoryStore
	transactions TransactionReader
	engine       *ledger.Engine
	reports      *report.Aggregator
	sessions     *session.Manager
	machine      *session.Machine
	audit        audit.Sink
	logger       *log.Logger
	now          func() time.Time
}

func NewRouter(
	users UserStore,
	categories CategoryStore,
	transactions TransactionReader,
	engine *ledger.Engine,
	reports *report.Aggregator,
	sessions *session.Manager,
	machine *session.Machine,
	sink audit.Sink,
	logger *log.Logger,
) *Router {
	return &Router{
		users:        users,
		categories:   categories,
		transactions: transactions,
		engine:       engine,
		reports:      reports,
		sessions:     sessions,
		machine:      machine,
		audit:        sink,
		logger:       logger.WithComponent(log.ComponentBot),
		now:          time.Now,
	}
}

// HandleMessage processes one inbound message and returns the reply. It never
// panics outward: an unexpected failure in one chat is logged and answered
// with a generic apology so it cannot affect another chat's processing.
func (r *Router) HandleMessage(ctx context.Context, chatJID, pushName, body string) (reply string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "Panic while handling message",
				log.FieldChatJID, chatJID,
				log.FieldError, fmt.Sprint(rec))
			reply = replyInternalError
		}
	}()

	body = strings.TrimSpace(body)

	user, err := r.users.GetOrCreate(ctx, chatJID, pushName)
	if err != nil {
		r.logger.ErrorContext(ctx, "User lookup failed",
			log.FieldChatJID, chatJID,
			log.FieldError, err)
		return replyInternalError
	}

	// An open session captures all input for this chat.
	if r.sessions.Active(chatJID) {
		return r.machine.Handle(ctx, &user, body)
	}

	parts := strings.Fields(strings.ToLower(body))
	if len(parts) == 0 {
		return replyUnknownCommand
	}

	switch parseCommand(parts[0]) {
	case CmdCancel:
		r.audit.Record(ctx, audit.Entry{
			UserID: user.ID, ChatJID: chatJID,
			Label: "Perintah Batal", Detail: "Tidak ada sesi aktif.",
		})
		return "Tidak ada sesi aktif untuk dibatalkan."
	case CmdGreeting:
		r.audit.Record(ctx, audit.Entry{UserID: user.ID, ChatJID: chatJID, Label: "Sapaan", Detail: body})
		return fmt.Sprintf(replyGreeting, user.Name)
	case CmdHelp:
		r.audit.Record(ctx, audit.Entry{UserID: user.ID, ChatJID: chatJID, Label: "Minta Bantuan", Detail: body})
		return r.handleHelp(ctx, user)
	case CmdReport:
		return r.handleReport(ctx, user, parts, body)
	case CmdEdit:
		r.audit.Record(ctx, audit.Entry{UserID: user.ID, ChatJID: chatJID, Label: "Mulai Edit Transaksi", Detail: body})
		return r.handleEditStart(ctx, user)
	case CmdDelete:
		r.audit.Record(ctx, audit.Entry{UserID: user.ID, ChatJID: chatJID, Label: "Mulai Hapus Transaksi", Detail: body})
		return r.handleDeleteStart(ctx, user)
	case CmdReset:
		r.audit.Record(ctx, audit.Entry{UserID: user.ID, ChatJID: chatJID, Label: "Mulai Reset Data", Detail: body})
		r.sessions.Begin(chatJID, &session.Session{Step: session.StepResetConfirm})
		return replyResetWarning
	default:
		return r.handleRecord(ctx, &user, body)
	}
}

// handleRecord is the implicit transaction entry: "category amount [note...]".
func (r *Router) handleRecord(ctx context.Context, user *core.User, body string) string {
	parts := strings.Fields(body)
	if len(parts) < 2 {
		r.audit.Record(ctx, audit.Entry{
			UserID: user.ID, ChatJID: user.ChatJID,
			Label: "Perintah Tidak Dikenali", Detail: body,
		})
		return replyUnknownCommand
	}

	categoryName := core.NormalizeCategoryName(parts[0])
	amountStr := parts[1]
	note := strings.Join(parts[2:], " ")

	amount, err := core.ParseAmount(amountStr)
	if err != nil || amount == 0 {
		r.audit.Record(ctx, audit.Entry{
			UserID: user.ID, ChatJID: user.ChatJID,
			Label: "Gagal Transaksi", Detail: fmt.Sprintf("Nominal tidak valid. Pesan: %q", body),
		})
		return fmt.Sprintf("❌ Format nominal \"%s\" tidak valid. Contoh: `50000`, `50rb`, `1.5jt`.", amountStr)
	}

	category, err := r.categories.FindByName(ctx, categoryName)
	if err != nil {
		if errors.Is(err, core.ErrUnknownCategory) {
			r.audit.Record(ctx, audit.Entry{
				UserID: user.ID, ChatJID: user.ChatJID,
				Label: "Gagal Transaksi", Detail: fmt.Sprintf("Kategori tidak ditemukan. Pesan: %q", body),
			})
			return fmt.Sprintf("❓ Kategori \"%s\" tidak ditemukan. Cek kembali daftar kategori di menu *bantuan*.", categoryName)
		}
		r.logger.ErrorContext(ctx, "Category lookup failed",
			log.FieldCategory, categoryName,
			log.FieldError, err)
		return replyInternalError
	}

	_, err = r.engine.Record(ctx, user, category, amount, note)
	if err != nil {
		var insufficient *ledger.InsufficientBalanceError
		var critical *ledger.CriticalInconsistencyError
		switch {
		case errors.As(err, &insufficient):
			r.audit.Record(ctx, audit.Entry{
				UserID: user.ID, ChatJID: user.ChatJID,
				Label:  "Gagal Transaksi",
				Detail: fmt.Sprintf("Saldo tidak cukup. Saldo: %d, Pengeluaran: %d", insufficient.Current, insufficient.Requested),
			})
			return fmt.Sprintf("⚠️ *Transaksi Gagal!*\n\nSaldo Anda tidak mencukupi untuk transaksi ini.\n\n💰 Saldo Saat Ini: *%s*\n💸 Pengeluaran: *%s*",
				core.FormatRupiah(insufficient.Current), core.FormatRupiah(insufficient.Requested))
		case errors.As(err, &critical):
			r.audit.Record(ctx, audit.Entry{
				UserID: user.ID, ChatJID: user.ChatJID,
				Label: "KRITIS: Gagal Update Saldo", Detail: err.Error(),
			})
			return "✅ Transaksi tercatat, namun ada masalah saat memperbarui saldo Anda. Mohon verifikasi saldo Anda."
		default:
			r.audit.Record(ctx, audit.Entry{
				UserID: user.ID, ChatJID: user.ChatJID,
				Label: "Error Transaksi", Detail: err.Error(),
			})
			return "Maaf, terjadi kesalahan saat menyimpan transaksi."
		}
	}

	r.audit.Record(ctx, audit.Entry{
		UserID: user.ID, ChatJID: user.ChatJID,
		Label:  "Mencatat Transaksi",
		Detail: fmt.Sprintf("Kategori: %s, Nominal: %d, Saldo Baru: %d", category.Name, amount, user.Balance),
	})

	kindText := "📥 Pemasukan"
	if category.Kind == core.Expense {
		kindText = "📤 Pengeluaran"
	}
	displayNote := note
	if displayNote == "" {
		displayNote = "-"
	}
	return fmt.Sprintf("✅ *Transaksi Berhasil Dicatat!*\n\n*Tipe:* %s\n*Kategori:* %s\n*Nominal:* %s\n*Catatan:* %s\n\n💰 *Saldo Anda Sekarang:* %s",
		kindText, category.Name, core.FormatRupiah(amount), displayNote, core.FormatRupiah(user.Balance))
}
