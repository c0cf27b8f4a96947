package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/fahroediin/whatsapp-cashflow-bot/internal/audit"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/core"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/log"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/session"
)

// handleEditStart opens the edit dialog on the user's most recent
// transaction.
func (r *Router) handleEditStart(ctx context.Context, user core.User) string {
	last, found, err := r.transactions.LastForUser(ctx, user.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Last transaction lookup failed",
			log.FieldUserID, user.ID,
			log.FieldError, err)
		return replyInternalError
	}
	if !found {
		r.audit.Record(ctx, audit.Entry{
			UserID: user.ID, ChatJID: user.ChatJID,
			Label: "Gagal Edit", Detail: "Tidak ada transaksi terakhir ditemukan.",
		})
		return "Tidak ada transaksi terakhir yang bisa diubah. 🤔"
	}

	r.sessions.Begin(user.ChatJID, &session.Session{
		Step:   session.StepEditChoice,
		Target: last,
	})
	r.audit.Record(ctx, audit.Entry{
		UserID: user.ID, ChatJID: user.ChatJID,
		Label: "Proses Edit", Detail: "Menampilkan pilihan edit (1/2/3)",
	})

	note := last.Note
	if note == "" {
		note = "-"
	}
	return fmt.Sprintf("Transaksi terakhir yang akan diubah:\n\n*Kategori:* %s\n*Nominal:* %s\n*Catatan:* %s\n\n"+
		"Apa yang ingin Anda ubah?\n1. Nominal\n2. Catatan\n3. Keduanya\n\n"+
		"Kirim angka pilihan Anda (1/2/3). Ketik *batal* untuk membatalkan.",
		last.CategoryName, core.FormatRupiah(last.Amount), note)
}

// handleDeleteStart opens the delete dialog over this month's transactions,
// newest first.
func (r *Router) handleDeleteStart(ctx context.Context, user core.User) string {
	period, err := core.ResolvePeriod(core.PeriodMonthly, "", "", r.now())
	if err != nil {
		return replyInternalError
	}
	candidates, err := r.transactions.ListByPeriod(ctx, user.ID, period.Start, period.End)
	if err != nil {
		r.audit.Record(ctx, audit.Entry{
			UserID: user.ID, ChatJID: user.ChatJID,
			Label: "Error Hapus", Detail: "Gagal fetch transaksi: " + err.Error(),
		})
		return "Maaf, gagal mengambil daftar transaksi. Coba lagi nanti."
	}
	if len(candidates) == 0 {
		r.audit.Record(ctx, audit.Entry{
			UserID: user.ID, ChatJID: user.ChatJID,
			Label: "Info Hapus", Detail: "Tidak ada transaksi bulan ini",
		})
		return "Tidak ada transaksi yang tercatat di bulan ini untuk dihapus."
	}

	r.sessions.Begin(user.ChatJID, &session.Session{
		Step:       session.StepDeleteChoice,
		Candidates: candidates,
	})

	var b strings.Builder
	b.WriteString("Pilih transaksi yang ingin Anda hapus dengan mengirimkan nomornya:\n\n")
	for i, tx := range candidates {
		emoji := "📥"
		if tx.Kind == core.Expense {
			emoji = "📤"
		}
		fmt.Fprintf(&b, "*%d.* %s [%s] %s - %s\n",
			i+1, emoji, formatShortDate(tx.CreatedAt), tx.CategoryName, core.FormatRupiah(tx.Amount))
		if tx.Note != "" {
			fmt.Fprintf(&b, "   Catatan: _%s_\n", tx.Note)
		}
	}
	b.WriteString("\nKetik *batal* untuk membatalkan.")
	return b.String()
}

func (r *Router) handleHelp(ctx context.Context, user core.User) string {
	categories, err := r.categories.List(ctx)
	if err != nil {
		r.audit.Record(ctx, audit.Entry{
			UserID: user.ID, ChatJID: user.ChatJID,
			Label: "Error Bantuan", Detail: "Gagal fetch kategori: " + err.Error(),
		})
		return "Maaf, gagal memuat daftar kategori."
	}

	var income, expense strings.Builder
	for _, c := range categories {
		if c.Kind == core.Income {
			fmt.Fprintf(&income, "  - %s\n", c.Name)
		} else {
			fmt.Fprintf(&expense, "  - %s\n", c.Name)
		}
	}

	return fmt.Sprintf(replyHelp, user.Name,
		strings.TrimRight(income.String(), "\n"),
		strings.TrimRight(expense.String(), "\n"))
}
