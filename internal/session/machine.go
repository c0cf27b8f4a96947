package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fahroediin/whatsapp-cashflow-bot/internal/audit"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/core"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/ledger"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/log"
)

const (
	// CancelKeyword aborts any open session, case-insensitive.
	CancelKeyword = "batal"

	resetAffirmation = "ya"
	// ResetPhrase must be typed back exactly to execute a reset.
	ResetPhrase = "reset data saya sekarang"
)

// Ledger is the slice of the ledger engine the dialogs invoke.
type Ledger interface {
	Edit(ctx context.Context, user *core.User, tx core.Transaction, newAmount *int64, newNote *string) error
	Delete(ctx context.Context, user *core.User, tx core.Transaction) error
	Reset(ctx context.Context, user *core.User) error
}

// Machine advances one chat's dialog by one inbound message and renders the
// reply. Validation failures re-prompt without ending the session; ledger
// rejections and persistence errors end it after naming the reason.
type Machine struct {
	sessions *Manager
	engine   Ledger
	audit    audit.Sink
	logger   *log.Logger
}

func NewMachine(sessions *Manager, engine Ledger, sink audit.Sink, logger *log.Logger) *Machine {
	return &Machine{
		sessions: sessions,
		engine:   engine,
		audit:    sink,
		logger:   logger.WithComponent(log.ComponentSession),
	}
}

// Handle consumes one message for a chat with an open session.
func (m *Machine) Handle(ctx context.Context, user *core.User, input string) string {
	sess, ok := m.sessions.Get(user.ChatJID)
	if !ok {
		// Router bug; treat as no-op rather than crash the chat.
		return "Tidak ada sesi aktif."
	}
	input = strings.TrimSpace(input)

	if strings.EqualFold(input, CancelKeyword) {
		m.audit.Record(ctx, audit.Entry{
			UserID: user.ID, ChatJID: user.ChatJID,
			Label: "Sesi Interaktif Dibatalkan", Detail: "Langkah: " + sess.Step.String(),
		})
		m.sessions.End(user.ChatJID)
		return "Oke, sesi dibatalkan. 👍"
	}

	switch sess.Step {
	case StepEditChoice:
		return m.handleEditChoice(ctx, user, sess, input)
	case StepNewAmount:
		return m.handleNewAmount(ctx, user, sess, input)
	case StepNewNote:
		return m.handleNewNote(ctx, user, sess, input)
	case StepDeleteChoice:
		return m.handleDeleteChoice(ctx, user, sess, input)
	case StepResetConfirm:
		return m.handleResetConfirm(ctx, user, sess, input)
	case StepFinalResetConfirm:
		return m.handleFinalResetConfirm(ctx, user, input)
	}

	m.logger.WarnContext(ctx, "Session in unknown step",
		log.FieldChatJID, user.ChatJID,
		log.FieldSessionStep, int(sess.Step))
	m.sessions.End(user.ChatJID)
	return "Maaf, sesi tidak dikenali dan telah diakhiri."
}

func (m *Machine) handleEditChoice(ctx context.Context, user *core.User, sess *Session, input string) string {
	switch input {
	case "1", "3":
		sess.Choice = input
		sess.Step = StepNewAmount
		return "Masukkan nominal baru:"
	case "2":
		sess.Choice = input
		sess.Step = StepNewNote
		return "Masukkan catatan baru (ketik - jika ingin dihapus):"
	}
	m.audit.Record(ctx, audit.Entry{
		UserID: user.ID, ChatJID: user.ChatJID,
		Label: "Gagal Edit", Detail: "Pilihan tidak valid: " + input,
	})
	return "Pilihan tidak valid. Harap kirim angka 1, 2, atau 3. Ketik *batal* untuk membatalkan."
}

func (m *Machine) handleNewAmount(ctx context.Context, user *core.User, sess *Session, input string) string {
	amount, err := core.ParseAmount(input)
	if err != nil || amount == 0 {
		m.audit.Record(ctx, audit.Entry{
			UserID: user.ID, ChatJID: user.ChatJID,
			Label: "Gagal Edit", Detail: "Nominal baru tidak valid: " + input,
		})
		return "❌ Format nominal tidak valid. Harap masukkan angka (contoh: 50000, 50rb, 1.5jt)."
	}

	if sess.Choice == "3" {
		sess.PendingAmount = &amount
		sess.Step = StepNewNote
		return "Nominal baru diterima. Sekarang masukkan catatan baru:"
	}
	return m.finalizeEdit(ctx, user, sess, &amount, nil)
}

func (m *Machine) handleNewNote(ctx context.Context, user *core.User, sess *Session, input string) string {
	note := input
	if note == "-" {
		note = ""
	}
	return m.finalizeEdit(ctx, user, sess, sess.PendingAmount, &note)
}

func (m *Machine) finalizeEdit(ctx context.Context, user *core.User, sess *Session, newAmount *int64, newNote *string) string {
	defer m.sessions.End(user.ChatJID)

	err := m.engine.Edit(ctx, user, sess.Target, newAmount, newNote)
	if err != nil {
		var insufficient *ledger.InsufficientBalanceError
		var critical *ledger.CriticalInconsistencyError
		switch {
		case errors.As(err, &insufficient):
			m.audit.Record(ctx, audit.Entry{
				UserID: user.ID, ChatJID: user.ChatJID,
				Label:  "Gagal Edit",
				Detail: fmt.Sprintf("Saldo tidak cukup. Saldo Efektif: %d, Nominal Baru: %d", insufficient.Current, insufficient.Requested),
			})
			return fmt.Sprintf("⚠️ *Edit Gagal!*\nSaldo tidak mencukupi untuk nominal baru.\n\nSaldo Efektif: *%s*\nNominal Baru: *%s*",
				core.FormatRupiah(insufficient.Current), core.FormatRupiah(insufficient.Requested))
		case errors.As(err, &critical):
			m.audit.Record(ctx, audit.Entry{
				UserID: user.ID, ChatJID: user.ChatJID,
				Label: "KRITIS: Gagal Update Saldo (Edit)", Detail: err.Error(),
			})
			return "✅ Transaksi berhasil diubah, namun ada masalah saat memperbarui saldo Anda. Mohon verifikasi saldo Anda."
		default:
			m.audit.Record(ctx, audit.Entry{
				UserID: user.ID, ChatJID: user.ChatJID,
				Label: "Error Edit Transaksi", Detail: err.Error(),
			})
			return "Maaf, gagal mengubah transaksi. Silakan coba lagi."
		}
	}

	if newAmount != nil {
		return fmt.Sprintf("✅ Transaksi berhasil diubah!\n\n💰 *Saldo Baru:* %s", core.FormatRupiah(user.Balance))
	}
	return "✅ Transaksi berhasil diubah! (Catatan saja)"
}

func (m *Machine) handleDeleteChoice(ctx context.Context, user *core.User, sess *Session, input string) string {
	idx, err := strconv.Atoi(input)
	if err != nil || idx < 1 || idx > len(sess.Candidates) {
		m.audit.Record(ctx, audit.Entry{
			UserID: user.ID, ChatJID: user.ChatJID,
			Label: "Gagal Hapus", Detail: "Pilihan tidak valid: " + input,
		})
		return "Pilihan tidak valid. Harap kirim nomor yang ada di daftar."
	}
	target := sess.Candidates[idx-1]
	defer m.sessions.End(user.ChatJID)

	if err := m.engine.Delete(ctx, user, target); err != nil {
		var critical *ledger.CriticalInconsistencyError
		if errors.As(err, &critical) {
			m.audit.Record(ctx, audit.Entry{
				UserID: user.ID, ChatJID: user.ChatJID,
				Label: "KRITIS: Gagal Update Saldo (Hapus)", Detail: err.Error(),
			})
			return "✅ Transaksi berhasil dihapus, namun ada masalah saat mengembalikan saldo Anda. Mohon verifikasi saldo Anda."
		}
		m.audit.Record(ctx, audit.Entry{
			UserID: user.ID, ChatJID: user.ChatJID,
			Label: "Error Hapus Transaksi", Detail: fmt.Sprintf("ID: %d, Error: %v", target.ID, err),
		})
		return "Maaf, terjadi kesalahan saat menghapus transaksi. Silakan coba lagi."
	}

	m.audit.Record(ctx, audit.Entry{
		UserID: user.ID, ChatJID: user.ChatJID,
		Label: "Sukses Hapus Transaksi", Detail: fmt.Sprintf("ID: %d, Saldo Dikembalikan: %d", target.ID, user.Balance),
	})
	return fmt.Sprintf("✅ Transaksi \"%s - %s\" berhasil dihapus.\n\n💰 *Saldo Baru Anda:* %s",
		target.CategoryName, core.FormatRupiah(target.Amount), core.FormatRupiah(user.Balance))
}

func (m *Machine) handleResetConfirm(ctx context.Context, user *core.User, sess *Session, input string) string {
	if !strings.EqualFold(input, resetAffirmation) {
		m.audit.Record(ctx, audit.Entry{
			UserID: user.ID, ChatJID: user.ChatJID,
			Label: "Reset Dibatalkan", Detail: "Input tidak sesuai: " + input,
		})
		m.sessions.End(user.ChatJID)
		return "Reset dibatalkan. Data Anda aman. 😊"
	}

	sess.Step = StepFinalResetConfirm
	m.audit.Record(ctx, audit.Entry{
		UserID: user.ID, ChatJID: user.ChatJID,
		Label: "Proses Reset", Detail: "Meminta konfirmasi final.",
	})
	return "*KONFIRMASI AKHIR* ‼️\n\n" +
		"Ini adalah kesempatan terakhir Anda untuk membatalkan. " +
		"Untuk melanjutkan, ketik teks di bawah ini *persis*:\n\n" +
		"```" + ResetPhrase + "```\n\n" +
		"Salah ketik akan membatalkan proses ini."
}

func (m *Machine) handleFinalResetConfirm(ctx context.Context, user *core.User, input string) string {
	defer m.sessions.End(user.ChatJID)

	// Exact, case-sensitive match; a near miss aborts with zero mutation.
	if input != ResetPhrase {
		m.audit.Record(ctx, audit.Entry{
			UserID: user.ID, ChatJID: user.ChatJID,
			Label: "Reset Dibatalkan (Final)", Detail: "Input tidak sesuai: " + input,
		})
		return "Reset dibatalkan. Data Anda tetap aman. Fiuh! 😮‍💨"
	}

	if err := m.engine.Reset(ctx, user); err != nil {
		m.audit.Record(ctx, audit.Entry{
			UserID: user.ID, ChatJID: user.ChatJID,
			Label: "Error Reset Data", Detail: err.Error(),
		})
		var critical *ledger.CriticalInconsistencyError
		if errors.As(err, &critical) {
			return "✅ Transaksi Anda telah dihapus, namun ada masalah saat mereset saldo. Mohon verifikasi saldo Anda."
		}
		return "Maaf, terjadi kesalahan teknis saat mencoba mereset data Anda."
	}

	m.audit.Record(ctx, audit.Entry{
		UserID: user.ID, ChatJID: user.ChatJID,
		Label: "Sukses Reset Data", Detail: "Semua transaksi dan saldo telah direset.",
	})
	return "✅ *Reset Berhasil!* Semua data transaksi Anda telah dihapus dan saldo direset ke 0."
}
