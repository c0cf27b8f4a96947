package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fahroediin/whatsapp-cashflow-bot/internal/audit"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/core"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/log"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/report"
)

// periodKeywords maps the Indonesian command words onto period kinds.
var periodKeywords = map[string]core.PeriodKind{
	"harian":   core.PeriodDaily,
	"mingguan": core.PeriodWeekly,
	"bulanan":  core.PeriodMonthly,
	"tahunan":  core.PeriodYearly,
}

// handleReport serves "cek [periode] [bulan] [tahun]".
func (r *Router) handleReport(ctx context.Context, user core.User, parts []string, body string) string {
	if len(parts) < 2 {
		r.audit.Record(ctx, audit.Entry{
			UserID: user.ID, ChatJID: user.ChatJID,
			Label: "Gagal Cek Laporan", Detail: fmt.Sprintf("Periode tidak diisi. Pesan: %q", body),
		})
		return "🤔 Formatnya kurang tepat. Gunakan: `cek [periode]`\nContoh: `cek harian`"
	}

	kind, ok := periodKeywords[parts[1]]
	if !ok {
		r.audit.Record(ctx, audit.Entry{
			UserID: user.ID, ChatJID: user.ChatJID,
			Label: "Gagal Cek Laporan", Detail: "Periode tidak valid: " + parts[1],
		})
		return fmt.Sprintf("❌ Periode \"%s\" tidak valid. Pilih antara: *harian, mingguan, bulanan, tahunan*.", parts[1])
	}

	var monthTok, yearTok string
	switch kind {
	case core.PeriodMonthly:
		if len(parts) > 2 {
			monthTok = parts[2]
		}
		if len(parts) > 3 {
			yearTok = parts[3]
		}
	case core.PeriodYearly:
		if len(parts) > 2 {
			yearTok = parts[2]
		}
	}

	period, err := core.ResolvePeriod(kind, monthTok, yearTok, r.now())
	if err != nil {
		var tokenErr *core.InvalidTokenError
		if errors.As(err, &tokenErr) {
			if tokenErr.What == "month" {
				return fmt.Sprintf("❌ Bulan \"%s\" tidak valid.", tokenErr.Token)
			}
			return fmt.Sprintf("❌ Format tahun \"%s\" tidak valid.", tokenErr.Token)
		}
		return replyInternalError
	}

	summary, err := r.reports.Summarize(ctx, user, period)
	if err != nil {
		r.audit.Record(ctx, audit.Entry{
			UserID: user.ID, ChatJID: user.ChatJID,
			Label: "Error Cek Laporan", Detail: err.Error(),
		})
		return "Gagal mengambil data laporan."
	}

	r.audit.Record(ctx, audit.Entry{
		UserID: user.ID, ChatJID: user.ChatJID,
		Label: "Cek Laporan", Detail: "Periode: " + parts[1],
	})
	r.logger.InfoContext(ctx, "Report served",
		log.FieldUserID, user.ID,
		log.FieldPeriod, string(kind))

	return renderSummary(summary)
}

func renderSummary(s report.Summary) string {
	if s.Empty() {
		if s.Period.Kind == core.PeriodDaily {
			return fmt.Sprintf("Tidak ada transaksi hari ini. 😊\n\nSaldo Anda saat ini adalah *%s*", core.FormatRupiah(s.Net))
		}
		return fmt.Sprintf("Tidak ada transaksi yang tercatat untuk periode %s. 😊", s.Period.Title)
	}

	netLabel := "✨ *Selisih (Periode Ini):*"
	if s.Period.Kind == core.PeriodDaily {
		// A daily report shows the standing balance next to today's activity.
		netLabel = "✨ *Saldo Anda Saat Ini:*"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *%s*\n\n", s.Period.Title)
	fmt.Fprintf(&b, "📥 *Total Pemasukan (Periode Ini):*\n   %s\n\n", core.FormatRupiah(s.TotalIncome))
	fmt.Fprintf(&b, "📤 *Total Pengeluaran (Periode Ini):*\n   %s\n\n", core.FormatRupiah(s.TotalExpense))
	b.WriteString("--------------------\n")
	fmt.Fprintf(&b, "%s\n   *%s*\n", netLabel, core.FormatRupiah(s.Net))
	b.WriteString("--------------------\n")

	withTime := s.Period.Kind == core.PeriodDaily
	if len(s.IncomeRows) > 0 {
		b.WriteString("\n*RINCIAN PEMASUKAN* 📥\n```\n")
		for _, row := range s.IncomeRows {
			b.WriteString(formatTableRow(row, withTime))
			b.WriteByte('\n')
		}
		b.WriteString("```")
	}
	if len(s.ExpenseRows) > 0 {
		b.WriteString("\n*RINCIAN PENGELUARAN* 📤\n```\n")
		for _, row := range s.ExpenseRows {
			b.WriteString(formatTableRow(row, withTime))
			b.WriteByte('\n')
		}
		b.WriteString("```")
	}
	return b.String()
}
