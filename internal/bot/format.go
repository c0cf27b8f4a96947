package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/fahroediin/whatsapp-cashflow-bot/internal/core"
	"github.com/fahroediin/whatsapp-cashflow-bot/internal/report"
)

const (
	categoryColWidth = 12
	amountColWidth   = 15
)

var shortMonths = [...]string{
	"Jan", "Feb", "Mar", "Apr", "Mei", "Jun",
	"Jul", "Agu", "Sep", "Okt", "Nov", "Des",
}

// formatShortDate renders "02 Mei" for the delete candidate list.
func formatShortDate(t time.Time) string {
	t = t.In(core.Timezone)
	return fmt.Sprintf("%02d %s", t.Day(), shortMonths[t.Month()-1])
}

// formatTableRow renders one monospace detail line: a fixed-width category
// column (time-prefixed for daily reports, date-prefixed otherwise), an
// amount column and the free-text note.
func formatTableRow(row report.Row, withTime bool) string {
	t := row.Time.In(core.Timezone)
	var prefix string
	if withTime {
		prefix = fmt.Sprintf("[%02d:%02d] ", t.Hour(), t.Minute())
	} else {
		prefix = fmt.Sprintf("[%02d/%02d] ", t.Day(), int(t.Month()))
	}

	category := row.Category
	if runes := []rune(category); len(runes) > categoryColWidth {
		category = string(runes[:categoryColWidth-1]) + "…"
	}

	left := padRight(prefix+category, len(prefix)+categoryColWidth)
	amount := padRight(core.FormatRupiah(row.Amount), amountColWidth)
	return strings.TrimRight(left+amount+row.Note, " ")
}

func padRight(s string, width int) string {
	if n := width - len([]rune(s)); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
