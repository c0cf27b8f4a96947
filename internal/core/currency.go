package core

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var idPrinter = message.NewPrinter(language.Indonesian)

// FormatRupiah renders a whole rupiah amount with id-ID digit grouping and no
// decimals, e.g. 1500000 -> "Rp1.500.000".
func FormatRupiah(amount int64) string {
	if amount < 0 {
		return idPrinter.Sprintf("-Rp%d", -amount)
	}
	return idPrinter.Sprintf("Rp%d", amount)
}
