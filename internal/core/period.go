package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	PeriodDaily   PeriodKind = "daily"
	PeriodWeekly  PeriodKind = "weekly"
	PeriodMonthly PeriodKind = "monthly"
	PeriodYearly  PeriodKind = "yearly"
)

type (
	PeriodKind string

	// Period is a closed civil-time interval plus a report title. Start and
	// End are both inclusive and expressed in the bot's fixed timezone.
	Period struct {
		Kind  PeriodKind
		Start time.Time
		End   time.Time
		Title string
	}

	// InvalidTokenError reports which raw token of a period expression could
	// not be understood.
	InvalidTokenError struct {
		What  string // "period", "month" or "year"
		Token string
	}
)

func (e *InvalidTokenError) Error() string {
	return fmt.Sprintf("invalid %s token %q", e.What, e.Token)
}

// Timezone is the fixed civil timezone all calendar boundaries are computed
// in, regardless of the host process timezone.
var Timezone = loadTimezone()

func loadTimezone() *time.Location {
	if loc, err := time.LoadLocation("Asia/Jakarta"); err == nil {
		return loc
	}
	// Host without tzdata still gets correct WIB boundaries.
	return time.FixedZone("WIB", 7*60*60)
}

// monthNames maps Indonesian month names and their common abbreviations to
// the calendar month. One canonical table, shared by every caller.
var monthNames = map[string]time.Month{
	"jan": time.January, "januari": time.January,
	"feb": time.February, "februari": time.February,
	"mar": time.March, "maret": time.March,
	"apr": time.April, "april": time.April,
	"mei": time.May,
	"jun": time.June, "juni": time.June,
	"jul": time.July, "juli": time.July,
	"agu": time.August, "agustus": time.August,
	"sep": time.September, "september": time.September,
	"okt": time.October, "oktober": time.October,
	"nov": time.November, "november": time.November,
	"des": time.December, "desember": time.December,
}

var monthTitles = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// MonthTitle returns the Indonesian display name for m.
func MonthTitle(m time.Month) string {
	return monthTitles[m-1]
}

// ResolvePeriod maps a period kind plus optional month/year tokens onto a
// closed date interval anchored at ref. Month accepts a number 1-12 or an
// Indonesian name/abbreviation; year must be numeric. Empty tokens default to
// the reference month/year.
func ResolvePeriod(kind PeriodKind, monthTok, yearTok string, ref time.Time) (Period, error) {
	ref = ref.In(Timezone)

	switch kind {
	case PeriodDaily:
		start := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, Timezone)
		return Period{
			Kind:  kind,
			Start: start,
			End:   endOfDay(start),
			Title: "Laporan Keuangan Harian",
		}, nil

	case PeriodWeekly:
		// Week starts Monday.
		offset := (int(ref.Weekday()) + 6) % 7
		start := time.Date(ref.Year(), ref.Month(), ref.Day()-offset, 0, 0, 0, 0, Timezone)
		return Period{
			Kind:  kind,
			Start: start,
			End:   endOfDay(start.AddDate(0, 0, 6)),
			Title: "Laporan Keuangan Mingguan",
		}, nil

	case PeriodMonthly:
		year, err := resolveYear(yearTok, ref)
		if err != nil {
			return Period{}, err
		}
		month := ref.Month()
		if monthTok != "" {
			month, err = resolveMonth(monthTok)
			if err != nil {
				return Period{}, err
			}
		}
		start := time.Date(year, month, 1, 0, 0, 0, 0, Timezone)
		// Day 0 of the next month is the last day of this one.
		end := time.Date(year, month+1, 0, 23, 59, 59, 0, Timezone)
		return Period{
			Kind:  kind,
			Start: start,
			End:   end,
			Title: fmt.Sprintf("Laporan Bulanan (%s %d)", MonthTitle(month), year),
		}, nil

	case PeriodYearly:
		year, err := resolveYear(yearTok, ref)
		if err != nil {
			return Period{}, err
		}
		return Period{
			Kind:  kind,
			Start: time.Date(year, time.January, 1, 0, 0, 0, 0, Timezone),
			End:   time.Date(year, time.December, 31, 23, 59, 59, 0, Timezone),
			Title: fmt.Sprintf("Laporan Tahunan (%d)", year),
		}, nil

	default:
		return Period{}, &InvalidTokenError{What: "period", Token: string(kind)}
	}
}

func resolveMonth(tok string) (time.Month, error) {
	if n, err := strconv.Atoi(tok); err == nil {
		if n < 1 || n > 12 {
			return 0, &InvalidTokenError{What: "month", Token: tok}
		}
		return time.Month(n), nil
	}
	if m, ok := monthNames[strings.ToLower(tok)]; ok {
		return m, nil
	}
	return 0, &InvalidTokenError{What: "month", Token: tok}
}

func resolveYear(tok string, ref time.Time) (int, error) {
	if tok == "" {
		return ref.Year(), nil
	}
	year, err := strconv.Atoi(tok)
	if err != nil || year < 1 {
		return 0, &InvalidTokenError{What: "year", Token: tok}
	}
	return year, nil
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, Timezone)
}
