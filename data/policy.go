package data

import "time"

// Lending policy constants.
const (
	PhysicalLoanDays      = 14
	DigitalLoanDays       = 21
	ReservationWindowDays = 7
	MaxRenewals           = 2
	FreeLoanLimit         = 3
	PremiumLoanLimit      = 10
	DailyFine             = 0.50
	PremiumWindow         = 365 * 24 * time.Hour
)

const day = 24 * time.Hour

// DueDate returns the due date of a loan on book starting at loanDate.
func DueDate(book Book, loanDate time.Time) time.Time {
	return loanDate.AddDate(0, 0, book.LoanDays())
}

// ReservationExpiry returns the end of a pickup window opened at from.
func ReservationExpiry(from time.Time) time.Time {
	return from.AddDate(0, 0, ReservationWindowDays)
}

// ceilDays rounds d up to whole days. Negative durations round toward zero.
func ceilDays(d time.Duration) int {
	days := d / day
	if d%day > 0 {
		days++
	}
	return int(days)
}
