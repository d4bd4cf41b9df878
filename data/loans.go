package data

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrLoanNotActive    = errors.New("loan is not active")
	ErrLoanNotRenewable = errors.New("loan cannot be renewed")
)

type LoanStatus string

const (
	LoanActive   LoanStatus = "active"
	LoanReturned LoanStatus = "returned"
	LoanOverdue  LoanStatus = "overdue"
	LoanRenewed  LoanStatus = "renewed"
)

// Loan defines a loan model.
type Loan struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	BookID       uuid.UUID  `json:"book_id"`
	LoanDate     time.Time  `json:"loan_date"`
	DueDate      time.Time  `json:"due_date"`
	Status       LoanStatus `json:"status"`
	ReturnDate   *time.Time `json:"return_date,omitempty"`
	RenewalCount int        `json:"renewal_count"`
	FineCharged  float64    `json:"fine_charged"`
	Version      int32      `json:"-"`
}

// NewLoan opens an active loan of book for userID at now.
func NewLoan(userID uuid.UUID, book Book, now time.Time) Loan {
	return Loan{
		ID:       uuid.New(),
		UserID:   userID,
		BookID:   book.ID,
		LoanDate: now,
		DueDate:  DueDate(book, now),
		Status:   LoanActive,
	}
}

func (l Loan) IsActive() bool {
	return l.Status == LoanActive
}

func (l Loan) IsOverdue(now time.Time) bool {
	return l.IsActive() && now.After(l.DueDate)
}

func (l Loan) CanBeRenewed(now time.Time) bool {
	return l.IsActive() && l.RenewalCount < MaxRenewals && !l.IsOverdue(now)
}

// DaysUntilDue is negative or zero once the due date has passed.
func (l Loan) DaysUntilDue(now time.Time) int {
	return ceilDays(l.DueDate.Sub(now))
}

// OverdueDays counts started days past the due date.
func (l Loan) OverdueDays(now time.Time) int {
	if !l.IsOverdue(now) {
		return 0
	}
	return ceilDays(now.Sub(l.DueDate))
}

func (l Loan) Fine(now time.Time) float64 {
	return float64(l.OverdueDays(now)) * DailyFine
}

// Renewed returns l extended by periodDays from its current due date.
func (l Loan) Renewed(now time.Time, periodDays int) (Loan, error) {
	if !l.CanBeRenewed(now) {
		return l, ErrLoanNotRenewable
	}
	l.DueDate = l.DueDate.AddDate(0, 0, periodDays)
	l.RenewalCount++
	return l, nil
}

// Returned closes l at now and records the fine accrued so far.
func (l Loan) Returned(now time.Time) (Loan, error) {
	if !l.IsActive() {
		return l, ErrLoanNotActive
	}
	l.FineCharged = l.Fine(now)
	l.Status = LoanReturned
	l.ReturnDate = &now
	return l, nil
}

// LoanStatement is a loan together with its standing at a point in time.
type LoanStatement struct {
	Loan
	Overdue      bool    `json:"overdue"`
	DaysUntilDue int     `json:"days_until_due"`
	CurrentFine  float64 `json:"current_fine"`
}

func (l Loan) Statement(now time.Time) LoanStatement {
	s := LoanStatement{Loan: l, Overdue: l.IsOverdue(now), CurrentFine: l.Fine(now)}
	if l.IsActive() {
		s.DaysUntilDue = l.DaysUntilDue(now)
	}
	return s
}
