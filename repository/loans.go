package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/emzola/bibliotheca-circulation/data"
	"github.com/google/uuid"
)

type loans interface {
	CreateLoan(ctx context.Context, loan *data.Loan) error
	GetLoan(ctx context.Context, loanID uuid.UUID) (*data.Loan, error)
	UpdateLoan(ctx context.Context, loan *data.Loan) error
	GetActiveLoansForUser(ctx context.Context, userID uuid.UUID) ([]*data.Loan, error)
	GetLoansForUser(ctx context.Context, userID uuid.UUID) ([]*data.Loan, error)
	GetOverdueLoans(ctx context.Context, now time.Time) ([]*data.Loan, error)
}

const loansTable = "loans"

var loanColumns = []interface{}{
	"id", "user_id", "book_id", "loan_date", "due_date", "status",
	"return_date", "renewal_count", "fine_charged", "version",
}

type loanRow struct {
	ID           uuid.UUID       `db:"id"`
	UserID       uuid.UUID       `db:"user_id"`
	BookID       uuid.UUID       `db:"book_id"`
	LoanDate     time.Time       `db:"loan_date"`
	DueDate      time.Time       `db:"due_date"`
	Status       data.LoanStatus `db:"status"`
	ReturnDate   sql.NullTime    `db:"return_date"`
	RenewalCount int             `db:"renewal_count"`
	FineCharged  float64         `db:"fine_charged"`
	Version      int32           `db:"version"`
}

func (row loanRow) loan() *data.Loan {
	loan := &data.Loan{
		ID:           row.ID,
		UserID:       row.UserID,
		BookID:       row.BookID,
		LoanDate:     row.LoanDate,
		DueDate:      row.DueDate,
		Status:       row.Status,
		RenewalCount: row.RenewalCount,
		FineCharged:  row.FineCharged,
		Version:      row.Version,
	}
	if row.ReturnDate.Valid {
		returned := row.ReturnDate.Time
		loan.ReturnDate = &returned
	}
	return loan
}

// CreateLoan creates a new loan record.
func (r *repository) CreateLoan(ctx context.Context, loan *data.Loan) error {
	query, args, err := toSQL(r.dialect.Insert(loansTable).Prepared(true).
		Rows(goqu.Record{
			"id":            loan.ID,
			"user_id":       loan.UserID,
			"book_id":       loan.BookID,
			"loan_date":     loan.LoanDate,
			"due_date":      loan.DueDate,
			"status":        string(loan.Status),
			"return_date":   nullTime(loan.ReturnDate),
			"renewal_count": loan.RenewalCount,
			"fine_charged":  loan.FineCharged,
		}).
		Returning("version"))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	err = r.q.QueryRowxContext(ctx, query, args...).Scan(&loan.Version)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrDuplicateRecord
		default:
			return err
		}
	}
	return nil
}

// GetLoan retrieves a loan record by its ID.
func (r *repository) GetLoan(ctx context.Context, loanID uuid.UUID) (*data.Loan, error) {
	if loanID == uuid.Nil {
		return nil, ErrRecordNotFound
	}
	query, args, err := toSQL(r.dialect.From(loansTable).Prepared(true).
		Select(loanColumns...).
		Where(goqu.C("id").Eq(loanID)))
	if err != nil {
		return nil, err
	}
	var row loanRow
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	err = r.q.GetContext(ctx, &row, query, args...)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return row.loan(), nil
}

// UpdateLoan updates a loan record, guarded by its version.
func (r *repository) UpdateLoan(ctx context.Context, loan *data.Loan) error {
	query, args, err := toSQL(r.dialect.Update(loansTable).Prepared(true).
		Set(goqu.Record{
			"due_date":      loan.DueDate,
			"status":        string(loan.Status),
			"return_date":   nullTime(loan.ReturnDate),
			"renewal_count": loan.RenewalCount,
			"fine_charged":  loan.FineCharged,
			"version":       goqu.L("version + 1"),
		}).
		Where(goqu.C("id").Eq(loan.ID), goqu.C("version").Eq(loan.Version)).
		Returning("version"))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	err = r.q.QueryRowxContext(ctx, query, args...).Scan(&loan.Version)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrEditConflict
		default:
			return err
		}
	}
	return nil
}

// GetActiveLoansForUser retrieves the loans a user currently holds.
func (r *repository) GetActiveLoansForUser(ctx context.Context, userID uuid.UUID) ([]*data.Loan, error) {
	return r.selectLoans(ctx,
		goqu.C("user_id").Eq(userID),
		goqu.C("status").Eq(string(data.LoanActive)),
	)
}

// GetLoansForUser retrieves the full loan history of a user.
func (r *repository) GetLoansForUser(ctx context.Context, userID uuid.UUID) ([]*data.Loan, error) {
	return r.selectLoans(ctx, goqu.C("user_id").Eq(userID))
}

// GetOverdueLoans retrieves active loans whose due date is before now.
func (r *repository) GetOverdueLoans(ctx context.Context, now time.Time) ([]*data.Loan, error) {
	return r.selectLoans(ctx,
		goqu.C("status").Eq(string(data.LoanActive)),
		goqu.C("due_date").Lt(now),
	)
}

func (r *repository) selectLoans(ctx context.Context, where ...goqu.Expression) ([]*data.Loan, error) {
	query, args, err := toSQL(r.dialect.From(loansTable).Prepared(true).
		Select(loanColumns...).
		Where(where...).
		Order(goqu.C("loan_date").Asc(), goqu.C("id").Asc()))
	if err != nil {
		return nil, err
	}
	var rows []loanRow
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	loans := make([]*data.Loan, 0, len(rows))
	for _, row := range rows {
		loans = append(loans, row.loan())
	}
	return loans, nil
}
