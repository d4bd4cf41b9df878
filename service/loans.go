package service

import (
	"context"
	"errors"

	"github.com/emzola/bibliotheca-circulation/data"
	"github.com/emzola/bibliotheca-circulation/repository"
	"github.com/google/uuid"
)

type loans interface {
	BorrowBook(ctx context.Context, userID, bookID uuid.UUID) (*data.Loan, error)
	ReturnBook(ctx context.Context, loanID uuid.UUID) (*data.Loan, error)
	RenewLoan(ctx context.Context, loanID uuid.UUID) (*data.Loan, error)
	GetLoan(ctx context.Context, loanID uuid.UUID) (*data.LoanStatement, error)
	ListUserLoans(ctx context.Context, userID uuid.UUID) ([]data.LoanStatement, error)
	DownloadLink(ctx context.Context, loanID uuid.UUID) (string, error)
}

// BorrowBook service lends a copy of a book to a user. The whole workflow
// runs as one unit of work and is re-run when another request changed the
// book first.
func (s *service) BorrowBook(ctx context.Context, userID, bookID uuid.UUID) (*data.Loan, error) {
	var loan data.Loan
	err := retry(ctx, func(ctx context.Context) error {
		return s.repo.RunInTx(ctx, func(tx repository.Repository) error {
			var err error
			loan, err = s.borrow(ctx, tx, userID, bookID)
			return err
		})
	})
	if err != nil {
		return nil, translateConflict(err)
	}
	return &loan, nil
}

func (s *service) borrow(ctx context.Context, tx repository.Repository, userID, bookID uuid.UUID) (data.Loan, error) {
	now := s.now()
	user, err := s.getUser(ctx, tx, userID)
	if err != nil {
		return data.Loan{}, err
	}
	if !user.CanBorrow() {
		return data.Loan{}, ErrUserIneligible
	}
	book, err := s.getBook(ctx, tx, bookID)
	if err != nil {
		return data.Loan{}, err
	}
	if !book.IsAvailable() {
		return data.Loan{}, ErrBookUnavailable
	}
	if book.RequiresPremium(now) && !user.IsPremium() {
		return data.Loan{}, ErrPremiumRequired
	}
	active, err := tx.GetActiveLoansForUser(ctx, user.ID)
	if err != nil {
		return data.Loan{}, err
	}
	if limit := user.LoanLimit(); len(active) >= limit {
		return data.Loan{}, loanLimitExceeded(limit)
	}

	loan := data.NewLoan(user.ID, *book, now)
	updated, err := book.DecrementCopy()
	if err != nil {
		return data.Loan{}, ErrBookUnavailable
	}
	if err := tx.UpdateBook(ctx, &updated); err != nil {
		return data.Loan{}, err
	}
	if err := tx.CreateLoan(ctx, &loan); err != nil {
		return data.Loan{}, err
	}

	reservations, err := tx.GetReservationsForUser(ctx, user.ID)
	if err != nil {
		return data.Loan{}, err
	}
	// The borrower's own queue entry for this book is settled by the loan,
	// whether it was ready or still pending.
	for _, r := range reservations {
		if r.BookID != book.ID || !r.IsActive() {
			continue
		}
		fulfilled, err := r.WithStatus(data.ReservationFulfilled)
		if err != nil {
			return data.Loan{}, err
		}
		if err := tx.UpdateReservation(ctx, &fulfilled); err != nil {
			return data.Loan{}, err
		}
	}
	return loan, nil
}

// ReturnBook service closes a loan, puts the copy back on the shelf and
// hands it to the oldest pending reservation for the book, if any.
func (s *service) ReturnBook(ctx context.Context, loanID uuid.UUID) (*data.Loan, error) {
	var (
		loan     data.Loan
		book     data.Book
		promoted *data.Reservation
	)
	err := retry(ctx, func(ctx context.Context) error {
		promoted = nil
		return s.repo.RunInTx(ctx, func(tx repository.Repository) error {
			now := s.now()
			current, err := s.getLoan(ctx, tx, loanID)
			if err != nil {
				return err
			}
			returned, err := current.Returned(now)
			if err != nil {
				return ErrLoanNotActive
			}
			if err := tx.UpdateLoan(ctx, &returned); err != nil {
				return err
			}
			loan = returned

			b, err := s.getBook(ctx, tx, current.BookID)
			if err != nil {
				return err
			}
			book = *b
			restocked, err := b.IncrementCopy()
			switch {
			case errors.Is(err, data.ErrAllCopiesInStock):
				s.logger.PrintWarn("returned book already fully stocked", map[string]string{
					"book_id": b.ID.String(),
					"loan_id": loanID.String(),
				})
				return nil
			case err != nil:
				return err
			}
			if err := tx.UpdateBook(ctx, &restocked); err != nil {
				return err
			}
			book = restocked

			promoted, err = s.promoteNext(ctx, tx, book.ID, now)
			return err
		})
	})
	if err != nil {
		return nil, translateConflict(err)
	}
	if promoted != nil {
		s.notifyReady(*promoted, book.Title)
	}
	return &loan, nil
}

// RenewLoan service extends an active loan by another loan period.
func (s *service) RenewLoan(ctx context.Context, loanID uuid.UUID) (*data.Loan, error) {
	var loan data.Loan
	err := retry(ctx, func(ctx context.Context) error {
		current, err := s.getLoan(ctx, s.repo, loanID)
		if err != nil {
			return err
		}
		if !current.IsActive() {
			return ErrLoanNotActive
		}
		book, err := s.getBook(ctx, s.repo, current.BookID)
		if err != nil {
			return err
		}
		renewed, err := current.Renewed(s.now(), book.LoanDays())
		if err != nil {
			return ErrLoanNotRenewable
		}
		if err := s.repo.UpdateLoan(ctx, &renewed); err != nil {
			return err
		}
		loan = renewed
		return nil
	})
	if err != nil {
		return nil, translateConflict(err)
	}
	return &loan, nil
}

// GetLoan service retrieves a loan with its current fine.
func (s *service) GetLoan(ctx context.Context, loanID uuid.UUID) (*data.LoanStatement, error) {
	loan, err := s.getLoan(ctx, s.repo, loanID)
	if err != nil {
		return nil, err
	}
	statement := loan.Statement(s.now())
	return &statement, nil
}

// ListUserLoans service retrieves the loan history of a user.
func (s *service) ListUserLoans(ctx context.Context, userID uuid.UUID) ([]data.LoanStatement, error) {
	if _, err := s.getUser(ctx, s.repo, userID); err != nil {
		return nil, err
	}
	loans, err := s.repo.GetLoansForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	statements := make([]data.LoanStatement, 0, len(loans))
	for _, loan := range loans {
		statements = append(statements, loan.Statement(now))
	}
	return statements, nil
}

// DownloadLink service issues a time-limited link to the content of a
// digital book held on an active loan.
func (s *service) DownloadLink(ctx context.Context, loanID uuid.UUID) (string, error) {
	if s.content == nil {
		return "", ErrContentUnavailable
	}
	loan, err := s.getLoan(ctx, s.repo, loanID)
	if err != nil {
		return "", err
	}
	if !loan.IsActive() {
		return "", ErrLoanNotActive
	}
	book, err := s.getBook(ctx, s.repo, loan.BookID)
	if err != nil {
		return "", err
	}
	if !book.IsDigital() {
		return "", ErrNotDigital
	}
	if book.DigitalURL == "" {
		return "", ErrContentMissing
	}
	return s.content.PresignDownload(ctx, book.DigitalURL, s.config.Lending.DownloadLinkTTL)
}
