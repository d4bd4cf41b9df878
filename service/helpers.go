package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emzola/bibliotheca-circulation/data"
	"github.com/emzola/bibliotheca-circulation/repository"
	"github.com/google/uuid"
)

var errNotDelivered = errors.New("notification not delivered")

// background launches a background goroutine and recovers from panics inside
// the goroutine. It accepts an arbitrary function as a parameter and executes
// the function parameter inside the goroutine.
func (s *service) background(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if err := recover(); err != nil {
				s.logger.PrintError(fmt.Errorf("%s", err), nil)
			}
		}()
		fn()
	}()
}

// deliver calls send until it reports success, retrying transient failures.
func (s *service) deliver(ctx context.Context, send func(ctx context.Context) (bool, error)) error {
	return retry(ctx, func(ctx context.Context) error {
		ok, err := send(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return errNotDelivered
		}
		return nil
	}, s.notifyRetry...)
}

// notify delivers a notification in the background. Failures are logged
// with properties and never reach the caller of the workflow. onDelivered,
// if given, runs after a successful delivery.
func (s *service) notify(properties map[string]string, send func(ctx context.Context) (bool, error), onDelivered func(ctx context.Context) error) {
	s.background(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.deliver(ctx, send); err != nil {
			s.logger.PrintError(err, properties)
			return
		}
		if onDelivered != nil {
			if err := onDelivered(ctx); err != nil {
				s.logger.PrintError(err, properties)
			}
		}
	})
}

// markNotified records that the holder of a ready reservation was told.
func (s *service) markNotified(ctx context.Context, reservationID uuid.UUID) error {
	return retry(ctx, func(ctx context.Context) error {
		reservation, err := s.repo.GetReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if reservation.NotificationSent {
			return nil
		}
		notified := reservation.Notified()
		return s.repo.UpdateReservation(ctx, &notified)
	})
}

func (s *service) getUser(ctx context.Context, repo repository.Repository, userID uuid.UUID) (*data.User, error) {
	user, err := repo.GetUser(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrUserNotFound
		default:
			return nil, err
		}
	}
	return user, nil
}

func (s *service) getBook(ctx context.Context, repo repository.Repository, bookID uuid.UUID) (*data.Book, error) {
	book, err := repo.GetBook(ctx, bookID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrBookNotFound
		default:
			return nil, err
		}
	}
	return book, nil
}

func (s *service) getLoan(ctx context.Context, repo repository.Repository, loanID uuid.UUID) (*data.Loan, error) {
	loan, err := repo.GetLoan(ctx, loanID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrLoanNotFound
		default:
			return nil, err
		}
	}
	return loan, nil
}

func (s *service) getReservation(ctx context.Context, repo repository.Repository, reservationID uuid.UUID) (*data.Reservation, error) {
	reservation, err := repo.GetReservation(ctx, reservationID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRecordNotFound):
			return nil, ErrReservationNotFound
		default:
			return nil, err
		}
	}
	return reservation, nil
}

// translateConflict maps a conflict that survived every retry to the
// service's edit conflict error.
func translateConflict(err error) error {
	switch {
	case errors.Is(err, repository.ErrEditConflict):
		return ErrEditConflict
	default:
		return err
	}
}
