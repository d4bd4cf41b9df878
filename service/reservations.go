package service

import (
	"context"
	"errors"
	"time"

	"github.com/emzola/bibliotheca-circulation/data"
	"github.com/emzola/bibliotheca-circulation/repository"
	"github.com/google/uuid"
)

type reservations interface {
	ReserveBook(ctx context.Context, userID, bookID uuid.UUID) (*data.Reservation, error)
	CancelReservation(ctx context.Context, reservationID uuid.UUID) (*data.Reservation, error)
	ListUserReservations(ctx context.Context, userID uuid.UUID) ([]*data.Reservation, error)
}

// ReserveBook service places a user in the queue for a book with no copy
// on the shelf. The confirmation is sent in the background and never
// affects the result.
func (s *service) ReserveBook(ctx context.Context, userID, bookID uuid.UUID) (*data.Reservation, error) {
	var (
		reservation data.Reservation
		title       string
	)
	err := s.repo.RunInTx(ctx, func(tx repository.Repository) error {
		user, err := s.getUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !user.CanBorrow() {
			return ErrUserIneligible
		}
		book, err := s.getBook(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if book.IsAvailable() {
			return ErrBookAlreadyAvailable
		}
		if !book.CanBeReserved() {
			return ErrBookNotReservable
		}
		existing, err := tx.GetReservationsForUser(ctx, user.ID)
		if err != nil {
			return err
		}
		for _, r := range existing {
			if r.BookID == book.ID && r.IsActive() {
				return ErrDuplicateReservation
			}
		}
		reservation = data.NewReservation(user.ID, book.ID, s.now())
		if err := tx.CreateReservation(ctx, &reservation); err != nil {
			switch {
			case errors.Is(err, repository.ErrDuplicateRecord):
				return ErrDuplicateReservation
			default:
				return err
			}
		}
		title = book.Title
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(map[string]string{
		"notification":   "reservation_confirmed",
		"user_id":        userID.String(),
		"reservation_id": reservation.ID.String(),
	}, func(ctx context.Context) (bool, error) {
		return s.notifier.SendReservationConfirmation(ctx, userID, title)
	}, nil)
	return &reservation, nil
}

// CancelReservation service withdraws a pending or ready reservation.
func (s *service) CancelReservation(ctx context.Context, reservationID uuid.UUID) (*data.Reservation, error) {
	var reservation data.Reservation
	err := retry(ctx, func(ctx context.Context) error {
		current, err := s.getReservation(ctx, s.repo, reservationID)
		if err != nil {
			return err
		}
		cancelled, err := current.WithStatus(data.ReservationCancelled)
		if err != nil {
			return ErrReservationNotActive
		}
		if err := s.repo.UpdateReservation(ctx, &cancelled); err != nil {
			return err
		}
		reservation = cancelled
		return nil
	})
	if err != nil {
		return nil, translateConflict(err)
	}
	return &reservation, nil
}

// ListUserReservations service retrieves every reservation of a user.
func (s *service) ListUserReservations(ctx context.Context, userID uuid.UUID) ([]*data.Reservation, error) {
	if _, err := s.getUser(ctx, s.repo, userID); err != nil {
		return nil, err
	}
	return s.repo.GetReservationsForUser(ctx, userID)
}

// promoteNext moves the oldest pending reservation for a book to ready.
// It returns nil when nobody is waiting.
func (s *service) promoteNext(ctx context.Context, tx repository.Repository, bookID uuid.UUID, now time.Time) (*data.Reservation, error) {
	queue, err := tx.GetReservationsForBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	for _, r := range queue {
		if r.Status != data.ReservationPending || r.IsExpired(now) {
			continue
		}
		ready, err := r.Promoted(now)
		if err != nil {
			return nil, err
		}
		if err := tx.UpdateReservation(ctx, &ready); err != nil {
			return nil, err
		}
		return &ready, nil
	}
	return nil, nil
}

// notifyReady tells the holder of a ready reservation to collect the book
// and records the delivery.
func (s *service) notifyReady(reservation data.Reservation, title string) {
	s.notify(map[string]string{
		"notification":   "reservation_ready",
		"user_id":        reservation.UserID.String(),
		"reservation_id": reservation.ID.String(),
	}, func(ctx context.Context) (bool, error) {
		return s.notifier.SendReservationReady(ctx, reservation.UserID, title, reservation.ExpirationDate)
	}, func(ctx context.Context) error {
		return s.markNotified(ctx, reservation.ID)
	})
}
