package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/emzola/bibliotheca-circulation/data"
	"github.com/emzola/bibliotheca-circulation/repository"
)

// overdueNoticeInterval is the minimum time between two overdue notices for one loan.
const overdueNoticeInterval = 24 * time.Hour

type circulation interface {
	Sweep(ctx context.Context) (SweepReport, error)
	StartSweeper(ctx context.Context, interval time.Duration)
	Seed(ctx context.Context, c Catalogue) (SeedResult, error)
}

// SweepReport counts what a sweep changed or sent.
type SweepReport struct {
	Expired         int `json:"expired"`
	Promoted        int `json:"promoted"`
	ReadyNotified   int `json:"ready_notified"`
	OverdueNotified int `json:"overdue_notified"`
}

// Sweep runs the time-driven part of circulation: it expires reservations
// whose window closed, tells holders of ready reservations that were not
// told yet, and reminds borrowers of overdue loans at most once per day.
// Failures on single records are logged and skipped.
func (s *service) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	now := s.now()

	expiring, err := s.repo.GetExpiredReservations(ctx, now)
	if err != nil {
		return report, fmt.Errorf("listing expired reservations: %w", err)
	}
	for _, r := range expiring {
		expired, promoted, err := s.expire(ctx, *r, now)
		if err != nil {
			s.logger.PrintError(err, map[string]string{"reservation_id": r.ID.String()})
			continue
		}
		if expired {
			report.Expired++
		}
		if promoted {
			report.Promoted++
		}
	}

	awaiting, err := s.repo.GetReservationsAwaitingNotification(ctx)
	if err != nil {
		return report, fmt.Errorf("listing ready reservations: %w", err)
	}
	for _, r := range awaiting {
		properties := map[string]string{"user_id": r.UserID.String(), "reservation_id": r.ID.String()}
		book, err := s.getBook(ctx, s.repo, r.BookID)
		if err != nil {
			s.logger.PrintError(err, properties)
			continue
		}
		r := *r
		err = s.deliver(ctx, func(ctx context.Context) (bool, error) {
			return s.notifier.SendReservationReady(ctx, r.UserID, book.Title, r.ExpirationDate)
		})
		if err == nil {
			err = s.markNotified(ctx, r.ID)
		}
		if err != nil {
			s.logger.PrintError(err, properties)
			continue
		}
		report.ReadyNotified++
	}

	s.overdueNotices.DeleteExpired()
	overdue, err := s.repo.GetOverdueLoans(ctx, now)
	if err != nil {
		return report, fmt.Errorf("listing overdue loans: %w", err)
	}
	for _, loan := range overdue {
		if s.overdueNotices.Get(loan.ID) != nil {
			continue
		}
		properties := map[string]string{"user_id": loan.UserID.String(), "loan_id": loan.ID.String()}
		book, err := s.getBook(ctx, s.repo, loan.BookID)
		if err != nil {
			s.logger.PrintError(err, properties)
			continue
		}
		days, fine := loan.OverdueDays(now), loan.Fine(now)
		err = s.deliver(ctx, func(ctx context.Context) (bool, error) {
			return s.notifier.SendOverdueNotice(ctx, loan.UserID, book.Title, days, fine)
		})
		if err != nil {
			s.logger.PrintError(err, properties)
			continue
		}
		s.overdueNotices.Set(loan.ID, now, overdueNoticeInterval)
		report.OverdueNotified++
	}
	return report, nil
}

// expire closes one reservation. When a ready reservation lapses the copy
// it was waiting on goes to the next pending reservation for the book; the
// new holder is told by the notification pass of the same sweep.
func (s *service) expire(ctx context.Context, reservation data.Reservation, now time.Time) (expired, promoted bool, err error) {
	var next *data.Reservation
	err = s.repo.RunInTx(ctx, func(tx repository.Repository) error {
		next = nil
		current, err := tx.GetReservation(ctx, reservation.ID)
		if err != nil {
			return err
		}
		if !current.IsActive() || !current.IsExpired(now) {
			return errSkip
		}
		wasReady := current.Status == data.ReservationReady
		lapsed, err := current.WithStatus(data.ReservationExpired)
		if err != nil {
			return err
		}
		if err := tx.UpdateReservation(ctx, &lapsed); err != nil {
			return err
		}
		if !wasReady {
			return nil
		}
		book, err := s.getBook(ctx, tx, current.BookID)
		if err != nil {
			return err
		}
		if !book.IsAvailable() {
			return nil
		}
		next, err = s.promoteNext(ctx, tx, current.BookID, now)
		return err
	})
	if errors.Is(err, errSkip) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return true, next != nil, nil
}

var errSkip = errors.New("skip")

// StartSweeper runs Sweep every interval in the background until ctx is done.
func (s *service) StartSweeper(ctx context.Context, interval time.Duration) {
	logger := s.logger.With(map[string]string{"component": "sweeper"})
	if interval <= 0 {
		logger.PrintError(fmt.Errorf("sweep interval must be positive, got %s", interval), nil)
		return
	}
	s.background(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				report, err := s.Sweep(ctx)
				if err != nil {
					logger.PrintError(err, nil)
					continue
				}
				logger.PrintInfo("sweep completed", map[string]string{
					"expired":          strconv.Itoa(report.Expired),
					"promoted":         strconv.Itoa(report.Promoted),
					"ready_notified":   strconv.Itoa(report.ReadyNotified),
					"overdue_notified": strconv.Itoa(report.OverdueNotified),
				})
			}
		}
	})
}
