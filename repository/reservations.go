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

type reservations interface {
	CreateReservation(ctx context.Context, reservation *data.Reservation) error
	GetReservation(ctx context.Context, reservationID uuid.UUID) (*data.Reservation, error)
	UpdateReservation(ctx context.Context, reservation *data.Reservation) error
	GetReservationsForUser(ctx context.Context, userID uuid.UUID) ([]*data.Reservation, error)
	GetReservationsForBook(ctx context.Context, bookID uuid.UUID) ([]*data.Reservation, error)
	GetExpiredReservations(ctx context.Context, now time.Time) ([]*data.Reservation, error)
	GetReservationsAwaitingNotification(ctx context.Context) ([]*data.Reservation, error)
}

const reservationsTable = "reservations"

var reservationColumns = []interface{}{
	"id", "user_id", "book_id", "reservation_date", "expiration_date",
	"status", "notification_sent", "version",
}

type reservationRow struct {
	ID               uuid.UUID              `db:"id"`
	UserID           uuid.UUID              `db:"user_id"`
	BookID           uuid.UUID              `db:"book_id"`
	ReservationDate  time.Time              `db:"reservation_date"`
	ExpirationDate   time.Time              `db:"expiration_date"`
	Status           data.ReservationStatus `db:"status"`
	NotificationSent bool                   `db:"notification_sent"`
	Version          int32                  `db:"version"`
}

// CreateReservation creates a new reservation record. A second active
// reservation by the same user for the same book is rejected with
// ErrDuplicateRecord.
func (r *repository) CreateReservation(ctx context.Context, reservation *data.Reservation) error {
	query, args, err := toSQL(r.dialect.Insert(reservationsTable).Prepared(true).
		Rows(goqu.Record{
			"id":                reservation.ID,
			"user_id":           reservation.UserID,
			"book_id":           reservation.BookID,
			"reservation_date":  reservation.ReservationDate,
			"expiration_date":   reservation.ExpirationDate,
			"status":            string(reservation.Status),
			"notification_sent": reservation.NotificationSent,
		}).
		Returning("version"))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	err = r.q.QueryRowxContext(ctx, query, args...).Scan(&reservation.Version)
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

// GetReservation retrieves a reservation record by its ID.
func (r *repository) GetReservation(ctx context.Context, reservationID uuid.UUID) (*data.Reservation, error) {
	if reservationID == uuid.Nil {
		return nil, ErrRecordNotFound
	}
	query, args, err := toSQL(r.dialect.From(reservationsTable).Prepared(true).
		Select(reservationColumns...).
		Where(goqu.C("id").Eq(reservationID)))
	if err != nil {
		return nil, err
	}
	var row reservationRow
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
	reservation := data.Reservation(row)
	return &reservation, nil
}

// UpdateReservation updates a reservation record, guarded by its version.
func (r *repository) UpdateReservation(ctx context.Context, reservation *data.Reservation) error {
	query, args, err := toSQL(r.dialect.Update(reservationsTable).Prepared(true).
		Set(goqu.Record{
			"expiration_date":   reservation.ExpirationDate,
			"status":            string(reservation.Status),
			"notification_sent": reservation.NotificationSent,
			"version":           goqu.L("version + 1"),
		}).
		Where(goqu.C("id").Eq(reservation.ID), goqu.C("version").Eq(reservation.Version)).
		Returning("version"))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	err = r.q.QueryRowxContext(ctx, query, args...).Scan(&reservation.Version)
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

func (r *repository) GetReservationsForUser(ctx context.Context, userID uuid.UUID) ([]*data.Reservation, error) {
	return r.selectReservations(ctx, goqu.C("user_id").Eq(userID))
}

// GetReservationsForBook retrieves the reservations of a book, oldest first.
func (r *repository) GetReservationsForBook(ctx context.Context, bookID uuid.UUID) ([]*data.Reservation, error) {
	return r.selectReservations(ctx, goqu.C("book_id").Eq(bookID))
}

// GetExpiredReservations retrieves active reservations whose window closed before now.
func (r *repository) GetExpiredReservations(ctx context.Context, now time.Time) ([]*data.Reservation, error) {
	return r.selectReservations(ctx,
		goqu.C("status").In(string(data.ReservationPending), string(data.ReservationReady)),
		goqu.C("expiration_date").Lt(now),
	)
}

// GetReservationsAwaitingNotification retrieves ready reservations whose
// holder has not been told yet.
func (r *repository) GetReservationsAwaitingNotification(ctx context.Context) ([]*data.Reservation, error) {
	return r.selectReservations(ctx,
		goqu.C("status").Eq(string(data.ReservationReady)),
		goqu.C("notification_sent").IsFalse(),
	)
}

func (r *repository) selectReservations(ctx context.Context, where ...goqu.Expression) ([]*data.Reservation, error) {
	query, args, err := toSQL(r.dialect.From(reservationsTable).Prepared(true).
		Select(reservationColumns...).
		Where(where...).
		Order(goqu.C("reservation_date").Asc(), goqu.C("id").Asc()))
	if err != nil {
		return nil, err
	}
	var rows []reservationRow
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	reservations := make([]*data.Reservation, 0, len(rows))
	for _, row := range rows {
		reservation := data.Reservation(row)
		reservations = append(reservations, &reservation)
	}
	return reservations, nil
}
