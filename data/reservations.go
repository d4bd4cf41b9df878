package data

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrReservationNotActive = errors.New("reservation is not active")

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationReady     ReservationStatus = "ready"
	ReservationExpired   ReservationStatus = "expired"
	ReservationFulfilled ReservationStatus = "fulfilled"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation defines a reservation model.
type Reservation struct {
	ID               uuid.UUID         `json:"id"`
	UserID           uuid.UUID         `json:"user_id"`
	BookID           uuid.UUID         `json:"book_id"`
	ReservationDate  time.Time         `json:"reservation_date"`
	ExpirationDate   time.Time         `json:"expiration_date"`
	Status           ReservationStatus `json:"status"`
	NotificationSent bool              `json:"notification_sent"`
	Version          int32             `json:"-"`
}

// NewReservation opens a pending reservation whose window starts at now.
func NewReservation(userID, bookID uuid.UUID, now time.Time) Reservation {
	return Reservation{
		ID:              uuid.New(),
		UserID:          userID,
		BookID:          bookID,
		ReservationDate: now,
		ExpirationDate:  ReservationExpiry(now),
		Status:          ReservationPending,
	}
}

func (r Reservation) IsExpired(now time.Time) bool {
	return now.After(r.ExpirationDate)
}

func (r Reservation) CanBeFulfilled(now time.Time) bool {
	return r.Status == ReservationReady && !r.IsExpired(now)
}

func (r Reservation) NeedsNotification() bool {
	return r.Status == ReservationReady && !r.NotificationSent
}

// IsActive reports whether the reservation still holds a place in the queue.
func (r Reservation) IsActive() bool {
	return r.Status == ReservationPending || r.Status == ReservationReady
}

func (r Reservation) DaysUntilExpiration(now time.Time) int {
	return ceilDays(r.ExpirationDate.Sub(now))
}

// Promoted moves a pending reservation to ready and opens a fresh pickup
// window starting at now.
func (r Reservation) Promoted(now time.Time) (Reservation, error) {
	if r.Status != ReservationPending {
		return r, ErrReservationNotActive
	}
	r.Status = ReservationReady
	r.ExpirationDate = ReservationExpiry(now)
	r.NotificationSent = false
	return r, nil
}

// WithStatus moves an active reservation to status.
func (r Reservation) WithStatus(status ReservationStatus) (Reservation, error) {
	if !r.IsActive() {
		return r, ErrReservationNotActive
	}
	r.Status = status
	return r, nil
}

func (r Reservation) Notified() Reservation {
	r.NotificationSent = true
	return r
}
