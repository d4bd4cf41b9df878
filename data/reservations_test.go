package data_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emzola/bibliotheca-circulation/data"
	"github.com/emzola/bibliotheca-circulation/internal/validator"
)

func TestNewReservation(t *testing.T) {
	now := time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC)

	r := data.NewReservation(uuid.New(), uuid.New(), now)

	assert.Equal(t, data.ReservationPending, r.Status)
	assert.Equal(t, now.AddDate(0, 0, 7), r.ExpirationDate)
	assert.False(t, r.NotificationSent)
	assert.True(t, r.IsActive())
	assert.Equal(t, 7, r.DaysUntilExpiration(now))
}

func TestReservationIsExpiredBoundary(t *testing.T) {
	now := time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC)
	r := data.NewReservation(uuid.New(), uuid.New(), now)

	assert.False(t, r.IsExpired(r.ExpirationDate.Add(-time.Nanosecond)))
	assert.False(t, r.IsExpired(r.ExpirationDate))
	assert.True(t, r.IsExpired(r.ExpirationDate.Add(time.Nanosecond)))
}

func TestReservationLifecycle(t *testing.T) {
	now := time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC)
	r := data.NewReservation(uuid.New(), uuid.New(), now)

	assert.False(t, r.CanBeFulfilled(now))
	assert.False(t, r.NeedsNotification())

	later := now.AddDate(0, 0, 3)
	ready, err := r.Promoted(later)
	require.NoError(t, err)
	assert.Equal(t, data.ReservationReady, ready.Status)
	assert.Equal(t, later.AddDate(0, 0, 7), ready.ExpirationDate)
	assert.True(t, ready.CanBeFulfilled(later))
	assert.True(t, ready.NeedsNotification())

	notified := ready.Notified()
	assert.False(t, notified.NeedsNotification())
	assert.False(t, ready.NotificationSent, "original value must not change")

	assert.True(t, ready.IsExpired(later.AddDate(0, 0, 8)))
	assert.False(t, ready.CanBeFulfilled(later.AddDate(0, 0, 8)))

	fulfilled, err := notified.WithStatus(data.ReservationFulfilled)
	require.NoError(t, err)
	assert.False(t, fulfilled.IsActive())

	_, err = fulfilled.WithStatus(data.ReservationCancelled)
	assert.ErrorIs(t, err, data.ErrReservationNotActive)

	_, err = ready.Promoted(later)
	assert.ErrorIs(t, err, data.ErrReservationNotActive)
}

func TestSortByTitle(t *testing.T) {
	books := []*data.Book{
		{Title: "Zorro"},
		{Title: "Ñandú"},
		{Title: "árbol"},
		{Title: "Nube"},
		{Title: "Casa"},
	}

	data.SortByTitle(books, "es")

	var titles []string
	for _, b := range books {
		titles = append(titles, b.Title)
	}
	assert.Equal(t, []string{"árbol", "Casa", "Nube", "Ñandú", "Zorro"}, titles)
}

func TestValidateSearchCriteria(t *testing.T) {
	v := validator.New()
	data.ValidateSearchCriteria(v, data.SearchCriteria{Format: "tape"})
	assert.Contains(t, v.Errors, "format")

	v = validator.New()
	data.ValidateSearchCriteria(v, data.SearchCriteria{Title: "clean", Format: data.FormatDigital})
	assert.True(t, v.Valid())
}

func TestUserLoanLimit(t *testing.T) {
	assert.Equal(t, 3, data.User{Membership: data.MembershipFree}.LoanLimit())
	assert.Equal(t, 10, data.User{Membership: data.MembershipPremium}.LoanLimit())
	assert.False(t, data.User{Active: false}.CanBorrow())
}
