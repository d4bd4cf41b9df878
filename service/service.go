package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/emzola/bibliotheca-circulation/config"
	"github.com/emzola/bibliotheca-circulation/internal/jsonlog"
	"github.com/emzola/bibliotheca-circulation/repository"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
)

type Service interface {
	books
	loans
	reservations
	circulation
}

// Notifier delivers lending notifications. A false result with a nil error
// means the message was not accepted and may be tried again.
type Notifier interface {
	SendReservationConfirmation(ctx context.Context, userID uuid.UUID, bookTitle string) (bool, error)
	SendReservationReady(ctx context.Context, userID uuid.UUID, bookTitle string, expiresAt time.Time) (bool, error)
	SendOverdueNotice(ctx context.Context, userID uuid.UUID, bookTitle string, daysOverdue int, fine float64) (bool, error)
}

// ContentStore keeps the files behind digital books.
type ContentStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignDownload(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// service defines the service layer.
type service struct {
	config         config.Config
	wg             *sync.WaitGroup
	logger         *jsonlog.Logger
	repo           repository.Repository
	notifier       Notifier
	content        ContentStore
	overdueNotices *ttlcache.Cache[uuid.UUID, time.Time]
	now            func() time.Time
	notifyRetry    []retryOption
}

// Option configures optional collaborators of the service.
type Option func(*service)

// WithContentStore enables digital content upload and download links.
func WithContentStore(store ContentStore) Option {
	return func(s *service) {
		s.content = store
	}
}

// WithClock replaces the wall clock used by every workflow.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new instance of Service. Background notification work is
// tracked on wg so callers can wait for it during shutdown.
func New(cfg config.Config, wg *sync.WaitGroup, logger *jsonlog.Logger, repo repository.Repository, notifier Notifier, opts ...Option) *service {
	s := &service{
		config:   cfg,
		wg:       wg,
		logger:   logger,
		repo:     repo,
		notifier: notifier,
		overdueNotices: ttlcache.New[uuid.UUID, time.Time](
			ttlcache.WithTTL[uuid.UUID, time.Time](overdueNoticeInterval),
			ttlcache.WithDisableTouchOnHit[uuid.UUID, time.Time](),
		),
		now: func() time.Time { return time.Now().UTC() },
		notifyRetry: []retryOption{
			withMaxAttempts(3),
			withBaseDelay(500 * time.Millisecond),
			retryOn(isTransient),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
