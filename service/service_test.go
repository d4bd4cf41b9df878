package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/emzola/bibliotheca-circulation/config"
	"github.com/emzola/bibliotheca-circulation/data"
	"github.com/emzola/bibliotheca-circulation/internal/jsonlog"
	"github.com/emzola/bibliotheca-circulation/repository"
	"github.com/emzola/bibliotheca-circulation/repository/memory"
)

var testNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

type sentMessage struct {
	UserID      uuid.UUID
	BookTitle   string
	ExpiresAt   time.Time
	DaysOverdue int
	Fine        float64
}

type fakeNotifier struct {
	mu            sync.Mutex
	failures      int
	err           error
	attempts      int
	confirmations []sentMessage
	ready         []sentMessage
	overdue       []sentMessage
}

func (n *fakeNotifier) attempt() (bool, error) {
	n.attempts++
	if n.err != nil {
		return false, n.err
	}
	if n.failures > 0 {
		n.failures--
		return false, nil
	}
	return true, nil
}

func (n *fakeNotifier) SendReservationConfirmation(_ context.Context, userID uuid.UUID, bookTitle string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ok, err := n.attempt()
	if ok {
		n.confirmations = append(n.confirmations, sentMessage{UserID: userID, BookTitle: bookTitle})
	}
	return ok, err
}

func (n *fakeNotifier) SendReservationReady(_ context.Context, userID uuid.UUID, bookTitle string, expiresAt time.Time) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ok, err := n.attempt()
	if ok {
		n.ready = append(n.ready, sentMessage{UserID: userID, BookTitle: bookTitle, ExpiresAt: expiresAt})
	}
	return ok, err
}

func (n *fakeNotifier) SendOverdueNotice(_ context.Context, userID uuid.UUID, bookTitle string, daysOverdue int, fine float64) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ok, err := n.attempt()
	if ok {
		n.overdue = append(n.overdue, sentMessage{UserID: userID, BookTitle: bookTitle, DaysOverdue: daysOverdue, Fine: fine})
	}
	return ok, err
}

type fakeContentStore struct {
	objects map[string][]byte
	types   map[string]string
}

func newFakeContentStore() *fakeContentStore {
	return &fakeContentStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeContentStore) Upload(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	f.objects[key] = buf.Bytes()
	f.types[key] = contentType
	return nil
}

func (f *fakeContentStore) PresignDownload(_ context.Context, key string, ttl time.Duration) (string, error) {
	if _, ok := f.objects[key]; !ok {
		return "", errors.New("no such key")
	}
	return "https://content.example/" + key + "?expires=" + ttl.String(), nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	svc      *service
	db       *memory.DB
	notifier *fakeNotifier
	content  *fakeContentStore
	clock    *clock
	wg       *sync.WaitGroup
	logs     *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	var cfg config.Config
	cfg.Lending.Locale = "es"
	cfg.Lending.DownloadLinkTTL = 15 * time.Minute

	f := &fixture{
		db:       memory.New(),
		notifier: &fakeNotifier{},
		content:  newFakeContentStore(),
		clock:    &clock{t: testNow},
		wg:       &sync.WaitGroup{},
		logs:     &bytes.Buffer{},
	}
	logger := jsonlog.New(f.logs, jsonlog.LevelInfo)
	f.svc = New(cfg, f.wg, logger, f.db, f.notifier, WithClock(f.clock.now), WithContentStore(f.content))
	f.svc.notifyRetry = []retryOption{withMaxAttempts(3), withBaseDelay(0), retryOn(isTransient)}
	return f
}

func (f *fixture) user(t *testing.T, membership data.Membership) *data.User {
	t.Helper()
	user := &data.User{
		Email:      uuid.NewString() + "@example.com",
		Name:       "Reader",
		Role:       data.RoleReader,
		Membership: membership,
		Active:     true,
	}
	require.NoError(t, f.db.CreateUser(context.Background(), user))
	return user
}

func (f *fixture) book(t *testing.T, book data.Book) *data.Book {
	t.Helper()
	if book.Title == "" {
		book.Title = "Clean Architecture"
	}
	if book.Author == "" {
		book.Author = "Robert C. Martin"
	}
	if book.Format == "" {
		book.Format = data.FormatPhysical
	}
	if book.Status == "" {
		book.Status = data.BookAvailable
	}
	require.NoError(t, f.db.CreateBook(context.Background(), &book))
	return &book
}

func (f *fixture) storedBook(t *testing.T, id uuid.UUID) *data.Book {
	t.Helper()
	book, err := f.db.GetBook(context.Background(), id)
	require.NoError(t, err)
	return book
}

// conflictingRepo fails the first n book updates with an edit conflict.
type conflictingRepo struct {
	repository.Repository
	mu        sync.Mutex
	conflicts int
	calls     int
}

func (r *conflictingRepo) RunInTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	return r.Repository.RunInTx(ctx, func(tx repository.Repository) error {
		return fn(&conflictingTx{Repository: tx, parent: r})
	})
}

type conflictingTx struct {
	repository.Repository
	parent *conflictingRepo
}

func (tx *conflictingTx) UpdateBook(ctx context.Context, book *data.Book) error {
	tx.parent.mu.Lock()
	tx.parent.calls++
	fail := tx.parent.conflicts > 0
	if fail {
		tx.parent.conflicts--
	}
	tx.parent.mu.Unlock()
	if fail {
		return repository.ErrEditConflict
	}
	return tx.Repository.UpdateBook(ctx, book)
}
