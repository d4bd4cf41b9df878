// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emzola/bibliotheca-circulation/data"
	"github.com/emzola/bibliotheca-circulation/repository"
	"github.com/google/uuid"
)

type store struct {
	mu           sync.Mutex
	books        map[uuid.UUID]data.Book
	users        map[uuid.UUID]data.User
	loans        map[uuid.UUID]data.Loan
	reservations map[uuid.UUID]data.Reservation
}

// DB implements repository.Repository in memory. Every call on DB is
// serialised; a unit of work holds the lock for its whole duration and is
// undone from a snapshot when it fails.
type DB struct {
	s    *store
	inTx bool
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{s: &store{
		books:        make(map[uuid.UUID]data.Book),
		users:        make(map[uuid.UUID]data.User),
		loans:        make(map[uuid.UUID]data.Loan),
		reservations: make(map[uuid.UUID]data.Reservation),
	}}
}

// Ensure interfaces are met.
var _ repository.Repository = (*DB)(nil)

func (db *DB) lock() func() {
	if db.inTx {
		return func() {}
	}
	db.s.mu.Lock()
	return db.s.mu.Unlock
}

func (db *DB) RunInTx(ctx context.Context, fn func(tx repository.Repository) error) error {
	if db.inTx {
		return fn(db)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	db.s.mu.Lock()
	defer db.s.mu.Unlock()

	books := clone(db.s.books)
	users := clone(db.s.users)
	loans := clone(db.s.loans)
	reservations := clone(db.s.reservations)
	restore := func() {
		db.s.books, db.s.users, db.s.loans, db.s.reservations = books, users, loans, reservations
	}
	defer func() {
		if p := recover(); p != nil {
			restore()
			panic(p)
		}
	}()
	if err := fn(&DB{s: db.s, inTx: true}); err != nil {
		restore()
		return err
	}
	return nil
}

func clone[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// --- books ---

func (db *DB) CreateBook(ctx context.Context, book *data.Book) error {
	defer db.lock()()
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	if _, ok := db.s.books[book.ID]; ok {
		return repository.ErrDuplicateRecord
	}
	book.Version = 1
	db.s.books[book.ID] = *book
	return nil
}

func (db *DB) GetBook(ctx context.Context, bookID uuid.UUID) (*data.Book, error) {
	defer db.lock()()
	book, ok := db.s.books[bookID]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return &book, nil
}

func (db *DB) UpdateBook(ctx context.Context, book *data.Book) error {
	defer db.lock()()
	stored, ok := db.s.books[book.ID]
	if !ok || stored.Version != book.Version {
		return repository.ErrEditConflict
	}
	book.Version++
	db.s.books[book.ID] = *book
	return nil
}

func (db *DB) GetAllBooks(ctx context.Context) ([]*data.Book, error) {
	return db.filterBooks(func(data.Book) bool { return true }), nil
}

func (db *DB) GetAvailableBooks(ctx context.Context) ([]*data.Book, error) {
	return db.filterBooks(data.Book.IsAvailable), nil
}

func (db *DB) GetBooksByFormat(ctx context.Context, format data.BookFormat) ([]*data.Book, error) {
	return db.filterBooks(func(b data.Book) bool { return b.Format == format }), nil
}

func (db *DB) SearchBooksByTitle(ctx context.Context, title string) ([]*data.Book, error) {
	return db.filterBooks(func(b data.Book) bool { return containsFold(b.Title, title) }), nil
}

func (db *DB) SearchBooksByAuthor(ctx context.Context, author string) ([]*data.Book, error) {
	return db.filterBooks(func(b data.Book) bool { return containsFold(b.Author, author) }), nil
}

func (db *DB) filterBooks(keep func(data.Book) bool) []*data.Book {
	defer db.lock()()
	books := []*data.Book{}
	for _, b := range db.s.books {
		if keep(b) {
			b := b
			books = append(books, &b)
		}
	}
	sort.Slice(books, func(i, j int) bool {
		if books[i].Title != books[j].Title {
			return books[i].Title < books[j].Title
		}
		return books[i].ID.String() < books[j].ID.String()
	})
	return books
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// --- users ---

func (db *DB) CreateUser(ctx context.Context, user *data.User) error {
	defer db.lock()()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	for _, u := range db.s.users {
		if u.ID == user.ID || strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicateRecord
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	db.s.users[user.ID] = *user
	return nil
}

func (db *DB) GetUser(ctx context.Context, userID uuid.UUID) (*data.User, error) {
	defer db.lock()()
	user, ok := db.s.users[userID]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return &user, nil
}

// --- loans ---

func (db *DB) CreateLoan(ctx context.Context, loan *data.Loan) error {
	defer db.lock()()
	if _, ok := db.s.loans[loan.ID]; ok {
		return repository.ErrDuplicateRecord
	}
	loan.Version = 1
	db.s.loans[loan.ID] = *loan
	return nil
}

func (db *DB) GetLoan(ctx context.Context, loanID uuid.UUID) (*data.Loan, error) {
	defer db.lock()()
	loan, ok := db.s.loans[loanID]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return &loan, nil
}

func (db *DB) UpdateLoan(ctx context.Context, loan *data.Loan) error {
	defer db.lock()()
	stored, ok := db.s.loans[loan.ID]
	if !ok || stored.Version != loan.Version {
		return repository.ErrEditConflict
	}
	loan.Version++
	db.s.loans[loan.ID] = *loan
	return nil
}

func (db *DB) GetActiveLoansForUser(ctx context.Context, userID uuid.UUID) ([]*data.Loan, error) {
	return db.filterLoans(func(l data.Loan) bool { return l.UserID == userID && l.IsActive() }), nil
}

func (db *DB) GetLoansForUser(ctx context.Context, userID uuid.UUID) ([]*data.Loan, error) {
	return db.filterLoans(func(l data.Loan) bool { return l.UserID == userID }), nil
}

func (db *DB) GetOverdueLoans(ctx context.Context, now time.Time) ([]*data.Loan, error) {
	return db.filterLoans(func(l data.Loan) bool { return l.IsOverdue(now) }), nil
}

func (db *DB) filterLoans(keep func(data.Loan) bool) []*data.Loan {
	defer db.lock()()
	loans := []*data.Loan{}
	for _, l := range db.s.loans {
		if keep(l) {
			l := l
			loans = append(loans, &l)
		}
	}
	sort.Slice(loans, func(i, j int) bool {
		if !loans[i].LoanDate.Equal(loans[j].LoanDate) {
			return loans[i].LoanDate.Before(loans[j].LoanDate)
		}
		return loans[i].ID.String() < loans[j].ID.String()
	})
	return loans
}

// --- reservations ---

func (db *DB) CreateReservation(ctx context.Context, reservation *data.Reservation) error {
	defer db.lock()()
	for _, r := range db.s.reservations {
		if r.ID == reservation.ID {
			return repository.ErrDuplicateRecord
		}
		if reservation.IsActive() && r.IsActive() && r.UserID == reservation.UserID && r.BookID == reservation.BookID {
			return repository.ErrDuplicateRecord
		}
	}
	reservation.Version = 1
	db.s.reservations[reservation.ID] = *reservation
	return nil
}

func (db *DB) GetReservation(ctx context.Context, reservationID uuid.UUID) (*data.Reservation, error) {
	defer db.lock()()
	reservation, ok := db.s.reservations[reservationID]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return &reservation, nil
}

func (db *DB) UpdateReservation(ctx context.Context, reservation *data.Reservation) error {
	defer db.lock()()
	stored, ok := db.s.reservations[reservation.ID]
	if !ok || stored.Version != reservation.Version {
		return repository.ErrEditConflict
	}
	reservation.Version++
	db.s.reservations[reservation.ID] = *reservation
	return nil
}

func (db *DB) GetReservationsForUser(ctx context.Context, userID uuid.UUID) ([]*data.Reservation, error) {
	return db.filterReservations(func(r data.Reservation) bool { return r.UserID == userID }), nil
}

func (db *DB) GetReservationsForBook(ctx context.Context, bookID uuid.UUID) ([]*data.Reservation, error) {
	return db.filterReservations(func(r data.Reservation) bool { return r.BookID == bookID }), nil
}

func (db *DB) GetExpiredReservations(ctx context.Context, now time.Time) ([]*data.Reservation, error) {
	return db.filterReservations(func(r data.Reservation) bool { return r.IsActive() && r.IsExpired(now) }), nil
}

func (db *DB) GetReservationsAwaitingNotification(ctx context.Context) ([]*data.Reservation, error) {
	return db.filterReservations(data.Reservation.NeedsNotification), nil
}

func (db *DB) filterReservations(keep func(data.Reservation) bool) []*data.Reservation {
	defer db.lock()()
	reservations := []*data.Reservation{}
	for _, r := range db.s.reservations {
		if keep(r) {
			r := r
			reservations = append(reservations, &r)
		}
	}
	sort.Slice(reservations, func(i, j int) bool {
		if !reservations[i].ReservationDate.Equal(reservations[j].ReservationDate) {
			return reservations[i].ReservationDate.Before(reservations[j].ReservationDate)
		}
		return reservations[i].ID.String() < reservations[j].ID.String()
	})
	return reservations
}
