package data

import (
	"errors"
	"time"

	"github.com/emzola/bibliotheca-circulation/internal/validator"
	"github.com/google/uuid"
)

var (
	ErrNoCopyAvailable  = errors.New("no copy available")
	ErrAllCopiesInStock = errors.New("all copies already in stock")
)

// BookFormat is the medium a book is lent in.
type BookFormat string

const (
	FormatPhysical BookFormat = "physical"
	FormatDigital  BookFormat = "digital"
)

// BookStatus is the circulation state of a book.
type BookStatus string

const (
	BookAvailable   BookStatus = "available"
	BookBorrowed    BookStatus = "borrowed"
	BookReserved    BookStatus = "reserved"
	BookMaintenance BookStatus = "maintenance"
)

// Book defines a book model.
type Book struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	ISBN            string     `json:"isbn"`
	Format          BookFormat `json:"format"`
	Status          BookStatus `json:"status"`
	TotalCopies     int        `json:"total_copies"`
	AvailableCopies int        `json:"available_copies"`
	DigitalURL      string     `json:"digital_url,omitempty"`
	PublishedDate   *time.Time `json:"published_date,omitempty"`
	Genre           string     `json:"genre,omitempty"`
	Version         int32      `json:"-"`
}

// IsAvailable reports whether a copy can be lent right now.
func (b Book) IsAvailable() bool {
	return b.Status == BookAvailable && b.AvailableCopies > 0
}

func (b Book) IsDigital() bool {
	return b.Format == FormatDigital
}

// CanBeReserved reports whether every copy is out and the book is not in maintenance.
func (b Book) CanBeReserved() bool {
	return b.AvailableCopies == 0 && b.Status != BookMaintenance
}

// RequiresPremium reports whether the book is a digital title published
// within the premium window before now. Books without a published date
// never require premium.
func (b Book) RequiresPremium(now time.Time) bool {
	return b.IsDigital() && b.PublishedDate != nil && b.PublishedDate.After(now.Add(-PremiumWindow))
}

// LoanDays returns the loan period for the book's format.
func (b Book) LoanDays() int {
	if b.IsDigital() {
		return DigitalLoanDays
	}
	return PhysicalLoanDays
}

// DecrementCopy returns a copy of b with one less available copy. The
// status becomes borrowed when the last copy goes out.
func (b Book) DecrementCopy() (Book, error) {
	if b.AvailableCopies <= 0 {
		return b, ErrNoCopyAvailable
	}
	b.AvailableCopies--
	if b.AvailableCopies == 0 {
		b.Status = BookBorrowed
	}
	return b, nil
}

// IncrementCopy returns a copy of b with one more available copy. A
// borrowed book becomes available again.
func (b Book) IncrementCopy() (Book, error) {
	if b.AvailableCopies >= b.TotalCopies {
		return b, ErrAllCopiesInStock
	}
	b.AvailableCopies++
	if b.Status == BookBorrowed {
		b.Status = BookAvailable
	}
	return b, nil
}

// WithDigitalURL returns a copy of b pointing at the given content key.
func (b Book) WithDigitalURL(key string) Book {
	b.DigitalURL = key
	return b
}

func ValidateFormat(v *validator.Validator, format BookFormat) {
	v.Check(validator.PermittedValue(format, FormatPhysical, FormatDigital), "format", "must be physical or digital")
}

func ValidateBook(v *validator.Validator, book *Book) {
	v.Check(book.Title != "", "title", "must be provided")
	v.Check(len(book.Title) <= 500, "title", "must not be more than 500 bytes long")
	v.Check(book.Author != "", "author", "must be provided")
	v.Check(len(book.Author) <= 500, "author", "must not be more than 500 bytes long")
	v.Check(len(book.ISBN) <= 17, "isbn", "must not be more than 17 characters")
	ValidateFormat(v, book.Format)
	v.Check(validator.PermittedValue(book.Status, BookAvailable, BookBorrowed, BookReserved, BookMaintenance), "status", "invalid status")
	v.Check(book.TotalCopies >= 0, "total_copies", "must not be negative")
	v.Check(book.AvailableCopies >= 0, "available_copies", "must not be negative")
	v.Check(book.AvailableCopies <= book.TotalCopies, "available_copies", "must not exceed total_copies")
}
