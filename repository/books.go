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

type books interface {
	CreateBook(ctx context.Context, book *data.Book) error
	GetBook(ctx context.Context, bookID uuid.UUID) (*data.Book, error)
	UpdateBook(ctx context.Context, book *data.Book) error
	GetAllBooks(ctx context.Context) ([]*data.Book, error)
	GetAvailableBooks(ctx context.Context) ([]*data.Book, error)
	GetBooksByFormat(ctx context.Context, format data.BookFormat) ([]*data.Book, error)
	SearchBooksByTitle(ctx context.Context, title string) ([]*data.Book, error)
	SearchBooksByAuthor(ctx context.Context, author string) ([]*data.Book, error)
}

const booksTable = "books"

var bookColumns = []interface{}{
	"id", "title", "author", "isbn", "format", "status", "total_copies",
	"available_copies", "digital_url", "published_date", "genre", "version",
}

type bookRow struct {
	ID              uuid.UUID       `db:"id"`
	Title           string          `db:"title"`
	Author          string          `db:"author"`
	ISBN            string          `db:"isbn"`
	Format          data.BookFormat `db:"format"`
	Status          data.BookStatus `db:"status"`
	TotalCopies     int             `db:"total_copies"`
	AvailableCopies int             `db:"available_copies"`
	DigitalURL      sql.NullString  `db:"digital_url"`
	PublishedDate   sql.NullTime    `db:"published_date"`
	Genre           sql.NullString  `db:"genre"`
	Version         int32           `db:"version"`
}

func (row bookRow) book() *data.Book {
	book := &data.Book{
		ID:              row.ID,
		Title:           row.Title,
		Author:          row.Author,
		ISBN:            row.ISBN,
		Format:          row.Format,
		Status:          row.Status,
		TotalCopies:     row.TotalCopies,
		AvailableCopies: row.AvailableCopies,
		DigitalURL:      row.DigitalURL.String,
		Genre:           row.Genre.String,
		Version:         row.Version,
	}
	if row.PublishedDate.Valid {
		published := row.PublishedDate.Time
		book.PublishedDate = &published
	}
	return book
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// CreateBook creates a new book record.
func (r *repository) CreateBook(ctx context.Context, book *data.Book) error {
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	query, args, err := toSQL(r.dialect.Insert(booksTable).Prepared(true).
		Rows(goqu.Record{
			"id":               book.ID,
			"title":            book.Title,
			"author":           book.Author,
			"isbn":             book.ISBN,
			"format":           string(book.Format),
			"status":           string(book.Status),
			"total_copies":     book.TotalCopies,
			"available_copies": book.AvailableCopies,
			"digital_url":      nullString(book.DigitalURL),
			"published_date":   nullTime(book.PublishedDate),
			"genre":            nullString(book.Genre),
		}).
		Returning("version"))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	err = r.q.QueryRowxContext(ctx, query, args...).Scan(&book.Version)
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

// GetBook retrieves a book record by its ID.
func (r *repository) GetBook(ctx context.Context, bookID uuid.UUID) (*data.Book, error) {
	if bookID == uuid.Nil {
		return nil, ErrRecordNotFound
	}
	query, args, err := toSQL(r.dialect.From(booksTable).Prepared(true).
		Select(bookColumns...).
		Where(goqu.C("id").Eq(bookID)))
	if err != nil {
		return nil, err
	}
	var row bookRow
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
	return row.book(), nil
}

// UpdateBook updates a book record. The update only succeeds against the
// version the caller read; otherwise ErrEditConflict is returned.
func (r *repository) UpdateBook(ctx context.Context, book *data.Book) error {
	query, args, err := toSQL(r.dialect.Update(booksTable).Prepared(true).
		Set(goqu.Record{
			"title":            book.Title,
			"author":           book.Author,
			"isbn":             book.ISBN,
			"format":           string(book.Format),
			"status":           string(book.Status),
			"total_copies":     book.TotalCopies,
			"available_copies": book.AvailableCopies,
			"digital_url":      nullString(book.DigitalURL),
			"published_date":   nullTime(book.PublishedDate),
			"genre":            nullString(book.Genre),
			"version":          goqu.L("version + 1"),
		}).
		Where(goqu.C("id").Eq(book.ID), goqu.C("version").Eq(book.Version)).
		Returning("version"))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	err = r.q.QueryRowxContext(ctx, query, args...).Scan(&book.Version)
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

// GetAllBooks retrieves every book record.
func (r *repository) GetAllBooks(ctx context.Context) ([]*data.Book, error) {
	return r.selectBooks(ctx)
}

// GetAvailableBooks retrieves books with a lendable copy.
func (r *repository) GetAvailableBooks(ctx context.Context) ([]*data.Book, error) {
	return r.selectBooks(ctx,
		goqu.C("status").Eq(string(data.BookAvailable)),
		goqu.C("available_copies").Gt(0),
	)
}

func (r *repository) GetBooksByFormat(ctx context.Context, format data.BookFormat) ([]*data.Book, error) {
	return r.selectBooks(ctx, goqu.C("format").Eq(string(format)))
}

// SearchBooksByTitle retrieves books whose title contains title, ignoring case.
func (r *repository) SearchBooksByTitle(ctx context.Context, title string) ([]*data.Book, error) {
	return r.selectBooks(ctx, goqu.C("title").ILike(likePattern(title)))
}

// SearchBooksByAuthor retrieves books whose author contains author, ignoring case.
func (r *repository) SearchBooksByAuthor(ctx context.Context, author string) ([]*data.Book, error) {
	return r.selectBooks(ctx, goqu.C("author").ILike(likePattern(author)))
}

func (r *repository) selectBooks(ctx context.Context, where ...goqu.Expression) ([]*data.Book, error) {
	ds := r.dialect.From(booksTable).Prepared(true).
		Select(bookColumns...).
		Order(goqu.C("title").Asc(), goqu.C("id").Asc())
	if len(where) > 0 {
		ds = ds.Where(where...)
	}
	query, args, err := toSQL(ds)
	if err != nil {
		return nil, err
	}
	var rows []bookRow
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	books := make([]*data.Book, 0, len(rows))
	for _, row := range rows {
		books = append(books, row.book())
	}
	return books, nil
}
