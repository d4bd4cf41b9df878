package service

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/emzola/bibliotheca-circulation/data"
	"github.com/emzola/bibliotheca-circulation/internal/validator"
	"github.com/emzola/bibliotheca-circulation/repository"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

type books interface {
	GetBook(ctx context.Context, bookID uuid.UUID) (*data.Book, error)
	SearchBooks(ctx context.Context, criteria data.SearchCriteria) ([]*data.Book, error)
	UploadBookContent(ctx context.Context, bookID uuid.UUID, content []byte) (*data.Book, error)
}

var supportedContentTypes = []string{
	"application/pdf",
	"application/epub+zip",
	"application/x-mobipocket-ebook",
}

// GetBook service retrieves the details of a book.
func (s *service) GetBook(ctx context.Context, bookID uuid.UUID) (*data.Book, error) {
	return s.getBook(ctx, s.repo, bookID)
}

// SearchBooks service filters the catalogue. Title and author are matched
// as case-insensitive substrings; when both are set only books matching
// both are returned. Results are ordered by title in the configured locale.
func (s *service) SearchBooks(ctx context.Context, criteria data.SearchCriteria) ([]*data.Book, error) {
	v := validator.New()
	if data.ValidateSearchCriteria(v, criteria); !v.Valid() {
		return nil, failedValidation(v.Errors)
	}
	// A blank filter is no filter.
	criteria.Title = strings.TrimSpace(criteria.Title)
	criteria.Author = strings.TrimSpace(criteria.Author)

	var (
		books []*data.Book
		err   error
	)
	switch {
	case criteria.Title != "" && criteria.Author != "":
		books, err = s.searchTitleAndAuthor(ctx, criteria.Title, criteria.Author)
	case criteria.Title != "":
		books, err = s.repo.SearchBooksByTitle(ctx, criteria.Title)
	case criteria.Author != "":
		books, err = s.repo.SearchBooksByAuthor(ctx, criteria.Author)
	case criteria.Format != "":
		books, err = s.repo.GetBooksByFormat(ctx, criteria.Format)
	case criteria.AvailableOnly:
		books, err = s.repo.GetAvailableBooks(ctx)
	default:
		books, err = s.repo.GetAllBooks(ctx)
	}
	if err != nil {
		return nil, err
	}

	filtered := books[:0]
	for _, book := range books {
		if criteria.Format != "" && book.Format != criteria.Format {
			continue
		}
		if criteria.AvailableOnly && !book.IsAvailable() {
			continue
		}
		filtered = append(filtered, book)
	}
	data.SortByTitle(filtered, s.config.Lending.Locale)
	return filtered, nil
}

func (s *service) searchTitleAndAuthor(ctx context.Context, title, author string) ([]*data.Book, error) {
	byTitle, err := s.repo.SearchBooksByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	byAuthor, err := s.repo.SearchBooksByAuthor(ctx, author)
	if err != nil {
		return nil, err
	}
	authorIDs := make(map[uuid.UUID]struct{}, len(byAuthor))
	for _, book := range byAuthor {
		authorIDs[book.ID] = struct{}{}
	}
	books := []*data.Book{}
	for _, book := range byTitle {
		if _, ok := authorIDs[book.ID]; ok {
			books = append(books, book)
		}
	}
	return books, nil
}

// UploadBookContent service stores the file behind a digital book and
// records its key on the book.
func (s *service) UploadBookContent(ctx context.Context, bookID uuid.UUID, content []byte) (*data.Book, error) {
	if s.content == nil {
		return nil, ErrContentUnavailable
	}
	book, err := s.getBook(ctx, s.repo, bookID)
	if err != nil {
		return nil, err
	}
	if !book.IsDigital() {
		return nil, ErrNotDigital
	}
	mtype := mimetype.Detect(content)
	if !validator.Mime(mtype, supportedContentTypes...) {
		return nil, ErrUnsupportedMediaType
	}
	key := "books/" + book.ID.String() + mtype.Extension()
	err = s.content.Upload(ctx, key, bytes.NewReader(content), int64(len(content)), mtype.String())
	if err != nil {
		return nil, err
	}
	var updated data.Book
	err = retry(ctx, func(ctx context.Context) error {
		current, err := s.getBook(ctx, s.repo, bookID)
		if err != nil {
			return err
		}
		updated = current.WithDigitalURL(key)
		return s.repo.UpdateBook(ctx, &updated)
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEditConflict):
			return nil, ErrEditConflict
		default:
			return nil, err
		}
	}
	return &updated, nil
}
