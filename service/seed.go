package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emzola/bibliotheca-circulation/data"
	"github.com/emzola/bibliotheca-circulation/internal/validator"
	"github.com/emzola/bibliotheca-circulation/repository"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Catalogue is the seed file format.
type Catalogue struct {
	Books []SeedBook `yaml:"books"`
	Users []SeedUser `yaml:"users"`
}

type SeedBook struct {
	ID              uuid.UUID       `yaml:"id"`
	Title           string          `yaml:"title"`
	Author          string          `yaml:"author"`
	ISBN            string          `yaml:"isbn"`
	Format          data.BookFormat `yaml:"format"`
	Status          data.BookStatus `yaml:"status"`
	TotalCopies     int             `yaml:"total_copies"`
	AvailableCopies *int            `yaml:"available_copies"`
	DigitalURL      string          `yaml:"digital_url"`
	PublishedDate   *time.Time      `yaml:"published_date"`
	Genre           string          `yaml:"genre"`
}

type SeedUser struct {
	ID         uuid.UUID       `yaml:"id"`
	Email      string          `yaml:"email"`
	Name       string          `yaml:"name"`
	Role       data.Role       `yaml:"role"`
	Membership data.Membership `yaml:"membership"`
	Active     *bool           `yaml:"active"`
}

// book fills in defaults: every copy on the shelf and a status that
// matches the copy count.
func (sb SeedBook) book() data.Book {
	available := sb.TotalCopies
	if sb.AvailableCopies != nil {
		available = *sb.AvailableCopies
	}
	status := sb.Status
	if status == "" {
		status = data.BookAvailable
		if available == 0 {
			status = data.BookBorrowed
		}
	}
	return data.Book{
		ID:              sb.ID,
		Title:           sb.Title,
		Author:          sb.Author,
		ISBN:            sb.ISBN,
		Format:          sb.Format,
		Status:          status,
		TotalCopies:     sb.TotalCopies,
		AvailableCopies: available,
		DigitalURL:      sb.DigitalURL,
		PublishedDate:   sb.PublishedDate,
		Genre:           sb.Genre,
	}
}

func (su SeedUser) user() data.User {
	user := data.User{
		ID:         su.ID,
		Email:      su.Email,
		Name:       su.Name,
		Role:       su.Role,
		Membership: su.Membership,
		Active:     true,
	}
	if user.Role == "" {
		user.Role = data.RoleReader
	}
	if user.Membership == "" {
		user.Membership = data.MembershipFree
	}
	if su.Active != nil {
		user.Active = *su.Active
	}
	return user
}

// LoadCatalogue decodes a YAML seed file.
func LoadCatalogue(r io.Reader) (Catalogue, error) {
	var c Catalogue
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Catalogue{}, fmt.Errorf("decoding catalogue: %w", err)
	}
	return c, nil
}

// SeedResult counts the records a seed run created and skipped.
type SeedResult struct {
	BooksCreated int
	UsersCreated int
	Skipped      int
}

// Seed service validates and stores a catalogue. Records that already
// exist are skipped, so running it twice is harmless.
func (s *service) Seed(ctx context.Context, c Catalogue) (SeedResult, error) {
	var result SeedResult
	for i, sb := range c.Books {
		book := sb.book()
		v := validator.New()
		if data.ValidateBook(v, &book); !v.Valid() {
			return result, fmt.Errorf("book %d (%q): %w", i, book.Title, failedValidation(v.Errors))
		}
		switch err := s.repo.CreateBook(ctx, &book); {
		case errors.Is(err, repository.ErrDuplicateRecord):
			result.Skipped++
		case err != nil:
			return result, err
		default:
			result.BooksCreated++
		}
	}
	for i, su := range c.Users {
		user := su.user()
		v := validator.New()
		if data.ValidateUser(v, &user); !v.Valid() {
			return result, fmt.Errorf("user %d (%q): %w", i, user.Email, failedValidation(v.Errors))
		}
		switch err := s.repo.CreateUser(ctx, &user); {
		case errors.Is(err, repository.ErrDuplicateRecord):
			result.Skipped++
		case err != nil:
			return result, err
		default:
			result.UsersCreated++
		}
	}
	return result, nil
}
