package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emzola/bibliotheca-circulation/data"
)

func titles(books []*data.Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.Title)
	}
	return out
}

func TestSearchBooks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.book(t, data.Book{Title: "Zorro", Author: "Isabel Allende", TotalCopies: 1, AvailableCopies: 1})
	f.book(t, data.Book{Title: "Ñandú", Author: "Horacio Quiroga", Status: data.BookBorrowed, TotalCopies: 1, AvailableCopies: 0})
	f.book(t, data.Book{Title: "árbol de la ciencia", Author: "Pío Baroja", Format: data.FormatDigital, TotalCopies: 3, AvailableCopies: 3})
	f.book(t, data.Book{Title: "Casa de los espíritus", Author: "Isabel Allende", TotalCopies: 2, AvailableCopies: 2})
	f.book(t, data.Book{Title: "Nube de tinta", Author: "Quiroga Allende", Format: data.FormatDigital, TotalCopies: 1, AvailableCopies: 1})

	tests := []struct {
		name     string
		criteria data.SearchCriteria
		want     []string
	}{
		{
			name: "everything_in_collation_order",
			want: []string{"árbol de la ciencia", "Casa de los espíritus", "Nube de tinta", "Ñandú", "Zorro"},
		},
		{
			name:     "title_substring_ignores_case",
			criteria: data.SearchCriteria{Title: "DE"},
			want:     []string{"árbol de la ciencia", "Casa de los espíritus", "Nube de tinta"},
		},
		{
			name:     "author_substring",
			criteria: data.SearchCriteria{Author: "allende"},
			want:     []string{"Casa de los espíritus", "Nube de tinta", "Zorro"},
		},
		{
			name:     "title_and_author_intersect",
			criteria: data.SearchCriteria{Title: "de", Author: "Allende"},
			want:     []string{"Casa de los espíritus", "Nube de tinta"},
		},
		{
			name:     "format_only",
			criteria: data.SearchCriteria{Format: data.FormatDigital},
			want:     []string{"árbol de la ciencia", "Nube de tinta"},
		},
		{
			name:     "available_only",
			criteria: data.SearchCriteria{AvailableOnly: true},
			want:     []string{"árbol de la ciencia", "Casa de los espíritus", "Nube de tinta", "Zorro"},
		},
		{
			name:     "author_with_format_and_availability",
			criteria: data.SearchCriteria{Author: "Quiroga", Format: data.FormatPhysical, AvailableOnly: true},
			want:     []string{},
		},
		{
			name:     "blank_title_is_no_filter",
			criteria: data.SearchCriteria{Title: "   "},
			want:     []string{"árbol de la ciencia", "Casa de los espíritus", "Nube de tinta", "Ñandú", "Zorro"},
		},
		{
			name:     "surrounding_spaces_are_trimmed",
			criteria: data.SearchCriteria{Title: "  zorro  "},
			want:     []string{"Zorro"},
		},
		{
			name:     "no_match",
			criteria: data.SearchCriteria{Title: "Quijote"},
			want:     []string{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			books, err := f.svc.SearchBooks(ctx, tc.criteria)
			require.NoError(t, err)
			assert.Equal(t, tc.want, titles(books))
		})
	}

	t.Run("invalid_format", func(t *testing.T) {
		_, err := f.svc.SearchBooks(ctx, data.SearchCriteria{Format: "audiobook"})
		require.ErrorIs(t, err, ErrFailedValidation)
		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Contains(t, validationErr.Errors, "format")
	})
}

func TestGetBook(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	book := f.book(t, data.Book{TotalCopies: 1, AvailableCopies: 1})

	got, err := f.svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.Title, got.Title)

	_, err = f.svc.GetBook(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestUploadBookContent(t *testing.T) {
	ctx := context.Background()
	pdf := []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	t.Run("stores_pdf_and_records_the_key", func(t *testing.T) {
		f := newFixture(t)
		book := f.book(t, data.Book{Format: data.FormatDigital, TotalCopies: 1, AvailableCopies: 1})

		updated, err := f.svc.UploadBookContent(ctx, book.ID, pdf)
		require.NoError(t, err)
		key := "books/" + book.ID.String() + ".pdf"
		assert.Equal(t, key, updated.DigitalURL)
		assert.Equal(t, pdf, f.content.objects[key])
		assert.Equal(t, "application/pdf", f.content.types[key])
		assert.Equal(t, key, f.storedBook(t, book.ID).DigitalURL)
	})

	t.Run("rejects_plain_text", func(t *testing.T) {
		f := newFixture(t)
		book := f.book(t, data.Book{Format: data.FormatDigital, TotalCopies: 1, AvailableCopies: 1})

		_, err := f.svc.UploadBookContent(ctx, book.ID, []byte("just some words"))
		assert.ErrorIs(t, err, ErrUnsupportedMediaType)
		assert.Empty(t, f.content.objects)
	})

	t.Run("rejects_physical_books", func(t *testing.T) {
		f := newFixture(t)
		book := f.book(t, data.Book{TotalCopies: 1, AvailableCopies: 1})

		_, err := f.svc.UploadBookContent(ctx, book.ID, pdf)
		assert.ErrorIs(t, err, ErrNotDigital)
	})

	t.Run("without_a_content_store", func(t *testing.T) {
		f := newFixture(t)
		f.svc.content = nil
		book := f.book(t, data.Book{Format: data.FormatDigital, TotalCopies: 1, AvailableCopies: 1})

		_, err := f.svc.UploadBookContent(ctx, book.ID, pdf)
		assert.ErrorIs(t, err, ErrContentUnavailable)
	})
}
