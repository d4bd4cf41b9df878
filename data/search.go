package data

import (
	"sort"

	"github.com/emzola/bibliotheca-circulation/internal/validator"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SearchCriteria holds the optional catalogue filters. Empty strings mean unset.
type SearchCriteria struct {
	Title         string
	Author        string
	Format        BookFormat
	AvailableOnly bool
}

// HasTextFilter reports whether a title or author filter is set.
func (c SearchCriteria) HasTextFilter() bool {
	return c.Title != "" || c.Author != ""
}

func ValidateSearchCriteria(v *validator.Validator, c SearchCriteria) {
	v.Check(len(c.Title) <= 500, "title", "must not be more than 500 bytes long")
	v.Check(len(c.Author) <= 500, "author", "must not be more than 500 bytes long")
	if c.Format != "" {
		ValidateFormat(v, c.Format)
	}
}

// SortByTitle orders books by title using the collation rules of locale.
// An unparsable locale falls back to the root collation.
func SortByTitle(books []*Book, locale string) {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	c := collate.New(tag, collate.IgnoreCase)
	var buf collate.Buffer
	keys := make(map[*Book][]byte, len(books))
	for _, b := range books {
		keys[b] = append([]byte(nil), c.KeyFromString(&buf, b.Title)...)
		buf.Reset()
	}
	sort.SliceStable(books, func(i, j int) bool {
		return string(keys[books[i]]) < string(keys[books[j]])
	})
}
