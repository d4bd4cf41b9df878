package dto

import "github.com/emzola/bibliotheca-circulation/data"

// QsSearchBooks defines the query strings used for searching books.
type QsSearchBooks struct {
	Title         string
	Author        string
	Format        data.BookFormat
	AvailableOnly bool
}

// Criteria converts the query strings into search criteria.
func (qs QsSearchBooks) Criteria() data.SearchCriteria {
	return data.SearchCriteria{
		Title:         qs.Title,
		Author:        qs.Author,
		Format:        qs.Format,
		AvailableOnly: qs.AvailableOnly,
	}
}
