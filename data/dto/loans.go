package dto

import (
	"github.com/emzola/bibliotheca-circulation/internal/validator"
	"github.com/google/uuid"
)

// BorrowRequestBody defines the request body for BorrowBook service.
type BorrowRequestBody struct {
	UserID string `json:"user_id"`
	BookID string `json:"book_id"`
}

// Validate checks both ids and returns them parsed.
func (b BorrowRequestBody) Validate(v *validator.Validator) (userID, bookID uuid.UUID) {
	return validateUserBook(v, b.UserID, b.BookID)
}

func validateUserBook(v *validator.Validator, user, book string) (userID, bookID uuid.UUID) {
	v.Check(user != "", "user_id", "must be provided")
	v.Check(user == "" || validator.UUID(user), "user_id", "must be a valid UUID")
	v.Check(book != "", "book_id", "must be provided")
	v.Check(book == "" || validator.UUID(book), "book_id", "must be a valid UUID")
	if !v.Valid() {
		return uuid.Nil, uuid.Nil
	}
	return uuid.MustParse(user), uuid.MustParse(book)
}
