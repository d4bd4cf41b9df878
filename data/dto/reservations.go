package dto

import (
	"github.com/emzola/bibliotheca-circulation/internal/validator"
	"github.com/google/uuid"
)

// ReserveRequestBody defines the request body for ReserveBook service.
type ReserveRequestBody struct {
	UserID string `json:"user_id"`
	BookID string `json:"book_id"`
}

// Validate checks both ids and returns them parsed.
func (b ReserveRequestBody) Validate(v *validator.Validator) (userID, bookID uuid.UUID) {
	return validateUserBook(v, b.UserID, b.BookID)
}
