package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/emzola/bibliotheca-circulation/data"
	"github.com/emzola/bibliotheca-circulation/data/dto"
	"github.com/emzola/bibliotheca-circulation/internal/validator"
)

// maxContentBytes bounds the size of an uploaded digital book.
const maxContentBytes = 52_428_800

// SearchBooks godoc
// @Summary Search the catalogue
// @Description This endpoint lists books matching every filter given, ordered by title
// @Tags books
// @Produce json
// @Param title query string false "Case-insensitive title substring"
// @Param author query string false "Case-insensitive author substring"
// @Param format query string false "physical or digital"
// @Param available query bool false "Only books with a copy on the shelf"
// @Success 200 {array} data.Book
// @Failure 422
// @Failure 500
// @Router /v1/books [get]
func (h *Handler) searchBooksHandler(w http.ResponseWriter, r *http.Request) {
	var qsInput dto.QsSearchBooks
	v := validator.New()
	qs := r.URL.Query()
	qsInput.Title = h.readString(qs, "title", "")
	qsInput.Author = h.readString(qs, "author", "")
	qsInput.Format = data.BookFormat(h.readString(qs, "format", ""))
	qsInput.AvailableOnly = h.readBool(qs, "available", false, v)
	if !v.Valid() {
		h.failedValidationResponse(w, r, v.Errors)
		return
	}
	books, err := h.service.SearchBooks(r.Context(), qsInput.Criteria())
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	err = h.encodeJSON(w, http.StatusOK, envelope{"books": books}, nil)
	if err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// ShowBook godoc
// @Summary Show details of a book
// @Description This endpoint shows the details and availability of a specific book
// @Tags books
// @Produce json
// @Param bookId path string true "ID of book to show"
// @Success 200 {object} data.Book
// @Failure 404
// @Failure 500
// @Router /v1/books/{bookId} [get]
func (h *Handler) showBookHandler(w http.ResponseWriter, r *http.Request) {
	bookID, err := h.readUUIDParam(r, "bookId")
	if err != nil {
		h.notFoundResponse(w, r)
		return
	}
	book, err := h.service.GetBook(r.Context(), bookID)
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	err = h.encodeJSON(w, http.StatusOK, envelope{"book": book}, nil)
	if err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// UploadBookContent godoc
// @Summary Upload the file of a digital book
// @Description This endpoint stores a PDF, EPUB or MOBI file as the content of a digital book
// @Tags books
// @Accept application/octet-stream
// @Produce json
// @Param bookId path string true "ID of the digital book"
// @Success 200 {object} data.Book
// @Failure 401
// @Failure 404
// @Failure 413
// @Failure 415
// @Failure 422
// @Failure 500
// @Router /v1/books/{bookId}/content [put]
func (h *Handler) uploadBookContentHandler(w http.ResponseWriter, r *http.Request) {
	bookID, err := h.readUUIDParam(r, "bookId")
	if err != nil {
		h.notFoundResponse(w, r)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxContentBytes)
	content, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesError *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesError):
			h.contentTooLargeResponse(w, r)
		default:
			h.badRequestResponse(w, r, err)
		}
		return
	}
	if len(content) == 0 {
		h.badRequestResponse(w, r, errors.New("body must not be empty"))
		return
	}
	book, err := h.service.UploadBookContent(r.Context(), bookID, content)
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	err = h.encodeJSON(w, http.StatusOK, envelope{"book": book}, nil)
	if err != nil {
		h.serverErrorResponse(w, r, err)
	}
}
