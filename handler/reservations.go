package handler

import (
	"fmt"
	"net/http"

	"github.com/emzola/bibliotheca-circulation/data/dto"
	"github.com/emzola/bibliotheca-circulation/internal/validator"
)

// ReserveBook godoc
// @Summary Reserve a book
// @Description This endpoint queues a user for a book with no copy on the shelf
// @Tags reservations
// @Accept  json
// @Produce json
// @Param body body dto.ReserveRequestBody true "JSON payload required to reserve a book"
// @Success 201 {object} data.Reservation
// @Failure 400
// @Failure 404
// @Failure 409
// @Failure 422
// @Failure 500
// @Router /v1/reservations [post]
func (h *Handler) reserveBookHandler(w http.ResponseWriter, r *http.Request) {
	var requestBody dto.ReserveRequestBody
	if err := h.decodeJSON(w, r, &requestBody); err != nil {
		h.badRequestResponse(w, r, err)
		return
	}
	v := validator.New()
	userID, bookID := requestBody.Validate(v)
	if !v.Valid() {
		h.failedValidationResponse(w, r, v.Errors)
		return
	}
	reservation, err := h.service.ReserveBook(r.Context(), userID, bookID)
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/v1/reservations/%s", reservation.ID))
	if err := h.encodeJSON(w, http.StatusCreated, envelope{"reservation": reservation}, headers); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// CancelReservation godoc
// @Summary Cancel a reservation
// @Description This endpoint withdraws a pending or ready reservation
// @Tags reservations
// @Produce json
// @Param reservationId path string true "ID of reservation to cancel"
// @Success 200 {object} data.Reservation
// @Failure 404
// @Failure 409
// @Failure 422
// @Failure 500
// @Router /v1/reservations/{reservationId} [delete]
func (h *Handler) cancelReservationHandler(w http.ResponseWriter, r *http.Request) {
	reservationID, err := h.readUUIDParam(r, "reservationId")
	if err != nil {
		h.notFoundResponse(w, r)
		return
	}
	reservation, err := h.service.CancelReservation(r.Context(), reservationID)
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	if err := h.encodeJSON(w, http.StatusOK, envelope{"reservation": reservation}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}
