package handler

import "net/http"

// ListUserLoans godoc
// @Summary List the loans of a user
// @Description This endpoint lists every loan of a user, oldest first, with current fines
// @Tags users
// @Produce json
// @Param userId path string true "ID of the user"
// @Success 200 {array} data.LoanStatement
// @Failure 404
// @Failure 500
// @Router /v1/users/{userId}/loans [get]
func (h *Handler) listUserLoansHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.readUUIDParam(r, "userId")
	if err != nil {
		h.notFoundResponse(w, r)
		return
	}
	loans, err := h.service.ListUserLoans(r.Context(), userID)
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	if err := h.encodeJSON(w, http.StatusOK, envelope{"loans": loans}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// ListUserReservations godoc
// @Summary List the reservations of a user
// @Description This endpoint lists every reservation of a user
// @Tags users
// @Produce json
// @Param userId path string true "ID of the user"
// @Success 200 {array} data.Reservation
// @Failure 404
// @Failure 500
// @Router /v1/users/{userId}/reservations [get]
func (h *Handler) listUserReservationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := h.readUUIDParam(r, "userId")
	if err != nil {
		h.notFoundResponse(w, r)
		return
	}
	reservations, err := h.service.ListUserReservations(r.Context(), userID)
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	if err := h.encodeJSON(w, http.StatusOK, envelope{"reservations": reservations}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}
