package handler

import "net/http"

// Sweep godoc
// @Summary Run a circulation sweep
// @Description This endpoint expires lapsed reservations and sends outstanding notifications now
// @Tags circulation
// @Produce json
// @Success 200 {object} service.SweepReport
// @Failure 401
// @Failure 500
// @Router /v1/sweeps [post]
func (h *Handler) sweepHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Sweep(r.Context())
	if err != nil {
		h.serverErrorResponse(w, r, err)
		return
	}
	if err := h.encodeJSON(w, http.StatusOK, envelope{"sweep": report}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}
