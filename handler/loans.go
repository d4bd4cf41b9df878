package handler

import (
	"fmt"
	"net/http"

	"github.com/emzola/bibliotheca-circulation/data/dto"
	"github.com/emzola/bibliotheca-circulation/internal/validator"
)

// BorrowBook godoc
// @Summary Borrow a book
// @Description This endpoint lends a copy of a book to a user
// @Tags loans
// @Accept  json
// @Produce json
// @Param body body dto.BorrowRequestBody true "JSON payload required to borrow a book"
// @Success 201 {object} data.Loan
// @Failure 400
// @Failure 404
// @Failure 409
// @Failure 422
// @Failure 500
// @Router /v1/loans [post]
func (h *Handler) borrowBookHandler(w http.ResponseWriter, r *http.Request) {
	var requestBody dto.BorrowRequestBody
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
	loan, err := h.service.BorrowBook(r.Context(), userID, bookID)
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/v1/loans/%s", loan.ID))
	if err := h.encodeJSON(w, http.StatusCreated, envelope{"loan": loan}, headers); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// ShowLoan godoc
// @Summary Show details of a loan
// @Description This endpoint shows a loan with its due date and the fine accrued so far
// @Tags loans
// @Produce json
// @Param loanId path string true "ID of loan to show"
// @Success 200 {object} data.LoanStatement
// @Failure 404
// @Failure 500
// @Router /v1/loans/{loanId} [get]
func (h *Handler) showLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := h.readUUIDParam(r, "loanId")
	if err != nil {
		h.notFoundResponse(w, r)
		return
	}
	statement, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	if err := h.encodeJSON(w, http.StatusOK, envelope{"loan": statement}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// RenewLoan godoc
// @Summary Renew a loan
// @Description This endpoint extends an active loan by another loan period
// @Tags loans
// @Produce json
// @Param loanId path string true "ID of loan to renew"
// @Success 200 {object} data.Loan
// @Failure 404
// @Failure 409
// @Failure 422
// @Failure 500
// @Router /v1/loans/{loanId}/renew [post]
func (h *Handler) renewLoanHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := h.readUUIDParam(r, "loanId")
	if err != nil {
		h.notFoundResponse(w, r)
		return
	}
	loan, err := h.service.RenewLoan(r.Context(), loanID)
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	if err := h.encodeJSON(w, http.StatusOK, envelope{"loan": loan}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// ReturnBook godoc
// @Summary Return a borrowed book
// @Description This endpoint closes a loan, records any fine and passes the copy to the next reservation
// @Tags loans
// @Produce json
// @Param loanId path string true "ID of loan to close"
// @Success 200 {object} data.Loan
// @Failure 404
// @Failure 409
// @Failure 422
// @Failure 500
// @Router /v1/loans/{loanId}/return [post]
func (h *Handler) returnBookHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := h.readUUIDParam(r, "loanId")
	if err != nil {
		h.notFoundResponse(w, r)
		return
	}
	loan, err := h.service.ReturnBook(r.Context(), loanID)
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	if err := h.encodeJSON(w, http.StatusOK, envelope{"loan": loan}, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// DownloadLink godoc
// @Summary Get a download link for a digital loan
// @Description This endpoint issues a time-limited link to the file of a digital book on loan
// @Tags loans
// @Produce json
// @Param loanId path string true "ID of an active digital loan"
// @Success 200
// @Failure 404
// @Failure 422
// @Failure 503
// @Router /v1/loans/{loanId}/download [get]
func (h *Handler) downloadLinkHandler(w http.ResponseWriter, r *http.Request) {
	loanID, err := h.readUUIDParam(r, "loanId")
	if err != nil {
		h.notFoundResponse(w, r)
		return
	}
	link, err := h.service.DownloadLink(r.Context(), loanID)
	if err != nil {
		h.serviceErrorResponse(w, r, err)
		return
	}
	env := envelope{"download_url": link, "expires_in": h.config.Lending.DownloadLinkTTL.String()}
	if err := h.encodeJSON(w, http.StatusOK, env, nil); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}
