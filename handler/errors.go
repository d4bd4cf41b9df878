package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/emzola/bibliotheca-circulation/service"
)

func (h *Handler) logError(r *http.Request, err error) {
	h.logger.PrintError(err, map[string]string{
		"request_method": r.Method,
		"request_url":    r.URL.String(),
	})
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := envelope{"error": message}
	err := h.encodeJSON(w, status, env, nil)
	if err != nil {
		h.logError(r, err)
		w.WriteHeader(500)
	}
}

func (h *Handler) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	h.logError(r, err)
	message := "the server encountered a problem and could not process your request"
	h.errorResponse(w, r, http.StatusInternalServerError, message)
}

func (h *Handler) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "the requested resource could not be found"
	h.errorResponse(w, r, http.StatusNotFound, message)
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	message := fmt.Sprintf("the %s method is not supported for this resource", r.Method)
	h.errorResponse(w, r, http.StatusMethodNotAllowed, message)
}

func (h *Handler) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	h.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (h *Handler) contentTooLargeResponse(w http.ResponseWriter, r *http.Request) {
	message := "the request body is too large"
	h.errorResponse(w, r, http.StatusRequestEntityTooLarge, message)
}

func (h *Handler) unsupportedMediaTypeResponse(w http.ResponseWriter, r *http.Request) {
	message := "the file type is not supported for this resource"
	h.errorResponse(w, r, http.StatusUnsupportedMediaType, message)
}

func (h *Handler) editConflictResponse(w http.ResponseWriter, r *http.Request) {
	message := "unable to update the record due to an edit conflict, please try again"
	h.errorResponse(w, r, http.StatusConflict, message)
}

func (h *Handler) failedValidationResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	h.errorResponse(w, r, http.StatusUnprocessableEntity, errors)
}

func (h *Handler) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	message := "rate limit exceeded"
	h.errorResponse(w, r, http.StatusTooManyRequests, message)
}

func (h *Handler) invalidCredentialsResponse(w http.ResponseWriter, r *http.Request) {
	message := "invalid authentication credentials"
	h.errorResponse(w, r, http.StatusUnauthorized, message)
}

func (h *Handler) contentUnavailableResponse(w http.ResponseWriter, r *http.Request) {
	message := "digital content storage is not configured"
	h.errorResponse(w, r, http.StatusServiceUnavailable, message)
}

// lendingErrorResponse reports a refused lending request. Missing records
// are 404, a second active reservation is 409 and every other policy
// violation is 422.
func (h *Handler) lendingErrorResponse(w http.ResponseWriter, r *http.Request, err *service.LendingError) {
	status := http.StatusUnprocessableEntity
	switch {
	case err.Kind == service.KindNotFound:
		status = http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateReservation):
		status = http.StatusConflict
	}
	h.errorResponse(w, r, status, map[string]string{
		"reason":  err.Reason,
		"message": err.Message,
	})
}

// serviceErrorResponse maps an error returned by the service layer to a response.
func (h *Handler) serviceErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var (
		lendingErr    *service.LendingError
		validationErr *service.ValidationError
	)
	switch {
	case errors.As(err, &lendingErr):
		h.lendingErrorResponse(w, r, lendingErr)
	case errors.As(err, &validationErr):
		h.failedValidationResponse(w, r, validationErr.Errors)
	case errors.Is(err, service.ErrEditConflict):
		h.editConflictResponse(w, r)
	case errors.Is(err, service.ErrUnsupportedMediaType):
		h.unsupportedMediaTypeResponse(w, r)
	case errors.Is(err, service.ErrContentUnavailable):
		h.contentUnavailableResponse(w, r)
	default:
		h.serverErrorResponse(w, r, err)
	}
}
