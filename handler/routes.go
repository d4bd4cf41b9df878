package handler

import (
	"expvar"
	"net/http"

	"github.com/julienschmidt/httprouter"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func (h *Handler) Routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(h.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(h.methodNotAllowed)

	router.HandlerFunc(http.MethodGet, "/v1/books", h.searchBooksHandler)
	router.HandlerFunc(http.MethodGet, "/v1/books/:bookId", h.showBookHandler)
	router.HandlerFunc(http.MethodPut, "/v1/books/:bookId/content", h.basicAuth(h.uploadBookContentHandler))

	router.HandlerFunc(http.MethodPost, "/v1/loans", h.borrowBookHandler)
	router.HandlerFunc(http.MethodGet, "/v1/loans/:loanId", h.showLoanHandler)
	router.HandlerFunc(http.MethodPost, "/v1/loans/:loanId/renew", h.renewLoanHandler)
	router.HandlerFunc(http.MethodPost, "/v1/loans/:loanId/return", h.returnBookHandler)
	router.HandlerFunc(http.MethodGet, "/v1/loans/:loanId/download", h.downloadLinkHandler)

	router.HandlerFunc(http.MethodPost, "/v1/reservations", h.reserveBookHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/reservations/:reservationId", h.cancelReservationHandler)

	router.HandlerFunc(http.MethodGet, "/v1/users/:userId/loans", h.listUserLoansHandler)
	router.HandlerFunc(http.MethodGet, "/v1/users/:userId/reservations", h.listUserReservationsHandler)

	router.HandlerFunc(http.MethodPost, "/v1/sweeps", h.basicAuth(h.sweepHandler))

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", h.healthcheckHandler)
	router.HandlerFunc(http.MethodGet, "/debug/vars", h.basicAuth(expvar.Handler().ServeHTTP))

	// Swagger routes
	router.HandlerFunc(http.MethodGet, "/spec", h.handleSwaggerFile())
	router.HandlerFunc(http.MethodGet, "/docs/*any", httpSwagger.Handler(httpSwagger.URL("/spec")))

	return h.metrics(h.recoverPanic(h.enableCORS(h.rateLimit(router))))
}
