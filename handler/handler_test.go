package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/emzola/bibliotheca-circulation/config"
	"github.com/emzola/bibliotheca-circulation/data"
	"github.com/emzola/bibliotheca-circulation/handler"
	"github.com/emzola/bibliotheca-circulation/internal/jsonlog"
	"github.com/emzola/bibliotheca-circulation/notifier"
	"github.com/emzola/bibliotheca-circulation/repository/memory"
	"github.com/emzola/bibliotheca-circulation/service"
)

type testApp struct {
	routes http.Handler
	db     *memory.DB
	wg     *sync.WaitGroup
}

func newTestApp(t *testing.T, configure func(cfg *config.Config)) *testApp {
	t.Helper()
	var cfg config.Config
	cfg.Server.Env = "testing"
	cfg.Lending.Locale = "es"
	cfg.Lending.DownloadLinkTTL = 15 * time.Minute
	if configure != nil {
		configure(&cfg)
	}
	logger := jsonlog.New(io.Discard, jsonlog.LevelInfo)
	db := memory.New()
	wg := &sync.WaitGroup{}
	svc := service.New(cfg, wg, logger, db, notifier.NewLog(logger))
	limiters := ttlcache.New[string, *rate.Limiter](ttlcache.WithTTL[string, *rate.Limiter](time.Minute))
	h := handler.New(cfg, logger, limiters, svc)
	t.Cleanup(wg.Wait)
	return &testApp{routes: h.Routes(), db: db, wg: wg}
}

func (a *testApp) do(t *testing.T, method, target string, body string, configure ...func(r *http.Request)) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for _, c := range configure {
		c(req)
	}
	rec := httptest.NewRecorder()
	a.routes.ServeHTTP(rec, req)
	var payload map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	}
	return rec, payload
}

func (a *testApp) user(t *testing.T, membership data.Membership) *data.User {
	t.Helper()
	user := &data.User{Email: uuid.NewString() + "@example.com", Name: "Reader", Role: data.RoleReader, Membership: membership, Active: true}
	require.NoError(t, a.db.CreateUser(context.Background(), user))
	return user
}

func (a *testApp) book(t *testing.T, book data.Book) *data.Book {
	t.Helper()
	if book.Author == "" {
		book.Author = "Anon"
	}
	if book.Format == "" {
		book.Format = data.FormatPhysical
	}
	if book.Status == "" {
		book.Status = data.BookAvailable
	}
	require.NoError(t, a.db.CreateBook(context.Background(), &book))
	return &book
}

func errorReason(t *testing.T, payload map[string]interface{}) string {
	t.Helper()
	body, ok := payload["error"].(map[string]interface{})
	require.True(t, ok, "error is not an object: %v", payload["error"])
	return body["reason"].(string)
}

func loanBody(userID, bookID uuid.UUID) string {
	return `{"user_id":"` + userID.String() + `","book_id":"` + bookID.String() + `"}`
}

func TestHealthcheck(t *testing.T) {
	app := newTestApp(t, nil)
	rec, payload := app.do(t, http.MethodGet, "/v1/healthcheck", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "available", payload["status"])
	assert.Equal(t, "testing", payload["system_info"].(map[string]interface{})["environment"])
	assert.Contains(t, rec.Body.String(), "\n  \"status\": \"available\"")
}

func TestLoanLifecycle(t *testing.T) {
	app := newTestApp(t, nil)
	user := app.user(t, data.MembershipFree)
	book := app.book(t, data.Book{Title: "Clean Architecture", TotalCopies: 1, AvailableCopies: 1})

	rec, payload := app.do(t, http.MethodPost, "/v1/loans", loanBody(user.ID, book.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	loan := payload["loan"].(map[string]interface{})
	loanID := loan["id"].(string)
	assert.Equal(t, "/v1/loans/"+loanID, rec.Header().Get("Location"))
	assert.Equal(t, "active", loan["status"])

	rec, payload = app.do(t, http.MethodGet, "/v1/loans/"+loanID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	statement := payload["loan"].(map[string]interface{})
	assert.Equal(t, false, statement["overdue"])
	assert.Equal(t, float64(0), statement["current_fine"])

	rec, payload = app.do(t, http.MethodPost, "/v1/loans/"+loanID+"/renew", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), payload["loan"].(map[string]interface{})["renewal_count"])

	rec, payload = app.do(t, http.MethodPost, "/v1/loans/"+loanID+"/return", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "returned", payload["loan"].(map[string]interface{})["status"])

	rec, payload = app.do(t, http.MethodPost, "/v1/loans/"+loanID+"/return", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "loan_not_active", errorReason(t, payload))

	rec, payload = app.do(t, http.MethodGet, "/v1/users/"+user.ID.String()+"/loans", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, payload["loans"], 1)
}

func TestBorrowBookErrors(t *testing.T) {
	app := newTestApp(t, nil)
	user := app.user(t, data.MembershipFree)
	shelved := app.book(t, data.Book{Title: "On the shelf", TotalCopies: 1, AvailableCopies: 1})
	out := app.book(t, data.Book{Title: "Out", Status: data.BookBorrowed, TotalCopies: 1, AvailableCopies: 0})

	tests := []struct {
		name   string
		body   string
		status int
		reason string
	}{
		{name: "unknown_user", body: loanBody(uuid.New(), shelved.ID), status: http.StatusNotFound, reason: "user_not_found"},
		{name: "unknown_book", body: loanBody(user.ID, uuid.New()), status: http.StatusNotFound, reason: "book_not_found"},
		{name: "no_copy", body: loanBody(user.ID, out.ID), status: http.StatusUnprocessableEntity, reason: "book_unavailable"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, payload := app.do(t, http.MethodPost, "/v1/loans", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.reason, errorReason(t, payload))
		})
	}

	t.Run("badly_formed_json", func(t *testing.T) {
		rec, payload := app.do(t, http.MethodPost, "/v1/loans", `{"user_id":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "body contains badly-formed JSON", payload["error"])
	})

	t.Run("unknown_key", func(t *testing.T) {
		rec, _ := app.do(t, http.MethodPost, "/v1/loans", `{"user":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid_ids", func(t *testing.T) {
		rec, payload := app.do(t, http.MethodPost, "/v1/loans", `{"user_id":"nope","book_id":""}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		fields := payload["error"].(map[string]interface{})
		assert.Equal(t, "must be a valid UUID", fields["user_id"])
		assert.Equal(t, "must be provided", fields["book_id"])
	})

	t.Run("loan_limit", func(t *testing.T) {
		borrower := app.user(t, data.MembershipFree)
		for i := 0; i < data.FreeLoanLimit; i++ {
			b := app.book(t, data.Book{Title: "Filler", TotalCopies: 1, AvailableCopies: 1})
			rec, _ := app.do(t, http.MethodPost, "/v1/loans", loanBody(borrower.ID, b.ID))
			require.Equal(t, http.StatusCreated, rec.Code)
		}
		b := app.book(t, data.Book{Title: "One too many", TotalCopies: 1, AvailableCopies: 1})
		rec, payload := app.do(t, http.MethodPost, "/v1/loans", loanBody(borrower.ID, b.ID))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := payload["error"].(map[string]interface{})
		assert.Equal(t, "loan_limit_exceeded", body["reason"])
		assert.Equal(t, "loan limit reached (3 active loans)", body["message"])
	})
}

func TestReservations(t *testing.T) {
	app := newTestApp(t, nil)
	user := app.user(t, data.MembershipFree)
	book := app.book(t, data.Book{Title: "El Quijote", Status: data.BookBorrowed, TotalCopies: 1, AvailableCopies: 0})

	rec, payload := app.do(t, http.MethodPost, "/v1/reservations", loanBody(user.ID, book.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reservation := payload["reservation"].(map[string]interface{})
	assert.Equal(t, "pending", reservation["status"])
	reservationID := reservation["id"].(string)

	rec, payload = app.do(t, http.MethodPost, "/v1/reservations", loanBody(user.ID, book.ID))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_reservation", errorReason(t, payload))

	rec, payload = app.do(t, http.MethodGet, "/v1/users/"+user.ID.String()+"/reservations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, payload["reservations"], 1)

	rec, payload = app.do(t, http.MethodDelete, "/v1/reservations/"+reservationID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", payload["reservation"].(map[string]interface{})["status"])

	available := app.book(t, data.Book{Title: "Shelved", TotalCopies: 1, AvailableCopies: 1})
	rec, payload = app.do(t, http.MethodPost, "/v1/reservations", loanBody(user.ID, available.ID))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "book_already_available", errorReason(t, payload))
}

func TestSearchBooks(t *testing.T) {
	app := newTestApp(t, nil)
	app.book(t, data.Book{Title: "Zorro", TotalCopies: 1, AvailableCopies: 1})
	app.book(t, data.Book{Title: "Ñandú", Format: data.FormatDigital, TotalCopies: 1, AvailableCopies: 1})
	app.book(t, data.Book{Title: "Nube", Format: data.FormatDigital, Status: data.BookBorrowed, TotalCopies: 1, AvailableCopies: 0})

	rec, payload := app.do(t, http.MethodGet, "/v1/books?format=digital", "")
	require.Equal(t, http.StatusOK, rec.Code)
	books := payload["books"].([]interface{})
	require.Len(t, books, 2)
	assert.Equal(t, "Nube", books[0].(map[string]interface{})["title"])
	assert.Equal(t, "Ñandú", books[1].(map[string]interface{})["title"])

	rec, payload = app.do(t, http.MethodGet, "/v1/books?format=digital&available=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, payload["books"], 1)

	rec, payload = app.do(t, http.MethodGet, "/v1/books?available=maybe", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "must be a boolean value", payload["error"].(map[string]interface{})["available"])

	rec, _ = app.do(t, http.MethodGet, "/v1/books?format=scroll", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestShowBook(t *testing.T) {
	app := newTestApp(t, nil)
	book := app.book(t, data.Book{Title: "Zorro", TotalCopies: 2, AvailableCopies: 2})

	rec, payload := app.do(t, http.MethodGet, "/v1/books/"+book.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), payload["book"].(map[string]interface{})["available_copies"])

	rec, _ = app.do(t, http.MethodGet, "/v1/books/not-a-uuid", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, payload = app.do(t, http.MethodGet, "/v1/books/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "book_not_found", errorReason(t, payload))

	rec, _ = app.do(t, http.MethodPatch, "/v1/books/"+book.ID.String(), "{}")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestBasicAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.BasicAuth.Username = "librarian"
		cfg.BasicAuth.PasswordHash = string(hash)
	})
	book := app.book(t, data.Book{Title: "Digital", Format: data.FormatDigital, TotalCopies: 1, AvailableCopies: 1})
	target := "/v1/books/" + book.ID.String() + "/content"

	rec, _ := app.do(t, http.MethodPut, target, "%PDF-1.4")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	rec, _ = app.do(t, http.MethodPut, target, "%PDF-1.4", func(r *http.Request) { r.SetBasicAuth("librarian", "wrong") })
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = app.do(t, http.MethodPut, target, "%PDF-1.4", func(r *http.Request) { r.SetBasicAuth("librarian", "s3cret") })
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, payload := app.do(t, http.MethodPost, "/v1/sweeps", "", func(r *http.Request) { r.SetBasicAuth("librarian", "s3cret") })
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, payload["sweep"], "expired")
}

func TestRateLimit(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Limiter.Enabled = true
		cfg.Limiter.RPS = 1
		cfg.Limiter.Burst = 1
	})

	rec, _ := app.do(t, http.MethodGet, "/v1/healthcheck", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, payload := app.do(t, http.MethodGet, "/v1/healthcheck", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate limit exceeded", payload["error"])

	rec, _ = app.do(t, http.MethodGet, "/v1/healthcheck", "", func(r *http.Request) { r.RemoteAddr = "198.51.100.7:4321" })
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS(t *testing.T) {
	app := newTestApp(t, func(cfg *config.Config) {
		cfg.Cors.TrustedOrigins = []string{"https://library.example"}
	})
	rec, _ := app.do(t, http.MethodOptions, "/v1/loans", "", func(r *http.Request) {
		r.Header.Set("Origin", "https://library.example")
		r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://library.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestSwaggerSpec(t *testing.T) {
	app := newTestApp(t, nil)
	rec, payload := app.do(t, http.MethodGet, "/spec", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2.0", payload["swagger"])
	assert.Contains(t, payload["paths"], "/v1/loans/{loanId}/return")
}
