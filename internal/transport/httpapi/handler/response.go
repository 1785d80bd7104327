package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/moneybuckets/internal/ledger"
	"github.com/kislikjeka/moneybuckets/internal/platform/account"
	"github.com/kislikjeka/moneybuckets/internal/platform/bucket"
	"github.com/kislikjeka/moneybuckets/internal/platform/importer"
	"github.com/kislikjeka/moneybuckets/internal/platform/keyword"
	"github.com/kislikjeka/moneybuckets/internal/platform/user"
	"github.com/kislikjeka/moneybuckets/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/moneybuckets/pkg/money"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, ErrorResponse{Error: message}, statusCode)
}

// statusByError maps domain sentinels to HTTP statuses. The first match wins.
var statusByError = []struct {
	err    error
	status int
}{
	{ledger.ErrTransactionNotFound, http.StatusNotFound},
	{ledger.ErrHistoryNotFound, http.StatusNotFound},
	{ledger.ErrBucketNotFound, http.StatusNotFound},
	{bucket.ErrBucketNotFound, http.StatusNotFound},
	{account.ErrAccountNotFound, http.StatusNotFound},
	{user.ErrUserNotFound, http.StatusNotFound},

	{ledger.ErrUnauthorizedAccess, http.StatusForbidden},
	{bucket.ErrUnauthorizedAccess, http.StatusForbidden},
	{account.ErrUnauthorizedAccess, http.StatusForbidden},

	{account.ErrDuplicateName, http.StatusConflict},
	{keyword.ErrDuplicateKeyword, http.StatusConflict},
	{user.ErrUserAlreadyExists, http.StatusConflict},

	{user.ErrInvalidPassword, http.StatusUnauthorized},

	{ledger.ErrNotMarketEntry, http.StatusBadRequest},
	{bucket.ErrInvalidUserID, http.StatusBadRequest},
	{bucket.ErrInvalidBucketID, http.StatusBadRequest},
	{bucket.ErrMissingBucketName, http.StatusBadRequest},
	{bucket.ErrBucketNameTooLong, http.StatusBadRequest},
	{bucket.ErrInvalidBucketType, http.StatusBadRequest},
	{bucket.ErrAccountNotFound, http.StatusBadRequest},
	{account.ErrInvalidUserID, http.StatusBadRequest},
	{account.ErrMissingName, http.StatusBadRequest},
	{account.ErrNameTooLong, http.StatusBadRequest},
	{keyword.ErrEmptyKeyword, http.StatusBadRequest},
	{keyword.ErrKeywordTooLong, http.StatusBadRequest},
	{importer.ErrEmptyFile, http.StatusBadRequest},
	{importer.ErrMissingColumns, http.StatusBadRequest},
	{user.ErrInvalidEmail, http.StatusBadRequest},
	{user.ErrPasswordTooShort, http.StatusBadRequest},
}

// respondServiceError translates a service error. Unknown errors become a 500
// carrying fallback so internals never leak to the client.
func respondServiceError(w http.ResponseWriter, err error, fallback string) {
	if ledger.IsValidation(err) {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			respondError(w, m.err.Error(), m.status)
			return
		}
	}
	respondError(w, fallback, http.StatusInternalServerError)
}

// requireUser reads the authenticated user set by the JWT middleware
func requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
	}
	return userID, ok
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, param, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		respondError(w, "invalid "+label+" ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

var errBadField = errors.New("bad field")

func parseOptionalID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, errBadField
	}
	return &id, nil
}

// parseOptionalDate accepts RFC3339 timestamps and plain dates (midnight UTC)
func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, *s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, *s)
	if err != nil {
		return nil, errBadField
	}
	return &t, nil
}

// parseEventDate parses the date of a ledger write. A plain date is placed at
// the current UTC time of day, so two same-day writes to a bucket never share
// an instant and keep the order they arrived in.
func parseEventDate(s *string, now time.Time) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, *s); err == nil {
		return &t, nil
	}
	day, err := time.Parse(time.DateOnly, *s)
	if err != nil {
		return nil, errBadField
	}
	now = now.UTC()
	at := day.Add(now.Sub(now.Truncate(24 * time.Hour)))
	return &at, nil
}

func parseAmount(w http.ResponseWriter, s, field string) (decimal.Decimal, bool) {
	d, err := money.Parse(s)
	if err != nil {
		respondError(w, "invalid "+field, http.StatusBadRequest)
		return decimal.Zero, false
	}
	return d, true
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
