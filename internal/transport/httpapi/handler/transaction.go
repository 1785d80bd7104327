package handler

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kislikjeka/moneybuckets/internal/ledger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// LedgerServiceInterface defines the ledger operations needed by TransactionHandler
type LedgerServiceInterface interface {
	CreateTransaction(ctx context.Context, params ledger.CreateTransactionParams) (*ledger.Transaction, error)
	GetTransaction(ctx context.Context, userID, id uuid.UUID) (*ledger.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, id uuid.UUID, params ledger.UpdateTransactionParams) (*ledger.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id uuid.UUID) error
	TransactionPages(ctx context.Context, filter ledger.TransactionFilter, pageSize int) iter.Seq2[*ledger.Transaction, error]
	CheckDuplicateTransaction(ctx context.Context, check ledger.DuplicateCheck) (bool, error)
}

// TransactionHandler handles transaction-related HTTP requests
type TransactionHandler struct {
	ledger LedgerServiceInterface
	now    func() time.Time
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(l LedgerServiceInterface) *TransactionHandler {
	return &TransactionHandler{ledger: l, now: time.Now}
}

// CreateTransactionRequest represents the transaction creation request.
// Amount is always positive; direction comes from which bucket is set.
type CreateTransactionRequest struct {
	FromBucketID    *string `json:"from_bucket_id,omitempty"`
	ToBucketID      *string `json:"to_bucket_id,omitempty"`
	Amount          string  `json:"amount"`
	TransactionDate *string `json:"transaction_date,omitempty"` // RFC3339 or YYYY-MM-DD, defaults to now
	Notes           *string `json:"notes,omitempty"`
}

// UpdateTransactionRequest patches a transaction. Absent keys are left alone;
// a null bucket id clears that side.
type UpdateTransactionRequest struct {
	FromBucketID    nullableID `json:"from_bucket_id"`
	ToBucketID      nullableID `json:"to_bucket_id"`
	Amount          *string    `json:"amount,omitempty"`
	TransactionDate *string    `json:"transaction_date,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
}

// TransactionResponse represents a transaction response
type TransactionResponse struct {
	ID              string  `json:"id"`
	FromBucketID    *string `json:"from_bucket_id"`
	ToBucketID      *string `json:"to_bucket_id"`
	Amount          string  `json:"amount"`
	TransactionDate string  `json:"transaction_date"`
	Notes           *string `json:"notes,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// TransactionListResponse represents a page of transactions, newest first
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Limit        int                   `json:"limit,omitempty"`
	Offset       int                   `json:"offset,omitempty"`
}

// DuplicateResponse answers a duplicate check
type DuplicateResponse struct {
	Duplicate bool `json:"duplicate"`
}

// nullableID tells an absent key apart from an explicit null
type nullableID struct {
	Set   bool
	Value *string
}

func (n *nullableID) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

// CreateTransaction handles POST /transactions
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	params, ok := req.params(w, userID, h.eventDate)
	if !ok {
		return
	}

	tx, err := h.ledger.CreateTransaction(r.Context(), params)
	if err != nil {
		respondServiceError(w, err, "failed to create transaction")
		return
	}

	respondJSON(w, toTransactionResponse(tx), http.StatusCreated)
}

// GetTransactions handles GET /transactions?bucket_id=&limit=&offset=
func (h *TransactionHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"), defaultListLimit)
	if err != nil || limit <= 0 {
		respondError(w, "invalid limit", http.StatusBadRequest)
		return
	}
	limit = min(limit, maxListLimit)

	offset, err := queryInt(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		respondError(w, "invalid offset", http.StatusBadRequest)
		return
	}

	filter := ledger.TransactionFilter{UserID: userID, Offset: offset}
	if v := q.Get("bucket_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			respondError(w, "invalid bucket_id", http.StatusBadRequest)
			return
		}
		filter.BucketID = &id
	}

	txs := make([]*ledger.Transaction, 0, limit)
	for tx, err := range h.ledger.TransactionPages(r.Context(), filter, limit) {
		if err != nil {
			respondServiceError(w, err, "failed to fetch transactions")
			return
		}
		txs = append(txs, tx)
		if len(txs) == limit {
			break
		}
	}

	resp := toTransactionListResponse(txs)
	resp.Limit = limit
	resp.Offset = offset
	respondJSON(w, resp, http.StatusOK)
}

// GetTransaction handles GET /transactions/{id}
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "transaction")
	if !ok {
		return
	}

	tx, err := h.ledger.GetTransaction(r.Context(), userID, id)
	if err != nil {
		respondServiceError(w, err, "failed to fetch transaction")
		return
	}

	respondJSON(w, toTransactionResponse(tx), http.StatusOK)
}

// UpdateTransaction handles PUT /transactions/{id}
func (h *TransactionHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "transaction")
	if !ok {
		return
	}

	var req UpdateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var params ledger.UpdateTransactionParams
	var err error
	if params.FromBucketID, err = req.FromBucketID.optional(); err != nil {
		respondError(w, "invalid from_bucket_id", http.StatusBadRequest)
		return
	}
	if params.ToBucketID, err = req.ToBucketID.optional(); err != nil {
		respondError(w, "invalid to_bucket_id", http.StatusBadRequest)
		return
	}
	if req.Amount != nil {
		amount, ok := parseAmount(w, *req.Amount, "amount")
		if !ok {
			return
		}
		params.Amount = &amount
	}
	if params.TransactionDate, err = parseEventDate(req.TransactionDate, h.now()); err != nil {
		respondError(w, "invalid transaction_date (use RFC3339 or YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	params.Notes = req.Notes

	tx, err := h.ledger.UpdateTransaction(r.Context(), userID, id, params)
	if err != nil {
		respondServiceError(w, err, "failed to update transaction")
		return
	}

	respondJSON(w, toTransactionResponse(tx), http.StatusOK)
}

// DeleteTransaction handles DELETE /transactions/{id}
func (h *TransactionHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "transaction")
	if !ok {
		return
	}

	if err := h.ledger.DeleteTransaction(r.Context(), userID, id); err != nil {
		respondServiceError(w, err, "failed to delete transaction")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CheckDuplicate handles POST /transactions/duplicates. The body is the one
// a create would send; transaction_date is required.
func (h *TransactionHandler) CheckDuplicate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	params, ok := req.params(w, userID, parseOptionalDate)
	if !ok {
		return
	}
	if params.TransactionDate == nil {
		respondError(w, "transaction_date is required", http.StatusBadRequest)
		return
	}

	dup, err := h.ledger.CheckDuplicateTransaction(r.Context(), ledger.DuplicateCheck{
		UserID:          userID,
		TransactionDate: *params.TransactionDate,
		Amount:          params.Amount,
		FromBucketID:    params.FromBucketID,
		ToBucketID:      params.ToBucketID,
		Notes:           params.Notes,
	})
	if err != nil {
		respondServiceError(w, err, "failed to check duplicates")
		return
	}

	respondJSON(w, DuplicateResponse{Duplicate: dup}, http.StatusOK)
}

func (req CreateTransactionRequest) params(w http.ResponseWriter, userID uuid.UUID, parseDate func(*string) (*time.Time, error)) (ledger.CreateTransactionParams, bool) {
	params := ledger.CreateTransactionParams{UserID: userID, Notes: req.Notes}

	var err error
	if params.FromBucketID, err = parseOptionalID(req.FromBucketID); err != nil {
		respondError(w, "invalid from_bucket_id", http.StatusBadRequest)
		return params, false
	}
	if params.ToBucketID, err = parseOptionalID(req.ToBucketID); err != nil {
		respondError(w, "invalid to_bucket_id", http.StatusBadRequest)
		return params, false
	}

	amount, ok := parseAmount(w, req.Amount, "amount")
	if !ok {
		return params, false
	}
	params.Amount = amount

	if params.TransactionDate, err = parseDate(req.TransactionDate); err != nil {
		respondError(w, "invalid transaction_date (use RFC3339 or YYYY-MM-DD)", http.StatusBadRequest)
		return params, false
	}
	return params, true
}

func (h *TransactionHandler) eventDate(s *string) (*time.Time, error) {
	return parseEventDate(s, h.now())
}

func (n nullableID) optional() (ledger.OptionalID, error) {
	if !n.Set {
		return ledger.OptionalID{}, nil
	}
	id, err := parseOptionalID(n.Value)
	if err != nil {
		return ledger.OptionalID{}, err
	}
	return ledger.OptionalID{Set: true, Value: id}, nil
}

func queryInt(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func toTransactionResponse(tx *ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:              tx.ID.String(),
		FromBucketID:    idString(tx.FromBucketID),
		ToBucketID:      idString(tx.ToBucketID),
		Amount:          tx.Amount.String(),
		TransactionDate: formatTime(tx.TransactionDate),
		Notes:           tx.Notes,
		CreatedAt:       formatTime(tx.CreatedAt),
		UpdatedAt:       formatTime(tx.UpdatedAt),
	}
}

func toTransactionListResponse(txs []*ledger.Transaction) TransactionListResponse {
	items := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		items = append(items, toTransactionResponse(tx))
	}
	return TransactionListResponse{Transactions: items}
}
