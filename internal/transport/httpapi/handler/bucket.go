package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/moneybuckets/internal/ledger"
	"github.com/kislikjeka/moneybuckets/internal/platform/bucket"
)

// BucketServiceInterface defines the interface for bucket identity operations
type BucketServiceInterface interface {
	Create(ctx context.Context, b *bucket.Bucket) (*bucket.Bucket, error)
	GetByID(ctx context.Context, id, userID uuid.UUID) (*bucket.Bucket, error)
	List(ctx context.Context, userID uuid.UUID, includeHidden bool) ([]*bucket.Bucket, error)
	Update(ctx context.Context, id, userID uuid.UUID, identity bucket.Identity) (*bucket.Bucket, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// BucketLedgerInterface is the part of the ledger served under /buckets/{id}
type BucketLedgerInterface interface {
	GetBucketHistory(ctx context.Context, userID, bucketID uuid.UUID) ([]*ledger.BucketValueHistory, error)
	RecordMarketValue(ctx context.Context, params ledger.MarketValueParams) (*ledger.BucketValueHistory, error)
	DeleteMarketValue(ctx context.Context, userID, bucketID, entryID uuid.UUID) error
	GetTransactionsByBucket(ctx context.Context, userID, bucketID uuid.UUID) ([]*ledger.Transaction, error)
	RecordInvestmentTrade(ctx context.Context, params ledger.TradeParams) (*ledger.Transaction, error)
}

// BucketHandler handles bucket-related HTTP requests
type BucketHandler struct {
	buckets BucketServiceInterface
	ledger  BucketLedgerInterface
	now     func() time.Time
}

// NewBucketHandler creates a new bucket handler
func NewBucketHandler(buckets BucketServiceInterface, l BucketLedgerInterface) *BucketHandler {
	return &BucketHandler{buckets: buckets, ledger: l, now: time.Now}
}

// BucketRequest is the body of bucket create and update. Amounts are not
// accepted here: they only change through the ledger.
type BucketRequest struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	AccountID  *string `json:"account_id,omitempty"`
	CategoryID *string `json:"bucket_category_id,omitempty"`
	LocationID *string `json:"bucket_location_id,omitempty"`
	IsHidden   bool    `json:"is_hidden"`
}

// BucketResponse represents a bucket with its ledger projection
type BucketResponse struct {
	ID                string  `json:"id"`
	AccountID         *string `json:"account_id,omitempty"`
	Name              string  `json:"name"`
	Type              string  `json:"type"`
	CategoryID        *string `json:"bucket_category_id,omitempty"`
	LocationID        *string `json:"bucket_location_id,omitempty"`
	ContributedAmount string  `json:"contributed_amount"`
	MarketValue       string  `json:"market_value"`
	TotalUnits        *string `json:"total_units"`
	IsHidden          bool    `json:"is_hidden"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

// BucketsListResponse represents the response for listing buckets
type BucketsListResponse struct {
	Buckets []BucketResponse `json:"buckets"`
}

// HistoryEntryResponse is one snapshot of a bucket's ledger
type HistoryEntryResponse struct {
	ID                string  `json:"id"`
	RecordedAt        string  `json:"recorded_at"`
	ContributedAmount string  `json:"contributed_amount"`
	MarketValue       string  `json:"market_value"`
	TotalUnits        *string `json:"total_units"`
	SourceType        string  `json:"source_type"`
	SourceID          *string `json:"source_id,omitempty"`
	Notes             *string `json:"notes,omitempty"`
}

// HistoryResponse lists a bucket's history, oldest first
type HistoryResponse struct {
	History []HistoryEntryResponse `json:"history"`
}

// MarketValueRequest reports a valuation
type MarketValueRequest struct {
	MarketValue string  `json:"market_value"`
	RecordedAt  *string `json:"recorded_at,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

// TradeRequest records a buy or sell of units
type TradeRequest struct {
	Side         string  `json:"side"`
	Amount       string  `json:"amount"`
	Units        string  `json:"units"`
	CashBucketID *string `json:"cash_bucket_id,omitempty"`
	TradeDate    *string `json:"trade_date,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

// CreateBucket handles POST /buckets
func (h *BucketHandler) CreateBucket(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req BucketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	identity, ok := req.identity(w)
	if !ok {
		return
	}

	b := &bucket.Bucket{UserID: userID}
	b.Name = identity.Name
	b.Type = identity.Type
	b.AccountID = identity.AccountID
	b.CategoryID = identity.CategoryID
	b.LocationID = identity.LocationID
	b.IsHidden = identity.IsHidden

	created, err := h.buckets.Create(r.Context(), b)
	if err != nil {
		respondServiceError(w, err, "failed to create bucket")
		return
	}

	respondJSON(w, toBucketResponse(created), http.StatusCreated)
}

// GetBuckets handles GET /buckets?include_hidden=true
func (h *BucketHandler) GetBuckets(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	includeHidden := false
	if v := r.URL.Query().Get("include_hidden"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, "invalid include_hidden", http.StatusBadRequest)
			return
		}
		includeHidden = parsed
	}

	buckets, err := h.buckets.List(r.Context(), userID, includeHidden)
	if err != nil {
		respondServiceError(w, err, "failed to fetch buckets")
		return
	}

	responses := make([]BucketResponse, 0, len(buckets))
	for _, b := range buckets {
		responses = append(responses, toBucketResponse(b))
	}
	respondJSON(w, BucketsListResponse{Buckets: responses}, http.StatusOK)
}

// GetBucket handles GET /buckets/{id}
func (h *BucketHandler) GetBucket(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "bucket")
	if !ok {
		return
	}

	b, err := h.buckets.GetByID(r.Context(), id, userID)
	if err != nil {
		respondServiceError(w, err, "failed to fetch bucket")
		return
	}

	respondJSON(w, toBucketResponse(b), http.StatusOK)
}

// UpdateBucket handles PUT /buckets/{id}
func (h *BucketHandler) UpdateBucket(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "bucket")
	if !ok {
		return
	}

	var req BucketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	identity, ok := req.identity(w)
	if !ok {
		return
	}

	updated, err := h.buckets.Update(r.Context(), id, userID, identity)
	if err != nil {
		respondServiceError(w, err, "failed to update bucket")
		return
	}

	respondJSON(w, toBucketResponse(updated), http.StatusOK)
}

// DeleteBucket handles DELETE /buckets/{id}
func (h *BucketHandler) DeleteBucket(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "bucket")
	if !ok {
		return
	}

	if err := h.buckets.Delete(r.Context(), id, userID); err != nil {
		respondServiceError(w, err, "failed to delete bucket")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetHistory handles GET /buckets/{id}/history
func (h *BucketHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "bucket")
	if !ok {
		return
	}

	history, err := h.ledger.GetBucketHistory(r.Context(), userID, id)
	if err != nil {
		respondServiceError(w, err, "failed to fetch bucket history")
		return
	}

	entries := make([]HistoryEntryResponse, 0, len(history))
	for _, e := range history {
		entries = append(entries, toHistoryEntryResponse(e))
	}
	respondJSON(w, HistoryResponse{History: entries}, http.StatusOK)
}

// RecordMarketValue handles POST /buckets/{id}/market-values
func (h *BucketHandler) RecordMarketValue(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "bucket")
	if !ok {
		return
	}

	var req MarketValueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	value, ok := parseAmount(w, req.MarketValue, "market_value")
	if !ok {
		return
	}
	recordedAt, err := parseEventDate(req.RecordedAt, h.now())
	if err != nil {
		respondError(w, "invalid recorded_at (use RFC3339 or YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	entry, err := h.ledger.RecordMarketValue(r.Context(), ledger.MarketValueParams{
		UserID:      userID,
		BucketID:    id,
		MarketValue: value,
		RecordedAt:  recordedAt,
		Notes:       req.Notes,
	})
	if err != nil {
		respondServiceError(w, err, "failed to record market value")
		return
	}

	respondJSON(w, toHistoryEntryResponse(entry), http.StatusCreated)
}

// DeleteMarketValue handles DELETE /buckets/{id}/market-values/{entryID}
func (h *BucketHandler) DeleteMarketValue(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "bucket")
	if !ok {
		return
	}
	entryID, ok := pathID(w, r, "entryID", "entry")
	if !ok {
		return
	}

	if err := h.ledger.DeleteMarketValue(r.Context(), userID, id, entryID); err != nil {
		respondServiceError(w, err, "failed to delete market value")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetTransactions handles GET /buckets/{id}/transactions
func (h *BucketHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "bucket")
	if !ok {
		return
	}

	txs, err := h.ledger.GetTransactionsByBucket(r.Context(), userID, id)
	if err != nil {
		respondServiceError(w, err, "failed to fetch bucket transactions")
		return
	}

	respondJSON(w, toTransactionListResponse(txs), http.StatusOK)
}

// RecordTrade handles POST /buckets/{id}/trades
func (h *BucketHandler) RecordTrade(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "bucket")
	if !ok {
		return
	}

	var req TradeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, ok := parseAmount(w, req.Amount, "amount")
	if !ok {
		return
	}
	units, ok := parseAmount(w, req.Units, "units")
	if !ok {
		return
	}
	cashBucketID, err := parseOptionalID(req.CashBucketID)
	if err != nil {
		respondError(w, "invalid cash_bucket_id", http.StatusBadRequest)
		return
	}
	tradeDate, err := parseEventDate(req.TradeDate, h.now())
	if err != nil {
		respondError(w, "invalid trade_date (use RFC3339 or YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	tx, err := h.ledger.RecordInvestmentTrade(r.Context(), ledger.TradeParams{
		UserID:       userID,
		BucketID:     id,
		CashBucketID: cashBucketID,
		Side:         ledger.TradeSide(req.Side),
		Amount:       amount,
		Units:        units,
		TradeDate:    tradeDate,
		Notes:        req.Notes,
	})
	if err != nil {
		respondServiceError(w, err, "failed to record trade")
		return
	}

	respondJSON(w, toTransactionResponse(tx), http.StatusCreated)
}

func (req BucketRequest) identity(w http.ResponseWriter) (bucket.Identity, bool) {
	identity := bucket.Identity{
		Name:     req.Name,
		Type:     bucket.Type(req.Type),
		IsHidden: req.IsHidden,
	}

	var err error
	if identity.AccountID, err = parseOptionalID(req.AccountID); err != nil {
		respondError(w, "invalid account_id", http.StatusBadRequest)
		return identity, false
	}
	if identity.CategoryID, err = parseOptionalID(req.CategoryID); err != nil {
		respondError(w, "invalid bucket_category_id", http.StatusBadRequest)
		return identity, false
	}
	if identity.LocationID, err = parseOptionalID(req.LocationID); err != nil {
		respondError(w, "invalid bucket_location_id", http.StatusBadRequest)
		return identity, false
	}
	return identity, true
}

func toBucketResponse(b *bucket.Bucket) BucketResponse {
	return BucketResponse{
		ID:                b.ID.String(),
		AccountID:         idString(b.AccountID),
		Name:              b.Name,
		Type:              string(b.Type),
		CategoryID:        idString(b.CategoryID),
		LocationID:        idString(b.LocationID),
		ContributedAmount: b.ContributedAmount.String(),
		MarketValue:       b.MarketValue.String(),
		TotalUnits:        decimalString(b.TotalUnits),
		IsHidden:          b.IsHidden,
		CreatedAt:         formatTime(b.CreatedAt),
		UpdatedAt:         formatTime(b.UpdatedAt),
	}
}

func toHistoryEntryResponse(e *ledger.BucketValueHistory) HistoryEntryResponse {
	return HistoryEntryResponse{
		ID:                e.ID.String(),
		RecordedAt:        formatTime(e.RecordedAt),
		ContributedAmount: e.ContributedAmount.String(),
		MarketValue:       e.MarketValue.String(),
		TotalUnits:        decimalString(e.TotalUnits),
		SourceType:        string(e.SourceType),
		SourceID:          idString(e.SourceID),
		Notes:             e.Notes,
	}
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func decimalString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
