package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/kislikjeka/moneybuckets/internal/platform/account"
)

// AccountServiceInterface defines the interface for account operations
type AccountServiceInterface interface {
	Create(ctx context.Context, a *account.Account) (*account.Account, error)
	GetByID(ctx context.Context, id, userID uuid.UUID) (*account.Account, error)
	List(ctx context.Context, userID uuid.UUID) ([]*account.Account, error)
	Update(ctx context.Context, id, userID uuid.UUID, name string, institution *string) (*account.Account, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	accounts AccountServiceInterface
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts AccountServiceInterface) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// AccountRequest is the body of account create and update
type AccountRequest struct {
	Name        string  `json:"name"`
	Institution *string `json:"institution,omitempty"`
}

// AccountResponse represents an account response
type AccountResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Institution *string `json:"institution,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// AccountsListResponse represents the response for listing accounts
type AccountsListResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}

// CreateAccount handles POST /accounts
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req AccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.accounts.Create(r.Context(), &account.Account{
		UserID:      userID,
		Name:        req.Name,
		Institution: req.Institution,
	})
	if err != nil {
		respondServiceError(w, err, "failed to create account")
		return
	}

	respondJSON(w, toAccountResponse(created), http.StatusCreated)
}

// GetAccounts handles GET /accounts
func (h *AccountHandler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	accounts, err := h.accounts.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err, "failed to fetch accounts")
		return
	}

	responses := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		responses = append(responses, toAccountResponse(a))
	}
	respondJSON(w, AccountsListResponse{Accounts: responses}, http.StatusOK)
}

// GetAccount handles GET /accounts/{id}
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "account")
	if !ok {
		return
	}

	a, err := h.accounts.GetByID(r.Context(), id, userID)
	if err != nil {
		respondServiceError(w, err, "failed to fetch account")
		return
	}

	respondJSON(w, toAccountResponse(a), http.StatusOK)
}

// UpdateAccount handles PUT /accounts/{id}
func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "account")
	if !ok {
		return
	}

	var req AccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.accounts.Update(r.Context(), id, userID, req.Name, req.Institution)
	if err != nil {
		respondServiceError(w, err, "failed to update account")
		return
	}

	respondJSON(w, toAccountResponse(updated), http.StatusOK)
}

// DeleteAccount handles DELETE /accounts/{id}
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "account")
	if !ok {
		return
	}

	if err := h.accounts.Delete(r.Context(), id, userID); err != nil {
		respondServiceError(w, err, "failed to delete account")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toAccountResponse(a *account.Account) AccountResponse {
	return AccountResponse{
		ID:          a.ID.String(),
		Name:        a.Name,
		Institution: a.Institution,
		CreatedAt:   formatTime(a.CreatedAt),
		UpdatedAt:   formatTime(a.UpdatedAt),
	}
}
