package handlers

import (
	"net/http"

	"github.com/hongminglow/bank-ledger-be/internal/accounts"
	"github.com/hongminglow/bank-ledger-be/internal/http/respond"
	"github.com/hongminglow/bank-ledger-be/internal/ledger"
	"github.com/hongminglow/bank-ledger-be/internal/models/dto"
)

// UserHandler serves account holders. Requests act on the caller's own
// account unless an admin names another one via ?identifier=.
type UserHandler struct {
	accounts *accounts.Service
	ledger   *ledger.Ledger
}

func NewUserHandler(accounts *accounts.Service, ledger *ledger.Ledger) *UserHandler {
	return &UserHandler{accounts: accounts, ledger: ledger}
}

// Register attaches user routes to the mux, each wrapped by authed.
func (h *UserHandler) Register(mux *http.ServeMux, authed Wrap) {
	mux.Handle("GET /user/profile", authed(http.HandlerFunc(h.handleProfile)))
	mux.Handle("GET /user/transactions", authed(http.HandlerFunc(h.handleListTransactions)))
	mux.Handle("POST /user/transactions", authed(http.HandlerFunc(h.handleCreateTransaction)))
	mux.Handle("DELETE /user/transactions/{id}", authed(http.HandlerFunc(h.handleDeleteTransaction)))
}

func (h *UserHandler) handleProfile(w http.ResponseWriter, r *http.Request) {
	identifier, err := target(r)
	if err != nil {
		writeError(w, "profile", "", err)
		return
	}
	user, err := h.accounts.Get(r.Context(), identifier)
	if err != nil {
		writeError(w, "profile", "user not found", err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.Fields{"user": user})
}

func (h *UserHandler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	identifier, err := target(r)
	if err != nil {
		writeError(w, "user transactions", "", err)
		return
	}
	txns, err := h.ledger.ListTransactions(r.Context(), identifier)
	if err != nil {
		writeError(w, "user transactions", "user not found", err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.Fields{"transactions": txns})
}

func (h *UserHandler) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	identifier, err := target(r)
	if err != nil {
		writeError(w, "user create transaction", "", err)
		return
	}
	var req dto.CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	txn, user, err := h.ledger.RecordTransaction(r.Context(), identifier, entryFrom(req))
	if err != nil {
		writeError(w, "user create transaction", "user not found", err)
		return
	}
	respond.JSON(w, http.StatusCreated, respond.Fields{"transaction": txn, "balance": user.Balance})
}

func (h *UserHandler) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	identifier, err := target(r)
	if err != nil {
		writeError(w, "user delete transaction", "", err)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, err := h.ledger.DeleteTransaction(r.Context(), id, identifier)
	if err != nil {
		writeError(w, "user delete transaction", "transaction not found", err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.Fields{"message": "transaction deleted", "balance": user.Balance})
}
