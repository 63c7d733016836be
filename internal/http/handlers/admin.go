package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/hongminglow/bank-ledger-be/internal/accounts"
	"github.com/hongminglow/bank-ledger-be/internal/auth"
	"github.com/hongminglow/bank-ledger-be/internal/export"
	"github.com/hongminglow/bank-ledger-be/internal/http/respond"
	"github.com/hongminglow/bank-ledger-be/internal/ledger"
	"github.com/hongminglow/bank-ledger-be/internal/models/dto"
)

// AdminHandler serves the admin panel API. Every route requires the admin role.
type AdminHandler struct {
	accounts *accounts.Service
	ledger   *ledger.Ledger
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(accounts *accounts.Service, ledger *ledger.Ledger) *AdminHandler {
	return &AdminHandler{accounts: accounts, ledger: ledger}
}

// Register attaches admin routes to the mux, each wrapped by adminOnly.
func (h *AdminHandler) Register(mux *http.ServeMux, adminOnly Wrap) {
	routes := map[string]http.HandlerFunc{
		"GET /admin/users":                          h.handleListUsers,
		"POST /admin/users":                         h.handleCreateUser,
		"GET /admin/users/{id}":                     h.handleGetUser,
		"PUT /admin/users/{id}":                     h.handleUpdateUser,
		"DELETE /admin/users/{id}":                  h.handleDeleteUser,
		"GET /admin/users/{id}/transactions":        h.handleListTransactions,
		"GET /admin/users/{id}/transactions/export": h.handleExport,
		"POST /admin/users/{id}/reconcile":          h.handleReconcile,
		"POST /admin/transactions":                  h.handleCreateTransaction,
		"DELETE /admin/transactions/{id}":           h.handleDeleteTransaction,
		"GET /admin/stats":                          h.handleStats,
	}
	for pattern, fn := range routes {
		mux.Handle(pattern, adminOnly(fn))
	}
}

func (h *AdminHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.List(r.Context())
	if err != nil {
		writeError(w, "list users", "", err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.Fields{"users": users})
}

func (h *AdminHandler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	identifier, err := firstIdentifier(req.Identifier, req.CPF)
	if err != nil {
		writeError(w, "create user", "", err)
		return
	}
	in := accounts.NewUser{
		Identifier:    identifier,
		Name:          req.Name,
		Password:      req.Password,
		AccountNumber: req.AccountNumber,
		Role:          req.Role,
	}
	if req.InitialBalance != nil {
		in.InitialBalance = *req.InitialBalance
	}
	user, err := h.accounts.Create(r.Context(), in)
	if err != nil {
		writeError(w, "create user", "user not found", err)
		return
	}
	respond.JSON(w, http.StatusCreated, respond.Fields{"message": "user created", "user": user})
}

func (h *AdminHandler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	identifier, ok := pathIdentifier(w, r)
	if !ok {
		return
	}
	user, err := h.accounts.Get(r.Context(), identifier)
	if err != nil {
		writeError(w, "get user", "user not found", err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.Fields{"user": user})
}

func (h *AdminHandler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	identifier, ok := pathIdentifier(w, r)
	if !ok {
		return
	}
	var req dto.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.accounts.Update(r.Context(), identifier, accounts.Changes{
		Name:          req.Name,
		Password:      req.Password,
		AccountNumber: req.AccountNumber,
		Role:          req.Role,
	})
	if err != nil {
		writeError(w, "update user", "user not found", err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.Fields{"message": "user updated", "user": user})
}

func (h *AdminHandler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	identifier, ok := pathIdentifier(w, r)
	if !ok {
		return
	}
	if principal, ok := auth.PrincipalFrom(r.Context()); ok && principal.Identifier == identifier {
		respond.Error(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}
	if err := h.accounts.Delete(r.Context(), identifier); err != nil {
		writeError(w, "delete user", "user not found", err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.Fields{"message": "user deleted"})
}

func (h *AdminHandler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	identifier, ok := pathIdentifier(w, r)
	if !ok {
		return
	}
	txns, err := h.ledger.ListTransactions(r.Context(), identifier)
	if err != nil {
		writeError(w, "list transactions", "user not found", err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.Fields{"transactions": txns})
}

func (h *AdminHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	identifier, ok := pathIdentifier(w, r)
	if !ok {
		return
	}
	user, err := h.accounts.Get(r.Context(), identifier)
	if err != nil {
		writeError(w, "export", "user not found", err)
		return
	}
	txns, err := h.ledger.ListTransactions(r.Context(), identifier)
	if err != nil {
		writeError(w, "export", "user not found", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteTransactions(&buf, user, txns); err != nil {
		writeError(w, "export", "", err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(user)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *AdminHandler) handleReconcile(w http.ResponseWriter, r *http.Request) {
	identifier, ok := pathIdentifier(w, r)
	if !ok {
		return
	}
	previous, balance, err := h.ledger.Reconcile(r.Context(), identifier)
	if err != nil {
		writeError(w, "reconcile", "user not found", err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.Fields{"reconcile": dto.ReconcileResponse{
		Previous: previous,
		Balance:  balance,
		Drift:    previous.Sub(balance),
	}})
}

func (h *AdminHandler) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	owner, err := firstIdentifier(req.UserIdentifier, req.UserCPF)
	if err != nil {
		writeError(w, "create transaction", "", err)
		return
	}
	if owner == "" {
		respond.Error(w, http.StatusBadRequest, "user_identifier is required")
		return
	}
	txn, user, err := h.ledger.RecordTransaction(r.Context(), owner, entryFrom(req))
	if err != nil {
		writeError(w, "create transaction", "user not found", err)
		return
	}
	respond.JSON(w, http.StatusCreated, respond.Fields{"transaction": txn, "balance": user.Balance})
}

func (h *AdminHandler) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	owner, err := firstIdentifier(q.Get("identifier"), q.Get("userCPF"))
	if err != nil {
		writeError(w, "delete transaction", "", err)
		return
	}
	if owner == "" {
		respond.Error(w, http.StatusBadRequest, "identifier query parameter is required")
		return
	}
	user, err := h.ledger.DeleteTransaction(r.Context(), id, owner)
	if err != nil {
		writeError(w, "delete transaction", "transaction not found", err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.Fields{"message": "transaction deleted", "balance": user.Balance})
}

func (h *AdminHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.accounts.Stats(r.Context())
	if err != nil {
		writeError(w, "stats", "", err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.Fields{"stats": stats})
}
