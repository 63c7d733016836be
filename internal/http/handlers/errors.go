package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/hongminglow/bank-ledger-be/internal/accounts"
	"github.com/hongminglow/bank-ledger-be/internal/auth"
	"github.com/hongminglow/bank-ledger-be/internal/http/respond"
	"github.com/hongminglow/bank-ledger-be/internal/ledger"
	"github.com/hongminglow/bank-ledger-be/internal/models"
	"github.com/hongminglow/bank-ledger-be/internal/models/dto"
	"github.com/hongminglow/bank-ledger-be/internal/storage"
)

const maxBodyBytes = 1 << 20

// errInvalidIdentifier rejects identifier input that holds no digits.
var errInvalidIdentifier = errors.New("identifier must contain digits")

// Wrap decorates a route handler, e.g. with authentication.
type Wrap func(http.Handler) http.Handler

// writeError maps service errors to statuses. Anything unexpected is logged
// and reported as a generic 500.
func writeError(w http.ResponseWriter, op, notFound string, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation), errors.Is(err, accounts.ErrValidation), errors.Is(err, errInvalidIdentifier):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		respond.Error(w, http.StatusUnauthorized, "invalid identifier or password")
	case errors.Is(err, auth.ErrUnauthorized):
		respond.Error(w, http.StatusUnauthorized, "invalid or expired session")
	case errors.Is(err, auth.ErrForbidden):
		respond.Error(w, http.StatusForbidden, "access denied")
	case errors.Is(err, storage.ErrNotFound):
		respond.Error(w, http.StatusNotFound, notFound)
	case errors.Is(err, storage.ErrAlreadyExists):
		respond.Error(w, http.StatusConflict, "identifier already registered")
	default:
		log.Printf("%s error: %v", op, err)
		respond.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, http.StatusBadRequest, "invalid transaction id")
		return 0, false
	}
	return id, true
}

// firstIdentifier returns the first non-empty candidate, normalized. It is ""
// when every candidate is blank and errInvalidIdentifier when the candidate
// normalizes to nothing.
func firstIdentifier(candidates ...string) (string, error) {
	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		if id := models.NormalizeIdentifier(c); id != "" {
			return id, nil
		}
		return "", errInvalidIdentifier
	}
	return "", nil
}

// pathIdentifier reads the {id} path segment as a user identifier.
func pathIdentifier(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := firstIdentifier(r.PathValue("id"))
	if err != nil || id == "" {
		respond.Error(w, http.StatusBadRequest, errInvalidIdentifier.Error())
		return "", false
	}
	return id, true
}

// target resolves the account a /user request acts on. It defaults to the
// caller; naming another account requires the admin role.
func target(r *http.Request) (string, error) {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		return "", auth.ErrUnauthorized
	}
	q := r.URL.Query()
	identifier, err := firstIdentifier(q.Get("identifier"), q.Get("cpf"))
	if err != nil {
		return "", err
	}
	if identifier == "" || identifier == principal.Identifier {
		return principal.Identifier, nil
	}
	if !principal.IsAdmin() {
		return "", auth.ErrForbidden
	}
	return identifier, nil
}

func entryFrom(req dto.CreateTransactionRequest) ledger.Entry {
	return ledger.Entry{
		Kind:   strings.TrimSpace(req.Type),
		Title:  req.Title,
		Amount: req.Amount,
		Date:   req.Date,
		Icon:   req.Icon,
	}
}
