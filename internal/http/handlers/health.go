package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/hongminglow/bank-ledger-be/internal/http/respond"
)

const pingTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports uptime, the storage driver and whether storage answers.
type HealthHandler struct {
	startedAt time.Time
	driver    string
	store     Pinger
}

func NewHealthHandler(startedAt time.Time, driver string, store Pinger) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, driver: driver, store: store}
}

// Register wires the handler into a ServeMux.
func (h *HealthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handle)
}

func (h *HealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		log.Printf("health: storage ping failed: %v", err)
		respond.Error(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	respond.JSON(w, http.StatusOK, respond.Fields{
		"status":  "ok",
		"storage": h.driver,
		"uptime":  time.Since(h.startedAt).Truncate(time.Second).String(),
	})
}
