package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// LedgerCounter is the minimal interface the stats endpoint requires from
// the verified-identity ledger.
type LedgerCounter interface {
	Count(ctx context.Context) (int, error)
}

// VerifiedHandler exposes a read-only operator view of the ledger.
type VerifiedHandler struct {
	ledger LedgerCounter
}

func NewVerifiedHandler(ledger LedgerCounter) *VerifiedHandler {
	return &VerifiedHandler{ledger: ledger}
}

func (h *VerifiedHandler) Get(w http.ResponseWriter, r *http.Request) {
	n, err := h.ledger.Count(r.Context())
	if err != nil {
		slog.Error("ledger count failed", "err", err)
		writeError(w, http.StatusInternalServerError, "ledger unavailable")
		return
	}
	writeJSON(w, http.StatusOK, VerifiedEnvelope{Count: n})
}
