package adminapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nutc-exchange/core/internal/domain"
	"github.com/nutc-exchange/core/internal/ledger"
)

// clientResponse is the JSON response for GET /clients/{client_id}.
type clientResponse struct {
	ClientID  string           `json:"client_id"`
	Active    bool             `json:"active"`
	Capital   float64          `json:"capital"`
	Positions map[string]int64 `json:"positions"`
}

// ClientHandler serves per-client ledger snapshots, grounded on the
// teacher's BrokerHandler.GetBalance.
type ClientHandler struct {
	ledger *ledger.Ledger
}

// NewClientHandler creates a ClientHandler.
func NewClientHandler(l *ledger.Ledger) *ClientHandler {
	return &ClientHandler{ledger: l}
}

// Get handles GET /clients/{client_id}.
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := domain.ClientID(chi.URLParam(r, "client_id"))

	snap, ok := h.ledger.Snapshot(id)
	if !ok {
		WriteError(w, http.StatusNotFound, "client_not_found", "unknown client: "+string(id))
		return
	}

	WriteJSON(w, http.StatusOK, clientResponse{
		ClientID:  string(snap.ID),
		Active:    snap.Active,
		Capital:   domain.MinorUnitsToFloat(snap.Capital),
		Positions: snap.Positions,
	})
}
