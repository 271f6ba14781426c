package adminapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nutc-exchange/core/internal/domain"
	"github.com/nutc-exchange/core/internal/engine"
)

// priceLevelResponse is one aggregated price level in a book response.
type priceLevelResponse struct {
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

// bookResponse is the JSON response for GET /tickers/{ticker}/book.
type bookResponse struct {
	Ticker         string               `json:"ticker"`
	Bids           []priceLevelResponse `json:"bids"`
	Asks           []priceLevelResponse `json:"asks"`
	LastTradePrice *float64             `json:"last_trade_price"`
}

const defaultBookDepth = 10

// BookHandler serves order book snapshots, grounded on the teacher's
// StockHandler.GetBook, rebuilt against engine.Registry/engine.OrderBook
// instead of a persisted trade store. It always returns up to
// defaultBookDepth levels per side; it reads no query parameters.
type BookHandler struct {
	registry *engine.Registry
}

// NewBookHandler creates a BookHandler.
func NewBookHandler(registry *engine.Registry) *BookHandler {
	return &BookHandler{registry: registry}
}

// Get handles GET /tickers/{ticker}/book.
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	book, ok := h.registry.Book(ticker)
	if !ok {
		WriteError(w, http.StatusNotFound, "ticker_not_found", "unknown ticker: "+ticker)
		return
	}

	bids := toLevelResponses(book.TopLevels(domain.SideBuy, defaultBookDepth))
	asks := toLevelResponses(book.TopLevels(domain.SideSell, defaultBookDepth))

	resp := bookResponse{Ticker: ticker, Bids: bids, Asks: asks}
	if price, traded := book.LastTradePrice(); traded {
		v := domain.MinorUnitsToFloat(price)
		resp.LastTradePrice = &v
	}
	WriteJSON(w, http.StatusOK, resp)
}

func toLevelResponses(levels []engine.PriceLevel) []priceLevelResponse {
	out := make([]priceLevelResponse, len(levels))
	for i, l := range levels {
		out[i] = priceLevelResponse{Price: domain.MinorUnitsToFloat(l.Price), Quantity: l.Quantity}
	}
	return out
}
