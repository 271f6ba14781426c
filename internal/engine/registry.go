package engine

import (
	"sync"

	"github.com/nutc-exchange/core/internal/domain"
)

// entry pairs a ticker's OrderBook with the MatchingEngine that owns it.
// Different tickers never share a heap — this was an explicit bug-fix
// over the teacher's single shared book (see DESIGN.md).
type entry struct {
	book   *OrderBook
	engine *MatchingEngine
}

// Registry maps ticker → (OrderBook, MatchingEngine) pair and routes
// inbound orders to the right one, creating pairs lazily on first
// arrival. It is the generalized successor to the teacher's BookManager.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ledger  Ledger
	tickers *domain.TickerRegistry
}

// NewRegistry creates an empty Registry. Every ticker the Registry
// creates a book for is registered in tickers; pre-declared tickers in
// tickers get no book until an order for them is routed.
func NewRegistry(ledger Ledger, tickers *domain.TickerRegistry) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		ledger:  ledger,
		tickers: tickers,
	}
}

// getOrCreate returns the (book, engine) pair for ticker, creating one
// under double-checked locking if it doesn't exist yet (the teacher's
// BookManager.GetOrCreate pattern).
func (r *Registry) getOrCreate(ticker string) *entry {
	r.mu.RLock()
	e, ok := r.entries[ticker]
	r.mu.RUnlock()
	if ok {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok = r.entries[ticker]; ok {
		return e
	}
	book := NewOrderBook(ticker)
	e = &entry{book: book, engine: NewMatchingEngine(ticker, book, r.ledger)}
	r.entries[ticker] = e
	r.tickers.Register(ticker)
	return e
}

// Route delegates order to its ticker's MatchingEngine, holding that
// ticker's book lock for the full duration of the match_order pass —
// the only locking the matching path needs, since distinct tickers
// never contend with each other (spec.md §4.4, §5).
func (r *Registry) Route(order *domain.MarketOrder) ([]domain.Match, []domain.ObUpdate) {
	e := r.getOrCreate(order.Ticker)
	e.book.Lock()
	defer e.book.Unlock()
	return e.engine.MatchOrder(order)
}

// Book returns the OrderBook for ticker, if an order for it has ever
// been routed. Used by the admin HTTP surface.
func (r *Registry) Book(ticker string) (*OrderBook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[ticker]
	if !ok {
		return nil, false
	}
	return e.book, true
}
