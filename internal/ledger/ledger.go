// Package ledger is the single source of truth for participant solvency
// and inventory (spec.md §4.1). It authorizes trades but never decides
// whether to attempt one — that's the matching engine's job.
package ledger

import (
	"fmt"
	"sync"

	"github.com/nutc-exchange/core/internal/domain"
)

// Ledger tracks cash and per-ticker inventory for every client in a
// session. It is safe for concurrent use: the matching engine mutates it
// from the single session goroutine, while the admin HTTP surface only
// ever takes its read lock.
type Ledger struct {
	mu            sync.RWMutex
	clients       map[domain.ClientID]*domain.Client
	shortsAllowed bool
}

// New creates an empty Ledger. When shortsAllowed is false, sellers must
// hold sufficient inventory before a sale is authorized.
func New(shortsAllowed bool) *Ledger {
	return &Ledger{
		clients:       make(map[domain.ClientID]*domain.Client),
		shortsAllowed: shortsAllowed,
	}
}

// AddClient inserts a new client with capital = startingCapital, empty
// positions, and active = false. Idempotent — a second call for the same
// id is a no-op.
func (l *Ledger) AddClient(id domain.ClientID, startingCapital int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.clients[id]; exists {
		return
	}
	l.clients[id] = domain.NewClient(id, startingCapital)
}

// Seed inserts or overwrites a client with a fully-formed state,
// bypassing AddClient's zeroed defaults. Used by tests to set up clients
// with pre-existing positions.
func (l *Ledger) Seed(c *domain.Client) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clients[c.ID] = c
}

// MarkActive sets active = true. Fails silently if id is unknown, per
// spec.md §4.1.
func (l *Ledger) MarkActive(id domain.ClientID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.clients[id]; ok {
		c.Active = true
	}
}

// Capital returns the client's current cash balance.
func (l *Ledger) Capital(id domain.ClientID) (int64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.clients[id]
	if !ok {
		return 0, false
	}
	return c.Capital, true
}

// Position returns the client's current holding in ticker.
func (l *Ledger) Position(id domain.ClientID, ticker string) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.clients[id]
	if !ok {
		return 0
	}
	return c.Position(ticker)
}

// ShortsAllowed reports whether this ledger was configured to permit
// sellers to go short.
func (l *Ledger) ShortsAllowed() bool {
	return l.shortsAllowed
}

// IsActive reports whether id has been marked active.
func (l *Ledger) IsActive(id domain.ClientID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.clients[id]
	return ok && c.Active
}

// ActiveClientIDs returns every client currently marked active, for the
// session controller's shutdown broadcast (spec.md §4.5).
func (l *Ledger) ActiveClientIDs() []domain.ClientID {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.ClientID, 0, len(l.clients))
	for id, c := range l.clients {
		if c.Active {
			out = append(out, id)
		}
	}
	return out
}

// ValidateMatch checks whether both sides of a candidate match can
// execute. It returns (side, true) naming the side that cannot, or
// ("", false) if both sides are solvent. This method is pure and
// observational — it never mutates ledger state (spec.md §4.1).
//
// If both sides fail, the aggressor's side is returned so the matching
// engine aborts the whole aggressor rather than silently evicting the
// passive for a failure that wasn't its fault.
func (l *Ledger) ValidateMatch(m domain.Match) (domain.Side, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	buyer := l.clients[m.BuyerID]
	seller := l.clients[m.SellerID]

	buyerFails := buyer == nil || buyer.Capital < m.Price*m.Quantity
	sellerFails := seller == nil || !seller.Active ||
		(!l.shortsAllowed && seller.Position(m.Ticker) < m.Quantity)

	switch {
	case buyerFails && sellerFails:
		return m.AggressorSide, true
	case buyerFails:
		return domain.SideBuy, true
	case sellerFails:
		return domain.SideSell, true
	default:
		return "", false
	}
}

// Apply atomically settles a match: the buyer's cash decreases and
// position increases; the seller's cash increases and position
// decreases. The caller must only call Apply after a successful
// ValidateMatch. If the settlement would violate capital or (shorts-off)
// position non-negativity, Apply panics — per spec.md §4.1 this is an
// internal invariant bug, not a recoverable condition, and the session
// must abort rather than continue with corrupt state.
func (l *Ledger) Apply(m domain.Match) {
	l.mu.Lock()
	defer l.mu.Unlock()

	buyer, ok := l.clients[m.BuyerID]
	if !ok {
		panic(fmt.Sprintf("ledger: apply referenced unknown buyer %q", m.BuyerID))
	}
	seller, ok := l.clients[m.SellerID]
	if !ok {
		panic(fmt.Sprintf("ledger: apply referenced unknown seller %q", m.SellerID))
	}

	cost := m.Price * m.Quantity

	buyer.Capital -= cost
	buyer.Positions[m.Ticker] += m.Quantity

	seller.Capital += cost
	seller.Positions[m.Ticker] -= m.Quantity

	if buyer.Capital < 0 {
		panic(fmt.Sprintf("ledger: invariant violation, buyer %q capital went negative", buyer.ID))
	}
	if !l.shortsAllowed && seller.Positions[m.Ticker] < 0 {
		panic(fmt.Sprintf("ledger: invariant violation, seller %q position in %q went negative", seller.ID, m.Ticker))
	}
}

// Snapshot returns a read-only copy of a client's state, for the admin
// HTTP surface.
func (l *Ledger) Snapshot(id domain.ClientID) (domain.ClientSnapshot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	c, ok := l.clients[id]
	if !ok {
		return domain.ClientSnapshot{}, false
	}
	positions := make(map[string]int64, len(c.Positions))
	for t, q := range c.Positions {
		positions[t] = q
	}
	return domain.ClientSnapshot{
		ID:        c.ID,
		Active:    c.Active,
		Capital:   c.Capital,
		Positions: positions,
	}, true
}
