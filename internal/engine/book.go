package engine

import (
	"sync"

	"github.com/google/btree"

	"github.com/nutc-exchange/core/internal/domain"
)

// bookEntry is the value stored in each side's B-tree. It carries enough
// of the order to order it without a second lookup.
type bookEntry struct {
	price int64
	seq   uint64
	order *domain.MarketOrder
}

// PriceLevel is an aggregated view of one price on one side, for the
// admin HTTP surface.
type PriceLevel struct {
	Price    int64
	Quantity int64
}

// bidLess orders the bid side: price descending, then seq ascending, so
// Min() returns the best bid — highest price, earliest arrival.
func bidLess(a, b bookEntry) bool {
	if a.price != b.price {
		return a.price > b.price
	}
	return a.seq < b.seq
}

// askLess orders the ask side: price ascending, then seq ascending, so
// Min() returns the best ask — lowest price, earliest arrival.
func askLess(a, b bookEntry) bool {
	if a.price != b.price {
		return a.price < b.price
	}
	return a.seq < b.seq
}

// OrderBook holds the resting bid and ask sides for a single ticker.
// Ties within a side and price are broken by seq, not wall-clock time —
// sequence numbers come from one session-wide counter and never
// collide, unlike timestamps (spec.md §4.2).
type OrderBook struct {
	ticker string

	mu   sync.RWMutex
	bids *btree.BTreeG[bookEntry]
	asks *btree.BTreeG[bookEntry]

	hasTraded      bool
	lastTradePrice int64
}

// NewOrderBook creates an empty order book for ticker.
func NewOrderBook(ticker string) *OrderBook {
	const degree = 32
	return &OrderBook{
		ticker: ticker,
		bids:   btree.NewG[bookEntry](degree, bidLess),
		asks:   btree.NewG[bookEntry](degree, askLess),
	}
}

func (b *OrderBook) treeFor(side domain.Side) *btree.BTreeG[bookEntry] {
	if side == domain.SideBuy {
		return b.bids
	}
	return b.asks
}

// Push inserts order on the side named by order.Side. The caller holds
// the book's lock for the duration of a full match_order pass, so Push
// itself takes no lock.
func (b *OrderBook) Push(order *domain.MarketOrder) {
	entry := bookEntry{price: order.Price, seq: order.Seq, order: order}
	b.treeFor(order.Side).ReplaceOrInsert(entry)
}

// Peek returns the top-priority resting order on side, without removing
// it.
func (b *OrderBook) Peek(side domain.Side) (*domain.MarketOrder, bool) {
	entry, ok := b.treeFor(side).Min()
	if !ok {
		return nil, false
	}
	return entry.order, true
}

// Pop removes and returns the top-priority resting order on side.
func (b *OrderBook) Pop(side domain.Side) (*domain.MarketOrder, bool) {
	tree := b.treeFor(side)
	entry, ok := tree.Min()
	if !ok {
		return nil, false
	}
	tree.Delete(entry)
	return entry.order, true
}

// Len reports the number of resting orders on side.
func (b *OrderBook) Len(side domain.Side) int {
	return b.treeFor(side).Len()
}

// Lock and Unlock expose the book's write lock so the MatchingEngine can
// hold it across an entire match_order pass (spec.md §5: the engine
// processes one order to completion before the next is consumed).
func (b *OrderBook) Lock()   { b.mu.Lock() }
func (b *OrderBook) Unlock() { b.mu.Unlock() }

// RLock and RUnlock expose the book's read lock for the admin HTTP
// surface's snapshot reads.
func (b *OrderBook) RLock()   { b.mu.RLock() }
func (b *OrderBook) RUnlock() { b.mu.RUnlock() }

// RecordTrade updates the ticker's last-trade price. This is additive
// bookkeeping, not part of spec.md's core matching algorithm — see
// SPEC_FULL.md's supplemented features.
func (b *OrderBook) RecordTrade(price int64) {
	b.hasTraded = true
	b.lastTradePrice = price
}

// LastTradePrice returns the most recent trade price on this ticker, if
// any trade has occurred. Takes the read lock: unlike RecordTrade, callers
// outside the session goroutine (the admin HTTP surface) read this
// concurrently with the matching loop's writes.
func (b *OrderBook) LastTradePrice() (int64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastTradePrice, b.hasTraded
}

// TopLevels returns up to n aggregated price levels from side, best
// price first.
func (b *OrderBook) TopLevels(side domain.Side, n int) []PriceLevel {
	if n <= 0 {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	levels := make([]PriceLevel, 0, n)
	b.treeFor(side).Ascend(func(e bookEntry) bool {
		if len(levels) > 0 && levels[len(levels)-1].Price == e.price {
			levels[len(levels)-1].Quantity += e.order.Quantity
			return true
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{Price: e.price, Quantity: e.order.Quantity})
		return true
	})
	return levels
}
