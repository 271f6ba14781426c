package engine

import (
	"github.com/nutc-exchange/core/internal/domain"
)

// Ledger is the capability set the matching engine consumes, per
// spec.md §9 ("polymorphic-over-operations"): production wires the
// concrete *ledger.Ledger; tests can inject a fake.
type Ledger interface {
	Capital(id domain.ClientID) (int64, bool)
	Position(id domain.ClientID, ticker string) int64
	ShortsAllowed() bool
	ValidateMatch(m domain.Match) (domain.Side, bool)
	Apply(m domain.Match)
}

// MatchingEngine runs the price-time priority matching algorithm for a
// single ticker. It owns no state of its own beyond a reference to the
// ticker's OrderBook and the shared Ledger.
type MatchingEngine struct {
	ticker string
	book   *OrderBook
	ledger Ledger
}

// NewMatchingEngine creates a MatchingEngine for ticker, backed by book
// and ledger.
func NewMatchingEngine(ticker string, book *OrderBook, ledger Ledger) *MatchingEngine {
	return &MatchingEngine{ticker: ticker, book: book, ledger: ledger}
}

// canMatch reports whether a resting order on the opposite side can
// trade against aggressor, per spec.md §4.2's can-match predicate.
func canMatch(opposite *domain.MarketOrder, aggressor *domain.MarketOrder) bool {
	if aggressor.Side == domain.SideBuy {
		return aggressor.Price >= opposite.Price
	}
	return aggressor.Price <= opposite.Price
}

// buyerSeller assigns buyer/seller client IDs for a trade between
// passive and aggressor, based on which one is the buy side.
func buyerSeller(passive, aggressor *domain.MarketOrder) (buyer, seller domain.ClientID) {
	if passive.Side == domain.SideBuy {
		return passive.ClientID, aggressor.ClientID
	}
	return aggressor.ClientID, passive.ClientID
}

// MatchOrder runs the matching loop for aggressor against this ticker's
// book and returns every match and order-book update produced, in the
// order they occurred (spec.md §4.3). The caller must hold the book's
// lock for the duration of the call — the session controller does this
// once per consumed message, matching spec.md §5's single-threaded
// cooperative model.
func (e *MatchingEngine) MatchOrder(aggressor *domain.MarketOrder) (matches []domain.Match, updates []domain.ObUpdate) {
	// Step 1: pre-trade aggressor affordability/inventory check.
	if aggressor.Side == domain.SideBuy {
		capital, _ := e.ledger.Capital(aggressor.ClientID)
		if aggressor.Price*aggressor.Quantity > capital {
			return nil, nil
		}
	} else if !e.ledger.ShortsAllowed() {
		if e.ledger.Position(aggressor.ClientID, e.ticker) < aggressor.Quantity {
			return nil, nil
		}
	}

	opposite := aggressor.Side.Opposite()

	// Step 2: no-cross fast path.
	top, ok := e.book.Peek(opposite)
	if !ok || !canMatch(top, aggressor) {
		e.book.Push(aggressor)
		updates = append(updates, domain.ObUpdate{
			Ticker:      e.ticker,
			Side:        aggressor.Side,
			Price:       aggressor.Price,
			QuantityNow: aggressor.Quantity,
		})
		return matches, updates
	}

	// Step 3: matching loop.
	for {
		top, ok := e.book.Peek(opposite)
		if !ok || !canMatch(top, aggressor) {
			break
		}

		passive, _ := e.book.Pop(opposite)

		qty := passive.Quantity
		if aggressor.Quantity < qty {
			qty = aggressor.Quantity
		}
		price := passive.Price

		buyer, seller := buyerSeller(passive, aggressor)
		m := domain.Match{
			Ticker:        e.ticker,
			BuyerID:       buyer,
			SellerID:      seller,
			AggressorSide: aggressor.Side,
			Price:         price,
			Quantity:      qty,
		}

		failingSide, rejected := e.ledger.ValidateMatch(m)
		if rejected && failingSide == aggressor.Side {
			// The aggressor cannot continue. The already-popped passive
			// is intentionally not rebooked here — this mirrors the
			// original engine's control flow and is confirmed, not a
			// bug: see the Open Question resolution for this behavior.
			return matches, updates
		}
		if rejected {
			// Passive is stale: its owner can no longer deliver/pay.
			// Drop it permanently and continue to the next top.
			continue
		}

		e.ledger.Apply(m)
		e.book.RecordTrade(price)
		matches = append(matches, m)
		updates = append(updates, domain.ObUpdate{
			Ticker:      e.ticker,
			Side:        passive.Side,
			Price:       passive.Price,
			QuantityNow: 0,
		})

		aggressor.Quantity -= qty
		passive.Quantity -= qty

		if passive.Quantity > 0 {
			// Rebook with the original seq, preserving time priority.
			e.book.Push(passive)
			updates = append(updates, domain.ObUpdate{
				Ticker:      e.ticker,
				Side:        passive.Side,
				Price:       passive.Price,
				QuantityNow: passive.Quantity,
			})
			return matches, updates
		}
		if aggressor.Quantity == 0 {
			return matches, updates
		}
		// Else: loop, consuming the next top of the opposite side.
	}

	// Step 4: residual booking.
	if aggressor.Quantity > 0 {
		e.book.Push(aggressor)
		updates = append(updates, domain.ObUpdate{
			Ticker:      e.ticker,
			Side:        aggressor.Side,
			Price:       aggressor.Price,
			QuantityNow: aggressor.Quantity,
		})
	}
	return matches, updates
}
