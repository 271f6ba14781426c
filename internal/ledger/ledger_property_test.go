package ledger

import (
	"testing"

	"github.com/nutc-exchange/core/internal/domain"
	"pgregory.net/rapid"
)

// TestProperty_ApplyConservesTotalCash checks spec.md's invariant I3: a
// settled match never creates or destroys cash, it only moves it from
// buyer to seller.
func TestProperty_ApplyConservesTotalCash(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		buyerCapital := rapid.Int64Range(0, 1_000_000_00).Draw(t, "buyerCapital")
		sellerCapital := rapid.Int64Range(0, 1_000_000_00).Draw(t, "sellerCapital")
		sellerShares := rapid.Int64Range(1, 10_000).Draw(t, "sellerShares")
		price := rapid.Int64Range(1, 1_000_00).Draw(t, "price")
		qty := rapid.Int64Range(1, sellerShares).Draw(t, "qty")

		cost := price * qty
		if cost > buyerCapital {
			t.Skip("buyer cannot afford this match")
		}

		l := New(false)
		l.AddClient("buyer", buyerCapital)
		l.AddClient("seller", sellerCapital)
		l.MarkActive("seller")
		l.clients["seller"].Positions["X"] = sellerShares

		before := buyerCapital + sellerCapital

		m := domain.Match{Ticker: "X", BuyerID: "buyer", SellerID: "seller", AggressorSide: domain.SideBuy, Price: price, Quantity: qty}
		l.Apply(m)

		buyerCap, _ := l.Capital("buyer")
		sellerCap, _ := l.Capital("seller")
		after := buyerCap + sellerCap

		if before != after {
			t.Fatalf("total cash not conserved: before=%d after=%d", before, after)
		}
	})
}

// TestProperty_ApplyConservesTotalShares checks invariant I4: shares move
// from seller to buyer, the sum of both positions in the ticker is fixed.
func TestProperty_ApplyConservesTotalShares(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sellerShares := rapid.Int64Range(1, 10_000).Draw(t, "sellerShares")
		buyerShares := rapid.Int64Range(0, 10_000).Draw(t, "buyerShares")
		qty := rapid.Int64Range(1, sellerShares).Draw(t, "qty")
		price := rapid.Int64Range(1, 1_000_00).Draw(t, "price")

		l := New(false)
		l.AddClient("buyer", 1_000_000_000_00)
		l.AddClient("seller", 0)
		l.MarkActive("seller")
		l.clients["buyer"].Positions["X"] = buyerShares
		l.clients["seller"].Positions["X"] = sellerShares

		totalBefore := buyerShares + sellerShares

		m := domain.Match{Ticker: "X", BuyerID: "buyer", SellerID: "seller", AggressorSide: domain.SideBuy, Price: price, Quantity: qty}
		l.Apply(m)

		totalAfter := l.Position("buyer", "X") + l.Position("seller", "X")
		if totalBefore != totalAfter {
			t.Fatalf("total shares not conserved: before=%d after=%d", totalBefore, totalAfter)
		}
	})
}

// TestProperty_ValidateMatchNeverApprovesInsolventBuyer ensures
// ValidateMatch rejects any match whose cost exceeds the buyer's cash,
// regardless of the seller's state.
func TestProperty_ValidateMatchNeverApprovesInsolventBuyer(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		buyerCapital := rapid.Int64Range(0, 1_000_00).Draw(t, "buyerCapital")
		price := rapid.Int64Range(1, 1_000_00).Draw(t, "price")
		qty := rapid.Int64Range(1, 10_000).Draw(t, "qty")
		sellerShares := rapid.Int64Range(0, 10_000).Draw(t, "sellerShares")

		if price*qty <= buyerCapital {
			t.Skip("buyer can actually afford this")
		}

		l := New(false)
		l.AddClient("buyer", buyerCapital)
		l.AddClient("seller", 0)
		l.MarkActive("seller")
		l.clients["seller"].Positions["X"] = sellerShares

		m := domain.Match{Ticker: "X", BuyerID: "buyer", SellerID: "seller", AggressorSide: domain.SideBuy, Price: price, Quantity: qty}
		side, failed := l.ValidateMatch(m)
		if !failed {
			t.Fatalf("ValidateMatch approved a match the buyer cannot afford (capital=%d, cost=%d)", buyerCapital, price*qty)
		}
		if side != domain.SideBuy && side != m.AggressorSide {
			t.Fatalf("ValidateMatch returned failing side %q, want BUY or the aggressor side", side)
		}
	})
}

// TestProperty_ShortsDisallowedNeverLeavesNegativePosition checks that
// when shortsAllowed is false, Apply never actually lets a seller's
// position go negative — ValidateMatch must have already screened it.
func TestProperty_ShortsDisallowedNeverLeavesNegativePosition(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sellerShares := rapid.Int64Range(0, 10_000).Draw(t, "sellerShares")
		qty := rapid.Int64Range(1, 10_000).Draw(t, "qty")
		price := rapid.Int64Range(1, 1_000_00).Draw(t, "price")

		l := New(false)
		l.AddClient("buyer", 1_000_000_000_00)
		l.AddClient("seller", 0)
		l.MarkActive("seller")
		l.clients["seller"].Positions["X"] = sellerShares

		m := domain.Match{Ticker: "X", BuyerID: "buyer", SellerID: "seller", AggressorSide: domain.SideBuy, Price: price, Quantity: qty}
		_, failed := l.ValidateMatch(m)
		if failed {
			t.Skip("match correctly rejected before reaching Apply")
		}

		l.Apply(m)
		if got := l.Position("seller", "X"); got < 0 {
			t.Fatalf("seller position went negative to %d despite shortsAllowed=false", got)
		}
	})
}
