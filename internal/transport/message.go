// Package transport decodes the three inbound message variants the
// exchange receives over the message bus and publishes outbound
// updates, matches, and shutdown notices. Grounded on
// original_source/src/rabbitmq/rabbitmq.cpp's consumeMessage, which
// synthesizes an RMQError value locally rather than returning a Go-style
// error — a decode failure is a message, not a transport fault.
package transport

import (
	"encoding/json"
	"fmt"

	"github.com/nutc-exchange/core/internal/domain"
)

// InitMessage reports a participant's readiness during the
// WAITING_FOR_READY phase.
type InitMessage struct {
	ClientID domain.ClientID
	Ready    bool
}

// RMQError is synthesized locally whenever an inbound payload cannot be
// decoded into a recognized variant. It is never a Go error value — the
// session controller treats it as the third branch of the inbound sum
// type, per spec.md §6.
type RMQError struct {
	Message string
}

// envelope peeks at an inbound payload's shape without committing to a
// variant. Pointer fields distinguish "absent" from "zero value".
type envelope struct {
	ClientUID *string  `json:"client_uid"`
	Ready     *bool    `json:"ready"`
	Ticker    *string  `json:"ticker"`
	Side      *string  `json:"side"`
	Price     *float64 `json:"price"`
	Quantity  *float64 `json:"quantity"`
}

// Decode inspects raw and returns exactly one of *InitMessage,
// *domain.MarketOrder, or *RMQError. The returned MarketOrder has Seq
// left at its zero value — the session controller assigns the arrival
// sequence number once the message is accepted, since Decode has no
// notion of engine-wide ordering.
func Decode(raw []byte) any {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &RMQError{Message: fmt.Sprintf("failed to decode message: %v", err)}
	}

	switch {
	case env.Ready != nil && env.ClientUID != nil:
		return &InitMessage{ClientID: domain.ClientID(*env.ClientUID), Ready: *env.Ready}

	case env.Ticker != nil && env.ClientUID != nil && env.Side != nil && env.Price != nil && env.Quantity != nil:
		side, err := domain.ParseSide(*env.Side)
		if err != nil {
			return &RMQError{Message: err.Error()}
		}
		price, err := domain.ToMinorUnits(*env.Price)
		if err != nil {
			return &RMQError{Message: fmt.Sprintf("invalid price: %v", err)}
		}
		quantity, err := domain.ToWholeUnits(*env.Quantity)
		if err != nil {
			return &RMQError{Message: fmt.Sprintf("invalid quantity: %v", err)}
		}
		order := &domain.MarketOrder{
			Ticker:   *env.Ticker,
			ClientID: domain.ClientID(*env.ClientUID),
			Side:     side,
			Price:    price,
			Quantity: quantity,
		}
		if err := order.Validate(); err != nil {
			return &RMQError{Message: err.Error()}
		}
		return order

	default:
		return &RMQError{Message: "unrecognized message shape"}
	}
}

// Shutdown is published once per currently-active client when the
// session enters SHUTTING_DOWN.
type Shutdown struct {
	ClientID domain.ClientID `json:"client_uid"`
}

// obUpdateWire and matchWire are the outbound JSON shapes for ObUpdate
// and Match — kept distinct from the domain types so a wire-format
// change never forces a domain-type change.
type obUpdateWire struct {
	Ticker      string  `json:"ticker"`
	Side        string  `json:"side"`
	Price       float64 `json:"price"`
	QuantityNow float64 `json:"quantity_now"`
}

type matchWire struct {
	Ticker        string  `json:"ticker"`
	BuyerUID      string  `json:"buyer_uid"`
	SellerUID     string  `json:"seller_uid"`
	Side          string  `json:"side"`
	Price         float64 `json:"price"`
	Quantity      float64 `json:"quantity"`
}

// EncodeObUpdate renders u in the outbound wire format.
func EncodeObUpdate(u domain.ObUpdate) ([]byte, error) {
	return json.Marshal(obUpdateWire{
		Ticker:      u.Ticker,
		Side:        u.Side.String(),
		Price:       domain.MinorUnitsToFloat(u.Price),
		QuantityNow: float64(u.QuantityNow),
	})
}

// EncodeMatch renders m in the outbound wire format.
func EncodeMatch(m domain.Match) ([]byte, error) {
	return json.Marshal(matchWire{
		Ticker:    m.Ticker,
		BuyerUID:  string(m.BuyerID),
		SellerUID: string(m.SellerID),
		Side:      m.AggressorSide.String(),
		Price:     domain.MinorUnitsToFloat(m.Price),
		Quantity:  float64(m.Quantity),
	})
}

// EncodeShutdown renders s in the outbound wire format.
func EncodeShutdown(s Shutdown) ([]byte, error) {
	return json.Marshal(s)
}
