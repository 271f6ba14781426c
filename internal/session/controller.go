// Package session drives the exchange's lifecycle state machine
// (spec.md §4.5). The teacher has no equivalent component — a
// single-request-response HTTP service has no session concept — so this
// is built fresh, but in the teacher's idiom: a context.Context-
// cancellable loop shaped like internal/engine/expiry.go's Start(ctx),
// with log/slog structured logging at each transition matching
// cmd/miniexchange/main.go's logging calls.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/nutc-exchange/core/internal/domain"
	"github.com/nutc-exchange/core/internal/engine"
	"github.com/nutc-exchange/core/internal/ledger"
	"github.com/nutc-exchange/core/internal/metrics"
	"github.com/nutc-exchange/core/internal/transport"
)

// State names one node of the session's lifecycle state machine.
type State string

const (
	StateLoading         State = "LOADING"
	StateWaitingForReady State = "WAITING_FOR_READY"
	StateTrading         State = "TRADING"
	StateShuttingDown    State = "SHUTTING_DOWN"
	StateTerminated      State = "TERMINATED"
)

// ErrProtocolViolation is returned by Run when an InitMessage arrives
// during TRADING — spec.md §7 item 3 calls this fatal.
var ErrProtocolViolation = errors.New("session: unexpected InitMessage during TRADING")

// Controller drives LOADING → WAITING_FOR_READY → TRADING →
// SHUTTING_DOWN → TERMINATED for one exchange session.
type Controller struct {
	transport       transport.Transport
	ledger          *ledger.Ledger
	registry        *engine.Registry
	expectedClients int
	logger          *slog.Logger
	metrics         *metrics.Metrics

	state State
	seq   atomic.Uint64
}

// New creates a Controller in state LOADING. The caller is expected to
// have already populated ledger via ledger.AddClient for every
// registered participant before calling Run — that's what LOADING
// means (spec.md §4.5's first transition is conditioned on it).
func New(t transport.Transport, l *ledger.Ledger, r *engine.Registry, expectedClients int, logger *slog.Logger, m *metrics.Metrics) *Controller {
	return &Controller{
		transport:       t,
		ledger:          l,
		registry:        r,
		expectedClients: expectedClients,
		logger:          logger,
		metrics:         m,
		state:           StateLoading,
	}
}

// State reports the controller's current lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// Run executes the full session lifecycle. It blocks until ctx is
// cancelled or a fatal error occurs (an aborted session, per spec.md §7
// items 3 and 6). Cancellation during TRADING is a clean shutdown and
// returns nil; cancellation during the ready phase returns the context
// error and publishes no shutdown notices.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info("session starting", slog.Int("expected_clients", c.expectedClients))

	c.state = StateWaitingForReady
	if err := c.runReadyPhase(ctx); err != nil {
		return fmt.Errorf("ready phase: %w", err)
	}

	c.state = StateTrading
	c.logger.Info("entering trading phase")
	tradingErr := c.runTradingPhase(ctx)

	c.state = StateShuttingDown
	c.logger.Info("shutting down")
	c.publishShutdowns()

	c.state = StateTerminated
	c.logger.Info("session terminated")
	return tradingErr
}

// runReadyPhase consumes exactly expectedClients inbound messages.
// Only successfully-decoded InitMessage and MarketOrder values count
// toward that count — a transport error or a decode failure (RMQError)
// is logged and the same slot is retried, since spec.md §7 classifies
// both uniformly as "logged; session continues", not as a message that
// was "consumed" in the ready-phase sense.
func (c *Controller) runReadyPhase(ctx context.Context) error {
	ready := 0
	for ready < c.expectedClients {
		msg, err := c.transport.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("transport error during ready phase", slog.String("error", err.Error()))
			continue
		}

		switch v := msg.(type) {
		case *transport.InitMessage:
			// The client roster was already populated during LOADING by
			// the client registry loader; an InitMessage for an unknown
			// client_uid is simply ignored by MarkActive.
			if v.Ready {
				c.ledger.MarkActive(v.ClientID)
				c.metrics.ActiveClients.Set(float64(len(c.ledger.ActiveClientIDs())))
			}
			ready++
			c.logger.Info("client ready",
				slog.String("client_id", string(v.ClientID)),
				slog.Bool("ready", v.Ready),
				slog.Int("progress", ready),
				slog.Int("expected", c.expectedClients),
			)

		case *domain.MarketOrder:
			c.logger.Info("market order received before initialization complete, ignoring",
				slog.String("client_id", string(v.ClientID)), slog.String("ticker", v.Ticker))
			ready++

		case *transport.RMQError:
			c.logger.Error("failed to consume message during ready phase", slog.String("error", v.Message))
			// Does not count toward ready; retry the same slot.
		}
	}
	c.logger.Info("all clients ready, starting exchange")
	return nil
}

// runTradingPhase consumes one message at a time until ctx is
// cancelled. An InitMessage is a fatal protocol violation; an RMQError
// is logged and consumption continues; a MarketOrder is assigned an
// arrival sequence number and routed through the Engine Registry.
func (c *Controller) runTradingPhase(ctx context.Context) error {
	for {
		msg, err := c.transport.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("transport error during trading", slog.String("error", err.Error()))
			continue
		}

		switch v := msg.(type) {
		case *transport.InitMessage:
			c.logger.Error("unexpected InitMessage during trading", slog.String("client_id", string(v.ClientID)))
			return ErrProtocolViolation

		case *transport.RMQError:
			c.logger.Error("received RMQError", slog.String("error", v.Message))

		case *domain.MarketOrder:
			v.Seq = c.seq.Add(1)
			c.handleMarketOrder(v)
		}
	}
}

func (c *Controller) handleMarketOrder(order *domain.MarketOrder) {
	c.metrics.OrdersReceived.WithLabelValues(order.Side.String()).Inc()

	matches, updates := c.registry.Route(order)

	if len(matches) == 0 && len(updates) == 0 {
		// MatchOrder books nothing and trades nothing only when the
		// aggressor is rejected: by the pre-trade affordability/inventory
		// check, or by ValidateMatch on its first candidate match (e.g. an
		// inactive seller).
		c.metrics.RejectionsTotal.WithLabelValues("aggressor_insolvent").Inc()
	}

	for _, m := range matches {
		c.metrics.MatchesTotal.WithLabelValues(m.Ticker).Inc()
		if err := c.transport.PublishMatch(m); err != nil {
			c.logger.Error("failed to publish match", slog.String("error", err.Error()))
		}
	}
	for _, u := range updates {
		if err := c.transport.PublishObUpdate(u); err != nil {
			c.logger.Error("failed to publish order book update", slog.String("error", err.Error()))
		}
	}
}

// publishShutdowns delivers a Shutdown notice to every currently-active
// client, mirroring closeConnection's iteration over active clients.
func (c *Controller) publishShutdowns() {
	for _, id := range c.ledger.ActiveClientIDs() {
		c.logger.Info("shutting down client", slog.String("client_id", string(id)))
		if err := c.transport.PublishShutdown(id); err != nil {
			c.logger.Error("failed to publish shutdown", slog.String("client_id", string(id)), slog.String("error", err.Error()))
		}
	}
}
