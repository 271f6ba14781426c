package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nutc-exchange/core/internal/domain"
	"github.com/nutc-exchange/core/internal/engine"
	"github.com/nutc-exchange/core/internal/ledger"
	"github.com/nutc-exchange/core/internal/metrics"
	"github.com/nutc-exchange/core/internal/transport"
)

// fakeTransport replays a fixed script of inbound messages and records
// every outbound publish, for deterministic session-controller tests.
type fakeTransport struct {
	mu      sync.Mutex
	inbound []any // *transport.InitMessage | *domain.MarketOrder | *transport.RMQError | error
	pos     int

	updates   []domain.ObUpdate
	matches   []domain.Match
	shutdowns []domain.ClientID
}

func (f *fakeTransport) Recv(ctx context.Context) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos >= len(f.inbound) {
		// Exhausted script: block until the test cancels ctx.
		f.mu.Unlock()
		<-ctx.Done()
		f.mu.Lock()
		return nil, ctx.Err()
	}
	item := f.inbound[f.pos]
	f.pos++
	if err, ok := item.(error); ok {
		return nil, err
	}
	return item, nil
}

func (f *fakeTransport) PublishObUpdate(u domain.ObUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	return nil
}

func (f *fakeTransport) PublishMatch(m domain.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches = append(f.matches, m)
	return nil
}

func (f *fakeTransport) PublishShutdown(id domain.ClientID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns = append(f.shutdowns, id)
	return nil
}

func (f *fakeTransport) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(ft *fakeTransport, expected int) (*Controller, *ledger.Ledger) {
	l := ledger.New(false)
	l.AddClient("A", 1000_00)
	l.AddClient("B", 1000_00)
	reg := engine.NewRegistry(l, domain.NewTickerRegistry(nil))
	c := New(ft, l, reg, expected, testLogger(), metrics.NewUnregistered())
	return c, l
}

func TestController_ReadyPhaseMarksClientsActive(t *testing.T) {
	ft := &fakeTransport{inbound: []any{
		&transport.InitMessage{ClientID: "A", Ready: true},
		&transport.InitMessage{ClientID: "B", Ready: false},
	}}
	c, l := newTestController(ft, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	if !l.IsActive("A") {
		t.Error("expected A to be marked active")
	}
	if l.IsActive("B") {
		t.Error("expected B to remain inactive (ready=false)")
	}
	cancel()
	<-done
}

func TestController_ReadyPhaseRMQErrorDoesNotCount(t *testing.T) {
	ft := &fakeTransport{inbound: []any{
		&transport.RMQError{Message: "boom"},
		&transport.InitMessage{ClientID: "A", Ready: true},
		&transport.InitMessage{ClientID: "B", Ready: true},
	}}
	c, l := newTestController(ft, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	if !l.IsActive("A") || !l.IsActive("B") {
		t.Error("expected both A and B active despite the leading RMQError")
	}
	cancel()
	<-done
}

func TestController_TradingPhaseRoutesOrders(t *testing.T) {
	ft := &fakeTransport{inbound: []any{
		&transport.InitMessage{ClientID: "A", Ready: true},
		&transport.InitMessage{ClientID: "B", Ready: true},
		&domain.MarketOrder{Ticker: "X", ClientID: "A", Side: domain.SideBuy, Price: 10_00, Quantity: 5},
	}}
	c, _ := newTestController(ft, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	<-done

	ft.mu.Lock()
	defer ft.mu.Unlock()
	if len(ft.updates) != 1 {
		t.Fatalf("got %d updates, want 1 (the resting bid)", len(ft.updates))
	}
}

func TestController_TradingPhaseInitMessageIsFatal(t *testing.T) {
	ft := &fakeTransport{inbound: []any{
		&transport.InitMessage{ClientID: "A", Ready: true},
		&transport.InitMessage{ClientID: "B", Ready: true},
		&transport.InitMessage{ClientID: "A", Ready: true}, // unexpected during TRADING
	}}
	c, _ := newTestController(ft, 2)

	err := c.Run(context.Background())
	if err == nil {
		t.Fatal("expected Run to return an error on an InitMessage during TRADING")
	}
}

func TestController_ShutdownPublishesOnlyActiveClients(t *testing.T) {
	ft := &fakeTransport{inbound: []any{
		&transport.InitMessage{ClientID: "A", Ready: true},
		&transport.InitMessage{ClientID: "B", Ready: false},
	}}
	c, _ := newTestController(ft, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	ft.mu.Lock()
	defer ft.mu.Unlock()
	if len(ft.shutdowns) != 1 || ft.shutdowns[0] != "A" {
		t.Fatalf("shutdowns = %+v, want exactly [A]", ft.shutdowns)
	}
}
