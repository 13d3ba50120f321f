package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
	apperrors "github.com/tronwatch/tronwatch_service/internal/domain/errors"
	"github.com/tronwatch/tronwatch_service/internal/domain/services/keyalloc"
)

func testPollingConfig() Config {
	return Config{
		Strategy:       StrategyPolling,
		PollInterval:   time.Hour,
		WalletDelay:    time.Millisecond,
		RequestTimeout: time.Second,
		PageSize:       20,
		StopTimeout:    time.Second,
	}
}

func newTestPolling(lister *MockLister, state StateStore, wallets ...entities.Wallet) *PollingSource {
	return NewPollingSource(testPollingConfig(), Deps{
		Lister:  lister,
		State:   state,
		Keys:    keyalloc.New([]string{"key-1", "key-2"}),
		Wallets: wallets,
		Logger:  zap.NewNop(),
	})
}

func nextEvent(t *testing.T, ch <-chan entities.MonitorEvent) entities.MonitorEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return entities.MonitorEvent{}
	}
}

func TestPollingSource_EmitsNewTransfersOldestFirst(t *testing.T) {
	lister := NewMockLister()
	lister.pages[walletA] = []entities.RawTransfer{
		transfer("tx120", outside, walletA, 120),
		transfer("tx110", walletA, outside, 110),
		transfer("tx90", outside, walletA, 90),
	}
	state := NewMockState()
	state.marks["tjrabprwbzy45sbavfcjinpjc18kjprtv8"] = 100

	src := newTestPolling(lister, state, entities.Wallet{Address: walletA, Name: "Treasury"})
	events, cancel := src.Subscribe(16)
	defer cancel()

	require.NoError(t, src.Start(context.Background()))

	assert.Equal(t, entities.EventConnected, nextEvent(t, events).Type)

	first := nextEvent(t, events)
	require.Equal(t, entities.EventTransaction, first.Type)
	assert.Equal(t, "tx110", first.Transfer.Hash)
	assert.Equal(t, entities.DirectionOut, first.Transfer.Direction)
	assert.Equal(t, "Treasury", first.Transfer.From.Name)

	second := nextEvent(t, events)
	require.Equal(t, entities.EventTransaction, second.Type)
	assert.Equal(t, "tx120", second.Transfer.Hash)
	assert.Equal(t, entities.DirectionIn, second.Transfer.Direction)
	assert.Equal(t, "1.000000", second.Transfer.Amount)

	require.Eventually(t, func() bool { return state.MarkSaves() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, map[string]int64{"tjrabprwbzy45sbavfcjinpjc18kjprtv8": 120}, state.LastMarks())
	assert.Equal(t, int64(120), src.Watermark(walletA))

	require.NoError(t, src.Stop(context.Background()))
	assert.Equal(t, entities.EventDisconnected, nextEvent(t, events).Type)
}

func TestPollingSource_WatermarkUsesWholePage(t *testing.T) {
	lister := NewMockLister()
	// server-side reordering: the newest entry is not first
	lister.pages[walletA] = []entities.RawTransfer{
		transfer("tx105", outside, walletA, 105),
		transfer("tx130", outside, walletA, 130),
		transfer("", outside, walletA, 140),
	}
	state := NewMockState()
	state.marks["tjrabprwbzy45sbavfcjinpjc18kjprtv8"] = 100

	src := newTestPolling(lister, state, entities.Wallet{Address: walletA})
	events, cancel := src.Subscribe(16)
	defer cancel()
	require.NoError(t, src.Start(context.Background()))
	defer src.Stop(context.Background())

	nextEvent(t, events)
	assert.Equal(t, "tx105", nextEvent(t, events).Transfer.Hash)
	assert.Equal(t, "tx130", nextEvent(t, events).Transfer.Hash)

	require.Eventually(t, func() bool { return state.MarkSaves() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(140), src.Watermark(walletA))
}

func TestPollingSource_WalletFailureDoesNotAbortSweep(t *testing.T) {
	lister := NewMockLister()
	lister.errs[walletA] = apperrors.ErrTimeout
	lister.pages[walletB] = []entities.RawTransfer{transfer("txB", outside, walletB, 500)}
	state := NewMockState()

	src := newTestPolling(lister, state, entities.Wallet{Address: walletA}, entities.Wallet{Address: walletB})
	events, cancel := src.Subscribe(16)
	defer cancel()
	require.NoError(t, src.Start(context.Background()))
	defer src.Stop(context.Background())

	assert.Equal(t, entities.EventConnected, nextEvent(t, events).Type)
	errEv := nextEvent(t, events)
	assert.Equal(t, entities.EventError, errEv.Type)
	assert.Contains(t, errEv.Error, walletA)

	txEv := nextEvent(t, events)
	require.Equal(t, entities.EventTransaction, txEv.Type)
	assert.Equal(t, "txB", txEv.Transfer.Hash)

	assert.Equal(t, []string{walletA, walletB}, lister.Calls())
	require.Eventually(t, func() bool { return state.MarkSaves() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPollingSource_NoSaveWithoutNewTransfers(t *testing.T) {
	lister := NewMockLister()
	lister.pages[walletA] = []entities.RawTransfer{transfer("old", outside, walletA, 50)}
	state := NewMockState()
	state.marks["tjrabprwbzy45sbavfcjinpjc18kjprtv8"] = 100

	src := newTestPolling(lister, state, entities.Wallet{Address: walletA})
	events, cancel := src.Subscribe(16)
	defer cancel()
	require.NoError(t, src.Start(context.Background()))

	nextEvent(t, events)
	require.Eventually(t, func() bool { return len(lister.Calls()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, state.MarkSaves())

	// stop always flushes
	require.NoError(t, src.Stop(context.Background()))
	assert.Equal(t, 1, state.MarkSaves())
	assert.Equal(t, int64(100), src.Watermark(walletA))
}

func TestPollingSource_PersistenceFailureIsNotFatal(t *testing.T) {
	lister := NewMockLister()
	lister.pages[walletA] = []entities.RawTransfer{transfer("tx1", outside, walletA, 10)}
	state := NewMockState()
	state.saveErr = errors.New("disk full")

	src := newTestPolling(lister, state, entities.Wallet{Address: walletA})
	events, cancel := src.Subscribe(16)
	defer cancel()
	require.NoError(t, src.Start(context.Background()))

	nextEvent(t, events)
	assert.Equal(t, "tx1", nextEvent(t, events).Transfer.Hash)
	require.Eventually(t, func() bool { return state.MarkSaves() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, src.Status().Running)

	require.NoError(t, src.Stop(context.Background()))
}

func TestPollingSource_StartIsIdempotent(t *testing.T) {
	src := newTestPolling(NewMockLister(), NewMockState(), entities.Wallet{Address: walletA})
	events, cancel := src.Subscribe(16)
	defer cancel()

	require.NoError(t, src.Start(context.Background()))
	require.NoError(t, src.Start(context.Background()))

	assert.Equal(t, entities.EventConnected, nextEvent(t, events).Type)

	status := src.Status()
	assert.True(t, status.Running)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, status.WalletCount)
	assert.Equal(t, 2, status.CredentialCount)
	assert.Equal(t, StrategyPolling, status.Strategy)

	require.NoError(t, src.Stop(context.Background()))
	assert.Equal(t, entities.EventDisconnected, nextEvent(t, events).Type)
	assert.False(t, src.Status().Running)

	// stopping twice is a no-op
	require.NoError(t, src.Stop(context.Background()))
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %s", ev.Type)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPollingSource_UpdatesApplyToNextSweep(t *testing.T) {
	lister := NewMockLister()
	cfg := testPollingConfig()
	cfg.PollInterval = 20 * time.Millisecond
	src := NewPollingSource(cfg, Deps{
		Lister:  lister,
		Keys:    keyalloc.New([]string{"old"}),
		Wallets: []entities.Wallet{{Address: walletA}},
		Logger:  zap.NewNop(),
	})
	require.NoError(t, src.Start(context.Background()))
	defer src.Stop(context.Background())

	require.Eventually(t, func() bool { return len(lister.Calls()) >= 1 }, time.Second, 5*time.Millisecond)

	src.UpdateWallets([]entities.Wallet{{Address: walletB}})
	src.UpdateKeys([]string{"new-1", "new-2"})

	require.Eventually(t, func() bool {
		lister.mu.Lock()
		defer lister.mu.Unlock()
		return len(lister.calls) > 0 && lister.calls[len(lister.calls)-1] == walletB
	}, time.Second, 5*time.Millisecond)

	lister.mu.Lock()
	lastKey := lister.keys[len(lister.keys)-1]
	lister.mu.Unlock()
	assert.Contains(t, []string{"new-1", "new-2"}, lastKey)
	assert.Equal(t, 2, src.Status().CredentialCount)
}

func TestPollingSource_RotatesKeysAcrossWallets(t *testing.T) {
	lister := NewMockLister()
	src := newTestPolling(lister, nil,
		entities.Wallet{Address: walletA},
		entities.Wallet{Address: walletB},
		entities.Wallet{Address: outside},
	)
	require.NoError(t, src.Start(context.Background()))
	require.Eventually(t, func() bool { return len(lister.Calls()) == 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, src.Stop(context.Background()))

	assert.Equal(t, []string{"key-1", "key-2", "key-1"}, lister.keys)
	assert.Equal(t, []int{20, 20, 20}, lister.limits)
}

// gatedLister blocks every request until release is closed
type gatedLister struct {
	page    []entities.RawTransfer
	entered chan struct{}
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (g *gatedLister) ListTransfers(ctx context.Context, address string, limit int, apiKey string) ([]entities.RawTransfer, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	return append([]entities.RawTransfer(nil), g.page...), nil
}

func (g *gatedLister) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestPollingSource_StopLetsInFlightRequestFinish(t *testing.T) {
	lister := &gatedLister{
		page:    []entities.RawTransfer{transfer("tx500", outside, walletA, 500)},
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	state := NewMockState()

	cfg := testPollingConfig()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.StopTimeout = 2 * time.Second
	src := NewPollingSource(cfg, Deps{
		Lister:  lister,
		State:   state,
		Keys:    keyalloc.New([]string{"key-1"}),
		Wallets: []entities.Wallet{{Address: walletA}},
		Logger:  zap.NewNop(),
	})
	events, cancel := src.Subscribe(16)
	defer cancel()

	require.NoError(t, src.Start(context.Background()))
	select {
	case <-lister.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("request never started")
	}

	stopped := make(chan error, 1)
	go func() { stopped <- src.Stop(context.Background()) }()
	require.Eventually(t, func() bool { return !src.Status().Running }, time.Second, time.Millisecond)

	close(lister.release)
	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("stop did not return")
	}

	assert.Equal(t, entities.EventConnected, nextEvent(t, events).Type)
	tx := nextEvent(t, events)
	require.Equal(t, entities.EventTransaction, tx.Type)
	assert.Equal(t, "tx500", tx.Transfer.Hash)
	assert.Equal(t, entities.EventDisconnected, nextEvent(t, events).Type)

	// the result was committed: once by the sweep, once by Stop
	assert.Equal(t, int64(500), src.Watermark(walletA))
	assert.Equal(t, 2, state.MarkSaves())
	assert.Equal(t, int64(500), state.LastMarks()["tjrabprwbzy45sbavfcjinpjc18kjprtv8"])

	// no further tick was scheduled
	time.Sleep(5 * cfg.PollInterval)
	assert.Equal(t, 1, lister.Calls())
}
