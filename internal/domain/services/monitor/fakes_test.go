package monitor

import (
	"context"
	"errors"
	"sync"

	"github.com/tronwatch/tronwatch_service/internal/domain/entities"
)

const (
	walletA = "TJRabPrwbZy45sbavfcjinPJC18kjpRTv8"
	walletB = "TXLAQ63Xg1NAzckPwKHvzw7CSEmLMEqcdj"
	outside = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
)

func intPtr(v int) *int { return &v }

func transfer(hash, from, to string, ts int64) entities.RawTransfer {
	return entities.RawTransfer{
		Hash:      hash,
		From:      from,
		To:        to,
		Quantity:  "1000000",
		Timestamp: ts,
		Token:     entities.RawToken{Name: "Tether USD", Abbr: "USDT", Decimals: intPtr(6)},
	}
}

// MockLister serves canned pages per address
type MockLister struct {
	mu     sync.Mutex
	pages  map[string][]entities.RawTransfer
	errs   map[string]error
	calls  []string
	keys   []string
	limits []int
}

func NewMockLister() *MockLister {
	return &MockLister{
		pages: make(map[string][]entities.RawTransfer),
		errs:  make(map[string]error),
	}
}

func (m *MockLister) ListTransfers(ctx context.Context, address string, limit int, apiKey string) ([]entities.RawTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, address)
	m.keys = append(m.keys, apiKey)
	m.limits = append(m.limits, limit)
	if err := m.errs[address]; err != nil {
		return nil, err
	}
	return append([]entities.RawTransfer(nil), m.pages[address]...), nil
}

func (m *MockLister) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// MockState is an in-memory StateStore
type MockState struct {
	mu          sync.Mutex
	marks       map[string]int64
	seen        []string
	markSaves   int
	seenSaves   int
	saveErr     error
	lastMarks   map[string]int64
	lastSeenLen int
}

func NewMockState() *MockState {
	return &MockState{marks: make(map[string]int64)}
}

func (m *MockState) LoadWatermarks(ctx context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.marks))
	for k, v := range m.marks {
		out[k] = v
	}
	return out, nil
}

func (m *MockState) SaveWatermarks(ctx context.Context, marks map[string]int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markSaves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.lastMarks = marks
	return nil
}

func (m *MockState) LoadSeen(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.seen...), nil
}

func (m *MockState) SaveSeen(ctx context.Context, hashes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seenSaves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.lastSeenLen = len(hashes)
	return nil
}

func (m *MockState) MarkSaves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markSaves
}

func (m *MockState) SeenSaves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seenSaves
}

func (m *MockState) LastMarks() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastMarks
}

var errConnClosed = errors.New("connection closed")

// MockConn replays scripted batches, then blocks until closed
type MockConn struct {
	batches chan []entities.RawTransfer
	closed  chan struct{}
	once    sync.Once
}

func NewMockConn(batches ...[]entities.RawTransfer) *MockConn {
	c := &MockConn{
		batches: make(chan []entities.RawTransfer, len(batches)+8),
		closed:  make(chan struct{}),
	}
	for _, b := range batches {
		c.batches <- b
	}
	return c
}

func (c *MockConn) Push(batch []entities.RawTransfer) { c.batches <- batch }

func (c *MockConn) ReadTransfers() ([]entities.RawTransfer, error) {
	select {
	case b := <-c.batches:
		return b, nil
	case <-c.closed:
		return nil, errConnClosed
	}
}

func (c *MockConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// MockDialer hands out scripted connections in order
type MockDialer struct {
	mu    sync.Mutex
	conns []*MockConn
	dials int
	keys  []string
}

func (d *MockDialer) Dial(ctx context.Context, apiKey string) (StreamConn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	d.keys = append(d.keys, apiKey)
	if len(d.conns) == 0 {
		return nil, errors.New("dial refused")
	}
	c := d.conns[0]
	d.conns = d.conns[1:]
	return c, nil
}

func (d *MockDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}
