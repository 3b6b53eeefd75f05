package rail

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-process rail for tests and demos. It keeps a ledger of
// completed transfers keyed by idempotency key and supports programmable
// failures and latency.
type Memory struct {
	mu sync.Mutex

	receipts  map[string]*Receipt // by idempotency key
	transfers []TransferRequest   // every money-moving transfer, in order

	permanent map[string]error // route -> always fail
	transient map[string]int   // route -> remaining failures before success

	latency time.Duration
	seq     int
}

// NewMemory creates an empty in-memory rail.
func NewMemory() *Memory {
	return &Memory{
		receipts:  make(map[string]*Receipt),
		permanent: make(map[string]error),
		transient: make(map[string]int),
	}
}

func route(from, to string) string { return from + "->" + to }

// FailWith makes every transfer on the from->to route fail with err.
func (m *Memory) FailWith(from, to string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.permanent[route(from, to)] = err
}

// FailTimes makes the next n transfers on the from->to route fail with
// ErrUnavailable, then succeed. Use it to exercise retry behavior.
func (m *Memory) FailTimes(from, to string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transient[route(from, to)] = n
}

// SetLatency delays every transfer by d, honoring context cancellation.
func (m *Memory) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.latency = d
}

// Transfer implements Rail.
func (m *Memory) Transfer(ctx context.Context, req TransferRequest) (*Receipt, error) {
	m.mu.Lock()
	latency := m.latency
	m.mu.Unlock()

	if latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(latency):
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Idempotent replay: same key, same receipt, no second movement.
	if r, ok := m.receipts[req.Key]; ok {
		return r, nil
	}

	rt := route(req.From, req.To)
	if err, ok := m.permanent[rt]; ok {
		return nil, err
	}
	if n, ok := m.transient[rt]; ok && n > 0 {
		m.transient[rt] = n - 1
		return nil, ErrUnavailable
	}

	m.seq++
	r := &Receipt{
		Reference:   fmt.Sprintf("mem-%06d", m.seq),
		ConfirmedAt: time.Now().UTC(),
	}
	m.receipts[req.Key] = r
	m.transfers = append(m.transfers, req)

	return r, nil
}

// Transfers returns every transfer that actually moved money, in order.
func (m *Memory) Transfers() []TransferRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]TransferRequest, len(m.transfers))
	copy(out, m.transfers)
	return out
}
