package graph

import (
	"context"
	"maps"
	"sync"
)

// Mode tells reads from writes in the recorded call log.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

// ExecutedQuery captures a cypher statement and parameters executed against the graph.
type ExecutedQuery struct {
	Mode   Mode
	Query  string
	Params map[string]any
}

// ReadHandlerFunc answers a read query. Member batches are fetched concurrently, so tests
// that serve sponsor networks answer by parameters instead of relying on queue order.
type ReadHandlerFunc func(q ExecutedQuery) (Result, error)

// MemoryClient stands in for Neo4j in repository and service tests. It records every
// statement in order, answers reads from a handler or a queue of canned sponsor-network
// results, and acknowledges member upserts with queued or empty results.
type MemoryClient struct {
	mu           sync.Mutex
	log          []ExecutedQuery
	queued       map[Mode][]Result
	readHandler  ReadHandlerFunc
	err          error
	connectivity error
	closed       bool
}

// NewMemoryClient returns a client with empty queues and no failures configured.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{queued: make(map[Mode][]Result)}
}

// WithError fails every subsequent read and write with err.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithConnectivityError makes VerifyConnectivity report err, as an unreachable bolt endpoint would.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

// WithReadHandler routes every ExecuteRead call through fn.
func (m *MemoryClient) WithReadHandler(fn ReadHandlerFunc) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readHandler = fn
	return m
}

// PushReadResult queues res for the next read without a handler.
func (m *MemoryClient) PushReadResult(res Result) {
	m.push(ModeRead, res)
}

// PushWriteResult queues res for the next write.
func (m *MemoryClient) PushWriteResult(res Result) {
	m.push(ModeWrite, res)
}

func (m *MemoryClient) push(mode Mode, res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued[mode] = append(m.queued[mode], res)
}

func (m *MemoryClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) (Result, error) {
	return m.execute(ModeWrite, cypher, params)
}

func (m *MemoryClient) ExecuteRead(_ context.Context, cypher string, params map[string]any) (Result, error) {
	return m.execute(ModeRead, cypher, params)
}

func (m *MemoryClient) execute(mode Mode, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Result{}, m.err
	}

	q := ExecutedQuery{Mode: mode, Query: cypher, Params: maps.Clone(params)}
	m.log = append(m.log, q)
	if mode == ModeRead && m.readHandler != nil {
		return m.readHandler(q)
	}

	pending := m.queued[mode]
	if len(pending) == 0 {
		return Result{}, nil
	}
	m.queued[mode] = pending[1:]
	return pending[0], nil
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MemoryClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Calls returns every recorded statement in execution order.
func (m *MemoryClient) Calls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.log...)
}

// WriteCalls returns the recorded writes, typically member upserts and schema statements.
func (m *MemoryClient) WriteCalls() []ExecutedQuery {
	return m.callsFor(ModeWrite)
}

// ReadCalls returns the recorded reads, typically edge and member fetches.
func (m *MemoryClient) ReadCalls() []ExecutedQuery {
	return m.callsFor(ModeRead)
}

func (m *MemoryClient) callsFor(mode Mode) []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ExecutedQuery
	for _, q := range m.log {
		if q.Mode == mode {
			out = append(out, q)
		}
	}
	return out
}
