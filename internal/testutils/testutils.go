// Package testutils provides testing utilities shared by the scheduler tests
package testutils

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jzx17/jobpool/pkg/types"
)

// DefaultTimeout bounds every wait performed by the helpers
const DefaultTimeout = 5 * time.Second

// NewObservedLogger returns a logger recording every entry at level or above
func NewObservedLogger(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}

// ResultCollector accumulates the batches emitted on a Completed signal
type ResultCollector struct {
	mu      sync.Mutex
	batches [][]types.Result
}

// NewResultCollector creates an empty collector
func NewResultCollector() *ResultCollector {
	return &ResultCollector{}
}

// Receive is meant to be connected to the signal
func (c *ResultCollector) Receive(results []types.Result) {
	batch := append([]types.Result(nil), results...)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, batch)
}

// Batches returns the number of emissions received
func (c *ResultCollector) Batches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

// Results returns every received result in reception order
func (c *ResultCollector) Results() []types.Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	var all []types.Result
	for _, b := range c.batches {
		all = append(all, b...)
	}
	return all
}

// Count returns the number of received results
func (c *ResultCollector) Count() int {
	return len(c.Results())
}

// IDs returns the sorted IDs of the received jobs
func (c *ResultCollector) IDs() []string {
	results := c.Results()
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.Job.ID())
	}
	sort.Strings(ids)
	return ids
}

// Gate blocks jobs until it is opened
type Gate struct {
	ch   chan struct{}
	once sync.Once
}

// NewGate creates a closed gate
func NewGate() *Gate {
	return &Gate{ch: make(chan struct{})}
}

// Open releases every job waiting on the gate
func (g *Gate) Open() {
	g.once.Do(func() { close(g.ch) })
}

// Wait blocks until the gate is open or ctx is done
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Eventually waits for condition with the default timeout
func Eventually(t *testing.T, condition func() bool, msgAndArgs ...interface{}) bool {
	t.Helper()
	return assert.Eventually(t, condition, DefaultTimeout, 5*time.Millisecond, msgAndArgs...)
}

// Never checks that condition stays false for d
func Never(t *testing.T, condition func() bool, d time.Duration, msgAndArgs ...interface{}) bool {
	t.Helper()
	return assert.Never(t, condition, d, 5*time.Millisecond, msgAndArgs...)
}
