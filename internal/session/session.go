// Package session defines the fact store the engine reconciles against and
// an in-process implementation of it.
//
// The fact store is the session's view of progress: the ordered facts the
// player has received and the checks the session has already accepted. It
// is owned outside the engine; the engine only reads it and reports checks.
package session

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/roach88/tcslink/internal/progress"
)

// ErrUnavailable is returned by a store that cannot currently serve
// requests. The engine treats it as transient.
var ErrUnavailable = errors.New("session unavailable")

// FactStore is the session contract.
//
// ReceivedFacts returns every delivery in order; a fact delivered twice
// appears twice. ReportChecks must be idempotent: reporting a confirmed
// check again is a no-op.
type FactStore interface {
	ReceivedFacts(ctx context.Context) ([]progress.Fact, error)
	ConfirmedChecks(ctx context.Context) (progress.CheckSet, error)
	ReportChecks(ctx context.Context, ids []progress.CheckID) error
}

// Memory is an in-process FactStore.
//
// Thread-safety: all methods are safe for concurrent use.
type Memory struct {
	mu        sync.Mutex
	facts     []progress.Fact
	confirmed progress.CheckSet
	reports   [][]progress.CheckID
	failErr   error
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{confirmed: progress.NewCheckSet()}
}

// Grant appends deliveries.
func (m *Memory) Grant(facts ...progress.Fact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facts = append(m.facts, facts...)
}

// Confirm marks checks as accepted without recording a report, as when
// another client reported them.
func (m *Memory) Confirm(ids ...progress.CheckID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmed.Add(ids...)
}

// Fail makes every call return err until Fail(nil).
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Reports returns each non-empty ReportChecks batch received, in order.
func (m *Memory) Reports() [][]progress.CheckID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]progress.CheckID, len(m.reports))
	for i, r := range m.reports {
		out[i] = slices.Clone(r)
	}
	return out
}

func (m *Memory) ReceivedFacts(ctx context.Context) ([]progress.Fact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(m.facts), nil
}

func (m *Memory) ConfirmedChecks(ctx context.Context) (progress.CheckSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return nil, err
	}
	return progress.NewCheckSet(m.confirmed.Sorted()...), nil
}

func (m *Memory) ReportChecks(ctx context.Context, ids []progress.CheckID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return err
	}
	var fresh []progress.CheckID
	for _, id := range ids {
		if !m.confirmed.Has(id) {
			m.confirmed.Add(id)
			fresh = append(fresh, id)
		}
	}
	if len(fresh) > 0 {
		m.reports = append(m.reports, fresh)
	}
	return nil
}

func (m *Memory) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.failErr
}
