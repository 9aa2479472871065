// Package memstore provides in-memory implementations of the repository
// interfaces for unit tests. They mirror the filtering and conflict rules of
// the Postgres repositories.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/daap14/tenantauth/internal/audit"
)

// Clock returns the current time. Tests replace it to move time forward.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// AuditLog is a synchronous audit.Recorder that keeps every event.
type AuditLog struct {
	mu     sync.Mutex
	events []audit.Event
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (a *AuditLog) Record(_ context.Context, e audit.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

// Events returns a copy of the recorded events.
func (a *AuditLog) Events() []audit.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]audit.Event, len(a.events))
	copy(out, a.events)
	return out
}

// Actions returns the recorded actions in order.
func (a *AuditLog) Actions() []audit.Action {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]audit.Action, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Action)
	}
	return out
}
