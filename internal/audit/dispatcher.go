package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// FailureCounter is notified when a sink fails. metrics.Collectors satisfies it.
type FailureCounter interface {
	AuditFailed(sink string)
}

// Dispatcher fans each event out to every sink on a background goroutine.
type Dispatcher struct {
	sinks    []Sink
	timeout  time.Duration
	failures FailureCounter
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. timeout bounds each sink write.
func NewDispatcher(timeout time.Duration, failures FailureCounter, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		sinks:    sinks,
		timeout:  timeout,
		failures: failures,
	}
}

// Record schedules delivery of e and returns immediately. The request
// context's values are kept but its cancellation is not, so a finished
// request does not abort the write.
func (d *Dispatcher) Record(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	base := context.WithoutCancel(ctx)

	for _, sink := range d.sinks {
		d.wg.Add(1)
		go func(sink Sink) {
			defer d.wg.Done()

			writeCtx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()

			if err := sink.Write(writeCtx, e); err != nil {
				slog.Warn("audit event not delivered",
					"sink", sink.Name(),
					"action", e.Action,
					"tenantId", e.TenantID,
					"error", err,
				)
				if d.failures != nil {
					d.failures.AuditFailed(sink.Name())
				}
			}
		}(sink)
	}
}

// Wait blocks until all scheduled deliveries have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
