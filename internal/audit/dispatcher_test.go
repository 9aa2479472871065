package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/tenantauth/internal/audit"
)

type recordingSink struct {
	mu     sync.Mutex
	name   string
	err    error
	events []audit.Event
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Write(ctx context.Context, e audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.events = append(s.events, e)
	return nil
}

type failureCounter struct {
	mu    sync.Mutex
	sinks []string
}

func (f *failureCounter) AuditFailed(sink string) {
	f.mu.Lock()
	f.sinks = append(f.sinks, sink)
	f.mu.Unlock()
}

func TestDispatcher_FansOutToAllSinks(t *testing.T) {
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b"}
	d := audit.NewDispatcher(time.Second, nil, a, b)

	tenantID := uuid.New()
	d.Record(context.Background(), audit.Event{TenantID: tenantID, Action: audit.ActionUserLogin, ResourceType: "user"})
	d.Wait()

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, tenantID, a.events[0].TenantID)
	assert.False(t, a.events[0].OccurredAt.IsZero())
}

func TestDispatcher_SinkFailureIsCounted(t *testing.T) {
	bad := &recordingSink{name: "bad", err: errors.New("down")}
	good := &recordingSink{name: "good"}
	counter := &failureCounter{}
	d := audit.NewDispatcher(time.Second, counter, bad, good)

	assert.NotPanics(t, func() {
		d.Record(context.Background(), audit.Event{Action: audit.ActionUserLogout})
	})
	d.Wait()

	assert.Len(t, good.events, 1)
	assert.Equal(t, []string{"bad"}, counter.sinks)
}

func TestDispatcher_SurvivesCancelledRequestContext(t *testing.T) {
	sink := &recordingSink{name: "s"}
	d := audit.NewDispatcher(time.Second, nil, sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d.Record(ctx, audit.Event{Action: audit.ActionUserRegistered})
	d.Wait()

	assert.Len(t, sink.events, 1)
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaSink_KeysByTenant(t *testing.T) {
	w := &fakeWriter{}
	sink := audit.NewKafkaSink(w)

	tenantID := uuid.New()
	userID := uuid.New()
	err := sink.Write(context.Background(), audit.Event{
		TenantID:     tenantID,
		UserID:       &userID,
		Action:       audit.ActionModelEnabled,
		ResourceType: "model",
		ResourceID:   "gpt-4o",
	})
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	assert.Equal(t, tenantID.String(), string(w.msgs[0].Key))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "MODEL_ENABLED", decoded["action"])
	assert.Equal(t, "gpt-4o", decoded["resourceId"])
	assert.Equal(t, userID.String(), decoded["userId"])
}
