package publisher

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/rapidreserve/config"
	"github.com/Domenick1991/rapidreserve/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Publish(ctx context.Context, event domain.LifecycleEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// syncBuffer guards log output written from the Run goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var testConfig = config.PublisherConfig{
	AttemptTimeout: 50 * time.Millisecond,
	QueueSize:      2,
	MaxElapsed:     200 * time.Millisecond,
}

func testEvent(id string) domain.LifecycleEvent {
	b := &domain.Booking{ID: id, CustomerID: 1, EventID: 2, TicketCount: 3, TotalPriceCents: 3000, Status: domain.BookingStatusPending}
	return domain.NewLifecycleEvent(domain.EventBookingCreated, b, time.Now())
}

func newTestPublisher(sink Sink, log zerolog.Logger) *Publisher {
	p := New(sink, testConfig, log)
	p.initialBackoff = time.Millisecond
	return p
}

func TestPublisher_Publish_Success(t *testing.T) {
	sink := &MockSink{}
	p := newTestPublisher(sink, zerolog.Nop())
	event := testEvent("b-1")

	sink.On("Publish", mock.Anything, event).Return(nil).Once()

	p.Publish(context.Background(), event)

	assert.Equal(t, 0, p.Pending())
	sink.AssertExpectations(t)
}

func TestPublisher_Publish_IgnoresCallerCancellation(t *testing.T) {
	sink := &MockSink{}
	p := newTestPublisher(sink, zerolog.Nop())
	event := testEvent("b-1")

	sink.On("Publish", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), event).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Publish(ctx, event)

	sink.AssertExpectations(t)
}

func TestPublisher_FailureIsQueuedAndRetried(t *testing.T) {
	var logs syncBuffer
	sink := &MockSink{}
	p := newTestPublisher(sink, zerolog.New(&logs))
	event := testEvent("b-1")

	sink.On("Publish", mock.Anything, event).Return(errors.New("broker down")).Twice()
	delivered := make(chan struct{})
	sink.On("Publish", mock.Anything, event).Return(nil).Once().Run(func(mock.Arguments) { close(delivered) })

	p.Publish(context.Background(), event)
	assert.Equal(t, 1, p.Pending())
	assert.Contains(t, logs.String(), "queued for retry")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("event was not retried")
	}
	cancel()
	require.NoError(t, <-done)
	sink.AssertExpectations(t)
}

func TestPublisher_FullQueueDrops(t *testing.T) {
	var logs syncBuffer
	sink := &MockSink{}
	p := newTestPublisher(sink, zerolog.New(&logs))

	sink.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	for _, id := range []string{"a", "b", "c"} {
		p.Publish(context.Background(), testEvent(id))
	}

	assert.Equal(t, testConfig.QueueSize, p.Pending())
	assert.Contains(t, logs.String(), "retry queue full")
}

func TestPublisher_GivesUpAfterMaxElapsed(t *testing.T) {
	var logs syncBuffer
	sink := &MockSink{}
	p := newTestPublisher(sink, zerolog.New(&logs))
	event := testEvent("b-1")

	sink.On("Publish", mock.Anything, event).Return(errors.New("broker down"))

	p.retry(context.Background(), event)

	assert.Contains(t, logs.String(), "dropped after retries")
	assert.Greater(t, len(sink.Calls), 1)
}
