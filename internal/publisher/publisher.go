package publisher

import (
	"context"
	"time"

	"github.com/Domenick1991/rapidreserve/config"
	"github.com/Domenick1991/rapidreserve/internal/domain"
	"github.com/cenkalti/backoff/v3"
	"github.com/rs/zerolog"
)

// Sink delivers one event to the message bus.
type Sink interface {
	Publish(ctx context.Context, event domain.LifecycleEvent) error
}

// Publisher emits lifecycle events after the booking write has committed.
// One bounded attempt runs inline; failures move to a local queue that Run
// retries with exponential backoff. Nothing is reported back to the caller.
type Publisher struct {
	sink           Sink
	queue          chan domain.LifecycleEvent
	attemptTimeout time.Duration
	maxElapsed     time.Duration
	initialBackoff time.Duration
	log            zerolog.Logger
}

func New(sink Sink, cfg config.PublisherConfig, log zerolog.Logger) *Publisher {
	return &Publisher{
		sink:           sink,
		queue:          make(chan domain.LifecycleEvent, cfg.QueueSize),
		attemptTimeout: cfg.AttemptTimeout,
		maxElapsed:     cfg.MaxElapsed,
		initialBackoff: 200 * time.Millisecond,
		log:            log,
	}
}

// Publish never blocks longer than the attempt timeout. The caller's
// cancellation does not cut the attempt short.
func (p *Publisher) Publish(ctx context.Context, event domain.LifecycleEvent) {
	attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.attemptTimeout)
	defer cancel()

	err := p.sink.Publish(attemptCtx, event)
	if err == nil {
		return
	}

	p.log.Warn().Err(err).
		Str("booking_id", event.BookingID).
		Str("type", string(event.Type)).
		Msg("lifecycle publish failed, queued for retry")

	select {
	case p.queue <- event:
	default:
		p.log.Error().
			Str("booking_id", event.BookingID).
			Str("type", string(event.Type)).
			Msg("lifecycle retry queue full, event dropped")
	}
}

// Pending reports how many events wait for a retry.
func (p *Publisher) Pending() int {
	return len(p.queue)
}

// Run retries queued events in order until ctx is done.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if n := len(p.queue); n > 0 {
				p.log.Error().Int("pending", n).Msg("publisher stopped with undelivered lifecycle events")
			}
			return nil
		case event := <-p.queue:
			p.retry(ctx, event)
		}
	}
}

func (p *Publisher) retry(ctx context.Context, event domain.LifecycleEvent) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.initialBackoff
	b.MaxElapsedTime = p.maxElapsed

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, p.attemptTimeout)
		defer cancel()
		return p.sink.Publish(attemptCtx, event)
	}, backoff.WithContext(b, ctx))
	if err == nil {
		p.log.Debug().Str("booking_id", event.BookingID).Int("attempts", attempt).Msg("lifecycle event delivered on retry")
		return
	}

	p.log.Error().Err(err).
		Str("booking_id", event.BookingID).
		Str("type", string(event.Type)).
		Int("attempts", attempt).
		Msg("lifecycle event dropped after retries")
}
