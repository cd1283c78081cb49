package email

import (
	"context"
	"fmt"

	"github.com/Domenick1991/rapidreserve/internal/domain"
	"github.com/rs/zerolog"
)

// SeenSet remembers delivered lifecycle events.
type SeenSet interface {
	MarkSeen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

type Mailer interface {
	Send(ctx context.Context, event domain.LifecycleEvent) error
}

// Notifier sends one email per (booking, status) no matter how often the
// lifecycle event is delivered.
type Notifier struct {
	mailer Mailer
	seen   SeenSet
	log    zerolog.Logger
}

func NewNotifier(mailer Mailer, seen SeenSet, log zerolog.Logger) *Notifier {
	return &Notifier{mailer: mailer, seen: seen, log: log}
}

func (n *Notifier) Handle(ctx context.Context, event domain.LifecycleEvent) error {
	key := event.DedupeKey()
	first, err := n.seen.MarkSeen(ctx, key)
	if err != nil {
		return fmt.Errorf("dedupe %s: %w", key, err)
	}
	if !first {
		n.log.Debug().Str("key", key).Msg("duplicate lifecycle event skipped")
		return nil
	}

	if err := n.mailer.Send(ctx, event); err != nil {
		if ferr := n.seen.Forget(context.WithoutCancel(ctx), key); ferr != nil {
			n.log.Warn().Err(ferr).Str("key", key).Msg("dedupe marker not cleared")
		}
		return fmt.Errorf("send %s: %w", key, err)
	}
	return nil
}
