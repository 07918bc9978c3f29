package dashboard

import (
	"context"

	"github.com/Fransi777/quanta-medix-nexus/internal/platform/auth"
	"github.com/Fransi777/quanta-medix-nexus/internal/platform/changefeed"
)

// Subscriber is implemented by changefeed.Hub.
type Subscriber interface {
	Subscribe(topics ...string) *changefeed.Subscription
}

// WatchedTopics are the collections whose changes trigger re-resolution.
var WatchedTopics = []string{changefeed.TopicPatients, changefeed.TopicAppointments}

// Watch delivers an initial Result and then a fresh one after every change
// to the watched collections, until ctx is cancelled. Bursts of changes that
// arrive during a resolution collapse into one re-resolution. A result
// computed after ctx is cancelled is dropped. fn runs on the calling
// goroutine.
func (r *Resolver) Watch(ctx context.Context, feed Subscriber, s *auth.Session, fn func(*Result)) error {
	sub := feed.Subscribe(WatchedTopics...)
	defer sub.Close()

	if !r.deliver(ctx, s, fn) {
		return ctx.Err()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub.C:
			if !ok {
				return nil
			}
			r.logger.Debug().Str("topic", ev.Topic).Str("record_id", ev.RecordID).Msg("dashboard change received")
			drain(sub.C)
			if !r.deliver(ctx, s, fn) {
				return ctx.Err()
			}
		}
	}
}

func (r *Resolver) deliver(ctx context.Context, s *auth.Session, fn func(*Result)) bool {
	res := r.Resolve(ctx, s)
	if ctx.Err() != nil {
		return false
	}
	fn(res)
	return true
}

func drain(c <-chan changefeed.Event) {
	for {
		select {
		case _, ok := <-c:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
