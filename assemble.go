package pulsewatch

import "context"

// Snapshot maps an enumeration to Add messages keyed by each entity's own
// index. The returned channel closes when the enumeration ends.
func Snapshot[T Record[T]](ctx context.Context, stream *ListStream[T]) <-chan ChangeMessage {
	out := make(chan ChangeMessage)

	go func() {
		defer close(out)
		for {
			v, ok := stream.Next(ctx)
			if !ok {
				return
			}
			if !send(ctx, out, Add(v.Index(), v)) {
				return
			}
		}
	}()

	return out
}

// Assemble concatenates the snapshots in order and then the live sequence.
// live is not read from until every snapshot has closed, so a kind's
// snapshot always precedes the live deltas that follow it. Notifications
// that arrive in the meantime wait upstream.
func Assemble(ctx context.Context, live <-chan ChangeMessage, snapshots ...<-chan ChangeMessage) <-chan ChangeMessage {
	out := make(chan ChangeMessage)

	go func() {
		defer close(out)
		for _, snap := range snapshots {
			if !drain(ctx, snap, out) {
				return
			}
		}
		drain(ctx, live, out)
	}()

	return out
}

// drain forwards src into out until src closes. It returns false if ctx
// ended first.
func drain(ctx context.Context, src <-chan ChangeMessage, out chan<- ChangeMessage) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case m, ok := <-src:
			if !ok {
				return true
			}
			if !send(ctx, out, m) {
				return false
			}
		}
	}
}
