package pulsewatch

import (
	"context"

	"github.com/zoobzio/capitan"
)

// Action is the routing decision for one notification.
type Action int

const (
	// ActionDrop discards a malformed notification.
	ActionDrop Action = iota
	// ActionIgnore discards a notification about an unsupported kind.
	ActionIgnore
	// ActionDelete emits a Delete for the notification ID.
	ActionDelete
	// ActionFetch queries the entity and emits an Add for each result.
	ActionFetch
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionDrop:
		return "drop"
	case ActionIgnore:
		return "ignore"
	case ActionDelete:
		return "delete"
	case ActionFetch:
		return "fetch"
	default:
		return "unknown"
	}
}

// Demultiplexer turns raw notifications into change messages, querying the
// server for the current state of new and changed entities.
type Demultiplexer struct {
	introspector Introspector
	listCapacity int
	metrics      MetricsProvider
}

// NewDemultiplexer creates a Demultiplexer that fetches through in.
func NewDemultiplexer(in Introspector) *Demultiplexer {
	return &Demultiplexer{
		introspector: in,
		listCapacity: DefaultListCapacity,
		metrics:      NoOpMetricsProvider{},
	}
}

// ListCapacity sets the buffer size of each by-index fetch.
func (d *Demultiplexer) ListCapacity(n int) *Demultiplexer {
	d.listCapacity = n
	return d
}

// Metrics sets the metrics provider.
func (d *Demultiplexer) Metrics(provider MetricsProvider) *Demultiplexer {
	if provider != nil {
		d.metrics = provider
	}
	return d
}

// Route classifies a notification. Malformed notifications are dropped,
// every operation on an unsupported kind is ignored, Removed on a supported
// kind deletes and New or Changed fetches.
func (*Demultiplexer) Route(n RawNotification) Action {
	if !n.Kind.Valid() || !n.Operation.Valid() {
		return ActionDrop
	}
	if !n.Kind.Supported() {
		return ActionIgnore
	}
	if n.Operation == OperationRemoved {
		return ActionDelete
	}
	return ActionFetch
}

// Live processes raw notifications strictly in arrival order. The next
// notification is not looked at until every message of the current one has
// been delivered. The returned channel closes when raw closes or ctx is done.
func (d *Demultiplexer) Live(ctx context.Context, raw <-chan RawNotification) <-chan ChangeMessage {
	out := make(chan ChangeMessage)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-raw:
				if !ok {
					return
				}
				if !d.process(ctx, n, out) {
					return
				}
			}
		}
	}()

	return out
}

// process handles one notification and reports whether the consumer is
// still there.
func (d *Demultiplexer) process(ctx context.Context, n RawNotification, out chan<- ChangeMessage) bool {
	capitan.Emit(ctx, NotificationReceived,
		KeyKind.Field(n.Kind.String()),
		KeyOperation.Field(n.Operation.String()),
		KeyID.Field(int(n.ID)),
	)
	d.metrics.OnNotification(n.Kind, n.Operation)

	switch d.Route(n) {
	case ActionDrop:
		capitan.Emit(ctx, NotificationMalformed,
			KeyKind.Field(n.Kind.String()),
			KeyOperation.Field(n.Operation.String()),
			KeyError.Field(ErrCallbackProtocol.Error()),
		)
		return true

	case ActionIgnore:
		capitan.Emit(ctx, NotificationIgnored,
			KeyKind.Field(n.Kind.String()),
			KeyOperation.Field(n.Operation.String()),
			KeyID.Field(int(n.ID)),
		)
		return true

	case ActionDelete:
		return send(ctx, out, Delete(n.ID))
	}

	in := d.introspector
	switch n.Kind {
	case KindSink:
		return fetchInto(ctx, d, n.ID, in.SinkInfoByIndex, out)
	case KindSource:
		return fetchInto(ctx, d, n.ID, in.SourceInfoByIndex, out)
	case KindSinkInput:
		return fetchInto(ctx, d, n.ID, in.SinkInputInfoByIndex, out)
	case KindSourceOutput:
		return fetchInto(ctx, d, n.ID, in.SourceOutputInfoByIndex, out)
	}
	return true
}

// Record is an entity record that can be copied out of a callback.
type Record[T any] interface {
	Owner[T]
	Entity
}

// fetchInto runs a by-index query and forwards each result as an Add. A
// failed query produces nothing.
func fetchInto[T Record[T]](
	ctx context.Context,
	d *Demultiplexer,
	id uint32,
	query func(uint32, ListCallback[T]),
	out chan<- ChangeMessage,
) bool {
	stream, cb := NewListStream[T](ctx, d.listCapacity)
	query(id, cb)

	for {
		v, ok := stream.Next(ctx)
		if !ok {
			break
		}
		if !send(ctx, out, Add(id, v)) {
			return false
		}
	}
	if n := stream.Dropped(); n > 0 {
		var zero T
		d.metrics.OnItemDropped(zero.Kind(), n)
	}
	return ctx.Err() == nil
}

// send delivers m unless ctx is done first.
func send(ctx context.Context, out chan<- ChangeMessage, m ChangeMessage) bool {
	select {
	case out <- m:
		return true
	case <-ctx.Done():
		return false
	}
}
