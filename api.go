package pulsewatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/pipz"
)

// errSubscriptionRejected is recorded when the server refuses the mask.
var errSubscriptionRejected = errors.New("subscription rejected by server")

// Bridge connects to a device server, subscribes to change notifications
// and delivers the reconciled sequence of ChangeMessages on one channel:
// first the snapshot of every sink, source, sink input and source output,
// then the live changes in server order.
//
// The native loop runs on its own goroutine and only ever performs
// non-blocking sends. Everything downstream of the notification queue runs
// on goroutines owned by the Bridge, so a slow consumer backs pressure up
// to the queue and never into the loop.
type Bridge struct {
	dialer         Dialer
	pipeline       pipz.Chainable[*ChangeMessage]
	listCapacity   int
	notifyCapacity int
	mask           SubscriptionMask
	startupTimeout time.Duration
	clock          clockz.Clock
	metrics        MetricsProvider
	onStop         func(State)

	state        atomic.Int32
	connState    atomic.Int32
	lastError    atomic.Pointer[error]
	errorHistory *errorRing

	out      chan ChangeMessage
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// session is what the loop goroutine hands back once the connection is
// Ready and the subscription request has been sent.
type session struct {
	raw          <-chan RawNotification
	ack          *Future[bool]
	introspector Introspector
	err          error
}

// New creates a Bridge that connects through dialer.
//
// Pipeline options (With*) configure the forwarding pipeline. Instance
// configuration uses chainable methods before calling Start().
//
// Example:
//
//	bridge := pulsewatch.New(
//	    pulseaudio.New(),
//	    pulsewatch.WithMiddleware(pulsewatch.UseEffect("log", logFn)),
//	).StartupTimeout(5 * time.Second)
//
//	if err := bridge.Start(ctx); err != nil {
//	    return err
//	}
//	for msg := range bridge.Changes() {
//	    mirror.Apply(msg)
//	}
func New(dialer Dialer, opts ...Option) *Bridge {
	b := &Bridge{
		dialer:         dialer,
		listCapacity:   DefaultListCapacity,
		notifyCapacity: DefaultNotifyCapacity,
		mask:           MaskAll,
		clock:          clockz.RealClock,
		metrics:        NoOpMetricsProvider{},
		out:            make(chan ChangeMessage, DefaultBufferSize),
		done:           make(chan struct{}),
	}
	b.state.Store(int32(StateIdle))
	b.connState.Store(int32(ConnUnconnected))

	terminal := pipz.Effect(forwardID, b.forward)
	b.pipeline = buildPipeline(terminal, opts)

	return b
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// Buffer sets the capacity of the output channel.
// Default: 1024. Must be called before Start() and Changes().
func (b *Bridge) Buffer(n int) *Bridge {
	if n < 1 {
		n = 1
	}
	b.out = make(chan ChangeMessage, n)
	return b
}

// ListCapacity sets the buffer size of every list stream, clamped to
// [MinListCapacity, MaxListCapacity]. Default: 256. Must be called before Start().
func (b *Bridge) ListCapacity(n int) *Bridge {
	b.listCapacity = n
	return b
}

// NotifyCapacity sets the size of the raw notification queue. Notifications
// that arrive while it is full are dropped and reported.
// Default: 1024. Must be called before Start().
func (b *Bridge) NotifyCapacity(n int) *Bridge {
	if n < 1 {
		n = 1
	}
	b.notifyCapacity = n
	return b
}

// Mask sets the subscription mask. Default: MaskAll. Notifications for kinds
// without a representation are ignored either way.
// Must be called before Start().
func (b *Bridge) Mask(m SubscriptionMask) *Bridge {
	b.mask = m
	return b
}

// Clock sets a custom clock for the startup timeout and latency metrics.
// Use this with clockz.FakeClock for deterministic testing.
// Must be called before Start().
func (b *Bridge) Clock(clock clockz.Clock) *Bridge {
	b.clock = clock
	return b
}

// StartupTimeout sets the maximum duration Start waits for the connection to
// become Ready and the subscription to be acknowledged.
// Default: no timeout. Must be called before Start().
func (b *Bridge) StartupTimeout(d time.Duration) *Bridge {
	b.startupTimeout = d
	return b
}

// Metrics sets a metrics provider for observability integration.
// Must be called before Start().
func (b *Bridge) Metrics(provider MetricsProvider) *Bridge {
	if provider != nil {
		b.metrics = provider
	}
	return b
}

// OnStop sets a callback that is invoked once the output channel has been
// closed. The callback receives the final state.
// Must be called before Start().
func (b *Bridge) OnStop(fn func(State)) *Bridge {
	b.onStop = fn
	return b
}

// ErrorHistorySize sets the number of recent errors to retain.
// Use 0 (default) to only retain the most recent error via LastError().
// Must be called before Start().
func (b *Bridge) ErrorHistorySize(n int) *Bridge {
	b.errorHistory = newErrorRing(n)
	return b
}

// Configure applies every setting in cfg. Server and ClientName are read by
// providers, not by the Bridge.
// Must be called before Start() and Changes().
func (b *Bridge) Configure(cfg Config) *Bridge {
	return b.Buffer(cfg.BufferSize).
		ListCapacity(cfg.ListCapacity).
		NotifyCapacity(cfg.NotifyCapacity).
		Mask(cfg.Mask).
		StartupTimeout(cfg.StartupTimeout).
		ErrorHistorySize(cfg.ErrorHistorySize)
}

// Changes returns the output channel. It is closed when the Bridge stops or
// fails.
func (b *Bridge) Changes() <-chan ChangeMessage {
	return b.out
}

// Done returns a channel that is closed after the output channel.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// State returns the current state of the Bridge.
func (b *Bridge) State() State {
	return State(b.state.Load())
}

// ConnState returns the last connection state reported by the server.
func (b *Bridge) ConnState() ConnState {
	return ConnState(b.connState.Load())
}

// LastError returns the last error encountered, or nil if no error occurred.
func (b *Bridge) LastError() error {
	ptr := b.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// ErrorHistory returns the recent error history, oldest first.
// Returns nil if error history is not enabled (see ErrorHistorySize).
func (b *Bridge) ErrorHistory() []error {
	return b.errorHistory.all()
}

// ClearErrors forgets LastError and the error history, so that later
// checks only see errors raised after the call.
func (b *Bridge) ClearErrors() {
	b.lastError.Store(nil)
	b.errorHistory.clear()
}

// Start connects, subscribes and starts streaming. It blocks until the
// subscription is acknowledged, then delivers messages asynchronously on
// Changes().
//
// Any failure before that point is returned as a *ConnectionError; the
// Bridge is then Failed and its output channel closed. There is no retry.
//
// Start can only be called once. Subsequent calls return ErrAlreadyStarted.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return ErrAlreadyStarted
	}
	b.started = true
	ctx, b.cancel = context.WithCancel(ctx)
	b.mu.Unlock()

	capitan.Emit(ctx, BridgeStarted,
		KeyTimeout.Field(b.startupTimeout),
		KeyCapacity.Field(cap(b.out)),
	)
	b.transition(ctx, StateConnecting)

	loop, conn, err := b.dialer.Dial()
	if err != nil {
		return b.abort(ctx, &ConnectionError{State: ConnUnconnected, Err: fmt.Errorf("dial: %w", err)})
	}

	startupCtx := ctx
	if b.startupTimeout > 0 {
		var cancel context.CancelFunc
		startupCtx, cancel = b.clock.WithTimeout(ctx, b.startupTimeout)
		defer cancel()
	}

	setup := make(chan session, 1)
	b.wg.Add(1)
	go b.run(ctx, loop, conn, setup)

	var sess session
	select {
	case sess = <-setup:
		if sess.err != nil {
			return b.abort(ctx, sess.err)
		}
	case <-startupCtx.Done():
		loop.Quit()
		return b.abort(ctx, &ConnectionError{State: b.ConnState(), Err: b.startupErr(ctx, startupCtx)})
	}

	b.transition(ctx, StateSubscribing)
	ok, err := sess.ack.Await(startupCtx)
	if err != nil {
		loop.Quit()
		return b.abort(ctx, &ConnectionError{State: b.ConnState(), Err: b.startupErr(ctx, startupCtx)})
	}
	if !ok {
		capitan.Emit(ctx, SubscriptionFailed, KeyError.Field(errSubscriptionRejected.Error()))
		loop.Quit()
		return b.abort(ctx, &ConnectionError{State: b.ConnState(), Err: errSubscriptionRejected})
	}
	capitan.Emit(ctx, SubscriptionArmed)

	// Enumerations start once the subscription is armed so that nothing
	// falls between a snapshot and the first live delta. Overlap is
	// harmless: consumers upsert.
	in := sess.introspector
	sinks, sinkCb := NewListStream[Sink](ctx, b.listCapacity)
	sources, sourceCb := NewListStream[Source](ctx, b.listCapacity)
	sinkInputs, sinkInputCb := NewListStream[SinkInput](ctx, b.listCapacity)
	sourceOutputs, sourceOutputCb := NewListStream[SourceOutput](ctx, b.listCapacity)
	in.SinkInfoList(sinkCb)
	in.SourceInfoList(sourceCb)
	in.SinkInputInfoList(sinkInputCb)
	in.SourceOutputInfoList(sourceOutputCb)

	demux := NewDemultiplexer(in).ListCapacity(b.listCapacity).Metrics(b.metrics)
	assembled := Assemble(ctx, demux.Live(ctx, sess.raw),
		Snapshot(ctx, sinks),
		Snapshot(ctx, sources),
		Snapshot(ctx, sinkInputs),
		Snapshot(ctx, sourceOutputs),
	)

	b.transition(ctx, StateStreaming)
	b.wg.Add(1)
	go b.pump(ctx, assembled)

	return nil
}

// Stop cancels the Bridge and waits for its goroutines to exit. The output
// channel is closed when Stop returns.
func (b *Bridge) Stop() {
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-b.done
	b.wg.Wait()
}

// run owns the native loop. It drives the connection to Ready, installs the
// notification callback, requests the subscription and then runs the loop
// until the Bridge context ends or the connection fails.
func (b *Bridge) run(ctx context.Context, loop Mainloop, conn Context, setup chan<- session) {
	defer b.wg.Done()
	defer conn.Disconnect()

	stop := context.AfterFunc(ctx, loop.Quit)
	defer stop()

	conn.SetStateCallback(func(s ConnState) {
		b.connState.Store(int32(s))
		if s.Terminal() {
			loop.Quit()
		}
	})

	if err := conn.Connect(); err != nil {
		setup <- session{err: &ConnectionError{State: conn.State(), Err: err}}
		return
	}
	for {
		s := conn.State()
		if s == ConnReady {
			break
		}
		if s.Terminal() {
			setup <- session{err: &ConnectionError{State: s}}
			return
		}
		if err := loop.Iterate(true); err != nil {
			setup <- session{err: &ConnectionError{State: conn.State(), Err: err}}
			return
		}
	}
	b.connState.Store(int32(ConnReady))

	raw := make(chan RawNotification, b.notifyCapacity)
	conn.SetSubscribeCallback(b.notifier(ctx, raw))

	ack, complete := NewCallbackFuture[bool]()
	conn.Subscribe(b.mask, complete)

	setup <- session{raw: raw, ack: ack, introspector: conn.Introspect()}

	err := loop.Run()
	if ctx.Err() != nil {
		return
	}
	if errors.Is(err, ErrLoopQuit) {
		err = nil
	}
	b.fail(ctx, &ConnectionError{State: conn.State(), Err: err})
}

// notifier returns the subscription callback. It runs on the loop goroutine
// and must not block: a full queue drops the notification.
func (b *Bridge) notifier(ctx context.Context, raw chan<- RawNotification) func(RawNotification) {
	return func(n RawNotification) {
		select {
		case raw <- n:
		default:
			b.setError(fmt.Errorf("notification %s: %w", n, ErrBufferFull))
			capitan.Emit(ctx, NotificationDropped,
				KeyKind.Field(n.Kind.String()),
				KeyOperation.Field(n.Operation.String()),
				KeyID.Field(int(n.ID)),
				KeyCapacity.Field(cap(raw)),
			)
			b.metrics.OnItemDropped(n.Kind, 1)
		}
	}
}

// pump feeds assembled messages through the pipeline. It is the only writer
// of the output channel and closes it on exit.
func (b *Bridge) pump(ctx context.Context, in <-chan ChangeMessage) {
	defer b.wg.Done()
	defer b.shutdown(ctx)

	for m := range in {
		msg := m
		start := b.clock.Now()
		if _, err := b.pipeline.Process(ctx, &msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			b.setError(err)
			capitan.Emit(ctx, ForwardFailed,
				KeyChange.Field(msg.Type.String()),
				KeyID.Field(int(msg.ID)),
				KeyError.Field(err.Error()),
			)
			continue
		}
		b.metrics.OnForwardLatency(b.clock.Since(start))
	}
}

// forward is the pipeline terminal. A full output channel is reported once
// and then waited on; the message is only abandoned when the Bridge stops.
func (b *Bridge) forward(ctx context.Context, m *ChangeMessage) error {
	select {
	case b.out <- *m:
	default:
		capitan.Emit(ctx, ForwardBlocked,
			KeyChange.Field(m.Type.String()),
			KeyCapacity.Field(cap(b.out)),
		)
		select {
		case b.out <- *m:
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrChannelClosed, ctx.Err())
		}
	}

	capitan.Emit(ctx, MessageForwarded,
		KeyChange.Field(m.Type.String()),
		KeyID.Field(int(m.ID)),
		KeyKind.Field(m.Kind().String()),
	)
	b.metrics.OnMessageForwarded(m.Type)
	return nil
}

// startupErr explains why the startup context ended.
func (b *Bridge) startupErr(ctx, startupCtx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if errors.Is(startupCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("startup timeout after %v: %w", b.startupTimeout, context.DeadlineExceeded)
	}
	return startupCtx.Err()
}

// fail records a fatal error and cancels the Bridge.
func (b *Bridge) fail(ctx context.Context, err error) {
	b.setError(err)
	capitan.Emit(ctx, BridgeConnectionFailed,
		KeyConnState.Field(b.ConnState().String()),
		KeyError.Field(err.Error()),
	)
	b.transition(ctx, StateFailed)
	b.cancel()
}

// abort fails the Bridge during Start, when no pump exists to close the
// output channel.
func (b *Bridge) abort(ctx context.Context, err error) error {
	b.fail(ctx, err)
	b.shutdown(ctx)
	return err
}

// shutdown closes the output channel and reports the final state once.
func (b *Bridge) shutdown(ctx context.Context) {
	b.stopOnce.Do(func() {
		close(b.out)
		b.transition(ctx, StateStopped)
		final := b.State()
		capitan.Emit(ctx, BridgeStopped,
			KeyState.Field(final.String()),
		)
		if b.onStop != nil {
			b.onStop(final)
		}
		close(b.done)
	})
}

// transition moves to a new state and emits a state change event. Terminal
// states are final.
func (b *Bridge) transition(ctx context.Context, to State) {
	for {
		from := State(b.state.Load())
		if from == to || from.Terminal() {
			return
		}
		if b.state.CompareAndSwap(int32(from), int32(to)) {
			capitan.Emit(ctx, BridgeStateChanged,
				KeyOldState.Field(from.String()),
				KeyNewState.Field(to.String()),
			)
			b.metrics.OnStateChange(from, to)
			return
		}
	}
}

// setError stores an error atomically and adds it to the error history.
func (b *Bridge) setError(err error) {
	e := err
	b.lastError.Store(&e)
	b.errorHistory.push(err)
}
