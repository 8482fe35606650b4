/*
Package pulsewatch bridges a callback-driven audio server into an ordered
channel of typed change events.

A device server (PulseAudio, PipeWire-pulse, or the in-memory server used in
tests) reports changes through callbacks that run on its own event loop.
pulsewatch subscribes to those notifications, takes a snapshot of every
sink, source, sink input and source output, and delivers one reconciled
sequence of ChangeMessages: the snapshot first, then the live changes in
the order the server reported them.

# Basic Usage

Create a Bridge on a Dialer and consume its channel:

	bridge := pulsewatch.New(pulseaudio.New()).
	    StartupTimeout(5 * time.Second)

	if err := bridge.Start(ctx); err != nil {
	    return err
	}
	defer bridge.Stop()

	mirror := pulsewatch.NewMirror()
	for msg := range bridge.Changes() {
	    mirror.Apply(msg)
	}

An Add carries the full, owned entity and upserts it. A Delete carries only
an index and removes it from every kind, since the server does not say which
kind a removed index belonged to.

# Middleware

Every message passes through a pipz pipeline before it is written to the
channel. A processor that fails keeps the message from being delivered:

	bridge := pulsewatch.New(
	    server,
	    pulsewatch.WithMiddleware(
	        pulsewatch.UseFilter("sinks", pulsewatch.KindIs(pulsewatch.KindSink), logSinks),
	        pulsewatch.UseCircuitBreaker(3, time.Minute, mirror.Processor()),
	    ),
	)

# Backpressure

The native loop never blocks. Notifications wait in a bounded queue
(NotifyCapacity) and list results in bounded streams (ListCapacity). When a
queue is full the item is dropped, the loss is recorded in ErrorHistory and
reported through signals and metrics, and the bridge keeps streaming.
Downstream of the queues a slow consumer simply slows the bridge.

# Observability

Lifecycle, subscription, notification and forwarding events are emitted
as capitan signals. Hook them for logging:

	capitan.Hook(pulsewatch.BridgeStateChanged, func(_ context.Context, e *capitan.Event) {
	    to, _ := pulsewatch.KeyNewState.From(e)
	    log.Printf("bridge -> %s", to)
	})

Numeric metrics are available through MetricsProvider.

# Providers

  - pkg/pulseaudio: native protocol client for a real server
  - pkg/memory: in-process server for tests and demos
  - pkg/file: memory server driven by a watched YAML or JSON fixture
  - pkg/redis: mirrors the change stream into Redis hashes and pub/sub
*/
package pulsewatch
