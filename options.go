package pulsewatch

import (
	"context"
	"time"

	"github.com/zoobzio/pipz"
)

// Pipeline identities.
var (
	forwardID      = pipz.NewIdentity("pulsewatch:forward", "Writes change messages to the output channel")
	middlewareID   = pipz.NewIdentity("pulsewatch:middleware", "User middleware sequence")
	errorHandlerID = pipz.NewIdentity("pulsewatch:error-handler", "Observes forwarding errors")
	rateLimiterID  = pipz.NewIdentity("pulsewatch:rate-limiter", "Limits the forwarding rate")
	retryID        = pipz.NewIdentity("pulsewatch:retry", "Retries a failing processor")
	backoffID      = pipz.NewIdentity("pulsewatch:backoff", "Retries a failing processor with exponential delay")
	timeoutID      = pipz.NewIdentity("pulsewatch:timeout", "Bounds processor execution time")
	fallbackID     = pipz.NewIdentity("pulsewatch:fallback", "Tries processors in order until one succeeds")
	breakerID      = pipz.NewIdentity("pulsewatch:circuit-breaker", "Stops calling a processor that keeps failing")
)

// Option configures the forwarding pipeline of a Bridge. Every assembled
// message passes through the pipeline before it is written to the output
// channel; a processor that returns an error keeps the message from being
// delivered.
//
// Instance configuration (capacities, clock, metrics, etc.) is handled via
// chainable methods on the Bridge before calling Start().
type Option func(pipz.Chainable[*ChangeMessage]) pipz.Chainable[*ChangeMessage]

// buildPipeline wraps a terminal with pipeline options.
func buildPipeline(terminal pipz.Chainable[*ChangeMessage], opts []Option) pipz.Chainable[*ChangeMessage] {
	pipeline := terminal
	for _, opt := range opts {
		pipeline = opt(pipeline)
	}
	return pipeline
}

// WithMiddleware wraps the pipeline with a sequence of processors.
// Processors execute in order, with the wrapped pipeline (forwarding) last.
//
// Example:
//
//	bridge := pulsewatch.New(
//	    pulseaudio.New(),
//	    pulsewatch.WithMiddleware(
//	        pulsewatch.UseEffect("log", logFn),
//	        pulsewatch.UseApply("sinks-only", onlySinks),
//	    ),
//	)
func WithMiddleware(processors ...pipz.Chainable[*ChangeMessage]) Option {
	return func(p pipz.Chainable[*ChangeMessage]) pipz.Chainable[*ChangeMessage] {
		all := make([]pipz.Chainable[*ChangeMessage], 0, len(processors)+1)
		all = append(all, processors...)
		all = append(all, p)
		return pipz.NewSequence(middlewareID, all...)
	}
}

// WithErrorHandler adds error observation to the pipeline.
// Errors are passed to the handler for logging, metrics, or alerting,
// but the error still propagates and the message is not delivered.
func WithErrorHandler(handler pipz.Chainable[*pipz.Error[*ChangeMessage]]) Option {
	return func(p pipz.Chainable[*ChangeMessage]) pipz.Chainable[*ChangeMessage] {
		return pipz.NewHandle(errorHandlerID, p, handler)
	}
}

// UseTransform creates a processor that rewrites the message.
// Cannot fail.
func UseTransform(name string, fn func(context.Context, *ChangeMessage) *ChangeMessage) pipz.Chainable[*ChangeMessage] {
	return pipz.Transform(pipz.NewIdentity(name, "Transforms change messages"), fn)
}

// UseApply creates a processor that can rewrite the message and fail.
// Returning an error withholds the message from the output channel.
func UseApply(name string, fn func(context.Context, *ChangeMessage) (*ChangeMessage, error)) pipz.Chainable[*ChangeMessage] {
	return pipz.Apply(pipz.NewIdentity(name, "Rewrites or rejects change messages"), fn)
}

// UseEffect creates a processor that performs a side effect.
// The message passes through unchanged.
func UseEffect(name string, fn func(context.Context, *ChangeMessage) error) pipz.Chainable[*ChangeMessage] {
	return pipz.Effect(pipz.NewIdentity(name, "Observes change messages"), fn)
}

// UseMutate creates a processor that rewrites the message only when the
// condition holds.
func UseMutate(name string, transformer func(context.Context, *ChangeMessage) *ChangeMessage, condition func(context.Context, *ChangeMessage) bool) pipz.Chainable[*ChangeMessage] {
	return pipz.Mutate(pipz.NewIdentity(name, "Conditionally rewrites change messages"), transformer, condition)
}

// UseEnrich creates a processor that may rewrite the message. If it fails,
// the original message continues unchanged.
func UseEnrich(name string, fn func(context.Context, *ChangeMessage) (*ChangeMessage, error)) pipz.Chainable[*ChangeMessage] {
	return pipz.Enrich(pipz.NewIdentity(name, "Best-effort message enrichment"), fn)
}

// UseRetry wraps a processor with immediate retries.
func UseRetry(maxAttempts int, processor pipz.Chainable[*ChangeMessage]) pipz.Chainable[*ChangeMessage] {
	return pipz.NewRetry(retryID, processor, maxAttempts)
}

// UseBackoff wraps a processor with retries separated by an exponentially
// growing delay, starting at baseDelay.
func UseBackoff(maxAttempts int, baseDelay time.Duration, processor pipz.Chainable[*ChangeMessage]) pipz.Chainable[*ChangeMessage] {
	return pipz.NewBackoff(backoffID, processor, maxAttempts, baseDelay)
}

// UseTimeout bounds a processor's execution time.
func UseTimeout(d time.Duration, processor pipz.Chainable[*ChangeMessage]) pipz.Chainable[*ChangeMessage] {
	return pipz.NewTimeout(timeoutID, processor, d)
}

// UseFallback tries primary first and each fallback in turn when the
// previous one fails.
func UseFallback(primary pipz.Chainable[*ChangeMessage], fallbacks ...pipz.Chainable[*ChangeMessage]) pipz.Chainable[*ChangeMessage] {
	all := append([]pipz.Chainable[*ChangeMessage]{primary}, fallbacks...)
	return pipz.NewFallback(fallbackID, all...)
}

// UseCircuitBreaker stops calling processor after failures consecutive
// errors and tries again once recovery has elapsed. Use it around sinks
// such as remote mirrors that can go away for a while.
func UseCircuitBreaker(failures int, recovery time.Duration, processor pipz.Chainable[*ChangeMessage]) pipz.Chainable[*ChangeMessage] {
	return pipz.NewCircuitBreaker(breakerID, processor, failures, recovery)
}

// UseFilter wraps a processor with a condition.
// If the condition returns false, the message passes through unchanged.
func UseFilter(name string, condition func(context.Context, *ChangeMessage) bool, processor pipz.Chainable[*ChangeMessage]) pipz.Chainable[*ChangeMessage] {
	return pipz.NewFilter(pipz.NewIdentity(name, "Conditionally runs a processor"), condition, processor)
}

// UseRateLimit wraps a processor with a token bucket limiter. When tokens
// are exhausted the processor waits, which backs pressure up to the
// notification queue.
func UseRateLimit(rate float64, burst int, processor pipz.Chainable[*ChangeMessage]) pipz.Chainable[*ChangeMessage] {
	return pipz.NewRateLimiter(rateLimiterID, rate, burst, processor)
}

// KindIs returns a condition matching messages that carry an entity of
// kind k. Deletes carry no kind and never match.
func KindIs(k Kind) func(context.Context, *ChangeMessage) bool {
	return func(_ context.Context, m *ChangeMessage) bool {
		return m.Kind() == k
	}
}
