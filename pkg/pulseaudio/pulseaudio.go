// Package pulseaudio provides a pulsewatch.Dialer for a PulseAudio (or
// PipeWire-pulse) server, speaking the native protocol over its socket.
//
// The protocol client answers requests on its own reader goroutine. Every
// answer, state change and subscription event is posted to the connection's
// mainloop, so ListCallbacks and state callbacks only ever run on the
// goroutine driving Iterate or Run.
package pulseaudio

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/pulsewatch"
	"github.com/zoobzio/pulsewatch/internal/mainloop"
)

const (
	// DefaultHeartbeat is how often a ready connection is checked for liveness.
	DefaultHeartbeat = 5 * time.Second

	// DefaultRequestTimeout bounds dialing and each protocol request.
	DefaultRequestTimeout = 5 * time.Second
)

// ErrNoCookie is returned when no authentication cookie could be read from
// an explicitly configured path.
var ErrNoCookie = errors.New("pulseaudio: cookie not readable")

// Provider dials a PulseAudio server.
type Provider struct {
	server         string
	clientName     string
	cookiePath     string
	heartbeat      time.Duration
	requestTimeout time.Duration
	clock          clockz.Clock
}

// Option configures a Provider.
type Option func(*Provider)

// WithServer sets the server address. Empty uses PULSE_SERVER or the
// per-user runtime socket.
func WithServer(addr string) Option {
	return func(p *Provider) { p.server = addr }
}

// WithClientName sets the application.name property announced to the server.
func WithClientName(name string) Option {
	return func(p *Provider) { p.clientName = name }
}

// WithCookie reads the authentication cookie from path instead of the
// default locations.
func WithCookie(path string) Option {
	return func(p *Provider) { p.cookiePath = path }
}

// WithHeartbeat sets the liveness check interval. Zero disables it.
func WithHeartbeat(d time.Duration) Option {
	return func(p *Provider) { p.heartbeat = d }
}

// WithRequestTimeout bounds dialing and each protocol request.
func WithRequestTimeout(d time.Duration) Option {
	return func(p *Provider) { p.requestTimeout = d }
}

// WithClock sets the clock driving the heartbeat.
func WithClock(clock clockz.Clock) Option {
	return func(p *Provider) { p.clock = clock }
}

// FromConfig applies the server address and client name from cfg.
func FromConfig(cfg pulsewatch.Config) Option {
	return func(p *Provider) {
		p.server = cfg.Server
		if cfg.ClientName != "" {
			p.clientName = cfg.ClientName
		}
	}
}

// New creates a Provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		clientName:     pulsewatch.DefaultClientName,
		heartbeat:      DefaultHeartbeat,
		requestTimeout: DefaultRequestTimeout,
		clock:          clockz.RealClock,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dial implements pulsewatch.Dialer. No I/O happens until Connect.
func (p *Provider) Dial() (pulsewatch.Mainloop, pulsewatch.Context, error) {
	l := mainloop.New()
	return l, newConn(p, l), nil
}

// cookie returns the authentication cookie. Without an explicit path the
// standard locations are tried in order and a missing cookie is not an
// error: the anonymous cookie is sent instead.
func (p *Provider) cookie() ([]byte, error) {
	if p.cookiePath != "" {
		data, err := os.ReadFile(p.cookiePath)
		if err != nil {
			return nil, errors.Join(ErrNoCookie, err)
		}
		return data, nil
	}
	for _, path := range cookiePaths() {
		if data, err := os.ReadFile(path); err == nil {
			return data, nil
		}
	}
	return anonymousCookie(), nil
}

func cookiePaths() []string {
	var paths []string
	if env := os.Getenv("PULSE_COOKIE"); env != "" {
		paths = append(paths, env)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "pulse", "cookie"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".pulse-cookie"))
	}
	return paths
}

var _ pulsewatch.Dialer = (*Provider)(nil)
