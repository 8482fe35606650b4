package pulseaudio

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// defaultPort is the native protocol TCP port.
const defaultPort = "4713"

// ErrNoServer is returned when no usable server address could be resolved.
var ErrNoServer = errors.New("pulseaudio: no valid server address")

// address is one dialable server endpoint.
type address struct {
	network string
	addr    string
}

// parseServer splits a server string into endpoints, in the order they
// should be tried. Entries are separated by whitespace and may be
// "unix:/path", "/path", "tcp:host[:port]", "tcp4:..." or "tcp6:...".
// A leading "{machine}" qualifier is accepted and ignored.
func parseServer(s string) []address {
	var out []address
	for _, field := range strings.Fields(s) {
		if strings.HasPrefix(field, "{") {
			end := strings.IndexByte(field, '}')
			if end < 0 {
				continue
			}
			field = field[end+1:]
		}
		switch {
		case field == "":
		case strings.HasPrefix(field, "/"):
			out = append(out, address{"unix", field})
		case strings.HasPrefix(field, "unix:"):
			out = append(out, address{"unix", field[len("unix:"):]})
		case strings.HasPrefix(field, "tcp4:"):
			out = append(out, address{"tcp4", withPort(field[len("tcp4:"):])})
		case strings.HasPrefix(field, "tcp6:"):
			out = append(out, address{"tcp6", withPort(field[len("tcp6:"):])})
		case strings.HasPrefix(field, "tcp:"):
			out = append(out, address{"tcp", withPort(field[len("tcp:"):])})
		}
	}
	return out
}

func withPort(hostport string) string {
	if _, _, err := net.SplitHostPort(hostport); err == nil {
		return hostport
	}
	return net.JoinHostPort(strings.Trim(hostport, "[]"), defaultPort)
}

// defaultServer is used when neither WithServer nor PULSE_SERVER is set.
func defaultServer() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = filepath.Join("/run/user", strconv.Itoa(os.Getuid()))
	}
	return "unix:" + filepath.Join(dir, "pulse", "native")
}

// addresses resolves the configured server string.
func (p *Provider) addresses() []address {
	server := p.server
	if server == "" {
		server = os.Getenv("PULSE_SERVER")
	}
	if server == "" {
		server = defaultServer()
	}
	return parseServer(server)
}

// dial connects to the first reachable address.
func (p *Provider) dial() (net.Conn, error) {
	addrs := p.addresses()
	if len(addrs) == 0 {
		return nil, ErrNoServer
	}
	var errs []error
	for _, a := range addrs {
		conn, err := net.DialTimeout(a.network, a.addr, p.requestTimeout)
		if err == nil {
			return conn, nil
		}
		errs = append(errs, fmt.Errorf("%s %s: %w", a.network, a.addr, err))
	}
	return nil, errors.Join(errs...)
}

// anonymousCookie is sent when no cookie exists. Servers running with
// auth-anonymous accept any cookie of the right size.
func anonymousCookie() []byte {
	return make([]byte, 256)
}
