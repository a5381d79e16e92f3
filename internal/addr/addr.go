// Package addr parses and resolves the pipe transport's connection URIs
// (`udp://HOST:PORT`), grounded on original_source/URL.h's bespoke Uri
// struct and SocketUDP.cpp's SocketAddress::Parse two-step
// literal-then-DNS resolution, reimplemented on Go's net.ResolveUDPAddr.
package addr

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	mferrors "github.com/vellum-io/mfpipe/internal/errors"
)

// DefaultPort is used when a URI omits an explicit port.
const DefaultPort = 30000

const scheme = "udp://"

// URI is a parsed `udp://host[:port]` connection string. Only IPv4 hosts
// (literal or DNS names resolving to an IPv4 address) are supported.
type URI struct {
	Host string
	Port int
}

// Parse splits raw into Host/Port. It does not resolve the host; call
// Resolve (or ResolveUDPAddr) for that. An empty or missing host, or a
// non-numeric port, is an InvalidSettings error.
func Parse(raw string) (URI, error) {
	if !strings.HasPrefix(raw, scheme) {
		return URI{}, mferrors.NewInvalidSettings("addr.parse", fmt.Errorf("missing %q scheme in %q", scheme, raw))
	}
	hostport := strings.TrimPrefix(raw, scheme)
	if hostport == "" {
		return URI{}, mferrors.NewInvalidSettings("addr.parse", fmt.Errorf("empty host in %q", raw))
	}

	host, portStr, found := strings.Cut(hostport, ":")
	if host == "" {
		return URI{}, mferrors.NewInvalidSettings("addr.parse", fmt.Errorf("empty host in %q", raw))
	}
	port := DefaultPort
	if found && portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil || p <= 0 || p > 65535 {
			return URI{}, mferrors.NewInvalidSettings("addr.parse", fmt.Errorf("invalid port %q in %q", portStr, raw))
		}
		port = p
	}
	return URI{Host: host, Port: port}, nil
}

// Resolve parses raw and resolves it to a *net.UDPAddr in one step.
func Resolve(raw string) (*net.UDPAddr, error) {
	u, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return u.Resolve()
}

// Resolve resolves the parsed URI's host:port to a *net.UDPAddr, IPv4
// only, following the original's literal-address-first then DNS-lookup
// fallback shape (net.ResolveUDPAddr performs both internally).
func (u URI) Resolve() (*net.UDPAddr, error) {
	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(u.Host, strconv.Itoa(u.Port)))
	if err != nil {
		return nil, mferrors.NewInvalidSettings("addr.resolve", err)
	}
	return addr, nil
}

// String renders the URI back to its `udp://host:port` form.
func (u URI) String() string {
	return fmt.Sprintf("%s%s:%d", scheme, u.Host, u.Port)
}
