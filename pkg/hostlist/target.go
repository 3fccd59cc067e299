// Package hostlist turns cluster names and host templates into the concrete
// list of ssh targets a session opens.
//
// Supported host syntax (combinable):
//
//	host                      plain hostname
//	user@host:port            optional user and port
//	web-[1-3,db].example.com  bracket ranges (numeric, single-case alpha, literal words)
//	10.0.0.0/28               IPv4 network; every address from the given start to the broadcast
//	host:[2222-2224]          port ranges
//	host+3                    repeat the host 3 times
//	mycluster                 cluster name, replaced by its members
package hostlist

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidRange is returned for malformed or inverted bracket, CIDR,
	// port or repeat expressions.
	ErrInvalidRange = errors.New("invalid range")

	// ErrLimitExceeded is returned when expansion would produce more targets
	// than the caller allowed.
	ErrLimitExceeded = errors.New("host limit exceeded")

	// ErrInvalidHostFormat is returned when a user@host:port token cannot be
	// parsed.
	ErrInvalidHostFormat = errors.New("invalid host format")
)

// Target is a resolved connection endpoint.
//
// User is empty when unset; Port is 0 when unset (ssh picks its default).
type Target struct {
	User     string
	Hostname string
	Port     uint16
	Command  string
}

// ConnectionString formats the target as user@host:port, omitting the parts
// that are not set.
func (t Target) ConnectionString() string {
	var b strings.Builder
	if t.User != "" {
		b.WriteString(t.User)
		b.WriteByte('@')
	}
	b.WriteString(t.Hostname)
	if t.Port != 0 {
		b.WriteByte(':')
		b.WriteString(strconv.FormatUint(uint64(t.Port), 10))
	}
	return b.String()
}

func (t Target) String() string { return t.ConnectionString() }

// HostSpec is an unresolved target. Hostname may contain templates and Port
// may be a bracketed range.
type HostSpec struct {
	User     string
	Hostname string
	Port     string
	Command  string
}

func (s HostSpec) withHostname(hostname string) HostSpec {
	s.Hostname = hostname
	return s
}

// ParseHostSpec parses a user@host:port token into a HostSpec carrying the
// optional remote command.
func ParseHostSpec(token, command string) (HostSpec, error) {
	user, host, port, err := ParseUserHostPort(token)
	if err != nil {
		return HostSpec{}, err
	}
	return HostSpec{User: user, Hostname: host, Port: port, Command: command}, nil
}

// ParseUserHostPort splits hostname, hostname:port, user@hostname and
// user@hostname:port. The first '@' ends the user and the first ':' after
// the host ends the host.
func ParseUserHostPort(s string) (user, host, port string, err error) {
	if s == "" {
		return "", "", "", fmt.Errorf("%w: empty host", ErrInvalidHostFormat)
	}

	rest := s
	if i := strings.IndexByte(s, '@'); i > 0 && i < len(s)-1 {
		user, rest = s[:i], s[i+1:]
	}

	// The host needs at least one byte and the port at least one byte.
	for i := 1; i < len(rest)-1; i++ {
		if rest[i] == ':' {
			return user, rest[:i], rest[i+1:], nil
		}
	}
	return user, rest, "", nil
}

// ParseTarget parses a concrete user@host:port string. The port, when
// present, must be a plain number.
func ParseTarget(s string) (Target, error) {
	user, host, port, err := ParseUserHostPort(s)
	if err != nil {
		return Target{}, err
	}
	t := Target{User: user, Hostname: host}
	if port != "" {
		n, perr := strconv.ParseUint(port, 10, 16)
		if perr != nil {
			return Target{}, fmt.Errorf("%w: port %q", ErrInvalidHostFormat, port)
		}
		t.Port = uint16(n)
	}
	return t, nil
}
