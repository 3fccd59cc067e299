package hostlist

import (
	"fmt"
	"io"
	"log/slog"
	"net/netip"
	"regexp"
	"strconv"
	"strings"
)

// DefaultLimit bounds a resolution when the caller does not pass one.
const DefaultLimit = 2048

// maxClusterDepth stops clusters that reference themselves without ever
// producing a host.
const maxClusterDepth = 64

// Clusters maps a cluster name to its ordered member specs. Members may be
// templates or other cluster names.
type Clusters map[string][]string

// Add appends members to the named cluster.
func (c Clusters) Add(name string, members ...string) {
	c[name] = append(c[name], members...)
}

// Resolver expands HostSpecs against a cluster table.
//
// Cluster references are not tracked for cycles; every expansion step is
// bounded by the limit instead, so a self-referencing cluster fails with
// ErrLimitExceeded.
type Resolver struct {
	clusters Clusters
	logger   *slog.Logger
}

// NewResolver returns a Resolver over clusters. A nil logger discards.
func NewResolver(clusters Clusters, logger *slog.Logger) *Resolver {
	if clusters == nil {
		clusters = Clusters{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{clusters: clusters, logger: logger}
}

// Resolve is a convenience wrapper around NewResolver(clusters, nil).Resolve.
func Resolve(specs []HostSpec, clusters Clusters, limit int) ([]Target, error) {
	return NewResolver(clusters, nil).Resolve(specs, limit)
}

// Resolve expands every spec in order. Expansion stops with
// ErrLimitExceeded as soon as the output would grow past limit.
func (r *Resolver) Resolve(specs []HostSpec, limit int) ([]Target, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	var out []Target
	for _, spec := range specs {
		if err := r.expand(spec, limit, 0, &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

var (
	repeatPattern  = regexp.MustCompile(`^(.+?)\+([0-9]+)$`)
	bracketPattern = regexp.MustCompile(`^(.*?)\[(.*?)\](.*)$`)
	networkPattern = regexp.MustCompile(`^(.+?)/(.+?)$`)
	wordPattern    = regexp.MustCompile(`^\w+$`)
	intRange       = regexp.MustCompile(`^([0-9]+)-([0-9]+)$`)
	alphaRange     = regexp.MustCompile(`^(?:([a-z])-([a-z])|([A-Z])-([A-Z]))$`)
)

// expand handles the repeat suffix and hands the body to expandBody.
func (r *Resolver) expand(spec HostSpec, limit, depth int, out *[]Target) error {
	m := repeatPattern.FindStringSubmatch(spec.Hostname)
	if m == nil {
		return r.expandBody(spec, limit, depth, out)
	}

	count, err := strconv.Atoi(m[2])
	if err != nil || count <= 1 || repeatPattern.MatchString(m[1]) {
		r.logger.Warn("invalid repeat pattern", "host", spec.Hostname)
		return fmt.Errorf("%w: repeat pattern %q", ErrInvalidRange, spec.Hostname)
	}

	var once []Target
	if err := r.expandBody(spec.withHostname(m[1]), (limit-len(*out))/count, depth, &once); err != nil {
		return err
	}
	for _, t := range once {
		for i := 0; i < count; i++ {
			*out = append(*out, t)
		}
	}
	return nil
}

func (r *Resolver) expandBody(spec HostSpec, limit, depth int, out *[]Target) error {
	if members, ok := r.clusters[spec.Hostname]; ok {
		if depth >= maxClusterDepth {
			return fmt.Errorf("%w: cluster %q nests deeper than %d", ErrLimitExceeded, spec.Hostname, maxClusterDepth)
		}
		r.logger.Debug("expand cluster", "cluster", spec.Hostname, "members", members)
		for _, member := range members {
			ms, err := ParseHostSpec(member, "")
			if err != nil {
				return err
			}
			if err := r.expand(ms, limit, depth+1, out); err != nil {
				return err
			}
		}
		return nil
	}

	if m := bracketPattern.FindStringSubmatch(spec.Hostname); m != nil {
		values, err := parseRanges(m[2], limit-len(*out))
		if err != nil {
			r.logger.Warn("invalid range definition", "host", spec.Hostname, "err", err)
			return fmt.Errorf("%s: %w", spec.Hostname, err)
		}
		for _, v := range values {
			if err := r.expandBody(spec.withHostname(m[1]+v+m[3]), limit, depth, out); err != nil {
				return err
			}
		}
		return nil
	}

	// '/' is not valid in a hostname, so anything with one is a network.
	if networkPattern.MatchString(spec.Hostname) {
		addrs, err := expandNetwork(spec.Hostname, limit-len(*out))
		if err != nil {
			r.logger.Warn("invalid IP network", "host", spec.Hostname, "err", err)
			return err
		}
		for _, a := range addrs {
			if err := r.expandBody(spec.withHostname(a), limit, depth, out); err != nil {
				return err
			}
		}
		return nil
	}

	if spec.Port == "" {
		return appendTarget(out, limit, Target{User: spec.User, Hostname: spec.Hostname, Command: spec.Command})
	}

	ports := []string{spec.Port}
	if strings.HasPrefix(spec.Port, "[") && strings.HasSuffix(spec.Port, "]") && len(spec.Port) >= 2 {
		var err error
		ports, err = parseRanges(spec.Port[1:len(spec.Port)-1], limit-len(*out))
		if err != nil {
			r.logger.Warn("invalid port range", "host", spec.Hostname, "port", spec.Port, "err", err)
			return fmt.Errorf("%s:%s: %w", spec.Hostname, spec.Port, err)
		}
	}
	for _, p := range ports {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			r.logger.Warn("invalid port", "host", spec.Hostname, "port", p)
			return fmt.Errorf("%w: port %q", ErrInvalidRange, p)
		}
		t := Target{User: spec.User, Hostname: spec.Hostname, Port: uint16(n), Command: spec.Command}
		if err := appendTarget(out, limit, t); err != nil {
			return err
		}
	}
	return nil
}

func appendTarget(out *[]Target, limit int, t Target) error {
	if len(*out) >= limit {
		return fmt.Errorf("%w: %s would exceed %d", ErrLimitExceeded, t.ConnectionString(), limit)
	}
	*out = append(*out, t)
	return nil
}

// parseRanges expands a comma separated list of words, numeric ranges and
// single-case alpha ranges, producing at most limit values.
func parseRanges(spec string, limit int) ([]string, error) {
	var result []string
	for _, item := range strings.Split(spec, ",") {
		remaining := limit - len(result)
		switch {
		case wordPattern.MatchString(item):
			if remaining < 1 {
				return nil, fmt.Errorf("%w: %q", ErrLimitExceeded, item)
			}
			result = append(result, item)

		case intRange.MatchString(item):
			m := intRange.FindStringSubmatch(item)
			start, err1 := strconv.Atoi(m[1])
			end, err2 := strconv.Atoi(m[2])
			if err1 != nil || err2 != nil || start >= end {
				return nil, fmt.Errorf("%w: %q", ErrInvalidRange, item)
			}
			if end-start+1 > remaining {
				return nil, fmt.Errorf("%w: range %q has %d values, %d allowed", ErrLimitExceeded, item, end-start+1, remaining)
			}
			for i := start; i <= end; i++ {
				result = append(result, strconv.Itoa(i))
			}

		case alphaRange.MatchString(item):
			m := alphaRange.FindStringSubmatch(item)
			lo, hi := m[1], m[2]
			if lo == "" {
				lo, hi = m[3], m[4]
			}
			start, end := lo[0], hi[0]
			if start >= end {
				return nil, fmt.Errorf("%w: %q", ErrInvalidRange, item)
			}
			if int(end-start)+1 > remaining {
				return nil, fmt.Errorf("%w: range %q has %d values, %d allowed", ErrLimitExceeded, item, int(end-start)+1, remaining)
			}
			for c := start; c <= end; c++ {
				result = append(result, string(rune(c)))
			}

		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidRange, item)
		}
	}
	return result, nil
}

// expandNetwork lists the IPv4 addresses from the given address through the
// end of its network. The start is kept as given, so 1.2.3.75/28 yields
// 1.2.3.75 to 1.2.3.79.
func expandNetwork(s string, limit int) ([]string, error) {
	addrPart, bitsPart, _ := strings.Cut(s, "/")
	addr, err := netip.ParseAddr(addrPart)
	if err != nil || !addr.Is4() {
		return nil, fmt.Errorf("%w: address %q", ErrInvalidRange, s)
	}
	bits, err := strconv.Atoi(bitsPart)
	if err != nil || bits <= 0 || bits > 32 {
		return nil, fmt.Errorf("%w: prefix length in %q", ErrInvalidRange, s)
	}

	a4 := addr.As4()
	start := uint32(a4[0])<<24 | uint32(a4[1])<<16 | uint32(a4[2])<<8 | uint32(a4[3])
	mask := ^(uint32(0xffffffff) >> bits)
	end := (start & mask) + ^mask
	if start >= end {
		return nil, fmt.Errorf("%w: %q is the last address of its network", ErrInvalidRange, s)
	}
	count := uint64(end-start) + 1
	if count > uint64(max(limit, 0)) {
		return nil, fmt.Errorf("%w: %q has %d addresses, %d allowed", ErrLimitExceeded, s, count, limit)
	}

	addrs := make([]string, 0, count)
	for i := uint64(start); i <= uint64(end); i++ {
		v := uint32(i)
		addrs = append(addrs, netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}).String())
	}
	return addrs, nil
}
