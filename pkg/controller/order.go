package controller

import (
	"sort"

	"tmux-cssh/pkg/hostlist"
)

// Order returns targets in the order their windows are opened: optionally
// sorted by hostname, then interleaved.
//
// Interleaving by n takes every n-th target, then starts over one further
// along: 8 targets with n=3 open as 0 3 6 1 4 7 2 5.
func Order(targets []hostlist.Target, sortHosts bool, interleave int) []hostlist.Target {
	out := append([]hostlist.Target(nil), targets...)
	if sortHosts {
		sort.SliceStable(out, func(i, j int) bool { return lessTarget(out[i], out[j]) })
	}
	if interleave <= 1 || len(out) == 0 {
		return out
	}
	mixed := make([]hostlist.Target, 0, len(out))
	cur, wrap := 0, 0
	for len(mixed) < len(out) {
		mixed = append(mixed, out[cur])
		cur += interleave
		if cur >= len(out) {
			wrap++
			cur = wrap
		}
	}
	return mixed
}
