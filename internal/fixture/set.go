package fixture

import (
	"strconv"
	"strings"
)

// Provenance records where a fixture set came from.
type Provenance string

const (
	Discovered Provenance = "discovered"
	Fallback   Provenance = "fallback"
)

// DefaultFallback is used when discovery fails and no fallback is configured.
var DefaultFallback = []int64{1, 2, 3}

// Set is an ordered, non-empty list of positive identifiers. It is built
// once per session and read-only afterwards; accessors return copies.
type Set struct {
	ids        []int64
	provenance Provenance
	reason     string
}

// NewSet builds a set from explicit ids. Non-positive and duplicate ids are
// removed; if nothing remains the default fallback is used and the set is
// marked degraded.
func NewSet(ids []int64, provenance Provenance) Set {
	clean := positiveUnique(ids)
	if len(clean) == 0 {
		return Set{ids: append([]int64(nil), DefaultFallback...), provenance: Fallback, reason: ReasonNoUsableIDs}
	}
	return Set{ids: clean, provenance: provenance}
}

// IDs returns a copy of the identifiers.
func (s Set) IDs() []int64 {
	return append([]int64(nil), s.ids...)
}

// First returns the first identifier.
func (s Set) First() int64 {
	if len(s.ids) == 0 {
		return DefaultFallback[0]
	}
	return s.ids[0]
}

// Len returns the number of identifiers.
func (s Set) Len() int { return len(s.ids) }

// Provenance reports whether the ids were discovered or substituted.
func (s Set) Provenance() Provenance { return s.provenance }

// Degraded reports whether discovery failed and the fallback is in use.
func (s Set) Degraded() bool { return s.reason != "" }

// Reason returns the degradation reason, or "" when not degraded.
func (s Set) Reason() string { return s.reason }

// Evidence renders the set as flat evidence under "fixture." keys.
func (s Set) Evidence() map[string]string {
	ev := map[string]string{
		"fixture.provenance": string(s.provenance),
		"fixture.ids":        joinIDs(s.ids),
	}
	if s.reason != "" {
		ev["fixture.degraded"] = s.reason
	}
	return ev
}

func positiveUnique(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
