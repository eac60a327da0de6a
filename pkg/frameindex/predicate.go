package frameindex

import "github.com/user/framenav/pkg/ports"

// Predicate selects the index entries an Enumerator stops at. Match receives
// the entry's position in the stream index and must be pure.
type Predicate interface {
	Match(index int, e ports.IndexEntry) bool
}

// PredicateFunc adapts a plain entry test to a Predicate.
type PredicateFunc func(ports.IndexEntry) bool

// Match implements Predicate.
func (f PredicateFunc) Match(_ int, e ports.IndexEntry) bool {
	return f(e)
}

var (
	// KeyframesOnly matches entries whose keyframe flag is set.
	KeyframesOnly Predicate = PredicateFunc(func(e ports.IndexEntry) bool {
		return e.Flags.IsKeyframe()
	})

	// All matches every entry.
	All Predicate = PredicateFunc(func(ports.IndexEntry) bool {
		return true
	})
)

type everyNth int

func (n everyNth) Match(index int, _ ports.IndexEntry) bool {
	return index%int(n) == 0
}

// EveryNth matches entries 0, n, 2n, ... of the index. n < 1 is treated as 1.
func EveryNth(n int) Predicate {
	if n < 1 {
		n = 1
	}
	return everyNth(n)
}

// ParsePredicate returns the built-in predicate for a configuration name:
// "keyframes" (also the empty string), "all" or "every-nth".
func ParsePredicate(name string, nth int) (Predicate, bool) {
	switch name {
	case "", "keyframes":
		return KeyframesOnly, true
	case "all":
		return All, true
	case "every-nth":
		return EveryNth(nth), true
	default:
		return nil, false
	}
}
