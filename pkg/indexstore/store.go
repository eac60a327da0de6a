// Package indexstore provides the per-stream frame index kept by demuxers.
//
// Entries are ordered by byte offset. An entry added at an offset that is
// already present refreshes that entry's flags and size, and an entry that
// falls before the tail is inserted in place, so the sequence never shrinks.
// Timestamps need not be monotonic because encoders reorder frames.
package indexstore

import (
	"sort"

	"github.com/user/framenav/pkg/ports"
)

// Store is an offset-ordered index for one stream. It is not safe for
// concurrent use.
type Store struct {
	entries []ports.IndexEntry
}

// New creates an empty store with room for capacity entries.
func New(capacity int) *Store {
	return &Store{entries: make([]ports.IndexEntry, 0, capacity)}
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.entries)
}

// At returns the i-th entry.
func (s *Store) At(i int) (ports.IndexEntry, bool) {
	if i < 0 || i >= len(s.entries) {
		return ports.IndexEntry{}, false
	}
	return s.entries[i], true
}

// Entries returns a copy of all entries.
func (s *Store) Entries() []ports.IndexEntry {
	out := make([]ports.IndexEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Add records an entry and returns its position. It reports false when the
// entry was already present at that offset.
func (s *Store) Add(e ports.IndexEntry) (int, bool) {
	n := len(s.entries)
	// Demuxers mostly add in read order, so try the tail first.
	if n == 0 || s.entries[n-1].Offset < e.Offset {
		s.entries = append(s.entries, e)
		return n, true
	}

	i := sort.Search(n, func(i int) bool { return s.entries[i].Offset >= e.Offset })
	if i < n && s.entries[i].Offset == e.Offset {
		s.entries[i].Flags |= e.Flags
		if e.Size > s.entries[i].Size {
			s.entries[i].Size = e.Size
		}
		return i, false
	}

	s.entries = append(s.entries, ports.IndexEntry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
	return i, true
}

// Search returns the position of the entry nearest ts. With backward set it
// picks the last entry whose timestamp is <= ts, otherwise the first entry
// whose timestamp is >= ts. With keyOnly set only keyframe entries qualify.
// Entries with unknown timestamps never match. It returns -1 when nothing
// qualifies.
func (s *Store) Search(ts int64, backward, keyOnly bool) int {
	best := -1
	for i, e := range s.entries {
		if e.Timestamp == ports.NoPTS || (keyOnly && !e.Flags.IsKeyframe()) {
			continue
		}
		if backward {
			if e.Timestamp <= ts && (best < 0 || e.Timestamp >= s.entries[best].Timestamp) {
				best = i
			}
		} else {
			if e.Timestamp >= ts && (best < 0 || e.Timestamp < s.entries[best].Timestamp) {
				best = i
			}
		}
	}
	return best
}
