package engine

import (
	"sort"

	"github.com/dylhunn/dragontoothmg"
)

// Bound kinds for stored scores.
const (
	ttExact uint8 = iota
	ttLower       // score is a lower bound (caused a beta cutoff)
	ttUpper       // score is an upper bound (every move failed low)
)

// ttEntry is one cached search result. A zero best move means none was
// recorded (terminal and quiescence entries).
type ttEntry struct {
	score int
	depth int
	flag  uint8
	best  dragontoothmg.Move
}

// transTable caches search results keyed by the position's full FEN
// serialization, so two distinct positions never share an entry. Entries
// are only trusted at sufficient depth, which the caller checks.
type transTable struct {
	entries  map[string]ttEntry
	capacity int
}

func newTransTable(capacity int) *transTable {
	return &transTable{
		entries:  make(map[string]ttEntry, capacity/4),
		capacity: capacity,
	}
}

func (tt *transTable) probe(fen string) (ttEntry, bool) {
	e, ok := tt.entries[fen]
	return e, ok
}

// store writes an entry and trims the table back to 80% of capacity when it
// grows past the cap, keeping the deepest-searched entries.
func (tt *transTable) store(fen string, e ttEntry) {
	tt.entries[fen] = e
	if len(tt.entries) <= tt.capacity {
		return
	}
	tt.trim()
}

func (tt *transTable) trim() {
	type keyed struct {
		fen   string
		depth int
	}
	all := make([]keyed, 0, len(tt.entries))
	for fen, e := range tt.entries {
		all = append(all, keyed{fen: fen, depth: e.depth})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].depth > all[j].depth })

	keep := tt.capacity * 8 / 10
	if keep < 1 {
		keep = 1
	}
	if keep >= len(all) {
		return
	}
	for _, v := range all[keep:] {
		delete(tt.entries, v.fen)
	}
}

func (tt *transTable) len() int { return len(tt.entries) }

// clear drops every entry, used when the driver resets for a new game.
func (tt *transTable) clear() {
	tt.entries = make(map[string]ttEntry, tt.capacity/4)
}
