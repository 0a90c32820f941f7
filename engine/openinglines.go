package engine

import (
	"github.com/dylhunn/dragontoothmg"
)

// openingLines maps a position's piece-placement field to sensible moves in
// coordinate notation. The Polyglot book covers real repertoire; these
// lines only keep the first moves from looking random when no book file is
// configured.
var openingLines = map[string][]string{
	"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR":     {"e2e4", "d2d4", "c2c4", "g1f3"},
	"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR":   {"e7e5", "c7c5", "e7e6", "c7c6"},
	"rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR": {"g1f3", "f1c4", "b1c3"},
	"rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R": {"b8c6", "g8f6"},
	"rnbqkbnr/pppppppp/8/8/3P4/8/PPP1PPPP/RNBQKBNR":   {"g8f6", "d7d5", "e7e6"},
	"rnbqkb1r/pppppppp/5n2/8/3P4/8/PPP1PPPP/RNBQKBNR": {"c2c4", "g1f3"},
}

// openingLineMove picks a random legal move from the hardcoded lines for
// the position, if any line covers it.
func (e *Engine) openingLineMove(b *dragontoothmg.Board) (dragontoothmg.Move, bool) {
	line, ok := openingLines[placementField(b.ToFen())]
	if !ok {
		return 0, false
	}
	legal := b.GenerateLegalMoves()
	var candidates []dragontoothmg.Move
	for _, want := range line {
		for _, mv := range legal {
			if mv.String() == want {
				candidates = append(candidates, mv)
				break
			}
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}
	return candidates[e.rng.Intn(len(candidates))], true
}
