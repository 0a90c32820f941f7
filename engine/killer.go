package engine

import (
	"github.com/dylhunn/dragontoothmg"
)

// killerTable keeps up to two quiet moves per depth that caused a beta
// cutoff there. Ordering only; a stale killer costs a worse search order,
// never a wrong score.
type killerTable struct {
	moves [maxSearchDepth + 1][2]dragontoothmg.Move
}

func (kt *killerTable) store(depth int, move dragontoothmg.Move) {
	if depth < 0 || depth > maxSearchDepth {
		return
	}
	if kt.moves[depth][0] == move || kt.moves[depth][1] == move {
		return
	}
	kt.moves[depth][1] = kt.moves[depth][0]
	kt.moves[depth][0] = move
}

func (kt *killerTable) matches(depth int, move dragontoothmg.Move) bool {
	if depth < 0 || depth > maxSearchDepth {
		return false
	}
	return kt.moves[depth][0] == move || kt.moves[depth][1] == move
}

// bumpHistory rewards a cutoff move with depth squared, so cutoffs found
// deep in the tree weigh more. Decays only on process restart.
func (e *Engine) bumpHistory(move dragontoothmg.Move, depth int) {
	e.history[move] += depth * depth
}
