package engine

import (
	"github.com/dylhunn/dragontoothmg"
)

type scoredMove struct {
	move  dragontoothmg.Move
	score int
}

type moveList struct {
	moves []scoredMove
}

// orderNextMove selection-sorts the best remaining move into currIndex.
// Moves past the eventual cutoff are never fully sorted.
func orderNextMove(currIndex int, moves *moveList) {
	bestIndex := currIndex
	bestScore := moves.moves[bestIndex].score

	for index := bestIndex + 1; index < len(moves.moves); index++ {
		if moves.moves[index].score > bestScore {
			bestIndex = index
			bestScore = moves.moves[index].score
		}
	}
	moves.moves[currIndex], moves.moves[bestIndex] = moves.moves[bestIndex], moves.moves[currIndex]
}

// scoreMoves builds the ordering scores for one node: tactical heuristics
// plus history, killers, the cached best move, and the learned bias.
// Ordering is a performance lever only; any order searches to the same
// score.
func (e *Engine) scoreMoves(b *dragontoothmg.Board, moves []dragontoothmg.Move, depth int, fen string) moveList {
	var ttBest dragontoothmg.Move
	if entry, ok := e.tt.probe(fen); ok {
		ttBest = entry.best
	}
	placement := ""
	if e.Learning() {
		placement = placementField(fen)
	}

	list := moveList{moves: make([]scoredMove, len(moves))}
	for i, mv := range moves {
		score := e.tacticalScore(b, mv)
		score += e.history[mv]
		if e.killers.matches(depth, mv) {
			score += killerBonus
		}
		if ttBest != 0 && mv == ttBest {
			score += ttBestBonus
		}
		if placement != "" {
			score += e.learn.Bonus(placement, mv.String())
		}
		list.moves[i] = scoredMove{move: mv, score: score}
	}
	return list
}

// tacticalScore is the static part of the ordering: MVV-style capture
// value, promotion, castling and checking bonuses.
func (e *Engine) tacticalScore(b *dragontoothmg.Board, mv dragontoothmg.Move) int {
	score := 0
	if promo := mv.Promote(); promo != 0 {
		if promo == dragontoothmg.Queen {
			score += queenPromoBonus
		} else {
			score += underPromoBonus
		}
	}
	if isCaptureMove(b, mv) {
		score += captureBonus + victimValue(b, mv)
	}
	if isCastle(b, mv) {
		score += castleBonus
	}
	if givesCheck(b, mv) {
		score += checkBonus
	}
	return score
}

// scoreCaptures orders capture moves for quiescence by victim value minus
// attacker value, so winning and equal exchanges come first.
func scoreCaptures(b *dragontoothmg.Board, moves []dragontoothmg.Move) moveList {
	own, _ := sideBitboards(b)
	var list moveList
	for _, mv := range moves {
		if !isCaptureMove(b, mv) {
			continue
		}
		attacker, _ := pieceTypeAt(mv.From(), own)
		score := victimValue(b, mv) - pieceValue[attacker]
		list.moves = append(list.moves, scoredMove{move: mv, score: score})
	}
	return list
}
