package engine

import (
	"time"

	"github.com/dylhunn/dragontoothmg"
)

// ///////////////////////////////////////////////////////////////////
// Negamax
// ///////////////////////////////////////////////////////////////////

// negamax searches to the given depth and returns the score from the
// mover's perspective. The board is mutated via apply/unapply closures and
// is restored exactly on every path.
func (e *Engine) negamax(b *dragontoothmg.Board, depth, alpha, beta int) int {
	e.nodes++
	fen := b.ToFen()

	// Transposition probe. Entries are only trusted when searched at least
	// this deep; the bound kind decides whether the score can cut.
	if entry, ok := e.tt.probe(fen); ok && entry.depth >= depth {
		switch entry.flag {
		case ttExact:
			return entry.score
		case ttLower:
			if entry.score >= beta {
				return entry.score
			}
		case ttUpper:
			if entry.score <= alpha {
				return entry.score
			}
		}
	}

	moves := b.GenerateLegalMoves()
	inCheck := b.OurKingInCheck()

	// Terminal: mate scores against the side to move, draws score zero.
	if len(moves) == 0 || InsufficientMaterial(b) {
		score := 0
		if len(moves) == 0 && inCheck {
			score = -mateValue
		}
		e.tt.store(fen, ttEntry{score: score, depth: depth, flag: ttExact})
		return score
	}

	// Null move: give the opponent a free shot. If the position still
	// beats beta the real move surely will. The legal-move-count gate is
	// the zugzwang guard, an ad hoc one rather than phase-aware logic.
	if depth >= 3 && !inCheck && len(moves) >= 4 {
		if e.nullMoveScore(b, depth, beta) >= beta {
			return beta
		}
	}

	if depth == 0 {
		score := e.quiesce(b, alpha, beta, 0)
		e.tt.store(fen, ttEntry{score: score, depth: depth, flag: ttExact})
		return score
	}

	// Futility: near the horizon a quiet position hopelessly below alpha
	// is not worth a full move loop.
	if depth <= 2 && !inCheck && Evaluate(b)+futilityMargin[depth] <= alpha {
		return e.quiesce(b, alpha, beta, 0)
	}

	origAlpha := alpha
	maxScore := -mateValue
	var bestMove dragontoothmg.Move

	list := e.scoreMoves(b, moves, depth, fen)
	for i := 0; i < len(list.moves); i++ {
		orderNextMove(i, &list)
		mv := list.moves[i].move

		var score int
		if i == 0 {
			// Principal variation: full window.
			unapply := b.Apply(mv)
			score = -e.negamax(b, depth-1, -beta, -alpha)
			unapply()
		} else {
			// Late move reduction for quiet moves ordered late.
			reduction := 0
			if depth >= 3 && i >= 4 && mv.Promote() == 0 &&
				!isCaptureMove(b, mv) && !givesCheck(b, mv) {
				reduction = 1
			}
			d2 := depth - 1 - reduction
			if d2 < 0 {
				d2 = 0
			}

			unapply := b.Apply(mv)
			score = -e.negamax(b, d2, -(alpha + 1), -alpha)
			if score > alpha {
				// PVS re-search at full window and depth.
				score = -e.negamax(b, depth-1, -beta, -alpha)
			}
			unapply()
		}

		if score > maxScore {
			maxScore = score
			bestMove = mv
		}
		if score > alpha {
			alpha = score
		}
		if alpha >= beta {
			e.killers.store(depth, mv)
			e.bumpHistory(mv, depth)
			break
		}
	}

	flag := ttExact
	if maxScore <= origAlpha {
		flag = ttUpper
	} else if maxScore >= beta {
		flag = ttLower
	}
	e.tt.store(fen, ttEntry{score: maxScore, depth: depth, flag: flag, best: bestMove})
	return maxScore
}

// nullMoveScore flips the side to move without playing anything and probes
// a reduced-depth null window around beta. The probe runs on a copy of the
// board: generating moves with the flag flipped and a stale en-passant
// square can trip dragontoothmg's en-passant legality probe, whose restore
// writes a pawn back onto a square that was empty.
func (e *Engine) nullMoveScore(b *dragontoothmg.Board, depth, beta int) int {
	c := *b
	c.Wtomove = !c.Wtomove
	return -e.negamax(&c, depth-2-1, -beta, -beta+1)
}

// ///////////////////////////////////////////////////////////////////
// Quiescence
// ///////////////////////////////////////////////////////////////////

// quiesce extends the search through captures only, so the evaluation
// never lands in the middle of an exchange.
func (e *Engine) quiesce(b *dragontoothmg.Board, alpha, beta, ply int) int {
	e.nodes++

	standPat := Evaluate(b)
	if standPat >= beta {
		return beta
	}
	if alpha < standPat {
		alpha = standPat
	}
	// Delta pruning: a full queen cannot close the gap.
	if standPat < alpha-deltaMargin {
		return alpha
	}
	if ply >= maxQuiescePly {
		return alpha
	}

	list := scoreCaptures(b, b.GenerateLegalMoves())
	for i := 0; i < len(list.moves); i++ {
		orderNextMove(i, &list)
		mv := list.moves[i].move

		// Even winning this victim outright cannot reach alpha.
		if standPat+victimValue(b, mv)+captureBonus < alpha {
			continue
		}

		unapply := b.Apply(mv)
		score := -e.quiesce(b, -beta, -alpha, ply+1)
		unapply()

		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}
	return alpha
}

// ///////////////////////////////////////////////////////////////////
// Root search and iterative deepening
// ///////////////////////////////////////////////////////////////////

// searchRoot runs one depth's root move loop with PVS and returns the best
// move and score. found is false only when the position has no legal moves.
func (e *Engine) searchRoot(b *dragontoothmg.Board, depth, alpha, beta int) (best dragontoothmg.Move, score int, found bool) {
	fen := b.ToFen()
	moves := b.GenerateLegalMoves()
	if len(moves) == 0 {
		return 0, 0, false
	}

	origAlpha := alpha
	maxScore := -mateValue

	list := e.scoreMoves(b, moves, depth, fen)
	for i := 0; i < len(list.moves); i++ {
		orderNextMove(i, &list)
		mv := list.moves[i].move

		unapply := b.Apply(mv)
		var s int
		if i == 0 {
			s = -e.negamax(b, depth-1, -beta, -alpha)
		} else {
			s = -e.negamax(b, depth-1, -(alpha + 1), -alpha)
			if s > alpha {
				s = -e.negamax(b, depth-1, -beta, -alpha)
			}
		}
		unapply()

		if s > maxScore {
			maxScore = s
			best = mv
			found = true
		}
		if s > alpha {
			alpha = s
		}
		if alpha >= beta {
			e.killers.store(depth, mv)
			e.bumpHistory(mv, depth)
			break
		}
	}

	flag := ttExact
	if maxScore <= origAlpha {
		flag = ttUpper
	} else if maxScore >= beta {
		flag = ttLower
	}
	e.tt.store(fen, ttEntry{score: maxScore, depth: depth, flag: flag, best: best})
	return best, maxScore, found
}

// ChooseMove picks a move: opening book, then hardcoded lines, then
// iterative deepening with aspiration windows up to the configured depth.
// The chosen move is logged into the learning store for credit when the
// game ends.
func (e *Engine) ChooseMove(b *dragontoothmg.Board) (dragontoothmg.Move, bool) {
	if mv, ok := e.bookMove(b); ok {
		return mv, true
	}

	e.nodes = 0
	var best dragontoothmg.Move
	haveBest := false
	prevScore := 0

	for d := 1; d <= e.opts.Depth; d++ {
		start := time.Now()

		// Aspiration window around the previous depth's score, widening
		// with depth since the estimate decays.
		window := 30 + d*10
		alpha := maxInt(-mateValue, prevScore-window)
		beta := minInt(mateValue, prevScore+window)

		mv, score, found := e.searchRoot(b, d, alpha, beta)
		if found && score <= alpha {
			// Fail low: re-search with the lower bound wide open.
			mv, score, found = e.searchRoot(b, d, -mateValue, beta)
		} else if found && score >= beta {
			// Fail high: re-search with the upper bound wide open.
			mv, score, found = e.searchRoot(b, d, alpha, mateValue)
		}
		if found {
			best, haveBest, prevScore = mv, true, score
		}

		e.log.Debug().
			Int("depth", d).
			Int("score", prevScore).
			Uint64("nodes", e.nodes).
			Dur("elapsed", time.Since(start)).
			Msg("search iteration")
	}

	if haveBest {
		e.logChoice(b, best)
	}
	return best, haveBest
}

// ChooseMoveTimed deepens until the wall-clock budget runs out, checking
// the deadline between depths and between root moves. A deep recursive
// call can overrun; that is the accepted cost of cooperative cancellation.
func (e *Engine) ChooseMoveTimed(b *dragontoothmg.Board, budget time.Duration) (dragontoothmg.Move, bool) {
	if mv, ok := e.bookMove(b); ok {
		return mv, true
	}

	e.nodes = 0
	deadline := time.Now().Add(budget)
	var best dragontoothmg.Move
	haveBest := false

	for d := 1; d <= maxSearchDepth; d++ {
		if !time.Now().Before(deadline) {
			break
		}

		moves := b.GenerateLegalMoves()
		if len(moves) == 0 {
			break
		}
		list := e.scoreMoves(b, moves, d, b.ToFen())

		var currentBest dragontoothmg.Move
		haveCurrent := false
		bestScore := -mateValue
		alpha, beta := -mateValue, mateValue

		for i := 0; i < len(list.moves); i++ {
			if !time.Now().Before(deadline) {
				break
			}
			orderNextMove(i, &list)
			mv := list.moves[i].move

			unapply := b.Apply(mv)
			score := -e.negamax(b, d-1, -beta, -alpha)
			unapply()

			if score > bestScore {
				bestScore = score
				currentBest = mv
				haveCurrent = true
			}
			if score > alpha {
				alpha = score
			}
		}
		if haveCurrent {
			best, haveBest = currentBest, true
		}
	}

	if !haveBest {
		// Defensive fallback, not the common case.
		moves := b.GenerateLegalMoves()
		if len(moves) == 0 {
			return 0, false
		}
		best, haveBest = moves[e.rng.Intn(len(moves))], true
	}
	e.logChoice(b, best)
	return best, haveBest
}

// bookMove consults the Polyglot book, then the hardcoded lines. A miss
// falls through to search; it is never an error.
func (e *Engine) bookMove(b *dragontoothmg.Board) (dragontoothmg.Move, bool) {
	if !e.opts.UseBook {
		return 0, false
	}
	if e.book != nil {
		if mv, ok := e.book.Probe(b); ok {
			return mv, true
		}
	}
	return e.openingLineMove(b)
}

// logChoice records the committed move for learning credit at game end.
func (e *Engine) logChoice(b *dragontoothmg.Board, mv dragontoothmg.Move) {
	if !e.Learning() {
		return
	}
	e.learn.RecordChoice(placementField(b.ToFen()), mv.String(), b.Wtomove)
}

func maxInt(x, y int) int {
	if x > y {
		return x
	}
	return y
}

func minInt(x, y int) int {
	if x < y {
		return x
	}
	return y
}
