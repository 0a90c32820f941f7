package engine

import (
	"testing"

	"github.com/dylhunn/dragontoothmg"
)

func findMove(t *testing.T, b *dragontoothmg.Board, uci string) dragontoothmg.Move {
	t.Helper()
	for _, mv := range b.GenerateLegalMoves() {
		if mv.String() == uci {
			return mv
		}
	}
	t.Fatalf("move %s not legal in %s", uci, b.ToFen())
	return 0
}

func TestOrderNextMoveSelectsBest(t *testing.T) {
	list := moveList{moves: []scoredMove{
		{score: 5}, {score: 30}, {score: 10}, {score: 30},
	}}

	orderNextMove(0, &list)
	if list.moves[0].score != 30 {
		t.Fatalf("expected highest score first, got %d", list.moves[0].score)
	}
	orderNextMove(1, &list)
	if list.moves[1].score != 30 {
		t.Fatalf("expected second highest next, got %d", list.moves[1].score)
	}
	orderNextMove(2, &list)
	if list.moves[2].score != 10 {
		t.Fatalf("expected 10 third, got %d", list.moves[2].score)
	}
}

func TestCachedBestMoveOrderedFirst(t *testing.T) {
	eng := newTestEngine(3)
	b := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	fen := b.ToFen()

	quiet := findMove(t, &b, "a2a3")
	eng.tt.store(fen, ttEntry{score: 0, depth: 1, flag: ttExact, best: quiet})

	list := eng.scoreMoves(&b, b.GenerateLegalMoves(), 1, fen)
	orderNextMove(0, &list)
	if list.moves[0].move != quiet {
		t.Errorf("cached best move should sort first, got %s", list.moves[0].move.String())
	}
	if list.moves[0].score < ttBestBonus {
		t.Errorf("cached best move score %d below its bonus", list.moves[0].score)
	}
}

func TestKillerMoveGetsBonus(t *testing.T) {
	eng := newTestEngine(3)
	b := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	fen := b.ToFen()

	killer := findMove(t, &b, "g1f3")
	eng.killers.store(2, killer)

	list := eng.scoreMoves(&b, b.GenerateLegalMoves(), 2, fen)
	for _, sm := range list.moves {
		if sm.move == killer && sm.score < killerBonus {
			t.Errorf("killer move scored %d, below the killer bonus", sm.score)
		}
	}

	// A different depth must not get the bonus.
	if eng.killers.matches(3, killer) {
		t.Error("killer matched at a depth it was never stored for")
	}
}

func TestKillerTableKeepsTwoDistinct(t *testing.T) {
	var kt killerTable
	kt.store(1, dragontoothmg.Move(100))
	kt.store(1, dragontoothmg.Move(100)) // duplicate ignored
	kt.store(1, dragontoothmg.Move(200))

	if !kt.matches(1, dragontoothmg.Move(100)) || !kt.matches(1, dragontoothmg.Move(200)) {
		t.Error("both stored killers should match")
	}

	kt.store(1, dragontoothmg.Move(300))
	if kt.matches(1, dragontoothmg.Move(100)) {
		t.Error("oldest killer should have been pushed out")
	}
}

func TestCapturesRankedByValue(t *testing.T) {
	// Pawn takes pawn (even trade) versus queen takes rook (losing
	// exchange); the even trade must come first.
	b := dragontoothmg.ParseFen("8/k7/8/1p5r/2P5/8/8/4K2Q w - - 0 1")

	list := scoreCaptures(&b, b.GenerateLegalMoves())
	if len(list.moves) < 2 {
		t.Fatalf("expected at least two captures, got %d", len(list.moves))
	}
	orderNextMove(0, &list)
	if got := list.moves[0].move.String(); got != "c4b5" {
		t.Errorf("pawn takes pawn should rank first, got %s", got)
	}
}

func TestPromotionOutranksQuietMoves(t *testing.T) {
	b := dragontoothmg.ParseFen("8/P7/8/8/8/8/k7/7K w - - 0 1")
	fen := b.ToFen()
	eng := newTestEngine(3)

	list := eng.scoreMoves(&b, b.GenerateLegalMoves(), 1, fen)
	orderNextMove(0, &list)
	if got := list.moves[0].move.String(); got != "a7a8q" {
		t.Errorf("queen promotion should sort first, got %s", got)
	}
}

func TestHistoryAccumulatesSquared(t *testing.T) {
	eng := newTestEngine(3)
	mv := dragontoothmg.Move(77)

	eng.bumpHistory(mv, 2)
	eng.bumpHistory(mv, 3)
	if got := eng.history[mv]; got != 13 {
		t.Errorf("expected history 4+9=13, got %d", got)
	}
}
