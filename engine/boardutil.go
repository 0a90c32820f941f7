package engine

import (
	"math/bits"
	"strings"

	"github.com/dylhunn/dragontoothmg"
)

// pieceTypeAt looks up the piece on a square within one side's bitboards.
func pieceTypeAt(position uint8, bitboards *dragontoothmg.Bitboards) (pieceType dragontoothmg.Piece, occupied bool) {
	if bitboards.Pawns&(1<<position) > 0 {
		return dragontoothmg.Pawn, true
	} else if bitboards.Knights&(1<<position) > 0 {
		return dragontoothmg.Knight, true
	} else if bitboards.Bishops&(1<<position) > 0 {
		return dragontoothmg.Bishop, true
	} else if bitboards.Rooks&(1<<position) > 0 {
		return dragontoothmg.Rook, true
	} else if bitboards.Queens&(1<<position) > 0 {
		return dragontoothmg.Queen, true
	} else if bitboards.Kings&(1<<position) > 0 {
		return dragontoothmg.King, true
	}
	return 0, false
}

// sideBitboards returns (mover, opponent) bitboards for the position.
func sideBitboards(b *dragontoothmg.Board) (own, opp *dragontoothmg.Bitboards) {
	if b.Wtomove {
		return &b.White, &b.Black
	}
	return &b.Black, &b.White
}

// sideToMoveScope saves the side-to-move flag and returns a restore func.
// Callers that flip the flag (mobility counting, the null move) defer the
// restore so the flag survives every exit path, including panics.
func sideToMoveScope(b *dragontoothmg.Board) func() {
	was := b.Wtomove
	return func() { b.Wtomove = was }
}

// placementField cuts a FEN down to its piece-placement field, the key the
// hardcoded opening lines and the learning store use.
func placementField(fen string) string {
	if i := strings.IndexByte(fen, ' '); i >= 0 {
		return fen[:i]
	}
	return fen
}

// HalfmoveClock reads the fifty-move counter out of the serialized position.
func HalfmoveClock(b *dragontoothmg.Board) int {
	fields := strings.Fields(b.ToFen())
	if len(fields) < 5 {
		return 0
	}
	n := 0
	for _, c := range fields[4] {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// plyCount derives the number of half-moves played from the fullmove number.
func plyCount(b *dragontoothmg.Board) int {
	plies := (int(b.Fullmoveno) - 1) * 2
	if !b.Wtomove {
		plies++
	}
	return plies
}

// victimValue is the material value of the piece a capture removes; en
// passant captures a pawn on a square the move does not land on.
func victimValue(b *dragontoothmg.Board, move dragontoothmg.Move) int {
	_, opp := sideBitboards(b)
	if victim, ok := pieceTypeAt(move.To(), opp); ok {
		return pieceValue[victim]
	}
	if isEnPassant(b, move) {
		return pieceValue[dragontoothmg.Pawn]
	}
	return 0
}

// isCaptureMove reports whether the move takes a piece, en passant included.
func isCaptureMove(b *dragontoothmg.Board, move dragontoothmg.Move) bool {
	_, opp := sideBitboards(b)
	return opp.All&(1<<move.To()) != 0 || isEnPassant(b, move)
}

// isEnPassant reports a pawn capture onto an empty square.
func isEnPassant(b *dragontoothmg.Board, move dragontoothmg.Move) bool {
	own, opp := sideBitboards(b)
	if own.Pawns&(1<<move.From()) == 0 {
		return false
	}
	fromFile := move.From() % 8
	toFile := move.To() % 8
	return fromFile != toFile && (opp.All&(1<<move.To())) == 0
}

// isCastle reports a king move of two files.
func isCastle(b *dragontoothmg.Board, move dragontoothmg.Move) bool {
	own, _ := sideBitboards(b)
	if own.Kings&(1<<move.From()) == 0 {
		return false
	}
	fromFile := int(move.From() % 8)
	toFile := int(move.To() % 8)
	return fromFile-toFile == 2 || toFile-fromFile == 2
}

// givesCheck plays the move and asks whether the opponent's king is then
// attacked. The move must be legal for the position.
func givesCheck(b *dragontoothmg.Board, move dragontoothmg.Move) bool {
	unapply := b.Apply(move)
	defer unapply()
	return b.OurKingInCheck()
}

// InsufficientMaterial reports positions no sequence of legal moves can win:
// bare kings, or a single minor piece against a bare king.
func InsufficientMaterial(b *dragontoothmg.Board) bool {
	if b.White.Pawns|b.Black.Pawns|b.White.Rooks|b.Black.Rooks|b.White.Queens|b.Black.Queens != 0 {
		return false
	}
	minors := bits.OnesCount64(b.White.Knights|b.White.Bishops) +
		bits.OnesCount64(b.Black.Knights|b.Black.Bishops)
	return minors <= 1
}
