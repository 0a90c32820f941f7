package engine

import (
	"math/bits"

	"github.com/dylhunn/dragontoothmg"
)

// ///////////////////////////////////////////////////////////////////
// Game phase
// ///////////////////////////////////////////////////////////////////

const (
	phaseOpening = iota
	phaseMiddlegame
	phaseEndgame
)

// Evaluation weights.
var (
	mobilityWeight     = 3
	bishopPairBonus    = 30
	centralKingPenalty = 40
	castledKingBonus   = 50
	shieldPawnBonus    = 10
	passedPawnBase     = 20
	passedPawnPerRank  = 10
	doubledPawnPenalty = 15
	isolatedPenalty    = 20
	backwardPenalty    = 10
)

// gamePhase classifies the position: the first ten plies are the opening,
// six or fewer non-pawn pieces is the endgame, everything else middlegame.
func gamePhase(b *dragontoothmg.Board) int {
	if plyCount(b) < 10 {
		return phaseOpening
	}
	nonPawn := bits.OnesCount64(b.White.Knights|b.White.Bishops|b.White.Rooks|b.White.Queens) +
		bits.OnesCount64(b.Black.Knights|b.Black.Bishops|b.Black.Rooks|b.Black.Queens)
	if nonPawn <= 6 {
		return phaseEndgame
	}
	return phaseMiddlegame
}

// ///////////////////////////////////////////////////////////////////
// Piece-square tables
// ///////////////////////////////////////////////////////////////////

// Indexed by square for White (a1 = 0) and by the vertically mirrored
// square for Black. The king swaps tables between middlegame and endgame.

var pawnTable = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	50, 50, 50, 50, 50, 50, 50, 50,
	10, 10, 20, 30, 30, 20, 10, 10,
	5, 5, 10, 27, 27, 10, 5, 5,
	0, 0, 0, 25, 25, 0, 0, 0,
	5, -5, -10, 0, 0, -10, -5, 5,
	5, 10, 10, -25, -25, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightTable = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopTable = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookTable = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, 10, 10, 10, 10, 5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	0, 0, 0, 5, 5, 0, 0, 0,
}

var queenTable = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-5, 0, 5, 5, 5, 5, 0, -5,
	0, 0, 5, 5, 5, 5, 0, -5,
	-10, 5, 5, 5, 5, 5, 0, -10,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingMiddlegameTable = [64]int{
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	20, 20, 0, 0, 0, 0, 20, 20,
	20, 30, 10, 0, 0, 10, 30, 20,
}

var kingEndgameTable = [64]int{
	-50, -40, -30, -20, -20, -30, -40, -50,
	-30, -20, -10, 0, 0, -10, -20, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 30, 40, 40, 30, -10, -30,
	-30, -10, 20, 30, 30, 20, -10, -30,
	-30, -30, 0, 0, 0, 0, -30, -30,
	-50, -30, -30, -30, -30, -30, -30, -50,
}

func pieceSquareValue(piece dragontoothmg.Piece, square uint8, white bool, phase int) int {
	sq := square
	if !white {
		sq ^= 56 // vertical mirror
	}
	switch piece {
	case dragontoothmg.Pawn:
		return pawnTable[sq]
	case dragontoothmg.Knight:
		return knightTable[sq]
	case dragontoothmg.Bishop:
		return bishopTable[sq]
	case dragontoothmg.Rook:
		return rookTable[sq]
	case dragontoothmg.Queen:
		return queenTable[sq]
	case dragontoothmg.King:
		if phase == phaseEndgame {
			return kingEndgameTable[sq]
		}
		return kingMiddlegameTable[sq]
	}
	return 0
}

// ///////////////////////////////////////////////////////////////////
// Static evaluation
// ///////////////////////////////////////////////////////////////////

// Evaluate scores the position in centipawns, positive meaning advantage
// for the side to move. It is a pure function of the position: the mobility
// count toggles the side-to-move flag but restores it before returning.
func Evaluate(b *dragontoothmg.Board) int {
	moves := b.GenerateLegalMoves()
	if len(moves) == 0 {
		if b.OurKingInCheck() {
			// Sign follows the side delivering mate.
			if b.Wtomove {
				return -evalMate
			}
			return evalMate
		}
		return 0
	}
	if InsufficientMaterial(b) {
		return 0
	}

	phase := gamePhase(b)
	score := 0

	// Material and piece placement, white-positive.
	for sq := uint8(0); sq < 64; sq++ {
		if piece, ok := pieceTypeAt(sq, &b.White); ok {
			score += pieceValue[piece] + pieceSquareValue(piece, sq, true, phase)
		} else if piece, ok := pieceTypeAt(sq, &b.Black); ok {
			score -= pieceValue[piece] + pieceSquareValue(piece, sq, false, phase)
		}
	}

	score += mobility(b)

	score += kingSafety(b, true, phase)
	score -= kingSafety(b, false, phase)

	score += pawnStructure(b, true)
	score -= pawnStructure(b, false)

	if bits.OnesCount64(b.White.Bishops) >= 2 {
		score += bishopPairBonus
	}
	if bits.OnesCount64(b.Black.Bishops) >= 2 {
		score -= bishopPairBonus
	}

	if !b.Wtomove {
		return -score
	}
	return score
}

// mobility counts legal moves for both sides by flipping the side-to-move
// flag on a copy of the board. Generating moves for the side not to move
// can trip dragontoothmg's en-passant legality probe, whose restore writes
// a pawn back onto a square that was empty; the copy keeps that write off
// the real board.
func mobility(b *dragontoothmg.Board) int {
	c := *b
	c.Wtomove = true
	white := len(c.GenerateLegalMoves())
	c.Wtomove = false
	black := len(c.GenerateLegalMoves())
	return (white - black) * mobilityWeight
}

// kingSafety is middlegame-biased and vanishes in the endgame, where the
// king should walk toward the center instead of hiding.
func kingSafety(b *dragontoothmg.Board, white bool, phase int) int {
	if phase == phaseEndgame {
		return 0
	}

	var own *dragontoothmg.Bitboards
	if white {
		own = &b.White
	} else {
		own = &b.Black
	}
	if own.Kings == 0 {
		return 0
	}
	kingSq := uint8(bits.TrailingZeros64(own.Kings))
	kingFile := kingSq % 8

	score := 0
	if phase == phaseMiddlegame && kingFile >= 2 && kingFile <= 5 {
		score -= centralKingPenalty
	}

	// Castled squares: g1/c1 for White, g8/c8 for Black, with a pawn
	// shield bonus for the kingside castle.
	var castledShort, castledLong uint8 = 6, 2
	var shield = [3]uint8{13, 14, 15} // f2 g2 h2
	if !white {
		castledShort, castledLong = 62, 58
		shield = [3]uint8{53, 54, 55} // f7 g7 h7
	}
	if kingSq == castledShort || kingSq == castledLong {
		score += castledKingBonus
		if kingSq == castledShort {
			for _, sq := range shield {
				if own.Pawns&(1<<sq) != 0 {
					score += shieldPawnBonus
				}
			}
		}
	}
	return score
}

// pawnStructure scores one side's pawns: passed pawns scale with distance
// travelled, doubled, isolated and "backward" pawns take flat penalties.
func pawnStructure(b *dragontoothmg.Board, white bool) int {
	var own, opp *dragontoothmg.Bitboards
	if white {
		own, opp = &b.White, &b.Black
	} else {
		own, opp = &b.Black, &b.White
	}

	score := 0
	for pawns := own.Pawns; pawns != 0; pawns &= pawns - 1 {
		sq := uint8(bits.TrailingZeros64(pawns))
		file := int(sq % 8)
		rank := int(sq / 8)

		if isPassedPawn(opp.Pawns, sq, white) {
			if white {
				score += passedPawnBase + rank*passedPawnPerRank
			} else {
				score += passedPawnBase + (7-rank)*passedPawnPerRank
			}
		}
		if bits.OnesCount64(own.Pawns&fileMask(file)) > 1 {
			score -= doubledPawnPenalty
		}
		if own.Pawns&adjacentFilesMask(file) == 0 {
			score -= isolatedPenalty
		}
		if isBackwardPawn(own.Pawns, sq, white) {
			score -= backwardPenalty
		}
	}
	return score
}

// isPassedPawn reports no enemy pawn ahead on the same or adjacent files.
func isPassedPawn(enemyPawns uint64, sq uint8, white bool) bool {
	file := int(sq % 8)
	rank := int(sq / 8)
	span := fileMask(file) | adjacentFilesMask(file)
	var ahead uint64
	if white {
		for r := rank + 1; r <= 7; r++ {
			ahead |= rankMask(r)
		}
	} else {
		for r := 0; r < rank; r++ {
			ahead |= rankMask(r)
		}
	}
	return enemyPawns&span&ahead == 0
}

// isBackwardPawn reports a friendly pawn on an adjacent file strictly
// behind this one.
func isBackwardPawn(ownPawns uint64, sq uint8, white bool) bool {
	file := int(sq % 8)
	rank := int(sq / 8)
	adj := ownPawns & adjacentFilesMask(file)
	var behind uint64
	if white {
		for r := 0; r < rank; r++ {
			behind |= rankMask(r)
		}
	} else {
		for r := rank + 1; r <= 7; r++ {
			behind |= rankMask(r)
		}
	}
	return adj&behind != 0
}

func fileMask(file int) uint64 {
	return 0x0101010101010101 << uint(file)
}

func adjacentFilesMask(file int) uint64 {
	var mask uint64
	if file > 0 {
		mask |= fileMask(file - 1)
	}
	if file < 7 {
		mask |= fileMask(file + 1)
	}
	return mask
}

func rankMask(rank int) uint64 {
	return 0xff << uint(rank*8)
}
