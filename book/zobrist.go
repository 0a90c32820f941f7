package book

import (
	"math/bits"
	"strings"

	"github.com/dylhunn/dragontoothmg"
)

/*
	Position hashing for book lookup.

	A book file is only meaningful against the exact key table it was built
	with: hashing the same position with a different table simply never
	matches any entry (the probe misses, it never returns a wrong move).
	The default table is therefore generated once, from a fixed seed, and
	callers replaying a book built elsewhere must supply that book's table
	via LoadWithKeys.
*/

// KeyTable holds the independent 64-bit keys XORed together to fingerprint
// a position: one per (piece kind x color x square), one per castling
// right, one per en-passant file, and one for the side to move.
type KeyTable struct {
	Pieces    [12][64]uint64 // 0-5 white P,N,B,R,Q,K; 6-11 black
	Castle    [4]uint64      // K, Q, k, q
	EnPassant [8]uint64      // file a-h
	Side      uint64         // xored in when black is to move
}

var defaultKeys = NewKeyTable(0x37b4a4b3f0d1c0d0)

// DefaultKeys returns the table every Heron-generated book is built against.
func DefaultKeys() *KeyTable { return defaultKeys }

// NewKeyTable fills a key table from the given seed. The same seed always
// produces the same table.
func NewKeyTable(seed uint64) *KeyTable {
	s := seed
	next := func() uint64 {
		s ^= s >> 12
		s ^= s << 25
		s ^= s >> 27
		return s * 0x2545F4914F6CDD1D
	}

	kt := &KeyTable{}
	for piece := 0; piece < 12; piece++ {
		for sq := 0; sq < 64; sq++ {
			kt.Pieces[piece][sq] = next()
		}
	}
	for i := 0; i < 4; i++ {
		kt.Castle[i] = next()
	}
	for f := 0; f < 8; f++ {
		kt.EnPassant[f] = next()
	}
	kt.Side = next()
	return kt
}

// Hash fingerprints the board: equal piece placement, castling rights,
// en-passant file and side to move hash equal; changing any one of them
// changes the hash with high probability.
func (kt *KeyTable) Hash(b *dragontoothmg.Board) uint64 {
	var h uint64

	white := [6]uint64{b.White.Pawns, b.White.Knights, b.White.Bishops, b.White.Rooks, b.White.Queens, b.White.Kings}
	black := [6]uint64{b.Black.Pawns, b.Black.Knights, b.Black.Bishops, b.Black.Rooks, b.Black.Queens, b.Black.Kings}
	for pt := 0; pt < 6; pt++ {
		for bb := white[pt]; bb != 0; bb &= bb - 1 {
			h ^= kt.Pieces[pt][bits.TrailingZeros64(bb)]
		}
		for bb := black[pt]; bb != 0; bb &= bb - 1 {
			h ^= kt.Pieces[pt+6][bits.TrailingZeros64(bb)]
		}
	}

	castling, epFile := fenRights(b)
	if strings.ContainsRune(castling, 'K') {
		h ^= kt.Castle[0]
	}
	if strings.ContainsRune(castling, 'Q') {
		h ^= kt.Castle[1]
	}
	if strings.ContainsRune(castling, 'k') {
		h ^= kt.Castle[2]
	}
	if strings.ContainsRune(castling, 'q') {
		h ^= kt.Castle[3]
	}
	if epFile >= 0 {
		h ^= kt.EnPassant[epFile]
	}
	if !b.Wtomove {
		h ^= kt.Side
	}
	return h
}

// fenRights extracts the castling field and the en-passant file (-1 if none)
// from the board's serialization; the board type does not expose them
// directly.
func fenRights(b *dragontoothmg.Board) (castling string, epFile int) {
	fields := strings.Fields(b.ToFen())
	castling, epFile = "-", -1
	if len(fields) >= 3 {
		castling = fields[2]
	}
	if len(fields) >= 4 && fields[3] != "-" && len(fields[3]) == 2 {
		f := int(fields[3][0] - 'a')
		if f >= 0 && f < 8 {
			epFile = f
		}
	}
	return castling, epFile
}
