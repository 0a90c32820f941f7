package book

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"

	"github.com/dylhunn/dragontoothmg"
)

// EntrySize is the fixed on-disk size of one Polyglot record.
const EntrySize = 16

// ErrBadFormat reports a book file whose size is not a positive multiple of
// the record size.
var ErrBadFormat = errors.New("book: malformed polyglot file")

// Entry is one raw book record: position key, encoded move, and weight.
// The trailing 4-byte learn field is ignored on load.
type Entry struct {
	Key    uint64
	Move   uint16
	Weight uint16
}

// Book is a read-only opening book: entries sorted ascending by key, plus
// the key table used to hash positions for lookup.
type Book struct {
	entries []Entry
	keys    *KeyTable
}

// Load reads a Polyglot .bin file using the default key table.
func Load(path string) (*Book, error) {
	return LoadWithKeys(path, DefaultKeys())
}

// LoadWithKeys reads a Polyglot .bin file that was generated against the
// supplied key table.
func LoadWithKeys(path string, keys *KeyTable) (*Book, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("book: open %s: %w", path, err)
	}
	if info.Size() == 0 || info.Size()%EntrySize != 0 {
		return nil, fmt.Errorf("%w: %s (%d bytes)", ErrBadFormat, path, info.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("book: open %s: %w", path, err)
	}
	defer f.Close()

	bk := &Book{
		entries: make([]Entry, 0, info.Size()/EntrySize),
		keys:    keys,
	}

	r := bufio.NewReader(f)
	var rec [EntrySize]byte
	for {
		_, err := io.ReadFull(r, rec[:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("book: read %s: %w", path, err)
		}
		bk.entries = append(bk.entries, Entry{
			Key:    binary.BigEndian.Uint64(rec[0:8]),
			Move:   binary.BigEndian.Uint16(rec[8:10]),
			Weight: binary.BigEndian.Uint16(rec[10:12]),
		})
	}

	// The format requires ascending key order; enforce it so the binary
	// search below holds even for hand-built files.
	sort.Slice(bk.entries, func(i, j int) bool { return bk.entries[i].Key < bk.entries[j].Key })

	return bk, nil
}

// Size returns the number of loaded entries.
func (bk *Book) Size() int {
	if bk == nil {
		return 0
	}
	return len(bk.entries)
}

// candidate pairs a decoded-and-verified legal move with its book weight.
type candidate struct {
	move   dragontoothmg.Move
	weight uint16
}

// Probe returns a book move for the position chosen by weighted-random
// sampling over the legal candidates' weights; an all-zero weight set falls
// back to a uniform pick. The boolean is false on a miss, which is the
// expected case out of book and never an error.
func (bk *Book) Probe(b *dragontoothmg.Board) (dragontoothmg.Move, bool) {
	cands := bk.candidates(b)
	if len(cands) == 0 {
		return 0, false
	}

	total := 0
	for _, c := range cands {
		total += int(c.weight)
	}
	if total == 0 {
		return cands[rand.Intn(len(cands))].move, true
	}

	r := rand.Intn(total)
	cum := 0
	for _, c := range cands {
		cum += int(c.weight)
		if r < cum {
			return c.move, true
		}
	}
	return cands[len(cands)-1].move, true
}

// BestMove returns the highest-weight legal book move for the position.
func (bk *Book) BestMove(b *dragontoothmg.Board) (dragontoothmg.Move, bool) {
	cands := bk.candidates(b)
	if len(cands) == 0 {
		return 0, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.weight > best.weight {
			best = c
		}
	}
	return best.move, true
}

// HasPosition reports whether any entry is stored under the position's key,
// legal or not.
func (bk *Book) HasPosition(b *dragontoothmg.Board) bool {
	if bk == nil {
		return false
	}
	key := bk.keys.Hash(b)
	i := sort.Search(len(bk.entries), func(i int) bool { return bk.entries[i].Key >= key })
	return i < len(bk.entries) && bk.entries[i].Key == key
}

// candidates collects the entries keyed by the position's hash and filters
// them down to currently legal moves.
func (bk *Book) candidates(b *dragontoothmg.Board) []candidate {
	if bk == nil || len(bk.entries) == 0 {
		return nil
	}

	key := bk.keys.Hash(b)
	i := sort.Search(len(bk.entries), func(i int) bool { return bk.entries[i].Key >= key })

	legal := b.GenerateLegalMoves()
	var cands []candidate
	for ; i < len(bk.entries) && bk.entries[i].Key == key; i++ {
		if m, ok := matchLegal(bk.entries[i].Move, b, legal); ok {
			cands = append(cands, candidate{move: m, weight: bk.entries[i].Weight})
		}
	}
	return cands
}

// Polyglot move layout: bits 0-5 destination, 6-11 origin, 12-14 promotion
// piece code (0 none, 1 knight, 2 bishop, 3 rook, 4 queen).
func decodeMove(data uint16) (from, to uint8, promo dragontoothmg.Piece) {
	to = uint8(data & 0x3F)
	from = uint8((data >> 6) & 0x3F)
	switch (data >> 12) & 0x7 {
	case 1:
		promo = dragontoothmg.Knight
	case 2:
		promo = dragontoothmg.Bishop
	case 3:
		promo = dragontoothmg.Rook
	case 4:
		promo = dragontoothmg.Queen
	}
	return from, to, promo
}

// matchLegal resolves a raw book move against the position's legal move
// set. The engine never synthesizes moves: a decoded entry only survives if
// the move generator produced the same (from, to, promotion) move.
func matchLegal(data uint16, b *dragontoothmg.Board, legal []dragontoothmg.Move) (dragontoothmg.Move, bool) {
	from, to, promo := decodeMove(data)

	// Polyglot encodes castling as king-takes-own-rook; remap to the
	// conventional king destination when a king actually sits on the
	// origin square.
	const (
		e1, g1, c1, a1, h1 = 4, 6, 2, 0, 7
		e8, g8, c8, a8, h8 = 60, 62, 58, 56, 63
	)
	kingAt := func(sq uint8) bool {
		return (b.White.Kings|b.Black.Kings)&(1<<sq) != 0
	}
	if from == e1 && kingAt(e1) {
		if to == h1 {
			to = g1
		} else if to == a1 {
			to = c1
		}
	} else if from == e8 && kingAt(e8) {
		if to == h8 {
			to = g8
		} else if to == a8 {
			to = c8
		}
	}

	for _, m := range legal {
		if m.From() == from && m.To() == to && m.Promote() == promo {
			return m, true
		}
	}
	return 0, false
}
