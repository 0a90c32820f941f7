package book

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dylhunn/dragontoothmg"
)

// encodeBookMove packs origin/destination into the 16-bit book move format.
func encodeBookMove(fromUCI, toUCI string) uint16 {
	sq := func(s string) uint16 {
		return uint16(s[0]-'a') + 8*uint16(s[1]-'1')
	}
	return sq(fromUCI)<<6 | sq(toUCI)
}

func writeBookFile(t *testing.T, entries []Entry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.bin")
	buf := make([]byte, 0, len(entries)*EntrySize)
	for _, e := range entries {
		rec := make([]byte, EntrySize)
		binary.BigEndian.PutUint64(rec[0:8], e.Key)
		binary.BigEndian.PutUint16(rec[8:10], e.Move)
		binary.BigEndian.PutUint16(rec[10:12], e.Weight)
		// trailing learn field stays zero; readers ignore it
		buf = append(buf, rec...)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRejectsBadSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	if err := os.WriteFile(path, make([]byte, 10), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrBadFormat) {
		t.Errorf("expected ErrBadFormat for a 10-byte file, got %v", err)
	}

	empty := filepath.Join(t.TempDir(), "empty.bin")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(empty); !errors.Is(err, ErrBadFormat) {
		t.Errorf("expected ErrBadFormat for an empty file, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.bin")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestBestMovePicksHighestWeight(t *testing.T) {
	b := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	key := DefaultKeys().Hash(&b)

	path := writeBookFile(t, []Entry{
		{Key: key, Move: encodeBookMove("e2", "e4"), Weight: 10},
		{Key: key, Move: encodeBookMove("d2", "d4"), Weight: 200},
	})
	bk, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if bk.Size() != 2 {
		t.Fatalf("expected 2 entries, got %d", bk.Size())
	}

	mv, ok := bk.BestMove(&b)
	if !ok {
		t.Fatal("expected a book hit for the starting position")
	}
	if mv.String() != "d2d4" {
		t.Errorf("expected highest-weight move d2d4, got %s", mv.String())
	}
}

func TestProbeReturnsLegalMove(t *testing.T) {
	b := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	key := DefaultKeys().Hash(&b)

	path := writeBookFile(t, []Entry{
		{Key: key, Move: encodeBookMove("e2", "e4"), Weight: 1},
		{Key: key, Move: encodeBookMove("e7", "e5"), Weight: 100}, // not legal for white
	})
	bk, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		mv, ok := bk.Probe(&b)
		if !ok {
			t.Fatal("expected a book hit")
		}
		if mv.String() != "e2e4" {
			t.Fatalf("probe returned illegal or unexpected move %s", mv.String())
		}
	}
}

func TestProbeMissIsNotAnError(t *testing.T) {
	start := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	key := DefaultKeys().Hash(&start)
	path := writeBookFile(t, []Entry{
		{Key: key, Move: encodeBookMove("e2", "e4"), Weight: 1},
	})
	bk, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	offBook := dragontoothmg.ParseFen("rnbqkbnr/pppppppp/8/8/7P/8/PPPPPPP1/RNBQKBNR b KQkq - 0 1")
	if _, ok := bk.Probe(&offBook); ok {
		t.Error("expected a miss for a position absent from the book")
	}
	if bk.HasPosition(&offBook) {
		t.Error("HasPosition claimed an absent position")
	}
}

func TestDecodeMovePromotion(t *testing.T) {
	// a7a8 with promo code 4 = queen.
	data := encodeBookMove("a7", "a8") | 4<<12
	from, to, promo := decodeMove(data)
	if from != 48 || to != 56 {
		t.Errorf("decoded squares from=%d to=%d, want 48 and 56", from, to)
	}
	if promo != dragontoothmg.Queen {
		t.Errorf("decoded promo %v, want queen", promo)
	}

	from, to, promo = decodeMove(encodeBookMove("e2", "e4"))
	if from != 12 || to != 28 || promo != 0 {
		t.Errorf("decoded e2e4 as from=%d to=%d promo=%v", from, to, promo)
	}
}

func TestZeroWeightsFallBackToUniform(t *testing.T) {
	b := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	key := DefaultKeys().Hash(&b)
	path := writeBookFile(t, []Entry{
		{Key: key, Move: encodeBookMove("e2", "e4"), Weight: 0},
		{Key: key, Move: encodeBookMove("d2", "d4"), Weight: 0},
	})
	bk, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := bk.Probe(&b); !ok {
		t.Error("zero-weight candidates should still produce a move")
	}
}
