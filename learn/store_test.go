package learn

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "learn.json")
	return NewStore(path, zerolog.Nop()), path
}

func TestFinalizeGameCountsOutcomes(t *testing.T) {
	s, _ := newTestStore(t)

	s.RecordChoice("placementA", "e2e4", true)  // white's choice
	s.RecordChoice("placementB", "e7e5", false) // black's choice
	s.FinalizeGame(ResultWhite)

	if c, ok := s.Lookup("placementA", "e2e4"); !ok || c.Wins != 1 || c.Losses != 0 || c.Draws != 0 {
		t.Errorf("white's move should record a win, got %+v (ok=%v)", c, ok)
	}
	if c, ok := s.Lookup("placementB", "e7e5"); !ok || c.Losses != 1 {
		t.Errorf("black's move should record a loss, got %+v (ok=%v)", c, ok)
	}
	if s.PendingChoices() != 0 {
		t.Error("game log should be cleared after finalize")
	}

	s.RecordChoice("placementA", "e2e4", true)
	s.FinalizeGame(ResultDraw)
	if c, _ := s.Lookup("placementA", "e2e4"); c.Draws != 1 || c.Wins != 1 {
		t.Errorf("draw should increment only the draw counter, got %+v", c)
	}
}

func TestBonusMovesWithWinrate(t *testing.T) {
	s, _ := newTestStore(t)

	if s.Bonus("p", "m") != 0 {
		t.Error("unknown pair should score zero")
	}

	for i := 0; i < 3; i++ {
		s.RecordChoice("p", "m", true)
		s.FinalizeGame(ResultWhite)
	}
	if got := s.Bonus("p", "m"); got != 100 {
		t.Errorf("all wins should give bonus 100, got %d", got)
	}

	s.RecordChoice("p", "losing", true)
	s.FinalizeGame(ResultBlack)
	if got := s.Bonus("p", "losing"); got != -100 {
		t.Errorf("all losses should give bonus -100, got %d", got)
	}

	s.RecordChoice("p", "even", true)
	s.FinalizeGame(ResultDraw)
	if got := s.Bonus("p", "even"); got != 0 {
		t.Errorf("all draws should give bonus 0, got %d", got)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	s, path := newTestStore(t)
	s.RecordChoice("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR", "e2e4", true)
	s.FinalizeGame(ResultWhite)

	reopened := NewStore(path, zerolog.Nop())
	c, ok := reopened.Lookup("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR", "e2e4")
	if !ok || c.Wins != 1 {
		t.Errorf("reopened store lost the record: %+v (ok=%v)", c, ok)
	}
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "learn.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(path, zerolog.Nop())
	if s.Len() != 0 {
		t.Errorf("corrupt file should load as empty, got %d records", s.Len())
	}
}

func TestGzipSiblingTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "learn.json")

	if err := os.WriteFile(path, []byte(`{"plain|m":{"w":1,"l":0,"d":0}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	raw, _ := json.Marshal(map[string]Counts{"zipped|m": {Wins: 5}})
	f, err := os.Create(path + ".gz")
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(raw); err != nil {
		t.Fatal(err)
	}
	zw.Close()
	f.Close()

	s := NewStore(path, zerolog.Nop())
	if _, ok := s.Lookup("zipped", "m"); !ok {
		t.Error("gzip sibling should win over the plain file")
	}
	if _, ok := s.Lookup("plain", "m"); ok {
		t.Error("plain file should be ignored when the gzip sibling exists")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	s.RecordChoice("pos1", "e2e4", true)
	s.RecordChoice("pos2", "g8f6", false)
	s.FinalizeGame(ResultWhite)
	s.RecordChoice("pos1", "e2e4", true)
	s.FinalizeGame(ResultDraw)

	exportPath := filepath.Join(t.TempDir(), "readable.json")
	if err := s.Export(exportPath); err != nil {
		t.Fatal(err)
	}

	fresh, _ := newTestStore(t)
	added, err := fresh.ImportMerge(exportPath)
	if err != nil {
		t.Fatal(err)
	}
	if added != 2 {
		t.Errorf("expected 2 imported records, got %d", added)
	}
	if c, _ := fresh.Lookup("pos1", "e2e4"); c.Wins != 1 || c.Draws != 1 {
		t.Errorf("readable round trip lost counts: %+v", c)
	}
	if c, _ := fresh.Lookup("pos2", "g8f6"); c.Losses != 1 {
		t.Errorf("readable round trip lost counts: %+v", c)
	}
}

func TestImportMergeIsAdditive(t *testing.T) {
	a, pathA := newTestStore(t)
	a.RecordChoice("p", "m", true)
	a.FinalizeGame(ResultWhite)

	b, _ := newTestStore(t)
	b.RecordChoice("p", "m", true)
	b.FinalizeGame(ResultBlack)

	if _, err := b.ImportMerge(pathA); err != nil {
		t.Fatal(err)
	}
	c, _ := b.Lookup("p", "m")
	if c.Wins != 1 || c.Losses != 1 {
		t.Errorf("merge should add counters, got %+v", c)
	}

	// Merging twice keeps adding; nothing is overwritten.
	if _, err := b.ImportMerge(pathA); err != nil {
		t.Fatal(err)
	}
	c, _ = b.Lookup("p", "m")
	if c.Wins != 2 {
		t.Errorf("second merge should add again, got %+v", c)
	}
}

func TestBatchedFlush(t *testing.T) {
	s, path := newTestStore(t)
	s.SetFlushEvery(3)

	for i := 0; i < 2; i++ {
		s.RecordChoice("p", "m", true)
		s.FinalizeGame(ResultWhite)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("store should not flush before the batch threshold")
	}

	s.RecordChoice("p", "m", true)
	s.FinalizeGame(ResultWhite)
	if _, err := os.Stat(path); err != nil {
		t.Errorf("store should flush at the batch threshold: %v", err)
	}
}

func TestResetRemovesEverything(t *testing.T) {
	s, path := newTestStore(t)
	s.RecordChoice("p", "m", true)
	s.FinalizeGame(ResultWhite)

	s.Reset()
	if s.Len() != 0 {
		t.Error("reset should clear records")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("reset should remove the backing file")
	}
}

func TestCompressWritesSibling(t *testing.T) {
	s, path := newTestStore(t)
	s.SetCompress(true)

	s.RecordChoice("p", "m", true)
	s.FinalizeGame(ResultWhite)

	if _, err := os.Stat(path + ".gz"); err != nil {
		t.Fatalf("gzip sibling not written: %v", err)
	}
	reopened := NewStore(path, zerolog.Nop())
	if c, ok := reopened.Lookup("p", "m"); !ok || c.Wins != 1 {
		t.Errorf("gzip sibling did not round trip: %+v (ok=%v)", c, ok)
	}
}

func TestKeysSorted(t *testing.T) {
	s, _ := newTestStore(t)
	s.RecordChoice("b", "m2", true)
	s.RecordChoice("a", "m1", true)
	s.RecordChoice("b", "m1", true)
	s.FinalizeGame(ResultWhite)

	keys := s.Keys()
	want := []Key{{"a", "m1"}, {"b", "m1"}, {"b", "m2"}}
	if len(keys) != len(want) {
		t.Fatalf("expected %d keys, got %d", len(want), len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key %d: got %+v, want %+v", i, keys[i], want[i])
		}
	}
}

func TestMergeFrom(t *testing.T) {
	a, _ := newTestStore(t)
	a.RecordChoice("p", "m", true)
	a.FinalizeGame(ResultWhite)

	b, _ := newTestStore(t)
	b.RecordChoice("p", "m", false)
	b.FinalizeGame(ResultWhite)

	a.MergeFrom(b)
	c, _ := a.Lookup("p", "m")
	if c.Wins != 1 || c.Losses != 1 {
		t.Errorf("in-memory merge should add counters, got %+v", c)
	}
}
