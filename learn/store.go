// Package learn persists per-(position, move) game outcomes and turns them
// into a small move-ordering nudge for the search.
package learn

import (
	"encoding/json"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
)

// Game results as reported by the caller after a finished game.
const (
	ResultWhite = "white"
	ResultBlack = "black"
	ResultDraw  = "draw"
)

// Key identifies one learned record: the piece-placement field of the
// position's serialization plus the move in coordinate notation. The
// on-disk format keeps the legacy "<placement>|<move>" string keys.
type Key struct {
	Placement string
	Move      string
}

// Counts are the cumulative outcomes observed for a (position, move) pair.
type Counts struct {
	Wins   int `json:"w"`
	Losses int `json:"l"`
	Draws  int `json:"d"`
}

// Games returns the total number of finished games behind the record.
func (c Counts) Games() int { return c.Wins + c.Losses + c.Draws }

// Winrate scores the record in [0,1], draws counting half.
func (c Counts) Winrate() float64 {
	n := c.Games()
	if n == 0 {
		return 0
	}
	return (float64(c.Wins) + 0.5*float64(c.Draws)) / float64(n)
}

// choice is one root move the engine committed to during the current game.
type choice struct {
	placement   string
	move        string
	whiteToMove bool
}

// Store accumulates per-game choices in memory and folds them into a
// persistent win/loss/draw database when games finish. It is not safe for
// concurrent use; concurrent self-play should run one store per worker and
// merge afterwards.
type Store struct {
	records map[Key]*Counts
	gameLog []choice

	path       string
	exportPath string
	compress   bool
	flushEvery int // persist once per this many finalized games
	unsaved    int

	log zerolog.Logger
}

// NewStore opens (or lazily creates) the store backed by the given path.
// A gzip sibling "<path>.gz" takes precedence when present. A missing or
// corrupt file is treated as no prior learning, never as a fatal error.
func NewStore(path string, logger zerolog.Logger) *Store {
	s := &Store{
		records:    make(map[Key]*Counts),
		path:       path,
		flushEvery: 1,
		log:        logger,
	}
	s.load()
	return s
}

// SetCompress makes Save also rewrite the gzip sibling file.
func (s *Store) SetCompress(on bool) { s.compress = on }

// SetExportPath makes every flush also regenerate the readable export, so
// the inspectable file tracks the raw one. The export is derived data and
// never read back as a source of truth.
func (s *Store) SetExportPath(path string) { s.exportPath = path }

// SetFlushEvery batches persistence: the store only hits disk once per n
// finalized games. A crash loses at most the unflushed batch; it never
// corrupts the existing file, since saves are whole-file rewrites.
func (s *Store) SetFlushEvery(n int) {
	if n < 1 {
		n = 1
	}
	s.flushEvery = n
}

// Len returns the number of distinct (position, move) records.
func (s *Store) Len() int { return len(s.records) }

// RecordChoice logs a committed root move for later learning credit. No
// disk I/O happens here.
func (s *Store) RecordChoice(placement, move string, whiteToMove bool) {
	s.gameLog = append(s.gameLog, choice{placement: placement, move: move, whiteToMove: whiteToMove})
}

// PendingChoices reports how many root moves of the current game await
// finalization.
func (s *Store) PendingChoices() int { return len(s.gameLog) }

// FinalizeGame folds every choice logged since the previous game end into
// the persistent counts: a draw bumps the draw counter, otherwise the
// mover's tally gains a win or a loss depending on whether its side matches
// the winner. The store is then persisted, subject to batching.
func (s *Store) FinalizeGame(result string) {
	if len(s.gameLog) == 0 {
		return
	}
	for _, ch := range s.gameLog {
		key := Key{Placement: ch.placement, Move: ch.move}
		rec := s.records[key]
		if rec == nil {
			rec = &Counts{}
			s.records[key] = rec
		}
		switch {
		case result == ResultDraw:
			rec.Draws++
		case (result == ResultWhite) == ch.whiteToMove:
			rec.Wins++
		default:
			rec.Losses++
		}
	}
	s.gameLog = s.gameLog[:0]

	s.unsaved++
	if s.unsaved >= s.flushEvery {
		s.Flush()
	}
}

// Flush persists immediately regardless of batching. Failures are logged
// and swallowed: a full disk must never abort a game in progress. A store
// opened with an empty path is memory-only and never touches disk.
func (s *Store) Flush() {
	s.unsaved = 0
	if s.path == "" {
		return
	}
	if err := s.save(); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("learning store not saved")
	}
	if s.exportPath != "" {
		if err := s.Export(s.exportPath); err != nil {
			s.log.Warn().Err(err).Str("path", s.exportPath).Msg("learning export not written")
		}
	}
}

// Bonus translates the learned record for (placement, move) into a move
// ordering nudge of roughly [-100, +100] centipawns: round((winrate-0.5)*200).
// Unknown pairs score zero. The bonus is added to, never replaces, the
// evaluator's judgment.
func (s *Store) Bonus(placement, move string) int {
	rec := s.records[Key{Placement: placement, Move: move}]
	if rec == nil || rec.Games() == 0 {
		return 0
	}
	return int(math.Round((rec.Winrate() - 0.5) * 200))
}

// Lookup returns the counts recorded for a (position, move) pair.
func (s *Store) Lookup(placement, move string) (Counts, bool) {
	rec := s.records[Key{Placement: placement, Move: move}]
	if rec == nil {
		return Counts{}, false
	}
	return *rec, true
}

// Reset drops all learned data, in memory and on disk. This is the only
// path that ever deletes records.
func (s *Store) Reset() {
	s.records = make(map[Key]*Counts)
	s.gameLog = s.gameLog[:0]
	s.unsaved = 0
	if s.path == "" {
		return
	}
	paths := []string{s.path, s.path + ".gz"}
	if s.exportPath != "" {
		paths = append(paths, s.exportPath)
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("path", p).Msg("learning store reset: file not removed")
		}
	}
}

// load reads the gzip sibling if present, otherwise the plain file. Any
// failure degrades to an empty store.
func (s *Store) load() {
	if s.path == "" {
		return
	}
	raw, err := readMaybeGzip(s.path + ".gz")
	if err != nil {
		raw, err = os.ReadFile(s.path)
	}
	if err != nil {
		return // no prior learning
	}

	var flat map[string]Counts
	if err := json.Unmarshal(raw, &flat); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("learning store unreadable, starting empty")
		return
	}
	for k, c := range flat {
		placement, move, ok := splitKey(k)
		if !ok {
			continue
		}
		cc := c
		s.records[Key{Placement: placement, Move: move}] = &cc
	}
}

func (s *Store) save() error {
	flat := make(map[string]Counts, len(s.records))
	for k, rec := range s.records {
		flat[k.Placement+"|"+k.Move] = *rec
	}
	raw, err := json.MarshalIndent(flat, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return err
	}
	if s.compress {
		if err := writeGzip(s.path+".gz", raw); err != nil {
			return err
		}
	}
	return nil
}

func splitKey(k string) (placement, move string, ok bool) {
	i := strings.IndexByte(k, '|')
	if i < 0 {
		return "", "", false
	}
	return k[:i], k[i+1:], true
}

func readMaybeGzip(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func writeGzip(path string, raw []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(raw); err != nil {
		f.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
