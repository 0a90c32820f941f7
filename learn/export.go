package learn

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/exp/maps"
)

// The readable export groups records by position and adds derived fields
// so the file can be inspected (or hand-edited) without tooling. ImportMerge
// accepts this format as well as the raw flat one.

type exportFile struct {
	Meta      exportMeta                `json:"meta"`
	Positions map[string]exportPosition `json:"positions"`
}

type exportMeta struct {
	Exported  string `json:"exported"`
	Positions int    `json:"positions"`
	Records   int    `json:"records"`
}

type exportPosition struct {
	Moves map[string]exportMove `json:"moves"`
}

type exportMove struct {
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	Draws         int     `json:"draws"`
	Games         int     `json:"games"`
	Winrate       float64 `json:"winrate"`
	OrderingBonus int     `json:"ordering_bonus"`
}

// Export writes the readable form of the store to path. Unlike Save this
// reports errors: it only runs when a human asked for it.
func (s *Store) Export(path string) error {
	out := exportFile{
		Meta: exportMeta{
			Exported: time.Now().UTC().Format(time.RFC3339),
			Records:  len(s.records),
		},
		Positions: make(map[string]exportPosition),
	}
	for key, rec := range s.records {
		pos, ok := out.Positions[key.Placement]
		if !ok {
			pos = exportPosition{Moves: make(map[string]exportMove)}
			out.Positions[key.Placement] = pos
		}
		pos.Moves[key.Move] = exportMove{
			Wins:          rec.Wins,
			Losses:        rec.Losses,
			Draws:         rec.Draws,
			Games:         rec.Games(),
			Winrate:       math.Round(rec.Winrate()*1000) / 1000,
			OrderingBonus: int(math.Round((rec.Winrate() - 0.5) * 200)),
		}
	}
	out.Meta.Positions = len(out.Positions)

	raw, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode learning export: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write learning export: %w", err)
	}
	return nil
}

// ImportMerge reads a learning file in either the raw flat format or the
// readable export format and adds its counters onto the current records.
// Existing data is never overwritten, only incremented, so merging two
// self-play runs is order independent.
func (s *Store) ImportMerge(path string) (added int, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read learning import: %w", err)
	}
	if bytes.HasPrefix(raw, []byte{0x1f, 0x8b}) {
		zr, zerr := gzip.NewReader(bytes.NewReader(raw))
		if zerr != nil {
			return 0, fmt.Errorf("read learning import: %w", zerr)
		}
		var buf bytes.Buffer
		if _, zerr := buf.ReadFrom(zr); zerr != nil {
			return 0, fmt.Errorf("read learning import: %w", zerr)
		}
		raw = buf.Bytes()
	}

	flat, err := decodeEither(raw)
	if err != nil {
		return 0, err
	}
	for key, c := range flat {
		rec := s.records[key]
		if rec == nil {
			rec = &Counts{}
			s.records[key] = rec
		}
		rec.Wins += c.Wins
		rec.Losses += c.Losses
		rec.Draws += c.Draws
		added++
	}
	return added, nil
}

// MergeFrom folds another in-memory store's records into this one. Used by
// self-play workers, which each learn into a private store.
func (s *Store) MergeFrom(other *Store) {
	for key, c := range other.records {
		rec := s.records[key]
		if rec == nil {
			rec = &Counts{}
			s.records[key] = rec
		}
		rec.Wins += c.Wins
		rec.Losses += c.Losses
		rec.Draws += c.Draws
	}
}

// Keys returns all record keys, sorted, for deterministic iteration in
// reporting code.
func (s *Store) Keys() []Key {
	keys := maps.Keys(s.records)
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Placement != keys[j].Placement {
			return keys[i].Placement < keys[j].Placement
		}
		return keys[i].Move < keys[j].Move
	})
	return keys
}

func decodeEither(raw []byte) (map[Key]Counts, error) {
	// The readable format is the one with a "positions" object.
	var readable exportFile
	if err := json.Unmarshal(raw, &readable); err == nil && readable.Positions != nil {
		flat := make(map[Key]Counts)
		for placement, pos := range readable.Positions {
			for move, m := range pos.Moves {
				flat[Key{Placement: placement, Move: move}] = Counts{
					Wins:   m.Wins,
					Losses: m.Losses,
					Draws:  m.Draws,
				}
			}
		}
		return flat, nil
	}

	var flatRaw map[string]Counts
	if err := json.Unmarshal(raw, &flatRaw); err != nil {
		return nil, fmt.Errorf("decode learning import: %w", err)
	}
	flat := make(map[Key]Counts, len(flatRaw))
	for k, c := range flatRaw {
		placement, move, ok := splitKey(k)
		if !ok {
			return nil, fmt.Errorf("decode learning import: bad key %q", k)
		}
		flat[Key{Placement: placement, Move: move}] = c
	}
	return flat, nil
}
