// Package engine implements the search core: negamax with alpha-beta,
// principal variation search, late move reductions, null move and futility
// pruning, quiescence, a transposition table, and move ordering biased by
// killers, history and learned game outcomes.
package engine

import (
	"math/rand"
	"time"

	"github.com/dylhunn/dragontoothmg"
	"github.com/rs/zerolog"

	"heron/book"
	"heron/learn"
)

// ///////////////////////////////////////////////////////////////////
// Score constants
// ///////////////////////////////////////////////////////////////////

const (
	// mateValue is the terminal mate score inside the search tree. The
	// static evaluator uses the smaller evalMate for its own short-circuit.
	mateValue = 9999999
	evalMate  = 20000

	maxSearchDepth = 32
	maxQuiescePly  = 8

	// deltaMargin is a queen: if stand-pat trails alpha by more than this,
	// no capture can recover.
	deltaMargin = 900
)

// Move ordering bonuses.
var (
	ttBestBonus     = 20000
	killerBonus     = 10000
	captureBonus    = 200
	queenPromoBonus = 1200
	underPromoBonus = 900
	castleBonus     = 80
	checkBonus      = 40
)

// futilityMargin is indexed by remaining depth.
var futilityMargin = [3]int{0, 300, 500}

// pieceValue is indexed by dragontoothmg.Piece. The king is priceless and
// scores zero; both sides always have exactly one.
var pieceValue = [7]int{0, 100, 320, 330, 500, 900, 0}

// ///////////////////////////////////////////////////////////////////
// Options
// ///////////////////////////////////////////////////////////////////

// Options are the recognized engine parameters.
type Options struct {
	Depth    int           // iterative deepening limit for ChooseMove
	MoveTime time.Duration // wall-clock budget for ChooseMoveTimed

	UseBook  bool   // consult the opening book before searching
	BookPath string // Polyglot file; empty means hardcoded lines only

	UseLearning     bool   // bias move ordering with learned outcomes
	LearnPath       string // learning database file; empty disables persistence
	LearnExportPath string // readable export regenerated on flush; optional
	LearnFlushEvery int    // flush the store once per this many games

	TTSize int // transposition entry cap; table trims to 80% when exceeded
}

// DefaultOptions returns the parameters used by the interactive driver.
func DefaultOptions() Options {
	return Options{
		Depth:           3,
		MoveTime:        5 * time.Second,
		UseBook:         true,
		UseLearning:     true,
		LearnPath:       "ai_learn.json",
		LearnFlushEvery: 1,
		TTSize:          200000,
	}
}

// ///////////////////////////////////////////////////////////////////
// Engine
// ///////////////////////////////////////////////////////////////////

// Engine owns every search cache: transposition, killer and history tables
// are per-instance, so concurrent engines (self-play) never alias state.
// One engine must not search two boards at the same time.
type Engine struct {
	opts Options

	tt      *transTable
	killers killerTable
	history map[dragontoothmg.Move]int

	book  *book.Book
	learn *learn.Store

	rng *rand.Rand
	log zerolog.Logger

	nodes uint64
}

// New builds an engine with its own caches. A book that fails to load is
// logged and skipped: the engine degrades to hardcoded lines, then search.
func New(opts Options, logger zerolog.Logger) *Engine {
	if opts.Depth < 1 {
		opts.Depth = 1
	}
	if opts.Depth > maxSearchDepth {
		opts.Depth = maxSearchDepth
	}
	if opts.TTSize < 1 {
		opts.TTSize = 1
	}

	e := &Engine{
		opts:    opts,
		tt:      newTransTable(opts.TTSize),
		history: make(map[dragontoothmg.Move]int),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		log:     logger,
	}
	if opts.UseBook && opts.BookPath != "" {
		bk, err := book.Load(opts.BookPath)
		if err != nil {
			logger.Warn().Err(err).Str("path", opts.BookPath).Msg("opening book not loaded")
		} else {
			e.book = bk
		}
	}
	if opts.LearnPath != "" {
		e.learn = learn.NewStore(opts.LearnPath, logger)
		e.learn.SetFlushEvery(opts.LearnFlushEvery)
		if opts.LearnExportPath != "" {
			e.learn.SetExportPath(opts.LearnExportPath)
		}
	}
	return e
}

// AttachBook replaces the opening book, mainly for the drivers' book command.
func (e *Engine) AttachBook(bk *book.Book) { e.book = bk }

// AttachStore replaces the learning store. Self-play workers use this to
// point their private engine at a private store.
func (e *Engine) AttachStore(s *learn.Store) { e.learn = s }

// Store returns the engine's learning store, nil when persistence is off.
func (e *Engine) Store() *learn.Store { return e.learn }

// SetLearning toggles the learned move-ordering bias at runtime.
func (e *Engine) SetLearning(on bool) { e.opts.UseLearning = on }

// Learning reports whether the learned bias is active.
func (e *Engine) Learning() bool { return e.opts.UseLearning && e.learn != nil }

// SetDepth adjusts the iterative deepening limit.
func (e *Engine) SetDepth(d int) {
	if d < 1 {
		d = 1
	}
	if d > maxSearchDepth {
		d = maxSearchDepth
	}
	e.opts.Depth = d
}

// Nodes returns the node count of the most recent search.
func (e *Engine) Nodes() uint64 { return e.nodes }

// FinalizeGame reports a finished game's result to the learning store and
// is safe to call with learning disabled.
func (e *Engine) FinalizeGame(result string) {
	if e.learn == nil {
		return
	}
	e.learn.FinalizeGame(result)
}
