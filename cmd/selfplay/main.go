// Command selfplay runs batches of engine-vs-engine games to grow the
// learning database. Workers run in parallel, each with a private engine
// and learning store so search caches never alias; results are merged into
// the master store when the batch ends or is interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/dylhunn/dragontoothmg"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"heron/engine"
	"heron/learn"
)

func main() {
	games := flag.Int("games", 10, "number of games to play (0 = until interrupted)")
	depth := flag.Int("depth", 3, "search depth per move")
	movetime := flag.Duration("movetime", 0, "per-move time budget instead of fixed depth")
	workers := flag.Int("workers", 1, "parallel self-play workers")
	snapshot := flag.Int("snapshot", 10, "flush/export learning data every this many games")
	maxPlies := flag.Int("maxplies", 300, "half-move cap per game before calling it a draw")
	learnPath := flag.String("learn", "ai_learn.json", "learning database file")
	exportPath := flag.String("export", "ai_learn_readable.json", "readable learning export file")
	bookPath := flag.String("book", "", "Polyglot opening book file")
	compress := flag.Bool("gzip", false, "also write a gzip sibling of the learning database")
	verbose := flag.Bool("v", false, "log every game result")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	master := learn.NewStore(*learnPath, logger)
	master.SetFlushEvery(*snapshot)
	master.SetExportPath(*exportPath)
	master.SetCompress(*compress)

	// Interrupt stops after each worker's current game, never mid-game.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var played, wWins, bWins, draws int64
	var next int64

	shared := *workers == 1
	privStores := make([]*learn.Store, 0, *workers)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < *workers; w++ {
		store := master
		if !shared {
			// Private in-memory store per worker, merged into the master
			// after the batch, so parallel workers never share a map.
			store = learn.NewStore("", logger)
			store.SetFlushEvery(1 << 30)
			privStores = append(privStores, store)
		}
		g.Go(func() error {
			opts := engine.DefaultOptions()
			opts.Depth = *depth
			opts.UseBook = *bookPath != ""
			opts.BookPath = *bookPath
			opts.UseLearning = true
			opts.LearnPath = "" // store attached below
			eng := engine.New(opts, logger)
			eng.AttachStore(store)

			for {
				if ctx.Err() != nil {
					return nil
				}
				n := atomic.AddInt64(&next, 1)
				if *games > 0 && n > int64(*games) {
					return nil
				}

				result := playGame(eng, *movetime, *maxPlies)
				eng.FinalizeGame(result)

				total := atomic.AddInt64(&played, 1)
				switch result {
				case learn.ResultWhite:
					atomic.AddInt64(&wWins, 1)
				case learn.ResultBlack:
					atomic.AddInt64(&bWins, 1)
				default:
					atomic.AddInt64(&draws, 1)
				}
				logger.Debug().Str("result", result).Int64("game", total).Msg("game finished")
				if *snapshot > 0 && total%int64(*snapshot) == 0 {
					logger.Info().
						Int64("games", total).
						Int64("white", atomic.LoadInt64(&wWins)).
						Int64("black", atomic.LoadInt64(&bWins)).
						Int64("draws", atomic.LoadInt64(&draws)).
						Msg("self-play progress")
				}
			}
		})
	}

	_ = g.Wait()

	for _, s := range privStores {
		master.MergeFrom(s)
	}
	master.Flush()
	fmt.Printf("games=%d white=%d black=%d draws=%d records=%d\n",
		played, wWins, bWins, draws, master.Len())
}

// playGame plays one full game between two turns of the same engine and
// returns the result for learning credit. Draw detection covers stalemate,
// insufficient material, the fifty-move rule, threefold repetition and the
// ply cap.
func playGame(eng *engine.Engine, movetime time.Duration, maxPlies int) string {
	board := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	seen := map[uint64]int{board.Hash(): 1}

	for ply := 0; ply < maxPlies; ply++ {
		legal := board.GenerateLegalMoves()
		if len(legal) == 0 {
			if board.OurKingInCheck() {
				if board.Wtomove {
					return learn.ResultBlack
				}
				return learn.ResultWhite
			}
			return learn.ResultDraw
		}
		if engine.InsufficientMaterial(&board) || engine.HalfmoveClock(&board) >= 100 {
			return learn.ResultDraw
		}

		var mv dragontoothmg.Move
		var ok bool
		if movetime > 0 {
			mv, ok = eng.ChooseMoveTimed(&board, movetime)
		} else {
			mv, ok = eng.ChooseMove(&board)
		}
		if !ok {
			return learn.ResultDraw
		}
		board.Apply(mv)

		seen[board.Hash()]++
		if seen[board.Hash()] >= 3 {
			return learn.ResultDraw
		}
	}
	return learn.ResultDraw
}
