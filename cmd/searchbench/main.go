package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/dylhunn/dragontoothmg"
	"github.com/rs/zerolog"

	"heron/engine"
)

func main() {
	// --- Flags ---
	depthFlag := flag.Int("depth", 5, "search depth in plies")
	repeatFlag := flag.Int("repeat", 1, "number of searches to run")
	fenFlag := flag.String("fen", "", "FEN to search (empty = startpos)")
	cpuProfile := flag.String("cpuprofile", "", "write CPU profile to file")
	memProfile := flag.String("memprofile", "", "write memory profile (heap) to file")
	flag.Parse()

	if *depthFlag <= 0 {
		log.Fatalf("depth must be positive, got %d", *depthFlag)
	}

	// --- Optional CPU profiling setup ---
	if *cpuProfile != "" {
		cpuFile, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatalf("could not create CPU profile: %v", err)
		}
		if err := pprof.StartCPUProfile(cpuFile); err != nil {
			log.Fatalf("could not start CPU profile: %v", err)
		}
		defer func() {
			pprof.StopCPUProfile()
			cpuFile.Close()
		}()
	}

	fen := dragontoothmg.Startpos
	if *fenFlag != "" {
		fen = *fenFlag
	}

	depth := *depthFlag
	repeat := *repeatFlag

	fmt.Printf("searchbench: fen=%q depth=%d repeat=%d\n", fen, depth, repeat)

	startAll := time.Now()
	for i := 0; i < repeat; i++ {
		// Fresh engine and position for each run, so iterations don't
		// warm each other's caches.
		opts := engine.DefaultOptions()
		opts.Depth = depth
		opts.UseBook = false
		opts.UseLearning = false
		opts.LearnPath = ""
		eng := engine.New(opts, zerolog.Nop())

		board := dragontoothmg.ParseFen(fen)

		iterStart := time.Now()
		bestMove, ok := eng.ChooseMove(&board)
		iterElapsed := time.Since(iterStart)
		if !ok {
			log.Fatalf("no legal moves in %q", fen)
		}

		fmt.Printf("iteration %d: bestmove %s  nodes=%d  time=%v\n",
			i+1, bestMove.String(), eng.Nodes(), iterElapsed)
	}
	totalElapsed := time.Since(startAll)
	fmt.Printf("total time: %v\n", totalElapsed)

	// --- Optional heap profile at the end ---
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			log.Fatalf("could not create memory profile: %v", err)
		}
		defer f.Close()

		runtime.GC() // get up-to-date heap info
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatalf("could not write memory profile: %v", err)
		}
	}
}
