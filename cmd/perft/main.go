package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"sort"
	"time"

	"github.com/dylhunn/dragontoothmg"
)

func main() {
	fen := flag.String("fen", dragontoothmg.Startpos, "FEN string (defaults to initial position)")
	depth := flag.Int("depth", 0, "Perft depth (required)")
	divide := flag.Bool("divide", false, "Print per-move node counts at root")
	repeat := flag.Int("repeat", 1, "Repeat perft N times and report aggregate (for steadier timings)")
	label := flag.String("label", "", "Optional label prefix for one-line output")
	cpuProf := flag.String("cpuprofile", "", "Write CPU profile to file during run")
	flag.Parse()

	if *depth <= 0 {
		fmt.Fprintln(os.Stderr, "-depth must be > 0")
		os.Exit(2)
	}

	board := dragontoothmg.ParseFen(*fen)

	if *divide {
		type kv struct {
			m string
			n uint64
		}
		var arr []kv
		var sum uint64
		for _, mv := range board.GenerateLegalMoves() {
			unapply := board.Apply(mv)
			n := perft(&board, *depth-1)
			unapply()
			arr = append(arr, kv{mv.String(), n})
			sum += n
		}
		// Sort moves for stable output
		sort.Slice(arr, func(i, j int) bool { return arr[i].m < arr[j].m })
		for _, x := range arr {
			fmt.Printf("%s: %d\n", x.m, x.n)
		}
		fmt.Printf("Total: %d\n", sum)
		return
	}

	// Optional CPU profiling
	if *cpuProf != "" {
		f, err := os.Create(*cpuProf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "creating cpuprofile: %v\n", err)
			os.Exit(2)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "start cpu profile: %v\n", err)
			os.Exit(2)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = f.Close()
		}()
	}

	// Timing loop
	var totalNodes uint64
	start := time.Now()
	for i := 0; i < *repeat; i++ {
		totalNodes += perft(&board, *depth)
	}
	elapsed := time.Since(start)
	nps := float64(totalNodes) / elapsed.Seconds()

	// Single line: Depth Nodes Time NPS
	fmt.Printf("%s \t%d \t\t%d \t\t%s \t%.0f\n", *label, *depth, totalNodes, elapsed, nps)
}

func perft(b *dragontoothmg.Board, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	var nodes uint64
	for _, mv := range b.GenerateLegalMoves() {
		unapply := b.Apply(mv)
		nodes += perft(b, depth-1)
		unapply()
	}
	return nodes
}
