package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dylhunn/dragontoothmg"
	"github.com/rs/zerolog"

	"heron/book"
	"heron/engine"
	"heron/learn"
)

func main() {
	uciLoop()
}

func uciLoop() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel).With().Timestamp().Logger()

	opts := engine.DefaultOptions()
	eng := engine.New(opts, logger)
	board := dragontoothmg.ParseFen(dragontoothmg.Startpos)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		tokens := strings.Fields(line)
		if len(tokens) == 0 { // ignore blank lines
			continue
		}
		switch strings.ToLower(tokens[0]) {
		case "uci":
			fmt.Println("id name Heron")
			fmt.Println("id author heron contributors")
			fmt.Println("option name Depth type spin default", opts.Depth, "min 1 max 32")
			fmt.Println("option name UseBook type check default true")
			fmt.Println("option name UseLearning type check default true")
			fmt.Println("uciok")
		case "isready":
			fmt.Println("readyok")
		case "ucinewgame":
			board = dragontoothmg.ParseFen(dragontoothmg.Startpos)
		case "quit":
			if eng.Store() != nil {
				eng.Store().Flush()
			}
			return
		case "position":
			posScanner := bufio.NewScanner(strings.NewReader(line))
			posScanner.Split(bufio.ScanWords)
			posScanner.Scan() // skip the first token
			if !posScanner.Scan() {
				fmt.Println("info string Malformed position command")
				continue
			}
			if strings.ToLower(posScanner.Text()) == "startpos" {
				board = dragontoothmg.ParseFen(dragontoothmg.Startpos)
				posScanner.Scan() // advance the scanner to leave it in a consistent state
			} else if strings.ToLower(posScanner.Text()) == "fen" {
				fenstr := ""
				for posScanner.Scan() && strings.ToLower(posScanner.Text()) != "moves" {
					fenstr += posScanner.Text() + " "
				}
				if fenstr == "" {
					fmt.Println("info string Invalid fen position")
					continue
				}
				board = dragontoothmg.ParseFen(fenstr)
			} else {
				fmt.Println("info string Invalid position subcommand")
				continue
			}
			if strings.ToLower(posScanner.Text()) != "moves" {
				continue
			}
			for posScanner.Scan() { // for each move
				moveStr := strings.ToLower(posScanner.Text())
				nextMove, found := findLegalMove(&board, moveStr)
				if !found {
					fmt.Println("info string Move", moveStr, "not found for position", board.ToFen())
					continue
				}
				board.Apply(nextMove)
			}
		case "go":
			goScanner := bufio.NewScanner(strings.NewReader(line))
			goScanner.Split(bufio.ScanWords)
			goScanner.Scan() // skip the first token
			depthToUse := 0
			movetime := 0
			for goScanner.Scan() {
				switch strings.ToLower(goScanner.Text()) {
				case "depth":
					if !goScanner.Scan() {
						fmt.Println("info string Malformed go command option depth")
						continue
					}
					depthToUse, _ = strconv.Atoi(goScanner.Text())
				case "movetime":
					if !goScanner.Scan() {
						fmt.Println("info string Malformed go command option movetime")
						continue
					}
					movetime, _ = strconv.Atoi(goScanner.Text())
				}
			}

			var best dragontoothmg.Move
			var ok bool
			if movetime > 0 {
				best, ok = eng.ChooseMoveTimed(&board, time.Duration(movetime)*time.Millisecond)
			} else {
				if depthToUse > 0 {
					eng.SetDepth(depthToUse)
				}
				best, ok = eng.ChooseMove(&board)
			}
			if !ok {
				fmt.Println("info string No legal moves in position")
				continue
			}
			fmt.Println("bestmove", best.String())
		case "result":
			// Ends the game for learning purposes: result <white|black|draw>.
			if len(tokens) < 2 {
				fmt.Println("info string Usage: result <white|black|draw>")
				continue
			}
			r := strings.ToLower(tokens[1])
			if r != learn.ResultWhite && r != learn.ResultBlack && r != learn.ResultDraw {
				fmt.Println("info string Unknown result", r)
				continue
			}
			eng.FinalizeGame(r)
			fmt.Println("info string Game result recorded")
		case "learning":
			if len(tokens) < 2 {
				fmt.Println("info string Usage: learning <on|off>")
				continue
			}
			eng.SetLearning(strings.ToLower(tokens[1]) == "on")
		case "learnexport":
			if eng.Store() == nil {
				fmt.Println("info string Learning persistence is disabled")
				continue
			}
			path := "ai_learn_readable.json"
			if len(tokens) > 1 {
				path = tokens[1]
			}
			if err := eng.Store().Export(path); err != nil {
				fmt.Println("info string Export failed:", err)
				continue
			}
			fmt.Println("info string Learning data exported to", path)
		case "learnimport":
			if eng.Store() == nil || len(tokens) < 2 {
				fmt.Println("info string Usage: learnimport <path>")
				continue
			}
			added, err := eng.Store().ImportMerge(tokens[1])
			if err != nil {
				fmt.Println("info string Import failed:", err)
				continue
			}
			eng.Store().Flush()
			fmt.Println("info string Merged", added, "records")
		case "learnstats":
			st := eng.Store()
			if st == nil {
				fmt.Println("info string Learning persistence is disabled")
				continue
			}
			fmt.Println("info string Learning records:", st.Len())
			shown := 0
			for _, k := range st.Keys() {
				if shown >= 10 {
					fmt.Println("info string ...")
					break
				}
				c, _ := st.Lookup(k.Placement, k.Move)
				fmt.Printf("info string %s %s w=%d l=%d d=%d bonus=%d\n",
					k.Placement, k.Move, c.Wins, c.Losses, c.Draws, st.Bonus(k.Placement, k.Move))
				shown++
			}
		case "learnreset":
			if eng.Store() != nil {
				eng.Store().Reset()
				fmt.Println("info string Learning data cleared")
			}
		case "book":
			if len(tokens) < 2 {
				fmt.Println("info string Usage: book <path>")
				continue
			}
			bk, err := book.Load(tokens[1])
			if err != nil {
				fmt.Println("info string Book load failed:", err)
				continue
			}
			eng.AttachBook(bk)
			fmt.Println("info string Book loaded with", bk.Size(), "entries")
		case "eval":
			fmt.Println("info string Static eval:", engine.Evaluate(&board), "cp (side to move)")
		case "perft":
			depth := 4
			if len(tokens) > 1 {
				if d, err := strconv.Atoi(tokens[1]); err == nil && d > 0 {
					depth = d
				}
			}
			start := time.Now()
			nodes := perft(&board, depth)
			fmt.Println("info string Perft", depth, "=", nodes, "in", time.Since(start))
		default:
			fmt.Println("info string Unknown command:", line)
		}
	}
}

// findLegalMove matches a coordinate-notation string against the legal
// moves of the position, so only generator-produced moves ever reach the
// board.
func findLegalMove(board *dragontoothmg.Board, moveStr string) (dragontoothmg.Move, bool) {
	for _, mv := range board.GenerateLegalMoves() {
		if mv.String() == moveStr {
			return mv, true
		}
	}
	return 0, false
}

func perft(board *dragontoothmg.Board, depth int) uint64 {
	if depth == 0 {
		return 1
	}
	var nodes uint64
	for _, mv := range board.GenerateLegalMoves() {
		unapply := board.Apply(mv)
		nodes += perft(board, depth-1)
		unapply()
	}
	return nodes
}
