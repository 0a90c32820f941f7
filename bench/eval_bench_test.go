package bench

import (
	"testing"

	"github.com/dylhunn/dragontoothmg"

	"heron/book"
	"heron/engine"
)

const kiwipeteFEN = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"

func benchEvaluate(b *testing.B, fen string) {
	board := dragontoothmg.ParseFen(fen)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = engine.Evaluate(&board)
	}
}

func BenchmarkEvaluate_Initial(b *testing.B) {
	benchEvaluate(b, dragontoothmg.Startpos)
}

func BenchmarkEvaluate_Kiwipete(b *testing.B) {
	benchEvaluate(b, kiwipeteFEN)
}

func BenchmarkEvaluate_Endgame(b *testing.B) {
	benchEvaluate(b, "8/5pk1/6p1/8/8/1P6/1K3P2/8 w - - 0 40")
}

func BenchmarkPolyglotHash_Initial(b *testing.B) {
	board := dragontoothmg.ParseFen(dragontoothmg.Startpos)
	keys := book.DefaultKeys()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = keys.Hash(&board)
	}
}
