package matching

import (
	"context"
	"sync/atomic"
	"testing"

	"matchbook/domain"
	"matchbook/logger"
	"matchbook/orderbook"
)

func newBenchEngine(b *testing.B) *MatchingEngine {
	b.Helper()
	engine := NewMatchingEngine(orderbook.NewOrderBook(), logger.Discard(), nil, DefaultQueueSize)
	engine.Start()
	b.Cleanup(engine.Stop)
	return engine
}

// BenchmarkSubmitOrder one producer, overlapping buy/sell prices so roughly
// half the orders trade
func BenchmarkSubmitOrder(b *testing.B) {
	engine := newBenchEngine(b)
	ctx := context.Background()
	var trades int

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		side := domain.SideBuy
		if i%2 == 1 {
			side = domain.SideSell
		}
		rep, err := engine.SubmitOrder(ctx, domain.NewLimitOrder(domain.OrderID(i+1), side, domain.Price(50000+i%200), 1))
		if err != nil {
			b.Fatal(err)
		}
		trades += len(rep.Trades)
	}
	b.ReportMetric(float64(trades)/float64(b.N), "trades/op")
}

// BenchmarkSubmitOrderParallel many producers sharing one engine
func BenchmarkSubmitOrderParallel(b *testing.B) {
	engine := newBenchEngine(b)
	ctx := context.Background()
	var nextID atomic.Int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			id := nextID.Add(1)
			side := domain.SideBuy
			if id%2 == 1 {
				side = domain.SideSell
			}
			if _, err := engine.SubmitOrder(ctx, domain.NewLimitOrder(domain.OrderID(id), side, domain.Price(50000+id%200), 1)); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

// BenchmarkCancelOrder submit then cancel, the book stays empty
func BenchmarkCancelOrder(b *testing.B) {
	engine := newBenchEngine(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id := domain.OrderID(i + 1)
		if _, err := engine.SubmitOrder(ctx, domain.NewLimitOrder(id, domain.SideSell, 50000, 1)); err != nil {
			b.Fatal(err)
		}
		if _, err := engine.CancelOrder(ctx, id); err != nil {
			b.Fatal(err)
		}
	}
}
