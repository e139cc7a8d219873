package orderbook

import (
	"testing"

	"matchbook/domain"
)

// TestAddOrder resting orders on both sides set best bid/ask
func TestAddOrder(t *testing.T) {
	ob := NewOrderBook()

	ob.AddOrder(domain.NewLimitOrder(1, domain.SideSell, 50000, 100))

	if ask, ok := ob.BestAsk(); !ok || ask != 50000 {
		t.Errorf("expected best ask 50000, got %d (ok=%v)", ask, ok)
	}

	ob.AddOrder(domain.NewLimitOrder(2, domain.SideBuy, 49000, 100))

	if bid, ok := ob.BestBid(); !ok || bid != 49000 {
		t.Errorf("expected best bid 49000, got %d (ok=%v)", bid, ok)
	}
}

// TestCancelOrder cancel empties the side
func TestCancelOrder(t *testing.T) {
	ob := NewOrderBook()

	ob.AddOrder(domain.NewLimitOrder(1, domain.SideSell, 50000, 100))

	if ask, _ := ob.BestAsk(); ask != 50000 {
		t.Errorf("expected best ask 50000, got %d", ask)
	}

	if _, err := ob.RemoveOrder(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := ob.BestAsk(); ok {
		t.Error("expected asks to be empty after cancel")
	}
}

// TestPricePriority best ask is the lowest regardless of arrival order
func TestPricePriority(t *testing.T) {
	ob := NewOrderBook()

	ob.AddOrder(domain.NewLimitOrder(1, domain.SideSell, 51000, 100))
	ob.AddOrder(domain.NewLimitOrder(2, domain.SideSell, 50000, 100)) // best
	ob.AddOrder(domain.NewLimitOrder(3, domain.SideSell, 52000, 100))

	if ask, _ := ob.BestAsk(); ask != 50000 {
		t.Errorf("expected best ask 50000, got %d", ask)
	}
}

// TestGetLevel level lookup by exact price
func TestGetLevel(t *testing.T) {
	ob := NewOrderBook()

	ob.AddOrder(domain.NewLimitOrder(1, domain.SideSell, 50000, 100))

	level := ob.asks.level(50000)
	if level == nil {
		t.Fatal("expected level to exist")
	}

	if level.price != 50000 {
		t.Errorf("expected price 50000, got %d", level.price)
	}

	if level.volume != 100 {
		t.Errorf("expected volume 100, got %d", level.volume)
	}
}

// TestGetDepth depth is truncated and ordered best first
func TestGetDepth(t *testing.T) {
	ob := NewOrderBook()

	ob.AddOrder(domain.NewLimitOrder(1, domain.SideSell, 50000, 100))
	ob.AddOrder(domain.NewLimitOrder(2, domain.SideSell, 50100, 100))
	ob.AddOrder(domain.NewLimitOrder(3, domain.SideSell, 50200, 100))

	_, depth := ob.GetDepth(2)

	if len(depth) != 2 {
		t.Fatalf("expected 2 levels, got %d", len(depth))
	}

	if depth[0].Price != 50000 {
		t.Errorf("expected first level at 50000, got %d", depth[0].Price)
	}
	if depth[1].Price != 50100 {
		t.Errorf("expected second level at 50100, got %d", depth[1].Price)
	}
}

// TestFIFOOrder same-price orders keep arrival order
func TestFIFOOrder(t *testing.T) {
	ob := NewOrderBook()

	ob.AddOrder(domain.NewLimitOrder(1, domain.SideSell, 50000, 50))
	ob.AddOrder(domain.NewLimitOrder(2, domain.SideSell, 50000, 50))
	ob.AddOrder(domain.NewLimitOrder(3, domain.SideSell, 50000, 50))

	level := ob.asks.bestLevel()
	if level == nil {
		t.Fatal("expected level to exist")
	}

	if level.count != 3 {
		t.Errorf("expected 3 orders, got %d", level.count)
	}

	orders := level.orders(ob.orders)
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}

	for i, want := range []domain.OrderID{1, 2, 3} {
		if orders[i].ID != want {
			t.Errorf("order %d should be %d, got %d", i, want, orders[i].ID)
		}
	}
}

// TestBidsDepth bids iterate from high to low
func TestBidsDepth(t *testing.T) {
	ob := NewOrderBook()

	ob.AddOrder(domain.NewLimitOrder(1, domain.SideBuy, 49000, 100))
	ob.AddOrder(domain.NewLimitOrder(2, domain.SideBuy, 50000, 100)) // highest
	ob.AddOrder(domain.NewLimitOrder(3, domain.SideBuy, 48000, 100))

	if bid, _ := ob.BestBid(); bid != 50000 {
		t.Errorf("expected best bid 50000, got %d", bid)
	}

	depth, _ := ob.GetDepth(3)

	if len(depth) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(depth))
	}

	for i, want := range []domain.Price{50000, 49000, 48000} {
		if depth[i].Price != want {
			t.Errorf("expected level %d at %d, got %d", i, want, depth[i].Price)
		}
		if depth[i].Quantity != 100 {
			t.Errorf("expected level %d volume 100, got %d", i, depth[i].Quantity)
		}
	}
}

// TestAsksDepth asks iterate from low to high
func TestAsksDepth(t *testing.T) {
	ob := NewOrderBook()

	ob.AddOrder(domain.NewLimitOrder(1, domain.SideSell, 51000, 100))
	ob.AddOrder(domain.NewLimitOrder(2, domain.SideSell, 50000, 100)) // lowest
	ob.AddOrder(domain.NewLimitOrder(3, domain.SideSell, 52000, 100))

	if ask, _ := ob.BestAsk(); ask != 50000 {
		t.Errorf("expected best ask 50000, got %d", ask)
	}

	_, depth := ob.GetDepth(0)

	if len(depth) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(depth))
	}

	for i, want := range []domain.Price{50000, 51000, 52000} {
		if depth[i].Price != want {
			t.Errorf("expected level %d at %d, got %d", i, want, depth[i].Price)
		}
	}
}
