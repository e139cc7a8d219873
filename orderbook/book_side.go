package orderbook

import (
	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"

	"matchbook/domain"
)

// bookSide is one side of the book: price -> priceLevel, kept in priority order.
// Outer structure: red-black tree ordered best-first (O(log n) insert/delete).
// The best level is cached so the matching loop reads it in O(1).
type bookSide struct {
	side   domain.Side
	levels *rbt.Tree[domain.Price, *priceLevel]
	best   *priceLevel
}

func newBookSide(side domain.Side) *bookSide {
	var comparator func(a, b domain.Price) int
	if side == domain.SideBuy {
		// bids: highest price first
		comparator = func(a, b domain.Price) int {
			switch {
			case a > b:
				return -1
			case a < b:
				return 1
			}
			return 0
		}
	} else {
		// asks: lowest price first
		comparator = func(a, b domain.Price) int {
			switch {
			case a < b:
				return -1
			case a > b:
				return 1
			}
			return 0
		}
	}

	return &bookSide{
		side:   side,
		levels: rbt.NewWith[domain.Price, *priceLevel](comparator),
	}
}

// isBetterPrice returns true if price1 has priority over price2 on this side
func (bs *bookSide) isBetterPrice(price1, price2 domain.Price) bool {
	if bs.side == domain.SideBuy {
		return price1 > price2
	}
	return price1 < price2
}

// crossedBy reports whether an opposite-side order at price would execute
// against this side's best level: a Buy crosses asks when price >= best ask,
// a Sell crosses bids when price <= best bid.
func (bs *bookSide) crossedBy(price domain.Price) bool {
	return bs.best != nil && !bs.isBetterPrice(price, bs.best.price)
}

func (bs *bookSide) bestLevel() *priceLevel {
	return bs.best
}

func (bs *bookSide) level(price domain.Price) *priceLevel {
	l, ok := bs.levels.Get(price)
	if !ok {
		return nil
	}
	return l
}

// upsert returns the level at price, creating it if absent
func (bs *bookSide) upsert(price domain.Price) *priceLevel {
	if l, ok := bs.levels.Get(price); ok {
		return l
	}
	l := newPriceLevel(price)
	bs.levels.Put(price, l)
	if bs.best == nil || bs.isBetterPrice(price, bs.best.price) {
		bs.best = l
	}
	return l
}

// remove drops an emptied level and refreshes the cached best
func (bs *bookSide) remove(l *priceLevel) {
	bs.levels.Remove(l.price)
	if bs.best == l {
		bs.best = nil
		if node := bs.levels.Left(); node != nil {
			bs.best = node.Value
		}
	}
}

func (bs *bookSide) empty() bool {
	return bs.best == nil
}

// size returns the number of price levels
func (bs *bookSide) size() int {
	return bs.levels.Size()
}

// walk visits levels best-first until fn returns false
func (bs *bookSide) walk(fn func(*priceLevel) bool) {
	it := bs.levels.Iterator()
	for it.Next() {
		if !fn(it.Value()) {
			return
		}
	}
}
