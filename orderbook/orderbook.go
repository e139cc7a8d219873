package orderbook

import (
	"errors"
	"fmt"

	"matchbook/domain"
)

var (
	ErrInvalidSide      = errors.New("invalid side, needs to be either Buy or Sell")
	ErrOrderNotFound    = errors.New("order not found")
	ErrDuplicateOrderID = errors.New("order id already resting")
)

// IOrderBook defines the interface for an order book
type IOrderBook interface {
	// AddOrder matches the order against the opposite side, rests any
	// remainder, and returns the fills in execution order
	AddOrder(order *domain.Order) ([]domain.Trade, error)

	// RemoveOrder cancels a resting order and returns it as it was resting
	RemoveOrder(orderID domain.OrderID) (domain.Order, error)

	// BestBid returns the highest buy price
	BestBid() (domain.Price, bool)

	// BestAsk returns the lowest sell price
	BestAsk() (domain.Price, bool)

	// SnapshotBids returns bid levels, highest price first
	SnapshotBids() []LevelSnapshot

	// SnapshotAsks returns ask levels, lowest price first
	SnapshotAsks() []LevelSnapshot

	// GetDepth returns aggregated levels (price, volume, order count)
	GetDepth(levels int) (bids, asks []PriceLevel)

	// Len returns the number of resting orders
	Len() int
}

// PriceLevel is the aggregated view of one level used for market depth
type PriceLevel struct {
	Price    domain.Price
	Quantity domain.Quantity
	Orders   int // number of orders at this level
}

// LevelSnapshot is an independent copy of one price level's queue
type LevelSnapshot struct {
	Price  domain.Price
	Orders []domain.Order // priority order, oldest first
}

// OrderBook implements a single-instrument price-time priority order book.
// Not safe for concurrent use: callers serialize access (see matching.MatchingEngine).
//
// Storage: resting orders live in a slot arena; price levels are intrusive FIFO
// lists over slots; the index maps order id -> slot. A level and an index entry
// are always created and destroyed inside the same call.
type OrderBook struct {
	bids   *bookSide // buy orders (descending price)
	asks   *bookSide // sell orders (ascending price)
	orders *arena
	index  map[domain.OrderID]slot
}

var _ IOrderBook = (*OrderBook)(nil)

// NewOrderBook creates an empty order book
func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids:   newBookSide(domain.SideBuy),
		asks:   newBookSide(domain.SideSell),
		orders: newArena(1024),
		index:  make(map[domain.OrderID]slot),
	}
}

func (ob *OrderBook) sideOf(s domain.Side) *bookSide {
	if s == domain.SideBuy {
		return ob.bids
	}
	return ob.asks
}

// AddOrder matches the incoming order and rests whatever is left.
// order.Quantity is updated in place to the unfilled remainder.
// An invalid side or an id that is already resting is rejected before any
// state is touched.
func (ob *OrderBook) AddOrder(order *domain.Order) ([]domain.Trade, error) {
	if !order.Side.Valid() {
		return nil, fmt.Errorf("order %d: %w (got %s)", order.ID, ErrInvalidSide, order.Side)
	}
	if _, exists := ob.index[order.ID]; exists {
		return nil, fmt.Errorf("order %d: %w", order.ID, ErrDuplicateOrderID)
	}

	trades := ob.match(order, ob.sideOf(order.Side.Opposite()))

	if order.Quantity > 0 {
		ob.rest(*order)
	}

	return trades, nil
}

// match walks the opposite side best level first, draining each level in
// FIFO order before moving to the next one.
func (ob *OrderBook) match(order *domain.Order, opposite *bookSide) []domain.Trade {
	var trades []domain.Trade

	for order.Quantity > 0 && opposite.crossedBy(order.Price) {
		level := opposite.bestLevel()
		head := level.front()
		resting := &ob.orders.at(head).order

		quantity := min(order.Quantity, resting.Quantity)
		trades = append(trades, domain.NewTrade(order, resting, quantity))

		order.Fill(quantity)
		level.fill(ob.orders, head, quantity)

		if resting.IsFilled() {
			ob.purge(opposite, level, resting.ID, head)
		}
	}

	return trades
}

// rest appends the order to the tail of its level and indexes it
func (ob *OrderBook) rest(o domain.Order) {
	s := ob.orders.alloc(o)
	ob.sideOf(o.Side).upsert(o.Price).pushBack(ob.orders, s)
	ob.index[o.ID] = s
}

// purge removes a resting order from its level, the index and the arena,
// and drops the level if it became empty.
func (ob *OrderBook) purge(side *bookSide, level *priceLevel, id domain.OrderID, s slot) {
	level.unlink(ob.orders, s)
	delete(ob.index, id)
	ob.orders.release(s)
	if level.empty() {
		side.remove(level)
	}
}

// RemoveOrder cancels a resting order.
// Unknown ids (never added, already filled, already cancelled) return
// ErrOrderNotFound and leave the book untouched.
func (ob *OrderBook) RemoveOrder(orderID domain.OrderID) (domain.Order, error) {
	s, ok := ob.index[orderID]
	if !ok {
		return domain.Order{}, fmt.Errorf("order %d: %w", orderID, ErrOrderNotFound)
	}

	removed := ob.orders.at(s).order
	side := ob.sideOf(removed.Side)
	level := side.level(removed.Price)
	if level == nil {
		panic(fmt.Sprintf("orderbook: index entry for order %d points at missing %s level %s",
			orderID, removed.Side, removed.Price))
	}

	ob.purge(side, level, orderID, s)
	return removed, nil
}

// Order returns a copy of a resting order
func (ob *OrderBook) Order(orderID domain.OrderID) (domain.Order, bool) {
	s, ok := ob.index[orderID]
	if !ok {
		return domain.Order{}, false
	}
	return ob.orders.at(s).order, true
}

// BestBid returns the highest buy price
func (ob *OrderBook) BestBid() (domain.Price, bool) {
	if l := ob.bids.bestLevel(); l != nil {
		return l.price, true
	}
	return 0, false
}

// BestAsk returns the lowest sell price
func (ob *OrderBook) BestAsk() (domain.Price, bool) {
	if l := ob.asks.bestLevel(); l != nil {
		return l.price, true
	}
	return 0, false
}

// SnapshotBids returns an independent copy of the bid levels, highest price first
func (ob *OrderBook) SnapshotBids() []LevelSnapshot {
	return ob.snapshot(ob.bids)
}

// SnapshotAsks returns an independent copy of the ask levels, lowest price first
func (ob *OrderBook) SnapshotAsks() []LevelSnapshot {
	return ob.snapshot(ob.asks)
}

func (ob *OrderBook) snapshot(side *bookSide) []LevelSnapshot {
	out := make([]LevelSnapshot, 0, side.size())
	side.walk(func(l *priceLevel) bool {
		out = append(out, LevelSnapshot{Price: l.price, Orders: l.orders(ob.orders)})
		return true
	})
	return out
}

// GetDepth returns the market depth, best level first on both sides.
// levels <= 0 returns every level.
func (ob *OrderBook) GetDepth(levels int) (bids, asks []PriceLevel) {
	return depth(ob.bids, levels), depth(ob.asks, levels)
}

func depth(side *bookSide, levels int) []PriceLevel {
	n := side.size()
	if levels > 0 && levels < n {
		n = levels
	}
	out := make([]PriceLevel, 0, n)
	side.walk(func(l *priceLevel) bool {
		out = append(out, PriceLevel{Price: l.price, Quantity: l.volume, Orders: l.count})
		return len(out) < n
	})
	return out
}

// Len returns the number of resting orders
func (ob *OrderBook) Len() int {
	return len(ob.index)
}
