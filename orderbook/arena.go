package orderbook

import (
	"fmt"

	"matchbook/domain"
)

// slot is a stable logical key for a resting order inside the arena.
// The order index and the price-level links hold slots, never pointers, so a
// grown or recycled backing array can not leave a dangling reference behind.
type slot int32

const nilSlot slot = -1

// node is one arena cell: the resting order plus its FIFO links within the
// price level that owns it.
type node struct {
	order domain.Order
	prev  slot
	next  slot
	live  bool
}

// arena stores every resting order of a book.
// Released cells are recycled through a free list, so steady-state matching
// does not allocate.
type arena struct {
	nodes []node
	free  []slot
}

func newArena(capacity int) *arena {
	return &arena{
		nodes: make([]node, 0, capacity),
	}
}

// alloc stores o and returns its slot. Any *node obtained before alloc must be
// re-fetched afterwards because the backing array may move.
func (a *arena) alloc(o domain.Order) slot {
	var s slot
	if n := len(a.free); n > 0 {
		s = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.nodes = append(a.nodes, node{})
		s = slot(len(a.nodes) - 1)
	}
	a.nodes[s] = node{order: o, prev: nilSlot, next: nilSlot, live: true}
	return s
}

func (a *arena) release(s slot) {
	n := a.at(s)
	*n = node{prev: nilSlot, next: nilSlot}
	a.free = append(a.free, s)
}

// at resolves a slot. Resolving a slot that holds no resting order means the
// index and the levels disagree, which can not be recovered from.
func (a *arena) at(s slot) *node {
	if s < 0 || int(s) >= len(a.nodes) {
		panic(fmt.Sprintf("orderbook: slot %d out of range [0,%d)", s, len(a.nodes)))
	}
	n := &a.nodes[s]
	if !n.live {
		panic(fmt.Sprintf("orderbook: slot %d does not hold a resting order", s))
	}
	return n
}

// live returns the number of cells currently holding a resting order
func (a *arena) live() int {
	return len(a.nodes) - len(a.free)
}
