package orderbook

import (
	"fmt"

	"matchbook/domain"
)

// priceLevel is the FIFO queue of resting orders at one exact price.
// The queue is an intrusive doubly linked list threaded through arena slots:
// head is the oldest order (highest time priority), tail the newest.
type priceLevel struct {
	price  domain.Price
	head   slot
	tail   slot
	count  int
	volume domain.Quantity
}

func newPriceLevel(price domain.Price) *priceLevel {
	return &priceLevel{
		price: price,
		head:  nilSlot,
		tail:  nilSlot,
	}
}

// pushBack appends the order in slot s to the tail of the queue
func (l *priceLevel) pushBack(a *arena, s slot) {
	n := a.at(s)
	n.prev = l.tail
	n.next = nilSlot
	if l.tail == nilSlot {
		l.head = s
	} else {
		a.at(l.tail).next = s
	}
	l.tail = s
	l.count++
	l.volume += n.order.Quantity
}

// unlink removes slot s from anywhere in the queue in O(1)
func (l *priceLevel) unlink(a *arena, s slot) {
	n := a.at(s)
	if n.prev != nilSlot {
		a.at(n.prev).next = n.next
	} else {
		if l.head != s {
			panic(fmt.Sprintf("orderbook: slot %d has no predecessor but is not head of level %d", s, l.price))
		}
		l.head = n.next
	}
	if n.next != nilSlot {
		a.at(n.next).prev = n.prev
	} else {
		if l.tail != s {
			panic(fmt.Sprintf("orderbook: slot %d has no successor but is not tail of level %d", s, l.price))
		}
		l.tail = n.prev
	}
	n.prev, n.next = nilSlot, nilSlot
	l.count--
	l.volume -= n.order.Quantity
}

// front returns the oldest order's slot, or nilSlot when the level is empty
func (l *priceLevel) front() slot {
	return l.head
}

// fill records that q was executed against the order in slot s
func (l *priceLevel) fill(a *arena, s slot, q domain.Quantity) {
	a.at(s).order.Fill(q)
	l.volume -= q
}

func (l *priceLevel) empty() bool {
	return l.head == nilSlot
}

// orders copies the queue in priority order
func (l *priceLevel) orders(a *arena) []domain.Order {
	out := make([]domain.Order, 0, l.count)
	for s := l.head; s != nilSlot; {
		n := a.at(s)
		out = append(out, n.order)
		s = n.next
	}
	return out
}
