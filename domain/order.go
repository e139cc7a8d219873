package domain

import (
	"fmt"
)

// OrderID is the caller-assigned, process-unique order identifier
type OrderID int64

// Quantity is an unsigned order size
type Quantity uint64

// Side represents the order side (Buy or Sell)
type Side uint8

const (
	SideBuy Side = iota + 1
	SideSell
)

// Valid reports whether the side is Buy or Sell. The zero value is invalid so
// that an order built without a side is rejected instead of silently selling.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Opposite returns the side an order of this side matches against
func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return s
	}
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "Buy"
	case SideSell:
		return "Sell"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

// ParseSide converts the wire spelling ("Buy"/"Sell") into a Side
func ParseSide(s string) (Side, bool) {
	switch s {
	case "Buy":
		return SideBuy, true
	case "Sell":
		return SideSell, true
	default:
		return 0, false
	}
}

// OrderStatus is the outcome of the last operation applied to an order
type OrderStatus int

const (
	OrderStatusResting OrderStatus = iota
	OrderStatusPartialFilled
	OrderStatusFilled
	OrderStatusCancelled
	OrderStatusRejected
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusResting:
		return "resting"
	case OrderStatusPartialFilled:
		return "partially_filled"
	case OrderStatusFilled:
		return "filled"
	case OrderStatusCancelled:
		return "cancelled"
	case OrderStatusRejected:
		return "rejected"
	default:
		return fmt.Sprintf("OrderStatus(%d)", int(s))
	}
}

// Order represents a plain limit order.
// Price and Side are immutable once the order rests; Quantity is the unfilled
// remainder and is only ever decremented by matching.
type Order struct {
	ID       OrderID
	Side     Side
	Price    Price
	Quantity Quantity
}

// NewLimitOrder creates a new limit order
func NewLimitOrder(id OrderID, side Side, price Price, quantity Quantity) *Order {
	return &Order{
		ID:       id,
		Side:     side,
		Price:    price,
		Quantity: quantity,
	}
}

// IsFilled returns true if nothing is left to match
func (o *Order) IsFilled() bool {
	return o.Quantity == 0
}

// Fill decrements the remaining quantity by an executed amount
func (o *Order) Fill(quantity Quantity) {
	if quantity > o.Quantity {
		panic(fmt.Sprintf("domain: fill of %d exceeds remaining %d on order %d", quantity, o.Quantity, o.ID))
	}
	o.Quantity -= quantity
}

func (o Order) String() string {
	return fmt.Sprintf("%d %s %d@%s", o.ID, o.Side, o.Quantity, o.Price)
}
