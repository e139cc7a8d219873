package domain

import "fmt"

// Trade represents a single fill between an incoming (aggressor) order and a
// resting order. Trades are values: the book hands them to the caller and keeps
// no reference.
type Trade struct {
	AggressorID OrderID  // incoming order that crossed the book
	RestingID   OrderID  // order that was resting at the time of the match
	Price       Price    // always the resting order's price
	Quantity    Quantity // executed quantity
}

// NewTrade builds the fill record for aggressor hitting resting
func NewTrade(aggressor, resting *Order, quantity Quantity) Trade {
	return Trade{
		AggressorID: aggressor.ID,
		RestingID:   resting.ID,
		Price:       resting.Price,
		Quantity:    quantity,
	}
}

func (t Trade) String() string {
	return fmt.Sprintf("TRADE aggressor=%d resting=%d price=%s qty=%d",
		t.AggressorID, t.RestingID, t.Price, t.Quantity)
}
