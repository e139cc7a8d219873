// Package report renders order book snapshots for people and for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"matchbook/domain"
	"matchbook/orderbook"
)

// BookLevel JSON form of one price level
type BookLevel struct {
	Price      string          `json:"price"`
	PriceMinor domain.Price    `json:"price_minor"`
	Quantity   domain.Quantity `json:"quantity"`
	Orders     []BookOrder     `json:"orders"`
}

// BookOrder JSON form of one resting order
type BookOrder struct {
	ID       domain.OrderID  `json:"id"`
	Quantity domain.Quantity `json:"quantity"`
}

// Book JSON form of the whole book; both sides best price first
type Book struct {
	Bids []BookLevel `json:"bids"`
	Asks []BookLevel `json:"asks"`
}

// NewBook converts snapshots into their JSON form
func NewBook(bids, asks []orderbook.LevelSnapshot) Book {
	return Book{Bids: levels(bids), Asks: levels(asks)}
}

func levels(src []orderbook.LevelSnapshot) []BookLevel {
	out := make([]BookLevel, 0, len(src))
	for _, l := range src {
		bl := BookLevel{
			Price:      l.Price.String(),
			PriceMinor: l.Price,
			Orders:     make([]BookOrder, 0, len(l.Orders)),
		}
		for _, o := range l.Orders {
			bl.Quantity += o.Quantity
			bl.Orders = append(bl.Orders, BookOrder{ID: o.ID, Quantity: o.Quantity})
		}
		out = append(out, bl)
	}
	return out
}

// WriteBook renders the book. Text shows asks from the highest price down to
// the best ask, then bids from the best bid down, so the spread sits in the
// middle. JSON writes a single Book object.
func WriteBook(w io.Writer, format string, bids, asks []orderbook.LevelSnapshot) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(NewBook(bids, asks))
	case "text":
		return writeText(w, bids, asks)
	default:
		return fmt.Errorf("unknown book format %q", format)
	}
}

func writeText(w io.Writer, bids, asks []orderbook.LevelSnapshot) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ASKS")
	if len(asks) == 0 {
		fmt.Fprintln(tw, "  (empty)")
	}
	for i := len(asks) - 1; i >= 0; i-- {
		writeLevel(tw, asks[i])
	}
	fmt.Fprintln(tw, "BIDS")
	if len(bids) == 0 {
		fmt.Fprintln(tw, "  (empty)")
	}
	for _, l := range bids {
		writeLevel(tw, l)
	}

	return tw.Flush()
}

func writeLevel(w io.Writer, l orderbook.LevelSnapshot) {
	var (
		total domain.Quantity
		ids   = make([]string, 0, len(l.Orders))
	)
	for _, o := range l.Orders {
		total += o.Quantity
		ids = append(ids, fmt.Sprintf("%d:%d", o.ID, o.Quantity))
	}
	fmt.Fprintf(w, "  %s\t%d\t%s\n", l.Price, total, strings.Join(ids, " "))
}
