// Package publish delivers executed trades to downstream sinks: a text or JSON
// line stream, a Kafka topic, or several of them at once.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"matchbook/domain"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Publisher 成交发布者
type Publisher interface {
	// Publish delivers trades in execution order
	Publish(ctx context.Context, trades []domain.Trade) error
	Close() error
}

// TradeEvent is the wire form of a trade
type TradeEvent struct {
	AggressorID domain.OrderID  `json:"aggressor_id"`
	RestingID   domain.OrderID  `json:"resting_id"`
	Price       string          `json:"price"`
	PriceMinor  domain.Price    `json:"price_minor"`
	Quantity    domain.Quantity `json:"quantity"`
}

// NewTradeEvent converts a trade, rendering the price in display units
func NewTradeEvent(t domain.Trade) TradeEvent {
	return TradeEvent{
		AggressorID: t.AggressorID,
		RestingID:   t.RestingID,
		Price:       t.Price.String(),
		PriceMinor:  t.Price,
		Quantity:    t.Quantity,
	}
}

// WriterPublisher writes one line per trade
type WriterPublisher struct {
	mu     sync.Mutex
	w      io.Writer
	format string
	enc    *json.Encoder
}

// NewWriterPublisher writes trades to w as text ("TRADE aggressor=2 resting=1
// price=1.00 qty=10") or as JSON lines
func NewWriterPublisher(w io.Writer, format string) (*WriterPublisher, error) {
	p := &WriterPublisher{w: w, format: format}
	switch format {
	case FormatText:
	case FormatJSON:
		p.enc = json.NewEncoder(w)
	default:
		return nil, fmt.Errorf("unknown trade format %q", format)
	}
	return p, nil
}

func (p *WriterPublisher) Publish(_ context.Context, trades []domain.Trade) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, t := range trades {
		var err error
		if p.enc != nil {
			err = p.enc.Encode(NewTradeEvent(t))
		} else {
			_, err = fmt.Fprintln(p.w, t.String())
		}
		if err != nil {
			return fmt.Errorf("write trade: %w", err)
		}
	}
	return nil
}

// Close does not close the underlying writer
func (p *WriterPublisher) Close() error { return nil }

// Fanout publishes to every sink and reports all failures together
type Fanout []Publisher

// NewFanout skips nil publishers
func NewFanout(pubs ...Publisher) Fanout {
	f := make(Fanout, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			f = append(f, p)
		}
	}
	return f
}

func (f Fanout) Publish(ctx context.Context, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, trades); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
