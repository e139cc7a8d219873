// Package source reads limit orders from text input, one
// "orderId,quantity,price,side" record per line.
package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"matchbook/domain"
)

// ErrMalformedRecord marks a record that cannot be turned into an order
var ErrMalformedRecord = errors.New("malformed order record")

// FieldCount is the number of fields in an order record
const FieldCount = 4

const maxLineSize = 1 << 20

// Reader yields validated orders from a line stream. Every line is one
// comma-separated record on its own; malformed records are logged and skipped.
// Blank lines and lines starting with '#' are ignored.
type Reader struct {
	scanner *bufio.Scanner
	logger  *slog.Logger
	line    int
	skipped int
}

// NewReader wraps r. logger may be nil.
func NewReader(r io.Reader, logger *slog.Logger) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{scanner: sc, logger: logger.With("component", "source")}
}

// Next returns the next valid order, or io.EOF once the input is exhausted
func (r *Reader) Next() (*domain.Order, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		order, err := ParseRecord(strings.Split(text, ","))
		if err != nil {
			r.skip(r.line, err)
			continue
		}
		return order, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read orders at line %d: %w", r.line+1, err)
	}
	return nil, io.EOF
}

// Skipped returns how many records were rejected so far
func (r *Reader) Skipped() int {
	return r.skipped
}

func (r *Reader) skip(line int, err error) {
	r.skipped++
	r.logger.Warn("skipping order record", "line", line, "error", err)
}

// ReadAll drains the reader
func (r *Reader) ReadAll() ([]*domain.Order, error) {
	var orders []*domain.Order
	for {
		o, err := r.Next()
		if err == io.EOF {
			return orders, nil
		}
		if err != nil {
			return orders, err
		}
		orders = append(orders, o)
	}
}

// ParseRecord converts one record (orderId, quantity, price, side) into an
// order. Price is a decimal rounded to the nearest minor unit; side is "Buy"
// or "Sell".
func ParseRecord(fields []string) (*domain.Order, error) {
	if len(fields) != FieldCount {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedRecord, FieldCount, len(fields))
	}

	id, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: order id %q: %v", ErrMalformedRecord, fields[0], err)
	}

	qty, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: quantity %q: %v", ErrMalformedRecord, fields[1], err)
	}

	price, err := domain.ParsePrice(strings.TrimSpace(fields[2]))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	side, ok := domain.ParseSide(strings.TrimSpace(fields[3]))
	if !ok {
		return nil, fmt.Errorf("%w: side %q", ErrMalformedRecord, fields[3])
	}

	return domain.NewLimitOrder(domain.OrderID(id), side, price, domain.Quantity(qty)), nil
}
