package matching

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"matchbook/domain"
	"matchbook/orderbook"
)

var (
	// ErrEngineStopped is returned for requests made after Stop
	ErrEngineStopped = errors.New("matching engine stopped")
	ErrNilOrder      = errors.New("nil order")
)

// DefaultQueueSize is the command queue capacity used when none is given
const DefaultQueueSize = 1024

// IMatchingEngine defines the interface for a matching engine
type IMatchingEngine interface {
	// SubmitOrder matches the order and waits for its execution report
	SubmitOrder(ctx context.Context, order *domain.Order) (ExecutionReport, error)

	// CancelOrder removes a resting order
	CancelOrder(ctx context.Context, orderID domain.OrderID) (ExecutionReport, error)

	// Snapshot returns a consistent copy of the book
	Snapshot(ctx context.Context, depth int) (BookSnapshot, error)

	// Start starts the matching loop in a dedicated goroutine
	Start()

	// Stop stops the matching engine gracefully
	Stop()
}

// ExecutionReport is the outcome of one submit or cancel
type ExecutionReport struct {
	// Order as it stands after the request; Quantity is the unfilled remainder
	Order  domain.Order
	Trades []domain.Trade
	Status domain.OrderStatus
}

// BookSnapshot holds both sides, best price first
type BookSnapshot struct {
	Bids []orderbook.LevelSnapshot
	Asks []orderbook.LevelSnapshot
}

type commandKind uint8

const (
	cmdSubmit commandKind = iota
	cmdCancel
	cmdSnapshot
)

type command struct {
	kind    commandKind
	order   *domain.Order
	orderID domain.OrderID
	depth   int
	reply   chan result
}

type result struct {
	report   ExecutionReport
	snapshot BookSnapshot
	err      error
}

// MatchingEngine serializes every operation on ONE order book.
// Architecture:
//   - Producers enqueue commands on a buffered channel and wait for a reply
//   - One goroutine, locked to an OS thread, drains the queue and owns the book
//   - The book is never touched outside that goroutine, so it needs no locks
type MatchingEngine struct {
	book     orderbook.IOrderBook
	logger   *slog.Logger
	metrics  *Metrics
	commands chan command
	stopChan chan struct{}
	done     chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewMatchingEngine creates an engine around book. logger and metrics may be nil;
// queueSize <= 0 selects DefaultQueueSize.
func NewMatchingEngine(book orderbook.IOrderBook, logger *slog.Logger, metrics *Metrics, queueSize int) *MatchingEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &MatchingEngine{
		book:     book,
		logger:   logger.With("component", "matching_engine"),
		metrics:  metrics,
		commands: make(chan command, queueSize),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start starts the matching loop. Calling it again, or after Stop, does nothing.
func (me *MatchingEngine) Start() {
	me.startOnce.Do(func() {
		go me.run()
	})
}

// Stop stops the loop and waits for it to exit. Commands still queued are
// answered with ErrEngineStopped. Safe to call more than once.
func (me *MatchingEngine) Stop() {
	me.stopOnce.Do(func() {
		close(me.stopChan)
	})
	// never started: mark done so waiters return
	me.startOnce.Do(func() {
		close(me.done)
	})
	<-me.done
}

func (me *MatchingEngine) run() {
	// Lock this goroutine to an OS thread to reduce context switches
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(me.done)

	me.logger.Debug("matching loop started")
	for {
		select {
		case cmd := <-me.commands:
			cmd.reply <- me.execute(cmd)
		case <-me.stopChan:
			me.logger.Debug("matching loop stopped", "pending", len(me.commands))
			return
		}
	}
}

// SubmitOrder submits an order and waits until it has been matched, then sets
// order.Quantity to the unfilled remainder. A rejected order yields a report
// with OrderStatusRejected together with the cause.
// The engine matches a private copy: if ctx ends after the order was queued,
// the order may still execute but the caller's order is left untouched.
func (me *MatchingEngine) SubmitOrder(ctx context.Context, order *domain.Order) (ExecutionReport, error) {
	if order == nil {
		return ExecutionReport{}, ErrNilOrder
	}
	queued := *order
	res, err := me.do(ctx, command{kind: cmdSubmit, order: &queued})
	if err != nil {
		return ExecutionReport{}, err
	}
	order.Quantity = res.report.Order.Quantity
	return res.report, res.err
}

// CancelOrder removes a resting order. An unknown id yields OrderStatusRejected and
// an error wrapping orderbook.ErrOrderNotFound.
func (me *MatchingEngine) CancelOrder(ctx context.Context, orderID domain.OrderID) (ExecutionReport, error) {
	res, err := me.do(ctx, command{kind: cmdCancel, orderID: orderID})
	if err != nil {
		return ExecutionReport{}, err
	}
	return res.report, res.err
}

// Snapshot copies up to depth levels per side (0 = all) inside the matching loop
func (me *MatchingEngine) Snapshot(ctx context.Context, depth int) (BookSnapshot, error) {
	res, err := me.do(ctx, command{kind: cmdSnapshot, depth: depth})
	if err != nil {
		return BookSnapshot{}, err
	}
	return res.snapshot, nil
}

func (me *MatchingEngine) do(ctx context.Context, cmd command) (result, error) {
	select {
	case <-me.stopChan:
		return result{}, ErrEngineStopped
	default:
	}

	cmd.reply = make(chan result, 1)
	select {
	case me.commands <- cmd:
	case <-me.stopChan:
		return result{}, ErrEngineStopped
	case <-ctx.Done():
		return result{}, ctx.Err()
	}

	select {
	case res := <-cmd.reply:
		return res, nil
	case <-ctx.Done():
		return result{}, ctx.Err()
	case <-me.done:
		// the loop may have answered just before exiting
		select {
		case res := <-cmd.reply:
			return res, nil
		default:
			return result{}, ErrEngineStopped
		}
	}
}

// execute runs in the matching goroutine only
func (me *MatchingEngine) execute(cmd command) result {
	switch cmd.kind {
	case cmdSubmit:
		return me.processOrder(cmd.order)
	case cmdCancel:
		return me.processCancel(cmd.orderID)
	case cmdSnapshot:
		return result{snapshot: BookSnapshot{
			Bids: truncate(me.book.SnapshotBids(), cmd.depth),
			Asks: truncate(me.book.SnapshotAsks(), cmd.depth),
		}}
	default:
		panic(fmt.Sprintf("matching: unknown command kind %d", cmd.kind))
	}
}

func (me *MatchingEngine) processOrder(order *domain.Order) result {
	requested := order.Quantity
	start := time.Now()
	trades, err := me.book.AddOrder(order)
	took := time.Since(start)

	report := ExecutionReport{Order: *order, Trades: trades}
	switch {
	case err != nil:
		report.Status = domain.OrderStatusRejected
	case order.IsFilled():
		report.Status = domain.OrderStatusFilled
	case len(trades) > 0:
		report.Status = domain.OrderStatusPartialFilled
	default:
		report.Status = domain.OrderStatusResting
	}

	me.metrics.observeOrder(report.Status, trades, took)
	me.observeBook()

	if err != nil {
		me.logger.Warn("order rejected", "order_id", order.ID, "side", order.Side, "price", order.Price, "error", err)
		return result{report: report, err: fmt.Errorf("submit order %d: %w", order.ID, err)}
	}
	me.logger.Debug("order processed",
		"order_id", order.ID,
		"side", order.Side,
		"price", order.Price,
		"quantity", requested,
		"remaining", order.Quantity,
		"trades", len(trades),
		"status", report.Status,
	)
	return result{report: report}
}

func (me *MatchingEngine) processCancel(orderID domain.OrderID) result {
	removed, err := me.book.RemoveOrder(orderID)
	if err != nil {
		me.metrics.observeCancel(domain.OrderStatusRejected)
		me.logger.Warn("cancel rejected", "order_id", orderID, "error", err)
		return result{
			report: ExecutionReport{Order: domain.Order{ID: orderID}, Status: domain.OrderStatusRejected},
			err:    fmt.Errorf("cancel order %d: %w", orderID, err),
		}
	}

	me.metrics.observeCancel(domain.OrderStatusCancelled)
	me.observeBook()
	me.logger.Debug("order cancelled", "order_id", orderID, "remaining", removed.Quantity)
	return result{report: ExecutionReport{Order: removed, Status: domain.OrderStatusCancelled}}
}

func (me *MatchingEngine) observeBook() {
	if me.metrics == nil {
		return
	}
	bid, hasBid := me.book.BestBid()
	ask, hasAsk := me.book.BestAsk()
	me.metrics.observeBook(me.book.Len(), bid, ask, hasBid, hasAsk)
}

func truncate(levels []orderbook.LevelSnapshot, depth int) []orderbook.LevelSnapshot {
	if depth > 0 && len(levels) > depth {
		return levels[:depth]
	}
	return levels
}
