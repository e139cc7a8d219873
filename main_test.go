package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/config"
	"matchbook/domain"
	"matchbook/logger"
	"matchbook/matching"
	"matchbook/orderbook"
	"matchbook/source"
)

func writeInput(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func testConfig(input string) *config.Config {
	return &config.Config{
		Input:  input,
		Output: config.OutputConfig{Format: "text", Book: true},
		Log:    logger.DefaultConfig(),
		Engine: config.EngineConfig{QueueSize: 8},
	}
}

func TestRunPrintsTradesAndBook(t *testing.T) {
	path := writeInput(t,
		"1,10,1.00,Sell",
		"2,5,1.01,Sell",
		"3,12,1.01,Buy",
		"bad line",
		"4,3,0.95,Buy",
	)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), testConfig(path), logger.Discard(), &out))

	want := "TRADE aggressor=3 resting=1 price=1.00 qty=10\n" +
		"TRADE aggressor=3 resting=2 price=1.01 qty=2\n" +
		"ASKS\n" +
		"  1.01  3  2:3\n" +
		"BIDS\n" +
		"  0.95  3  4:3\n"
	assert.Equal(t, want, out.String())
}

func TestRunJSONWithoutBook(t *testing.T) {
	path := writeInput(t, "1,10,1.00,Sell", "2,4,1.00,Buy")
	cfg := testConfig(path)
	cfg.Output = config.OutputConfig{Format: "json"}

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, logger.Discard(), &out))
	assert.JSONEq(t,
		`{"aggressor_id":2,"resting_id":1,"price":"1.00","price_minor":100,"quantity":4}`,
		out.String())
}

func TestRunMissingInput(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "missing.csv"))
	err := run(context.Background(), cfg, logger.Discard(), &bytes.Buffer{})
	assert.ErrorContains(t, err, "open input")
}

func TestRunCancelledStillPrintsBook(t *testing.T) {
	path := writeInput(t, "1,10,1.00,Sell")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	require.NoError(t, run(ctx, testConfig(path), logger.Discard(), &out))
	assert.Equal(t, "ASKS\n  (empty)\nBIDS\n  (empty)\n", out.String())
}

// cancelOnPublish records trades and ends the run after the first batch
type cancelOnPublish struct {
	cancel context.CancelFunc
	trades []domain.Trade
}

func (p *cancelOnPublish) Publish(ctx context.Context, trades []domain.Trade) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.trades = append(p.trades, trades...)
	if len(trades) > 0 {
		p.cancel()
	}
	return nil
}

func (p *cancelOnPublish) Close() error { return nil }

func TestProcessStopsBetweenOrdersAndPublishesEveryFill(t *testing.T) {
	engine := matching.NewMatchingEngine(orderbook.NewOrderBook(), logger.Discard(), nil, 4)
	engine.Start()
	defer engine.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pub := &cancelOnPublish{cancel: cancel}

	input := "1,10,1.00,Sell\n2,4,1.00,Buy\n3,6,1.00,Buy\n"
	stats, err := process(ctx, engine, source.NewReader(strings.NewReader(input), logger.Discard()), pub)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.orders, "third order is never read")
	assert.Equal(t, 1, stats.trades)
	assert.Equal(t, []domain.Trade{{AggressorID: 2, RestingID: 1, Price: 100, Quantity: 4}}, pub.trades)

	snap, err := engine.Snapshot(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, snap.Asks, 1)
	assert.Equal(t, []domain.Order{{ID: 1, Side: domain.SideSell, Price: 100, Quantity: 6}}, snap.Asks[0].Orders,
		"book reflects exactly the published fills")
}
