package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/pflag"

	"matchbook/config"
	"matchbook/logger"
	"matchbook/matching"
	"matchbook/orderbook"
	"matchbook/publish"
	"matchbook/report"
	"matchbook/source"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "matchbook:", err)
		os.Exit(2)
	}

	log, closer, err := logger.Init(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "matchbook:", err)
		os.Exit(2)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, os.Stdout); err != nil {
		log.Error("matchbook failed", "error", err)
		closer.Close()
		os.Exit(1)
	}
}

// run streams the input through the engine, writing trades and the final book to out
func run(ctx context.Context, cfg *config.Config, log *slog.Logger, out io.Writer) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := matching.NewMetrics(reg)

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, reg, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	engine := matching.NewMatchingEngine(orderbook.NewOrderBook(), log, metrics, cfg.Engine.QueueSize)
	engine.Start()
	defer engine.Stop()

	bw := bufio.NewWriter(out)
	defer bw.Flush()

	stdoutPub, err := publish.NewWriterPublisher(bw, cfg.Output.Format)
	if err != nil {
		return err
	}
	var kafkaPub publish.Publisher
	if cfg.Kafka.Enabled {
		kafkaPub = publish.NewKafkaPublisher(publish.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}, log)
	}
	pub := publish.NewFanout(stdoutPub, kafkaPub)
	defer func() {
		if err := pub.Close(); err != nil {
			log.Error("failed to close publishers", "error", err)
		}
	}()

	in, err := openInput(cfg.Input)
	if err != nil {
		return err
	}
	defer in.Close()

	stats, err := process(ctx, engine, source.NewReader(in, log), pub)
	if err != nil {
		return err
	}
	log.Info("input processed",
		"orders", stats.orders,
		"rejected", stats.rejected,
		"skipped", stats.skipped,
		"trades", stats.trades,
		"interrupted", ctx.Err() != nil,
	)

	if cfg.Output.Book {
		// the signal context may already be done; the engine is still running
		snap, err := engine.Snapshot(context.Background(), cfg.Output.Depth)
		if err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		if err := report.WriteBook(bw, cfg.Output.Format, snap.Bids, snap.Asks); err != nil {
			return fmt.Errorf("write book: %w", err)
		}
	}

	if cfg.Metrics.Dump {
		if err := dumpMetrics(os.Stderr, reg); err != nil {
			return err
		}
	}
	return nil
}

type runStats struct {
	orders   int
	rejected int
	skipped  int
	trades   int
}

// process feeds orders until the input ends or ctx is done. ctx is only
// checked between orders: a submitted order always completes and its trades
// are always published.
func process(ctx context.Context, engine matching.IMatchingEngine, r *source.Reader, pub publish.Publisher) (stats runStats, err error) {
	defer func() { stats.skipped = r.Skipped() }()
	orderCtx := context.WithoutCancel(ctx)

	for ctx.Err() == nil {
		order, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, err
		}
		stats.orders++

		rep, err := engine.SubmitOrder(orderCtx, order)
		if errors.Is(err, matching.ErrEngineStopped) {
			return stats, err
		}
		if err != nil {
			// already logged by the engine
			stats.rejected++
			continue
		}

		stats.trades += len(rep.Trades)
		if err := pub.Publish(orderCtx, rep.Trades); err != nil {
			return stats, fmt.Errorf("publish trades of order %d: %w", order.ID, err)
		}
	}
	return stats, nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

func dumpMetrics(w io.Writer, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("dump metrics: %w", err)
		}
	}
	return nil
}
