package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"matchbook/domain"
	"matchbook/logger"
	"matchbook/matching"
	"matchbook/orderbook"
	"matchbook/report"
)

func main() {
	var (
		testDuration = pflag.DurationP("duration", "d", 5*time.Second, "test duration")
		numWorkers   = pflag.IntP("workers", "w", max(runtime.NumCPU()-2, 1), "producer goroutines (default NumCPU - 2)")
		cancelEvery  = pflag.Int("cancel-every", 10, "each producer cancels one of its own orders every N submits, 0 disables")
		depth        = pflag.Int("depth", 5, "levels per side printed at the end")
		queueSize    = pflag.Int("queue-size", matching.DefaultQueueSize, "engine command queue size")
		cpuProfile   = pflag.String("cpuprofile", "", "write a CPU profile to this file")
	)
	pflag.Parse()

	if *cpuProfile != "" {
		cpuFile, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "create cpu profile:", err)
			os.Exit(1)
		}
		defer cpuFile.Close()

		if err := pprof.StartCPUProfile(cpuFile); err != nil {
			fmt.Fprintln(os.Stderr, "start cpu profile:", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
		fmt.Printf("CPU profile: %s\n", *cpuProfile)
	}

	fmt.Println("=== 撮合引擎性能测试 ===")

	metrics := matching.NewMetrics(prometheus.NewRegistry())
	engine := matching.NewMatchingEngine(orderbook.NewOrderBook(), logger.Discard(), metrics, *queueSize)
	engine.Start()
	defer engine.Stop()

	var (
		orderCount    atomic.Int64
		tradeCount    atomic.Int64
		cancelCount   atomic.Int64
		cancelMissed  atomic.Int64
		rejectedCount atomic.Int64
	)

	fmt.Printf("CPU 核心数: %d\n", runtime.NumCPU())
	fmt.Printf("生产者数量: %d\n", *numWorkers)
	fmt.Printf("测试时长: %v\n\n", *testDuration)

	ctx := context.Background()
	startTime := time.Now()
	stopChan := make(chan struct{})
	var wg sync.WaitGroup

	// 启动多个生产者
	for w := 0; w < *numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			base := domain.OrderID(workerID) << 40
			n := 0
			for {
				select {
				case <-stopChan:
					return
				default:
				}

				// 交替发送买单和卖单，价格有重叠以产生成交
				side := domain.SideBuy
				if n%2 == 1 {
					side = domain.SideSell
				}
				price := domain.Price(50000 + n%200)

				rep, err := engine.SubmitOrder(ctx, domain.NewLimitOrder(base+domain.OrderID(n), side, price, 1))
				orderCount.Add(1)
				if err != nil {
					rejectedCount.Add(1)
				}
				tradeCount.Add(int64(len(rep.Trades)))

				// cancel an older order of ours; it may already be filled
				if *cancelEvery > 0 && n >= *cancelEvery && n%*cancelEvery == 0 {
					if _, err := engine.CancelOrder(ctx, base+domain.OrderID(n-*cancelEvery+1)); err != nil {
						cancelMissed.Add(1)
					} else {
						cancelCount.Add(1)
					}
				}
				n++
			}
		}(w)
	}

	// 实时显示进度
	ticker := time.NewTicker(1 * time.Second)
	go func() {
		for range ticker.C {
			elapsed := time.Since(startTime)
			orders := orderCount.Load()
			trades := tradeCount.Load()
			fmt.Printf("[%.0fs] 订单: %d (%.0f/s) | 成交: %d (%.0f/s)\n",
				elapsed.Seconds(), orders, float64(orders)/elapsed.Seconds(),
				trades, float64(trades)/elapsed.Seconds())
		}
	}()

	time.Sleep(*testDuration)
	close(stopChan)
	ticker.Stop()
	wg.Wait()

	elapsed := time.Since(startTime)
	totalOrders := orderCount.Load()
	totalTrades := tradeCount.Load()

	fmt.Println("\n=== 性能测试结果 ===")
	fmt.Printf("测试时长:     %v\n", elapsed)
	fmt.Printf("总订单数:     %d\n", totalOrders)
	fmt.Printf("总成交数:     %d\n", totalTrades)
	fmt.Printf("撤单成功/失败: %d / %d\n", cancelCount.Load(), cancelMissed.Load())
	fmt.Printf("拒单数:       %d\n", rejectedCount.Load())
	fmt.Printf("订单吞吐量:   %.0f orders/sec\n", float64(totalOrders)/elapsed.Seconds())
	fmt.Printf("成交吞吐量:   %.0f trades/sec\n", float64(totalTrades)/elapsed.Seconds())
	if totalOrders > 0 {
		fmt.Printf("平均延迟:     %.2f μs/order\n", elapsed.Seconds()*1e6/float64(totalOrders))
		fmt.Printf("撮合率:       %.2f%%\n", float64(totalTrades)/float64(totalOrders)*100)
	}

	snap, err := engine.Snapshot(ctx, *depth)
	if err != nil {
		fmt.Fprintln(os.Stderr, "snapshot:", err)
		return
	}
	fmt.Printf("\n=== 订单簿状态 (前%d档) ===\n", *depth)
	if err := report.WriteBook(os.Stdout, "text", snap.Bids, snap.Asks); err != nil {
		fmt.Fprintln(os.Stderr, "write book:", err)
	}

	if *cpuProfile != "" {
		fmt.Println("\n分析 CPU profile:")
		fmt.Printf("  go tool pprof -http=:8080 %s\n", *cpuProfile)
	}
}
