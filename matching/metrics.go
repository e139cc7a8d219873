package matching

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"matchbook/domain"
)

const (
	metricsNamespace = "matchbook"
	metricsSubsystem = "engine"
)

// Metrics 撮合引擎指标集合. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// 订单计数, by outcome (resting, partially_filled, filled, rejected)
	OrdersTotal *prometheus.CounterVec
	// 成交笔数
	TradesTotal prometheus.Counter
	// 成交数量
	TradedQuantity prometheus.Counter
	// 撤单计数, by outcome (cancelled, rejected)
	CancelsTotal *prometheus.CounterVec
	// 挂单数
	RestingOrders prometheus.Gauge
	// 最优买价/卖价, 0 when the side is empty
	BestBid prometheus.Gauge
	BestAsk prometheus.Gauge
	// 撮合耗时
	MatchLatency prometheus.Histogram
}

// NewMetrics creates the engine metrics and registers them on reg when reg is
// not nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "orders_total",
			Help:      "Submitted orders by outcome",
		}, []string{"outcome"}),
		TradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "trades_total",
			Help:      "Total trades executed",
		}),
		TradedQuantity: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "traded_quantity_total",
			Help:      "Total quantity executed across all trades",
		}),
		CancelsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cancels_total",
			Help:      "Cancel requests by outcome",
		}, []string{"outcome"}),
		RestingOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "resting_orders",
			Help:      "Number of orders resting in the book",
		}),
		BestBid: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "best_bid",
			Help:      "Highest resting buy price, 0 when there are no bids",
		}),
		BestAsk: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "best_ask",
			Help:      "Lowest resting sell price, 0 when there are no asks",
		}),
		MatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "match_duration_seconds",
			Help:      "Time spent matching one incoming order",
			Buckets:   prometheus.ExponentialBuckets(1e-7, 4, 10),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.OrdersTotal,
			m.TradesTotal,
			m.TradedQuantity,
			m.CancelsTotal,
			m.RestingOrders,
			m.BestBid,
			m.BestAsk,
			m.MatchLatency,
		)
	}
	return m
}

func (m *Metrics) observeOrder(status domain.OrderStatus, trades []domain.Trade, took time.Duration) {
	if m == nil {
		return
	}
	m.OrdersTotal.WithLabelValues(status.String()).Inc()
	m.MatchLatency.Observe(took.Seconds())
	if len(trades) == 0 {
		return
	}
	m.TradesTotal.Add(float64(len(trades)))
	var qty domain.Quantity
	for _, t := range trades {
		qty += t.Quantity
	}
	m.TradedQuantity.Add(float64(qty))
}

func (m *Metrics) observeCancel(status domain.OrderStatus) {
	if m == nil {
		return
	}
	m.CancelsTotal.WithLabelValues(status.String()).Inc()
}

func (m *Metrics) observeBook(resting int, bid, ask domain.Price, hasBid, hasAsk bool) {
	if m == nil {
		return
	}
	m.RestingOrders.Set(float64(resting))
	m.BestBid.Set(priceGauge(bid, hasBid))
	m.BestAsk.Set(priceGauge(ask, hasAsk))
}

func priceGauge(p domain.Price, ok bool) float64 {
	if !ok {
		return 0
	}
	return domain.FormatPrice(p).InexactFloat64()
}
