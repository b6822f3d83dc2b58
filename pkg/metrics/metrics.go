// Package metrics 提供 Prometheus helper，包含常用 counter/gauge/histogram 模板
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/venturelink/funding/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal prometheus.Counter
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// 数据库查询计数
	DBQueriesTotal prometheus.Counter
	// 数据库查询耗时
	DBQueryDuration prometheus.Histogram

	// Redis 操作计数
	RedisOpsTotal prometheus.Counter

	// 业务指标
	InvestmentsCreatedTotal prometheus.Counter
	InvestmentsOpen         prometheus.Gauge
	ContributionsTotal      prometheus.Counter
	AccrualRunsTotal        prometheus.Counter
	WithdrawalsSubmitted    prometheus.Counter
	WithdrawalsPending      prometheus.Gauge
	WithdrawalConflicts     prometheus.Counter
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		DBQueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "db_queries_total",
			Help:      "Total database queries",
		}),
		DBQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		RedisOpsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "redis_ops_total",
			Help:      "Total Redis operations",
		}),

		InvestmentsCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "investments_created_total",
			Help:      "Total investments published",
		}),
		InvestmentsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "investments_open",
			Help:      "Number of investments currently open for contributions",
		}),
		ContributionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "contributions_total",
			Help:      "Total contributions recorded",
		}),
		AccrualRunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "accrual_runs_total",
			Help:      "Total returns accrual runs executed",
		}),
		WithdrawalsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "withdrawals_submitted_total",
			Help:      "Total withdrawal requests submitted",
		}),
		WithdrawalsPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "withdrawals_pending",
			Help:      "Number of withdrawal requests awaiting decision",
		}),
		WithdrawalConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "funding",
			Subsystem: serviceName,
			Name:      "withdrawal_conflicts_total",
			Help:      "Withdrawal submissions rejected after retry exhaustion",
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	metrics := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBQueriesTotal,
		m.DBQueryDuration,
		m.RedisOpsTotal,
		m.InvestmentsCreatedTotal,
		m.InvestmentsOpen,
		m.ContributionsTotal,
		m.AccrualRunsTotal,
		m.WithdrawalsSubmitted,
		m.WithdrawalsPending,
		m.WithdrawalConflicts,
	}

	for _, metric := range metrics {
		if err := prometheus.DefaultRegisterer.Register(metric); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Error(context.Background(), "Failed to start Prometheus HTTP server", "error", err)
		}
	}()

	return nil
}
