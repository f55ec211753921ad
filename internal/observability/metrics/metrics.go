// Package metrics exposes Prometheus instrumentation for the risk
// pipeline and its HTTP surface.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentry_runs_total",
		Help: "Total number of completed risk evaluation runs by decision.",
	}, []string{"decision"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentry_run_duration_seconds",
		Help:    "Wall-clock duration of a full evaluation run.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	budgetDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentry_budget_denials_total",
		Help: "Spend requests denied by the budget governor, by reason.",
	}, []string{"reason"})

	paymentReplays = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentry_payment_replays_total",
		Help: "Payment references rejected because they were already consumed.",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sentry_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"handler", "method", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sentry_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"handler", "method"})
)

// ObserveRun 记录一次完整评估。
func ObserveRun(decision string, duration time.Duration) {
	runsTotal.WithLabelValues(decision).Inc()
	runDuration.Observe(duration.Seconds())
}

// ObserveBudgetDenial 记录一次被拒绝的支出请求。
func ObserveBudgetDenial(reason string) {
	budgetDenials.WithLabelValues(reason).Inc()
}

// ObservePaymentReplay 记录一次被拦截的支付重放。
func ObservePaymentReplay() {
	paymentReplays.Inc()
}

// ObserveHTTPRequest 记录一次 HTTP 请求。
func ObserveHTTPRequest(handler, method string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(handler, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(handler, method).Observe(duration.Seconds())
}

// Handler 暴露 Prometheus 抓取端点。
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartServer 启动独立的 /metrics HTTP 服务。
func StartServer(ctx context.Context, addr string) error {
	if addr == "" {
		return errors.New("metrics address is empty")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}
