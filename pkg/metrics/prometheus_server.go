// Package metrics отдаёт метрики процесса в формате Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"goods_market/pkg/contextx"
	"goods_market/pkg/logx"
)

const httpServerReadHeaderTimeout = 5 * time.Second

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// PrometheusServer отдаёт /metrics. По умолчанию читает глобальный реестр,
// куда promauto складывает метрики очередей, магазина и автоматов.
type PrometheusServer struct {
	listenAddress string
	gatherer      prometheus.Gatherer
}

type Option func(*PrometheusServer)

// WithRegistry подменяет реестр. Нужен тестам, чтобы не зависеть от
// глобального состояния.
func WithRegistry(r *prometheus.Registry) Option {
	return func(p *PrometheusServer) {
		r.MustRegister(collectors.NewGoCollector())
		p.gatherer = r
	}
}

func NewPrometheusServer(listenAddress string, opts ...Option) PrometheusServer {
	p := PrometheusServer{
		listenAddress: listenAddress,
		gatherer:      prometheus.DefaultGatherer,
	}

	for _, opt := range opts {
		opt(&p)
	}

	return p
}

func (p PrometheusServer) Run(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.Handle("GET /metrics", promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{
		ErrorLog:      slog.NewLogLogger(logger(ctx).Handler(), slog.LevelError),
		ErrorHandling: promhttp.ContinueOnError,
	}))

	httpServer := &http.Server{
		//nolint:exhaustruct
		Addr:              p.listenAddress,
		Handler:           mux,
		ReadHeaderTimeout: httpServerReadHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		<-ctx.Done()

		if err := httpServer.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger(ctx).Error("httpServer.Shutdown", logx.Error(err))
		}
	}()

	logger(ctx).Info("prometheus server started", slog.String("address", p.listenAddress))

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("httpServer.ListenAndServe: %w", err)
	}

	logger(ctx).Info("prometheus server stopped")

	return nil
}
