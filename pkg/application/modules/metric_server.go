package modules

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"goods_market/pkg/metrics"
)

// MetricServer отдаёт метрики очередей, магазина и автоматов.
type MetricServer struct {
	ListenAddress string
	Options       []metrics.Option
}

func (m MetricServer) Run(ctx context.Context, g *errgroup.Group) {
	if m.ListenAddress == "" {
		logger(ctx).Info("metric server disabled")
		return
	}

	prometheusServer := metrics.NewPrometheusServer(m.ListenAddress, m.Options...)

	g.Go(func() error {
		if err := prometheusServer.Run(ctx); err != nil {
			return fmt.Errorf("prometheusServer.Run: %w", err)
		}

		return nil
	})
}
