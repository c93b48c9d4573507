package shop

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals
var (
	purchasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "goods_market",
		Subsystem: "shop",
		Name:      "purchases_total",
		Help:      "Purchases by outcome code.",
	}, []string{"result"})

	salesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "goods_market",
		Subsystem: "shop",
		Name:      "sales_total",
		Help:      "Sell requests by outcome code.",
	}, []string{"result"})
)
