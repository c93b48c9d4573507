package gacha

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals
var (
	drawsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "goods_market",
		Subsystem: "gacha",
		Name:      "draws_total",
		Help:      "Delivered draws by machine and rarity.",
	}, []string{"machine", "rarity"})

	pityTriggeredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "goods_market",
		Subsystem: "gacha",
		Name:      "pity_triggered_total",
		Help:      "Draws decided by a pity rule.",
	}, []string{"machine"})

	cancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "goods_market",
		Subsystem: "gacha",
		Name:      "cancelled_total",
		Help:      "Draws cancelled before delivery and refunded.",
	})
)
