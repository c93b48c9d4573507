package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"goods_market/internal/domain/entity"
	"goods_market/pkg/apperr"
	"goods_market/pkg/contextx"
	"goods_market/pkg/errcodes"
	"goods_market/pkg/httpx/reply"
	"goods_market/pkg/middlewarex"
)

const (
	headerActorName        = "X-Actor-Name"
	headerActorPermissions = "X-Actor-Permissions"

	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

func (s Server) RegisterRoutes(r chi.Router) { //nolint:funlen
	r.Route("/", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middlewarex.ActorID)

				r.Get("/catalog", handler(s.getV1Catalog))
				r.Post("/shop/buy", handler(s.postV1Buy))
				r.Post("/shop/sell", handler(s.postV1Sell))
				r.Get("/actors/{actor}/transactions", handler(s.getV1Transactions))

				r.Get("/machines", handler(s.getV1Machines))
				r.Post("/machines/{machine}/roll", handler(s.postV1Roll))
				r.Post("/draws/{draw}/complete", handler(s.postV1DrawComplete))
				r.Post("/draws/{draw}/cancel", handler(s.postV1DrawCancel))
				r.Get("/actors/{actor}/draws", handler(s.getV1Draws))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middlewarex.AdminToken(s.adminToken))

				r.Put("/entries/{entry}/stock", handler(s.putV1AdminStock))
				r.Post("/entries/{entry}/reset", handler(s.postV1AdminResetStock))
				r.Delete("/entries/{entry}", handler(s.deleteV1AdminEntry))
				r.Post("/cleanup", handler(s.postV1AdminCleanup))
				r.Post("/limits/reset", handler(s.postV1AdminResetLimit))
				r.Post("/reload", handler(s.postV1AdminReload))
			})
		})
	})
}

func handler(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			reply.Error(r.Context(), w, err)
		}
	}
}

// actorFromRequest игрок, от имени которого игровой сервер делает запрос.
func actorFromRequest(r *http.Request) (entity.Actor, error) {
	actorID, err := contextx.ActorIDFromContext(r.Context())
	if err != nil {
		return entity.Actor{}, apperr.WrapError(err, errcodes.ValidationError, middlewarex.HeaderNameActorID+" header is required")
	}

	actor := entity.Actor{
		ID:   actorID.String(),
		Name: r.Header.Get(headerActorName),
	}

	if actor.Name == "" {
		actor.Name = actor.ID
	}

	for _, p := range strings.Split(r.Header.Get(headerActorPermissions), ",") {
		if p = strings.TrimSpace(p); p != "" {
			actor.Permissions = append(actor.Permissions, p)
		}
	}

	return actor, nil
}

func historyLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultHistoryLimit, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, apperr.NewError(errcodes.ValidationError, "limit must be a positive integer")
	}

	return min(limit, maxHistoryLimit), nil
}
