package middlewarex

import (
	"net/http"

	"goods_market/pkg/contextx"
	"goods_market/pkg/logx"
)

const HeaderNameActorID = "X-Actor-Id"

// ActorID кладёт идентификатор игрока из заголовка в контекст и в логгер.
func ActorID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actorID := r.Header.Get(HeaderNameActorID)
		if actorID == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := contextx.WithActorID(r.Context(), contextx.ActorID(actorID))
		ctx = contextx.WithLogger(ctx, logger(ctx).With(logx.Stringer(logx.FieldActorID, contextx.ActorID(actorID))))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
