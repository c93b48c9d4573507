package middlewarex

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
	"goods_market/pkg/httpx/reply"
	"goods_market/pkg/logx"
)

// Recovery отвечает клиенту обычной ошибкой 500 с supportId, если
// обработчик запаниковал.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			if rec == http.ErrAbortHandler { //nolint:errorlint,err113
				panic(rec)
			}

			logger(ctx).Error(
				"panic in handler",
				slog.Any(logx.FieldError, rec),
				slog.String(logx.FieldStack, string(debug.Stack())),
			)

			reply.Error(ctx, w, apperr.NewError(errcodes.InternalServerError, fmt.Sprint(rec)))
		}()

		next.ServeHTTP(w, r)
	})
}
