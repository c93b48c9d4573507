package middlewarex

import (
	"net/http"

	"github.com/rs/xid"

	"goods_market/pkg/contextx"
)

const (
	headerNameTraceID  = "X-Trace-Id"
	maxIncomingTraceID = 64
)

// TraceID берёт trace id из заголовка или создаёт новый и возвращает его в
// ответе. Слишком длинные значения заменяются.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(headerNameTraceID)

		if traceID == "" || len(traceID) > maxIncomingTraceID {
			traceID = xid.New().String()
		}

		w.Header().Set(headerNameTraceID, traceID)

		next.ServeHTTP(w, r.WithContext(contextx.WithTraceID(r.Context(), contextx.TraceID(traceID))))
	})
}
