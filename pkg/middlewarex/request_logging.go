package middlewarex

import (
	"log/slog"
	"net/http"
	"net/http/httputil"

	"goods_market/pkg/logx"
)

// RequestLogging пишет дамп входящего запроса. Тело читается только у
// запросов, которые его несут.
func RequestLogging(
	sensitiveDataMasker logx.SensitiveDataMaskerInterface,
	logFieldMaxLen int,
) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			dumpBody := r.ContentLength != 0 && r.Body != http.NoBody

			dump, err := httputil.DumpRequest(r, dumpBody)
			if err != nil {
				logger(ctx).Error("httputil.DumpRequest", logx.Error(err))
			}

			logger(ctx).Info(
				logx.FieldHTTPRequest,
				slog.String(logx.FieldRequestBody, string(sensitiveDataMasker.Mask(truncate(dump, logFieldMaxLen)))),
			)

			next.ServeHTTP(w, r)
		})
	}
}
