package middlewarex

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
	"goods_market/pkg/httpx/reply"
)

// AdminToken пропускает только запросы с Bearer-токеном администратора.
// Пустой токен закрывает доступ полностью.
func AdminToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")

			if !ok || token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				reply.Error(r.Context(), w, apperr.NewError(errcodes.Forbidden, "admin token required"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
