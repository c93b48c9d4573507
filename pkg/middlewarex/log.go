// Package middlewarex содержит HTTP-middleware сервиса: trace id, логгер
// запроса, дампы запросов и ответов, восстановление после паники и
// авторизацию игрока и администратора.
package middlewarex

import "goods_market/pkg/contextx"

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

// truncate обрезает дамп до maxLen байт. 0 без ограничения.
func truncate(dump []byte, maxLen int) []byte {
	if maxLen > 0 && len(dump) > maxLen {
		return dump[:maxLen]
	}

	return dump
}
