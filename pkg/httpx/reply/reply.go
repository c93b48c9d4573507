package reply

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"goods_market/pkg/apperr"
	"goods_market/pkg/contextx"
	"goods_market/pkg/errcodes"
	"goods_market/pkg/logx"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary //nolint:gochecknoglobals // skip

const genericMessage = "Something went wrong, try again later"

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	SupportID string `json:"supportId"`
}

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

func OK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
}

func Created(w http.ResponseWriter) {
	w.WriteHeader(http.StatusCreated)
}

func JSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger(ctx).Error("json.Encode", logx.Error(err))
	}
}

// Error отвечает кодом доменной ошибки. Сообщения внутренних ошибок клиенту
// не показываются, только отказы и временная недоступность.
func Error(ctx context.Context, w http.ResponseWriter, err error) {
	code, ok := apperr.GetCode(err)
	if !ok {
		code = errcodes.InternalServerError
	}

	status := StatusCode(code)

	response := errorResponse{
		Code:      code.String(),
		Message:   genericMessage,
		SupportID: supportID(ctx),
	}

	if status < http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		var appErr *apperr.AppError
		if errors.As(err, &appErr) {
			response.Message = appErr.Message
		}

		logger(ctx).Info("request rejected", slog.String(logx.FieldCode, code.String()), logx.Error(err))
	} else {
		logger(ctx).Error("error", logx.Error(err))
	}

	JSON(ctx, w, status, response)
}

func StatusCode(code errcodes.ErrorCode) int {
	switch code {
	case errcodes.ValidationError:
		return http.StatusBadRequest
	case errcodes.NotFound, errcodes.EntryNotFound, errcodes.MachineNotFound, errcodes.DrawNotFound:
		return http.StatusNotFound
	case errcodes.Forbidden:
		return http.StatusForbidden
	case errcodes.InsufficientStock, errcodes.LimitExceeded, errcodes.ConcurrencyConflict, errcodes.DrawAlreadyDelivered:
		return http.StatusConflict
	case errcodes.InsufficientFunds, errcodes.InsufficientPoints, errcodes.ConditionNotMet,
		errcodes.EntryDisabled, errcodes.NothingToSell:
		return http.StatusUnprocessableEntity
	case errcodes.QueueFull, errcodes.QueueClosed, errcodes.EconomyUnavailable:
		return http.StatusServiceUnavailable
	case errcodes.TimeoutExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func supportID(ctx context.Context) string {
	traceID, err := contextx.TraceIDFromContext(ctx)
	if err != nil {
		return "unsupported"
	}

	return traceID.String()
}
