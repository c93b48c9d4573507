package domain

import (
	"goods_market/pkg/apperr"
	"goods_market/pkg/errcodes"
)

// IsRejection сообщает, что ошибка является ожидаемым отказом игроку, а не
// сбоем: такие ошибки не логируются как Error.
func IsRejection(err error) bool {
	code, ok := apperr.GetCode(err)
	if !ok {
		return false
	}

	switch code {
	case errcodes.InsufficientFunds,
		errcodes.InsufficientPoints,
		errcodes.InsufficientStock,
		errcodes.LimitExceeded,
		errcodes.ConditionNotMet,
		errcodes.EntryDisabled,
		errcodes.EntryNotFound,
		errcodes.MachineNotFound,
		errcodes.NothingToSell,
		errcodes.ValidationError:
		return true
	default:
		return false
	}
}
