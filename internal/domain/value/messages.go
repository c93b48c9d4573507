package value

import (
	"strings"

	"goods_market/pkg/errcodes"
)

const (
	MessagePurchased = "Purchased"
	MessageSold      = "Sold"
	MessageDrawn     = "Drawn"
)

//nolint:gochecknoglobals
var defaultTexts = map[string]string{
	MessagePurchased: "Bought {amount} x {item} for {cost}",
	MessageSold:      "Sold {amount} items for {reward}",
	MessageDrawn:     "{actor} won {item} x {amount} from {machine}!",
}

//nolint:gochecknoglobals
var defaultMessages = map[errcodes.ErrorCode]string{
	errcodes.InsufficientFunds:    "Not enough coins: need {cost}, have {balance}",
	errcodes.InsufficientPoints:   "Not enough points: need {points}, have {balance}",
	errcodes.InsufficientStock:    "Out of stock",
	errcodes.LimitExceeded:        "Purchase limit reached, {remaining} left",
	errcodes.ConditionNotMet:      "Purchase conditions not met: {reason}",
	errcodes.EntryNotFound:        "Item {entry} is not sold here",
	errcodes.EntryDisabled:        "Item {entry} is not available",
	errcodes.MachineNotFound:      "Gacha machine {machine} does not exist",
	errcodes.EconomyUnavailable:   "Economy service is unavailable, try again later",
	errcodes.NothingToSell:        "There is nothing to sell",
	errcodes.ConfigurationError:   "This machine is misconfigured",
	errcodes.QueueFull:            "The shop is busy, try again later",
	errcodes.QueueClosed:          "The shop is closed",
	errcodes.StoreError:           "Something went wrong, try again later",
	errcodes.TimeoutExceeded:      "Your request is still being processed, check your history later",
	errcodes.ValidationError:      "Invalid request: {reason}",
	errcodes.DrawNotFound:         "Draw {draw} not found",
	errcodes.DrawAlreadyDelivered: "Draw {draw} was already delivered",
}

// Messages локализованные тексты отказов, ключ - код ошибки. Плейсхолдеры
// в фигурных скобках заменяются значениями из args.
type Messages map[string]string

func (m Messages) Render(code errcodes.ErrorCode, args map[string]string) string {
	text, ok := m[code.String()]
	if !ok {
		text, ok = defaultMessages[code]
	}

	if !ok {
		text = defaultMessages[errcodes.StoreError]
	}

	return substitute(text, args)
}

// Text возвращает текст сообщения, не связанного с ошибкой.
func (m Messages) Text(key string, args map[string]string) string {
	text, ok := m[key]
	if !ok {
		text = defaultTexts[key]
	}

	return substitute(text, args)
}

func substitute(text string, args map[string]string) string {
	for k, v := range args {
		text = strings.ReplaceAll(text, "{"+k+"}", v)
	}

	return text
}
