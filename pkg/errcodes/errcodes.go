package errcodes

type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

const (
	InternalServerError ErrorCode = "InternalServerError"
	TimeoutExceeded     ErrorCode = "TimeoutExceeded"
	Forbidden           ErrorCode = "Forbidden"
	ValidationError     ErrorCode = "ValidationError"
	NotFound            ErrorCode = "NotFound"

	// Каталог и склад
	ConfigurationError  ErrorCode = "ConfigurationError"
	StoreError          ErrorCode = "StoreError"
	EntryNotFound       ErrorCode = "EntryNotFound"
	EntryDisabled       ErrorCode = "EntryDisabled"
	InsufficientStock   ErrorCode = "InsufficientStock"
	ConcurrencyConflict ErrorCode = "ConcurrencyConflict"

	// Покупка
	InsufficientFunds  ErrorCode = "InsufficientFunds"
	InsufficientPoints ErrorCode = "InsufficientPoints"
	LimitExceeded      ErrorCode = "LimitExceeded"
	ConditionNotMet    ErrorCode = "ConditionNotMet"
	EconomyUnavailable ErrorCode = "EconomyUnavailable"
	NothingToSell      ErrorCode = "NothingToSell"

	// Гача
	MachineNotFound      ErrorCode = "MachineNotFound"
	DrawNotFound         ErrorCode = "DrawNotFound"
	DrawAlreadyDelivered ErrorCode = "DrawAlreadyDelivered"

	// Очереди
	QueueFull   ErrorCode = "QueueFull"
	QueueClosed ErrorCode = "QueueClosed"
)
