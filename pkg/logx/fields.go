package logx

const (
	FieldActorID         = "actor-id"
	FieldAmount          = "amount"
	FieldAppName         = "app-name"
	FieldAppVersion      = "app-version"
	FieldCode            = "code"
	FieldCost            = "cost"
	FieldDrawID          = "draw-id"
	FieldDurationMs      = "duration-ms"
	FieldEntryID         = "entry-id"
	FieldError           = "error"
	FieldHTTPMethod      = "http-method"
	FieldHTTPRequest     = "http-request"
	FieldHTTPResponse    = "http-response"
	FieldIP              = "ip"
	FieldMachineID       = "machine-id"
	FieldOperation       = "operation"
	FieldPoints          = "points"
	FieldQueue           = "queue"
	FieldReconcile       = "reconcile"
	FieldRequestBody     = "request-body"
	FieldRequestID       = "request-id"
	FieldResponseBody    = "response-body"
	FieldResponseHeaders = "response-headers"
	FieldResponseStatus  = "response-status"
	FieldRewardID        = "reward-id"
	FieldService         = "service"
	FieldStack           = "stack"
	FieldState           = "state"
	FieldStock           = "stock"
	FieldTraceID         = "trace-id"
	FieldURL             = "url"
)
