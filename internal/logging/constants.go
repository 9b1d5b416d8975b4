package logging

// Standardized field names for structured logging.
const (
	FieldUserID        = "user_id"
	FieldAccountID     = "account_id"
	FieldToAccountID   = "to_account_id"
	FieldTransactionID = "transaction_id"
	FieldAmount        = "amount"
	FieldBalance       = "balance"
	FieldType          = "type"
	FieldCategory      = "category"
	FieldConfidence    = "confidence"
	FieldStrategy      = "strategy"
	FieldOperation     = "operation"
	FieldStatus        = "status"
	FieldCount         = "count"
	FieldDuration      = "duration_ms"
	FieldTopic         = "topic"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldRemoteAddr    = "remote_addr"
	FieldRequestID     = "request_id"
)
