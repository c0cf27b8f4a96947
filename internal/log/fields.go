package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldChatJID     = "chat_jid"
	FieldUserID      = "user_id"
	FieldUserName    = "user_name"
	FieldCommand     = "command"
	FieldCategory    = "category"
	FieldKind        = "kind"
	FieldAmount      = "amount"
	FieldBalance     = "balance"
	FieldNote        = "note"
	FieldPeriod      = "period"
	FieldSessionStep = "session_step"
	FieldTxID        = "tx_id"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentBot       = "bot"
	ComponentLedger    = "ledger"
	ComponentSession   = "session"
	ComponentReport    = "report"
	ComponentStorage   = "storage"
	ComponentAudit     = "audit"
	ComponentAMQP      = "amqp"
	ComponentTransport = "transport"
)

// Operations defines standard operation names
const (
	OpRecord   = "record"
	OpEdit     = "edit"
	OpDelete   = "delete"
	OpReset    = "reset"
	OpReport   = "report"
	OpParse    = "parse"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
