package log

// Canonical field names for structured logging.
const (
	FieldComponent    = "component"
	FieldSessionID    = "session_id"
	FieldStaffID      = "staff_id"
	FieldRole         = "role"
	FieldTopic        = "topic"
	FieldEvent        = "event"
	FieldHandle       = "handle"
	FieldDiningTable  = "dining_table_id"
	FieldDiningArea   = "dining_area_id"
	FieldWaiterID     = "waiter_id"
	FieldRequest      = "request"
	FieldRemoteAddr   = "remote_addr"
	FieldSubscription = "subscriptions"
)
