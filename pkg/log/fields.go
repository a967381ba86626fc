package log

const (
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	FieldService   = "service"
	FieldComponent = "component"

	FieldSessionID     = "session_id"
	FieldParticipantID = "participant_id"
	FieldClientID      = "client_id"
	FieldRoomID        = "room_id"
	FieldPhase         = "phase"
	FieldTag           = "tag"
)
