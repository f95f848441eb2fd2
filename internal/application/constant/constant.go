package constant

// Shared slog attribute keys.
const (
	Error    = "error"
	UserID   = "user_id"
	UserName = "user_name"
	ConnID   = "conn_id"
	RoomCode = "room_code"
	Action   = "action"
)
