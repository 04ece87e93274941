package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// World routing/state.
	ErrWorldBusy       = "E_WORLD_BUSY"
	ErrWorldNotRunning = "E_WORLD_NOT_RUNNING"

	// Command layer.
	ErrBadRequest     = "E_BAD_REQUEST"
	ErrUnknownBuilder = "E_UNKNOWN_BUILDER"
	ErrNoPermission   = "E_NO_PERMISSION"
	ErrRunning        = "E_RUNNING"
	ErrUnknownMarker  = "E_UNKNOWN_MARKER"
	ErrRejectedItem   = "E_REJECTED_ITEM"
)
