package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// Owner is the identity commands are checked against.
	Owner string `json:"owner"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	SessionID       string   `json:"session_id"`
	WorldID         string   `json:"world_id"`
	Tick            uint64   `json:"tick"`
	Builders        []string `json:"builders"`
}

// CMD (client -> server). Fields mirror the host command; Kind selects
// which of them apply.
type CmdMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	CmdID           string  `json:"cmd_id"`
	Kind            string  `json:"kind"`
	BuilderID       string  `json:"builder_id,omitempty"`
	Mode            string  `json:"mode,omitempty"`
	Slot            int     `json:"slot,omitempty"`
	Ref             string  `json:"ref,omitempty"`
	WorldID         string  `json:"world_id,omitempty"`
	Pos             [3]int  `json:"pos,omitempty"`
	Material        string  `json:"material,omitempty"`
	Count           int     `json:"count,omitempty"`
	Amount          float64 `json:"amount,omitempty"`
	Powered         bool    `json:"powered,omitempty"`
}

// RESULT (server -> client)
type ResultMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	CmdID           string  `json:"cmd_id"`
	OK              bool    `json:"ok"`
	Code            string  `json:"code,omitempty"`
	Message         string  `json:"message,omitempty"`
	Status          string  `json:"status,omitempty"`
	Accepted        float64 `json:"accepted,omitempty"`
}
