package observerproto

// Version is the observer protocol version.
const Version = "0.1"

const (
	TypeSubscribe     = "SUBSCRIBE"
	TypeTick          = "TICK"
	TypeBuilderStatus = "BUILDER_STATUS"
)

// Client -> Server. First message on the observer WS connection, and can be
// re-sent to change the filter.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`

	// Builders limits the stream to these ids; empty means all.
	Builders      []string `json:"builders,omitempty"`
	IncludeAudits bool     `json:"include_audits,omitempty"`
}

// HTTP response for GET /v1/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string        `json:"protocol_version"`
	WorldID         string        `json:"world_id"`
	Tick            uint64        `json:"tick"`
	WorldParams     WorldParams   `json:"world_params"`
	BlockPalette    []string      `json:"block_palette"`
	Builders        []BuilderInfo `json:"builders"`
}

type WorldParams struct {
	TickRateHz int    `json:"tick_rate_hz"`
	ChunkSize  [3]int `json:"chunk_size"`
	Height     int    `json:"height"`
	Seed       int64  `json:"seed"`
	BoundaryR  int    `json:"boundary_r"`
}

type BuilderInfo struct {
	ID       string    `json:"id"`
	Owner    string    `json:"owner"`
	Pos      [3]int    `json:"pos"`
	WorkArea *AreaInfo `json:"work_area,omitempty"`
	Label    []string  `json:"label"`
}

// AreaInfo carries the resolved work area and its corner cells for
// highlighting.
type AreaInfo struct {
	Min     [3]int    `json:"min"`
	Max     [3]int    `json:"max"`
	Corners [8][3]int `json:"corners"`
	Cells   int64     `json:"cells"`
}

// Server -> Client. Sent every tick.
type TickMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Tick            uint64 `json:"tick"`

	Builders    []BuilderStatusMsg `json:"builders"`
	Transitions []Transition       `json:"transitions,omitempty"`
	Audits      []AuditEntry       `json:"audits,omitempty"`
}

// BuilderStatusMsg is the per-builder state; also published on its own over
// MQTT.
type BuilderStatusMsg struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Tick      uint64    `json:"tick"`
	Mode      string    `json:"mode"`
	Status    string    `json:"status"`
	Color     string    `json:"color"`
	Sign      [4]string `json:"sign"`
	Cursor    [3]int    `json:"cursor"`
	Charge    float64   `json:"charge"`
	MaxCharge float64   `json:"max_charge"`
	Material  int       `json:"material"`
	Powered   bool      `json:"powered"`
	Action    string    `json:"action,omitempty"`
	Summary   string    `json:"summary"`
}

type Transition struct {
	BuilderID string `json:"builder_id"`
	From      string `json:"from"`
	To        string `json:"to"`
}

type AuditEntry struct {
	Tick   uint64  `json:"tick"`
	Actor  string  `json:"actor"`
	Action string  `json:"action"`
	Pos    [3]int  `json:"pos"`
	From   string  `json:"from"`
	To     string  `json:"to"`
	Cost   float64 `json:"cost,omitempty"`
}
