package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	PainterName     string            `json:"painter_name"`
	Capabilities    HelloCapabilities `json:"capabilities"`
	Auth            *HelloAuth        `json:"auth,omitempty"`
}

type HelloCapabilities struct {
	MaxQueue int `json:"max_queue,omitempty"`
	// EventCursor signals the client will catch up on missed events via
	// EVENT_BATCH_REQ after a resume instead of expecting a replay.
	EventCursor bool `json:"event_cursor,omitempty"`
}

type HelloAuth struct {
	// Token resumes an existing painter identity.
	Token string `json:"token,omitempty"`
	// AdminToken grants the registry administrator identity.
	AdminToken string `json:"admin_token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	SessionID       string     `json:"session_id,omitempty"`
	PainterID       string     `json:"painter_id"`
	ResumeToken     string     `json:"resume_token"`
	Admin           bool       `json:"admin,omitempty"`
	GridParams      GridParams `json:"grid_params"`
	EventCursor     uint64     `json:"event_cursor"`
}

type GridParams struct {
	Width        int  `json:"width"`
	Height       int  `json:"height"`
	Cells        int  `json:"cells"`
	TickRateHz   int  `json:"tick_rate_hz"`
	FeeRequired  bool `json:"fee_required"`
	MinClaimFee  int  `json:"min_claim_fee,omitempty"`
	TotalClaimed int  `json:"total_claimed"`
}

// ACT (client -> server)
type ActMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	PainterID       string       `json:"painter_id"`
	Instants        []InstantReq `json:"instants,omitempty"`
}

// Instant types.
const (
	InstantClaim         = "CLAIM"
	InstantSetColor      = "SET_COLOR"
	InstantSetColorSteps = "SET_COLOR_STEPS"
	InstantWithdraw      = "WITHDRAW"
)

type InstantReq struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	Cell int `json:"cell,omitempty"`

	R int `json:"r,omitempty"`
	G int `json:"g,omitempty"`
	B int `json:"b,omitempty"`

	Steps [3]int `json:"steps,omitempty"`

	// Payment attached to a CLAIM when fee gating is enabled.
	Payment int `json:"payment,omitempty"`

	// Destination for WITHDRAW payouts.
	Dest string `json:"dest,omitempty"`
}

// Event is a loosely typed server -> client event payload.
type Event map[string]interface{}

// EventMsg wraps one journal event for live push.
type EventMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Cursor          uint64 `json:"cursor"`
	Event           Event  `json:"event"`
}
