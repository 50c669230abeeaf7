package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type              string   `json:"type"`
	ProtocolVersion   string   `json:"protocol_version"`
	SupportedVersions []string `json:"supported_versions,omitempty"`
	ClientName        string   `json:"client_name"`

	// Role is PLAYER (may send commands) or OBSERVER (state frames only).
	Role string `json:"role,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SelectedVersion string         `json:"selected_version,omitempty"`
	SessionID       string         `json:"session_id"`
	WorldID         string         `json:"world_id"`
	Role            string         `json:"role"`
	WorldParams     WorldParams    `json:"world_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type WorldParams struct {
	TickRateHz      int   `json:"tick_rate_hz"`
	Width           int   `json:"width"`
	Height          int   `json:"height"`
	RegionSize      int   `json:"region_size"`
	Seed            int64 `json:"seed"`
	StateEveryTicks int   `json:"state_every_ticks"`
}

type CatalogDigests struct {
	ItemPalette        DigestRef `json:"item_palette"`
	ItemsDigest        string    `json:"items_digest"`
	BuildingsDigest    string    `json:"buildings_digest"`
	RecipesDigest      string    `json:"recipes_digest"`
	AchievementsDigest string    `json:"achievements_digest"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// CATALOG (server -> client): a chunk of catalog data.
// Each catalog is sent as a single part.
type CatalogMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Name            string      `json:"name"`   // e.g. "buildings"
	Digest          string      `json:"digest"` // sha256 hex
	Part            int         `json:"part"`
	TotalParts      int         `json:"total_parts"`
	Data            interface{} `json:"data"`
}

type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AckFor          string `json:"ack_for"`
	Accepted        bool   `json:"accepted"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	ServerTick      uint64 `json:"server_tick,omitempty"`
	WorldID         string `json:"world_id,omitempty"`
}
