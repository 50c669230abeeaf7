package protocol

// CMD (client -> server). X/Y address a tile; Kind and Dir are used by PLACE,
// RegionID by UNLOCK_REGION.
type CmdMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Op              string `json:"op"`
	X               int    `json:"x"`
	Y               int    `json:"y"`
	Kind            string `json:"kind,omitempty"`
	Dir             string `json:"dir,omitempty"`
	RegionID        int    `json:"region_id,omitempty"`
}

// STATE (server -> client): a summary frame sent every few ticks.
type StateMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	WorldID         string  `json:"world_id"`
	Tick            uint64  `json:"tick"`
	Clock           float64 `json:"clock"`

	Power     PowerObs       `json:"power"`
	Inventory map[string]int `json:"inventory"`
	Stats     StatsObs       `json:"stats"`
	Buildings []BuildingObs  `json:"buildings"`
	Belts     []BeltObs      `json:"belts,omitempty"`
	Loose     []LooseObs     `json:"loose,omitempty"`
	Events    []Event        `json:"events,omitempty"`
}

type PowerObs struct {
	Produced float64 `json:"produced"`
	Consumed float64 `json:"consumed"`
	Ratio    float64 `json:"ratio"`
}

type StatsObs struct {
	Research         int            `json:"research"`
	Stored           map[string]int `json:"stored,omitempty"`
	PlatesPerMinute  float64        `json:"plates_per_minute"`
	SciencePerMinute float64        `json:"science_per_minute"`
	Unlocked         []string       `json:"unlocked,omitempty"`
	Achieved         []string       `json:"achieved,omitempty"`
}

type BuildingObs struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Kind string `json:"kind"`
	Dir  string `json:"dir,omitempty"`

	// Progress is the current craft fraction for processors.
	Progress float64 `json:"progress,omitempty"`
}

type BeltObs struct {
	X     int       `json:"x"`
	Y     int       `json:"y"`
	Items []ItemObs `json:"items"`
}

type ItemObs struct {
	Item string  `json:"item"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type LooseObs struct {
	Item     string  `json:"item"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Dir      string  `json:"dir,omitempty"`
	Progress float64 `json:"progress,omitempty"`
}

// Event is a notable change since the previous state frame.
type Event struct {
	Tick   uint64 `json:"tick"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}
