package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	SaveVersion int `yaml:"save_version"`

	TickRateHz         int   `yaml:"tick_rate_hz"`
	MapWidth           int   `yaml:"map_width"`
	MapHeight          int   `yaml:"map_height"`
	RegionSize         int   `yaml:"region_size"`
	Seed               int64 `yaml:"seed"`
	SnapshotEveryTicks int   `yaml:"snapshot_every_ticks"`
	StateEveryTicks    int   `yaml:"state_every_ticks"`

	Miners     Miners     `yaml:"miners"`
	Power      Power      `yaml:"power"`
	Congestion Congestion `yaml:"congestion"`
	Regions    Regions    `yaml:"regions"`

	UndergroundRange  int     `yaml:"underground_range"`
	LooseItemSpeed    float64 `yaml:"loose_item_speed"`
	RateWindowSeconds float64 `yaml:"rate_window_seconds"`

	StartingInventory map[string]int `yaml:"starting_inventory"`
}

type Miners struct {
	IntervalSeconds     float64 `yaml:"interval_seconds"`
	BlockedRetrySeconds float64 `yaml:"blocked_retry_seconds"`
	NoOreRetrySeconds   float64 `yaml:"no_ore_retry_seconds"`
}

type Power struct {
	BaseOutput float64 `yaml:"base_output"`
}

type Congestion struct {
	BlockedIncrement float64 `yaml:"blocked_increment"`
	DecayPerSecond   float64 `yaml:"decay_per_second"`
}

type Regions struct {
	UnlockItem      string  `yaml:"unlock_item"`
	BaseCost        int     `yaml:"base_cost"`
	CostPerDistance int     `yaml:"cost_per_distance"`
	NoiseScale      float64 `yaml:"noise_scale"`
	WaterBelow      float64 `yaml:"water_below"`
	MountainAbove   float64 `yaml:"mountain_above"`
}

// Defaults returns the values the game ships with.
func Defaults() Tuning {
	return Tuning{
		SaveVersion:        1,
		TickRateHz:         60,
		MapWidth:           256,
		MapHeight:          256,
		RegionSize:         32,
		Seed:               1337,
		SnapshotEveryTicks: 3600,
		StateEveryTicks:    6,
		Miners: Miners{
			IntervalSeconds:     1.0,
			BlockedRetrySeconds: 0.1,
			NoOreRetrySeconds:   0.5,
		},
		Power: Power{BaseOutput: 10},
		Congestion: Congestion{
			BlockedIncrement: 0.25,
			DecayPerSecond:   0.6,
		},
		Regions: Regions{
			UnlockItem:      "PLATE",
			BaseCost:        100,
			CostPerDistance: 50,
			NoiseScale:      0.08,
			WaterBelow:      0.20,
			MountainAbove:   0.55,
		},
		UndergroundRange:  5,
		LooseItemSpeed:    1.2,
		RateWindowSeconds: 60,
		StartingInventory: map[string]int{
			"PLATE":        100,
			"GEAR":         50,
			"COPPER_PLATE": 20,
		},
	}
}

// Load reads path over Defaults; keys absent from the file keep their
// default values.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Validate rejects values the simulation cannot run with.
func (t Tuning) Validate() error {
	switch {
	case t.TickRateHz <= 0:
		return fmt.Errorf("tick_rate_hz must be positive")
	case t.MapWidth <= 0 || t.MapHeight <= 0:
		return fmt.Errorf("map size must be positive")
	case t.RegionSize <= 0 || t.MapWidth%t.RegionSize != 0 || t.MapHeight%t.RegionSize != 0:
		return fmt.Errorf("region_size %d must divide the map size", t.RegionSize)
	case t.Miners.IntervalSeconds <= 0:
		return fmt.Errorf("miners.interval_seconds must be positive")
	case t.UndergroundRange <= 0:
		return fmt.Errorf("underground_range must be positive")
	}
	return nil
}
