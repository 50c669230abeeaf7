package tuning

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoad_RepoConfigMatchesDefaults(t *testing.T) {
	got, err := Load(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := Defaults(); !reflect.DeepEqual(got, want) {
		t.Fatalf("configs/tuning.yaml drifted from Defaults():\n got %+v\nwant %+v", got, want)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(p, []byte("map_width: 128\nmap_height: 64\nunderground_range: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.MapWidth != 128 || got.MapHeight != 64 || got.UndergroundRange != 7 {
		t.Fatalf("overrides not applied: %+v", got)
	}
	if got.TickRateHz != 60 || got.Miners.IntervalSeconds != 1.0 || got.Regions.UnlockItem != "PLATE" {
		t.Fatalf("defaults lost: %+v", got)
	}
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]string{
		"syntax":      "map_width: [",
		"region size": "region_size: 30\n",
		"tick rate":   "tick_rate_hz: 0\n",
	}
	for name, body := range cases {
		p := filepath.Join(t.TempDir(), "tuning.yaml")
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(p); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}
