package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_AppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("rot_chance: 0.25\nharvest_multiplier: 2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tun, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tun.RotChance != 0.25 || tun.HarvestMultiplier != 2 {
		t.Fatalf("loaded values lost: %+v", tun)
	}
	if tun.MaxDepth != 32 || tun.PlantFertility != 15 || tun.ParticlesPerTwinkle != 8 {
		t.Fatalf("defaults not applied: %+v", tun)
	}
	if len(tun.Forest.Species) == 0 {
		t.Fatalf("forest species default missing")
	}
}

func TestLoad_Rejects(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"chance.yaml": "rot_chance: 1.5\n",
		"broken.yaml": "rot_chance: [\n",
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		_, err := Load(path)
		if err == nil || !strings.Contains(err.Error(), "tuning.yaml") {
			t.Fatalf("%s: err=%v", name, err)
		}
	}
}
