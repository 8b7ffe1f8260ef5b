package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ChrisMcGann/LocIntegrator/pkg/core"
)

func TestParseThresholds(t *testing.T) {
	defer func() { localFLR, globalFLR = "", "" }()

	localFLR, globalFLR = "0.05", ""
	cfg, err := parseThresholds()
	if err != nil {
		t.Fatalf("parseThresholds() error = %v", err)
	}
	if cfg.LocalFLR == nil || *cfg.LocalFLR != 0.05 || cfg.GlobalFLR != nil {
		t.Errorf("parseThresholds() = %+v", cfg)
	}

	for _, bad := range [][2]string{{"2", ""}, {"", "-0.1"}, {"x", ""}, {"", "NaN"}} {
		localFLR, globalFLR = bad[0], bad[1]
		if _, err := parseThresholds(); !errors.Is(err, core.ErrThresholdRange) {
			t.Errorf("parseThresholds(%q, %q) error = %v", bad[0], bad[1], err)
		}
	}
}

func TestLoadModDatabase(t *testing.T) {
	defer func() { modsCSV = "" }()

	path := filepath.Join(t.TempDir(), "mods.csv")
	if err := os.WriteFile(path, []byte("mod,massshift,aa\nMyTag,123.4567,K\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	modsCSV = path
	db, err := loadModDatabase()
	if err != nil {
		t.Fatalf("loadModDatabase() error = %v", err)
	}
	if mass, ok := db.GetMass("MyTag"); !ok || mass != 123.4567 {
		t.Errorf("custom modification not loaded: %v %v", mass, ok)
	}
	if _, ok := db.GetMass("Phospho"); !ok {
		t.Error("built-in modifications should be kept")
	}

	modsCSV = filepath.Join(t.TempDir(), "missing.csv")
	if _, err := loadModDatabase(); err == nil {
		t.Error("expected an error for a missing --mods file")
	}
}
