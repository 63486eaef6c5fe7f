package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig verifies the built-in solver defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Solver.Rho != 10 {
		t.Errorf("Default rho %v, want 10", cfg.Solver.Rho)
	}
	if cfg.Solver.MaxIter != 100 {
		t.Errorf("Default maxIter %d, want 100", cfg.Solver.MaxIter)
	}
	if cfg.Solver.MaxCGIter != 10 {
		t.Errorf("Default maxCGIter %d, want 10", cfg.Solver.MaxCGIter)
	}
	if cfg.Wavelet.MinSize != 16 {
		t.Errorf("Default wavelet minSize %d, want 16", cfg.Wavelet.MinSize)
	}
	if !cfg.Wavelet.RandomShift {
		t.Errorf("Expected random shifts enabled by default")
	}
	if !cfg.Output.Verbose {
		t.Errorf("Expected verbose output by default")
	}
}

// TestLoadMissingFileReturnsDefaults verifies that an absent config
// file falls back to the defaults without error
func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Solver.Rho != DefaultConfig().Solver.Rho {
		t.Errorf("Missing file did not yield defaults")
	}
}

// TestSaveLoadRoundTrip verifies that a saved configuration loads back
// unchanged
func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Solver.Rho = 2.5
	cfg.Solver.MaxIter = 42
	cfg.Wavelet.Seed = 99
	cfg.Output.SliceDir = "slices"

	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Solver.Rho != 2.5 || loaded.Solver.MaxIter != 42 {
		t.Errorf("Solver settings lost: %+v", loaded.Solver)
	}
	if loaded.Wavelet.Seed != 99 {
		t.Errorf("Wavelet seed lost: %d", loaded.Wavelet.Seed)
	}
	if loaded.Output.SliceDir != "slices" {
		t.Errorf("Output settings lost: %+v", loaded.Output)
	}
}

// TestPartialFileKeepsDefaults verifies that a file setting only some
// fields leaves the rest at their defaults
func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("solver:\n  rho: 5\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Solver.Rho != 5 {
		t.Errorf("Rho %v, want 5", cfg.Solver.Rho)
	}
	if cfg.Solver.MaxIter != 100 {
		t.Errorf("MaxIter %d, want default 100", cfg.Solver.MaxIter)
	}
	if cfg.Wavelet.MinSize != 16 {
		t.Errorf("Wavelet minSize %d, want default 16", cfg.Wavelet.MinSize)
	}
}

// TestLoadMalformedFile verifies that broken YAML is an error rather
// than silently ignored
func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("solver: [not a mapping"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Errorf("Expected parse error")
	}
}

// TestCreateDefaultConfigFile verifies the convenience writer produces
// a loadable default file
func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("CreateDefaultConfigFile failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Solver.Rho != DefaultConfig().Solver.Rho {
		t.Errorf("Written defaults do not load back")
	}
}
