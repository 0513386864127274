package attpc

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "graw_path: /data/graw\nhdf_path: /data/hdf\nfirst_run_number: 1\nlast_run_number: 5\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.NThreads != 1 {
		t.Errorf("NThreads = %d, want default 1", cfg.NThreads)
	}
	if cfg.OnlineTemplate == "" {
		t.Error("OnlineTemplate default not applied")
	}
	if cfg.SiliconCobo != defaultSiliconCobo {
		t.Errorf("SiliconCobo = %d, want %d", cfg.SiliconCobo, defaultSiliconCobo)
	}
	if len(cfg.Cobos) == 0 {
		t.Error("Cobos default not applied")
	}
}

func TestLoadConfigMissingRequiredFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("n_threads: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error for missing graw_path/hdf_path")
	}
}

func TestLoadConfigEmptyRunRangeIsValid(t *testing.T) {
	// S1: first > last is a valid (empty) range, not a config error.
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "graw_path: /data/graw\nhdf_path: /data/hdf\nfirst_run_number: 10\nlast_run_number: 9\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.FirstRunNumber != 10 || cfg.LastRunNumber != 9 {
		t.Errorf("unexpected run range %d..%d", cfg.FirstRunNumber, cfg.LastRunNumber)
	}
}

func TestLoadConfigOnlineRequiresExperiment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "graw_path: /data/graw\nhdf_path: /data/hdf\nonline: true\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error: online requires experiment")
	}
}

func TestWriteTemplateRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := WriteTemplate(path); err != nil {
		t.Fatalf("WriteTemplate: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig on generated template: %v", err)
	}
	if cfg.GrawPath == "" || cfg.HdfPath == "" {
		t.Error("template round-trip lost required fields")
	}
}
