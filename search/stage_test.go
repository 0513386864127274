package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nscl-frib/attpc-merger"
)

func TestStageRunCopiesPreservingRelativeLayout(t *testing.T) {
	grawRoot := t.TempDir()
	copyRoot := t.TempDir()

	srcDir := filepath.Join(grawRoot, "run_0003", "mm0")
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(srcDir, "CoBo0_AsAd0.graw")
	if err := os.WriteFile(src, []byte("frame-data"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &attpc.Config{GrawPath: grawRoot, CopyPath: copyRoot}
	staged, err := StageRun(cfg, 3, []string{src})
	if err != nil {
		t.Fatalf("StageRun: %v", err)
	}
	if len(staged) != 1 {
		t.Fatalf("len(staged) = %d, want 1", len(staged))
	}

	wantDst := filepath.Join(copyRoot, "run_0003", "mm0", "CoBo0_AsAd0.graw")
	if staged[0] != wantDst {
		t.Errorf("staged[0] = %q, want %q", staged[0], wantDst)
	}
	data, err := os.ReadFile(wantDst)
	if err != nil {
		t.Fatalf("staged file missing: %v", err)
	}
	if string(data) != "frame-data" {
		t.Errorf("staged content = %q, want %q", data, "frame-data")
	}
}

func TestStageRunNoopWithoutCopyPath(t *testing.T) {
	cfg := &attpc.Config{GrawPath: t.TempDir()}
	staged, err := StageRun(cfg, 1, []string{"/irrelevant/path.graw"})
	if err != nil || staged != nil {
		t.Fatalf("StageRun with no copy_path = (%v, %v), want (nil, nil)", staged, err)
	}
}

func TestCleanStagedRemovesFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.graw")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CleanStaged([]string{path}); err != nil {
		t.Fatalf("CleanStaged: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still present after CleanStaged")
	}
}

func TestCleanStagedToleratesMissingFile(t *testing.T) {
	dir := t.TempDir()
	if err := CleanStaged([]string{filepath.Join(dir, "nope.graw")}); err != nil {
		t.Fatalf("CleanStaged on missing file: %v", err)
	}
}
