// Package search implements run discovery: locating the (CoBo, AsAd)
// .graw directories and the .evt file directory for one configured run,
// for both the offline and online GET mount layouts (spec.md §6).
//
// Grounded on the teacher's search/search.go recursive trawl (match a glob
// pattern, recurse into subdirectories), adapted from a tiledb.VFS walk to
// a direct path/filepath walk since spec.md's GET/FRIB roots are fixed
// POSIX paths with no object-store indirection (see DESIGN.md).
package search

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"text/template"

	"github.com/nscl-frib/attpc-merger"
	"github.com/nscl-frib/attpc-merger/graw"
)

// ErrNoGrawData is returned by BuildMerger when no (CoBo, AsAd) directory
// was found for the run; the caller skips the run rather than failing it.
var ErrNoGrawData = errors.New("search: no graw data found for run")

// asadFilePattern extracts the AsAd number from a .graw file's basename
// (e.g. "CoBo0_AsAd2_2021-01-01T00-00-00.000_0000.graw"); files with no
// match are attributed to AsAd 0.
var asadFilePattern = regexp.MustCompile(`[Aa]s[Aa]d0*(\d+)`)

// ManifestFile pairs a discovered input file with its on-disk size, for
// the writer's companion manifest. Path is the full source path (used for
// optional staging); Name is its basename (used for the writer's manifest
// entry).
type ManifestFile struct {
	Path string
	Name string
	Size int64
}

// grawDir resolves the directory to glob *.graw files from for one CoBo,
// honoring offline vs online per cfg.Online.
func grawDir(cfg *attpc.Config, cobo uint8, run int32) (string, error) {
	if !cfg.Online {
		return filepath.Join(cfg.GrawPath, fmt.Sprintf("run_%04d", run), fmt.Sprintf("mm%d", cobo)), nil
	}

	tmpl, err := template.New("online").Parse(cfg.OnlineTemplate)
	if err != nil {
		return "", errors.Join(attpc.ErrConfig, fmt.Errorf("online_template: %w", err))
	}

	var buf bytes.Buffer
	data := struct {
		Cobo       uint8
		Experiment string
		Run        int32
	}{Cobo: cobo, Experiment: cfg.Experiment, Run: run}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Join(attpc.ErrConfig, fmt.Errorf("online_template: %w", err))
	}

	// the template produces a full glob pattern ending in "/*.graw"
	// (spec.md §6's online layout); strip it back to a directory so the
	// same grouping-by-AsAd logic works for both layouts.
	return filepath.Dir(buf.String()), nil
}

// groupByAsad globs dir for *.graw files and groups them by the AsAd
// number encoded in each filename, sorted lexicographically within each
// group (the on-disk sequence number ordering AsadStack relies on).
func groupByAsad(dir string) (map[uint8][]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.graw"))
	if err != nil {
		return nil, err
	}

	groups := make(map[uint8][]string)
	for _, path := range matches {
		asad := uint8(0)
		if m := asadFilePattern.FindStringSubmatch(filepath.Base(path)); m != nil {
			var n int
			fmt.Sscanf(m[1], "%d", &n)
			asad = uint8(n)
		}
		groups[asad] = append(groups[asad], path)
	}
	for asad := range groups {
		sort.Strings(groups[asad])
	}
	return groups, nil
}

// cobosForRole returns the subset of cfg.Cobos this run should merge,
// split by the pad-plane/silicon role spec.md's merge_atttpc/merge_silicon
// toggles select.
func cobosForRole(cfg *attpc.Config) []uint8 {
	var cobos []uint8
	for _, c := range cfg.Cobos {
		isSilicon := c == cfg.SiliconCobo
		if isSilicon && cfg.MergeSilicon {
			cobos = append(cobos, c)
		}
		if !isSilicon && cfg.MergePads {
			cobos = append(cobos, c)
		}
	}
	return cobos
}

// BuildMerger discovers every (CoBo, AsAd) directory selected by cfg for
// run, builds one AsadStack per pair, and wraps them in a k-way Merger.
// Returns ErrNoGrawData if nothing was found (the caller skips the run,
// logged, not fatal — spec.md §7).
func BuildMerger(cfg *attpc.Config, run int32) (*graw.Merger, []ManifestFile, error) {
	var stacks []*graw.AsadStack
	var manifest []ManifestFile

	for _, cobo := range cobosForRole(cfg) {
		dir, err := grawDir(cfg, cobo, run)
		if err != nil {
			return nil, nil, err
		}
		if _, err := os.Stat(dir); err != nil {
			continue // missing CoBo directory is not fatal; other CoBos may exist.
		}

		groups, err := groupByAsad(dir)
		if err != nil {
			return nil, nil, errors.Join(attpc.ErrAsadStack, err)
		}

		for asad, files := range groups {
			stack, err := graw.NewAsadStackFiles(cobo, asad, files)
			if err != nil {
				return nil, nil, err
			}
			stacks = append(stacks, stack)
			for _, f := range files {
				if info, statErr := os.Stat(f); statErr == nil {
					manifest = append(manifest, ManifestFile{Path: f, Name: filepath.Base(f), Size: info.Size()})
				}
			}
		}
	}

	if len(stacks) == 0 {
		return nil, nil, ErrNoGrawData
	}

	merger, err := graw.NewMerger(stacks)
	if err != nil {
		return nil, nil, err
	}
	return merger, manifest, nil
}

// EvtDir resolves the directory holding one run's .evt files. The caller
// should os.Stat it first: a missing FRIB directory is optional (spec.md
// §6/§7), not an error.
func EvtDir(cfg *attpc.Config, run int32) string {
	return filepath.Join(cfg.EvtPath, fmt.Sprintf("run%d", run))
}

// HasEvtData reports whether the run's FRIB directory exists and is
// usable, so the driver can decide between a GET+FRIB and a GET-only run.
func HasEvtData(cfg *attpc.Config, run int32) bool {
	if cfg.EvtPath == "" {
		return false
	}
	dir := EvtDir(cfg, run)
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
