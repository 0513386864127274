package writer

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ManifestEntry records one discovered input file's name and size so the
// companion manifest lets a reader audit what went into a run's output
// without re-walking the GRAW/evt trees.
type ManifestEntry struct {
	Name      string `yaml:"name"`
	SizeBytes int64  `yaml:"size_bytes"`
}

type manifestDoc struct {
	Version string          `yaml:"version"`
	Files   []ManifestEntry `yaml:"files"`
}

func writeManifest(path string, entries []ManifestEntry) error {
	doc := manifestDoc{Version: outputVersion, Files: entries}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
