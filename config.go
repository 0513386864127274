package attpc

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultOnlineTemplate reproduces the online GET mount layout as a
// configurable text/template string rather than a hard-coded path, so a
// site with a different mount convention can override it in the YAML
// config.
const defaultOnlineTemplate = "/Network/Servers/mm{{.Cobo}}.local/Users/attpc/Data/mm{{.Cobo}}/{{.Experiment}}/run_{{.Run | printf \"%04d\"}}/*.graw"

// Config is the top-level YAML configuration, following the shape of
// bobbydeveaux-starbucks-mugs/internal/config/config.go:
// os.ReadFile + yaml.Unmarshal + applyDefaults + validate, every
// validation failure collected and reported together through errors.Join.
type Config struct {
	GrawPath        string `yaml:"graw_path"`
	EvtPath         string `yaml:"evt_path"`
	HdfPath         string `yaml:"hdf_path"`
	CopyPath        string `yaml:"copy_path"`
	DeleteCopied    bool   `yaml:"delete_copied"`
	ChannelMapPath  string `yaml:"channel_map_path"`
	FirstRunNumber  int32  `yaml:"first_run_number"`
	LastRunNumber   int32  `yaml:"last_run_number"`
	Online          bool   `yaml:"online"`
	Experiment      string `yaml:"experiment"`
	MergePads       bool   `yaml:"merge_atttpc"`
	MergeSilicon    bool   `yaml:"merge_silicon"`
	NThreads        int32  `yaml:"n_threads"`
	OnlineTemplate  string `yaml:"online_template,omitempty"`

	// Cobos lists which CoBo numbers to address under OnlineTemplate, since
	// the online mount layout is addressed per-CoBo and, unlike the offline
	// layout, cannot be discovered by globbing a parent directory.
	Cobos []uint8 `yaml:"cobos,omitempty"`

	// SiliconCobo is the CoBo number carrying the auxiliary silicon
	// detectors; every other CoBo carries pad-plane channels. Its default
	// (10) equals the event builder's designated timestamp CoBo, which is a
	// constant in package event and does not follow this field.
	SiliconCobo uint8 `yaml:"silicon_cobo,omitempty"`
}

// LoadConfig reads the YAML file at path, unmarshals it into Config,
// applies defaults, and validates required fields.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrConfig, fmt.Errorf("cannot read %q: %w", path, err))
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Join(ErrConfig, fmt.Errorf("cannot parse %q: %w", path, err))
	}

	applyConfigDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, errors.Join(ErrConfig, fmt.Errorf("validation failed for %q: %w", path, err))
	}

	return &cfg, nil
}

func applyConfigDefaults(cfg *Config) {
	if cfg.NThreads == 0 {
		cfg.NThreads = 1
	}
	if cfg.OnlineTemplate == "" {
		cfg.OnlineTemplate = defaultOnlineTemplate
	}
	if cfg.SiliconCobo == 0 {
		cfg.SiliconCobo = defaultSiliconCobo
	}
	if len(cfg.Cobos) == 0 {
		cfg.Cobos = defaultCobos()
	}
}

// defaultSiliconCobo matches the event builder's designated timestamp CoBo.
const defaultSiliconCobo = 10

// defaultCobos is the pad-plane CoBo range used when a site doesn't
// override Config.Cobos, plus the default silicon CoBo.
func defaultCobos() []uint8 {
	cobos := make([]uint8, 0, 11)
	for c := uint8(0); c < 10; c++ {
		cobos = append(cobos, c)
	}
	return append(cobos, defaultSiliconCobo)
}

func validateConfig(cfg *Config) error {
	var errs []error

	if cfg.GrawPath == "" {
		errs = append(errs, errors.New("graw_path is required"))
	}
	if cfg.HdfPath == "" {
		errs = append(errs, errors.New("hdf_path is required"))
	}
	if cfg.LastRunNumber < cfg.FirstRunNumber {
		// an empty range is valid; it simply processes no runs.
	}
	if cfg.NThreads < 1 || cfg.NThreads > 10 {
		errs = append(errs, fmt.Errorf("n_threads %d must be between 1 and 10", cfg.NThreads))
	}
	if cfg.Online && cfg.Experiment == "" {
		errs = append(errs, errors.New("experiment is required when online is true"))
	}

	return errors.Join(errs...)
}

// NewTemplateConfig returns a Config populated with documented defaults,
// suitable for the "new" CLI subcommand to marshal to YAML.
func NewTemplateConfig() *Config {
	return &Config{
		GrawPath:       "/data/graw",
		EvtPath:        "/data/evt",
		HdfPath:        "/data/hdf",
		CopyPath:       "",
		DeleteCopied:   false,
		ChannelMapPath: "",
		FirstRunNumber: 1,
		LastRunNumber:  1,
		Online:         false,
		Experiment:     "",
		MergePads:      true,
		MergeSilicon:   false,
		NThreads:       1,
		OnlineTemplate: defaultOnlineTemplate,
		SiliconCobo:    defaultSiliconCobo,
		Cobos:          defaultCobos(),
	}
}

// WriteTemplate marshals a template Config to path as YAML, for the "new"
// CLI subcommand.
func WriteTemplate(path string) error {
	cfg := NewTemplateConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Join(ErrConfig, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Join(ErrConfig, err)
	}
	return nil
}
