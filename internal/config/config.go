// Package config loads usc-run settings from an optional usc-run.yaml and the
// environment. Everything has a default, so a missing file is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up from the working directory upward.
const FileName = "usc-run.yaml"

// Config holds all usc-run settings.
type Config struct {
	// Timeout bounds every network operation of a run.
	Timeout Duration `yaml:"timeout"`

	// TasksDir is searched for <task>.go scripts when a task is not compiled in.
	TasksDir string `yaml:"tasks_dir"`
	// PatchDirs are searched, in order, for <patch>.go scripts.
	PatchDirs []string `yaml:"patch_dirs"`

	CacheDir    string `yaml:"cache_dir"`
	DataDir     string `yaml:"data_dir"`
	HistoryFile string `yaml:"history_file"`

	Admin   AdminConfig   `yaml:"admin"`
	Sources SourcesConfig `yaml:"sources"`
}

// AdminConfig configures failure reporting.
type AdminConfig struct {
	LogFile    string `yaml:"log_file"`
	WebhookURL string `yaml:"webhook_url"`
}

// SourcesConfig holds the base URLs the built-in tasks read from.
type SourcesConfig struct {
	GovInfoBulk     string `yaml:"govinfo_bulk"`
	GovInfoAPI      string `yaml:"govinfo_api"`
	GovInfoAPIKey   string `yaml:"govinfo_api_key"`
	CongressGov     string `yaml:"congress_gov"`
	HouseClerk      string `yaml:"house_clerk"`
	HouseCommittees string `yaml:"house_committees"`
}

// Duration is a time.Duration that reads "10s" style strings from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the built-in settings. base is the directory holding the
// executable; the tasks directory hangs off it. Derived paths are filled in
// by Load.
func Default(base string) *Config {
	tasks := filepath.Join(base, "tasks")
	return &Config{
		Timeout:  Duration(10 * time.Second),
		TasksDir: tasks,
		CacheDir: "cache",
		DataDir:  "data",
		Sources: SourcesConfig{
			GovInfoBulk:     "https://www.govinfo.gov/bulkdata",
			GovInfoAPI:      "https://api.govinfo.gov",
			GovInfoAPIKey:   "DEMO_KEY",
			CongressGov:     "https://www.congress.gov",
			HouseClerk:      "https://clerk.house.gov",
			HouseCommittees: "https://docs.house.gov",
		},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file.
func Load(path, base string) (*Config, error) {
	cfg := Default(base)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.fillDerived()
	return cfg, nil
}

// Discover finds the config file: $USC_RUN_CONFIG if set, otherwise the
// nearest usc-run.yaml walking up from dir. It returns "" when there is none.
func Discover(dir string) (string, error) {
	if p := os.Getenv("USC_RUN_CONFIG"); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("USC_RUN_CONFIG: %w", err)
		}
		return p, nil
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

func (c *Config) applyEnvOverrides() error {
	if v := strings.TrimSpace(os.Getenv("USC_RUN_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("USC_RUN_TIMEOUT: %w", err)
		}
		c.Timeout = Duration(d)
	}
	if v := os.Getenv("USC_RUN_TASKS_DIR"); v != "" {
		c.TasksDir = v
	}
	if v := os.Getenv("USC_RUN_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv("USC_RUN_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("USC_RUN_ADMIN_WEBHOOK"); v != "" {
		c.Admin.WebhookURL = v
	}
	if v := os.Getenv("GOVINFO_API_KEY"); v != "" {
		c.Sources.GovInfoAPIKey = v
	}
	return nil
}

// fillDerived sets paths that default relative to other settings.
func (c *Config) fillDerived() {
	if c.Timeout <= 0 {
		c.Timeout = Duration(10 * time.Second)
	}
	if c.PatchDirs == nil {
		c.PatchDirs = []string{".", c.TasksDir}
	}
	if c.HistoryFile == "" {
		c.HistoryFile = filepath.Join(c.CacheDir, "runs.jsonl")
	}
	if c.Admin.LogFile == "" {
		c.Admin.LogFile = filepath.Join(c.CacheDir, "errors.jsonl")
	}
}
