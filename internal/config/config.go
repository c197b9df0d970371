package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"easylabwork/internal/parser"

	"github.com/kirsle/configdir"
	"gopkg.in/yaml.v3"
)

// ProjectConfigName is the per-project config file looked up in the
// working directory
const ProjectConfigName = ".easylabwork.yaml"

// Config holds all configuration options for easylabwork
type Config struct {
	SourceDir      string           `yaml:"source"`
	TargetDir      string           `yaml:"target"`
	Jobs           int              `yaml:"jobs"`
	FailFast       bool             `yaml:"fail_fast"`
	Watch          bool             `yaml:"watch"`
	Verbose        bool             `yaml:"verbose"`
	RenderMarkdown bool             `yaml:"render_markdown"`
	Exclude        []string         `yaml:"exclude"`
	Markers        parser.MarkerSet `yaml:"markers"`

	// Path of the file the config was read from, empty for defaults
	File string `yaml:"-"`
}

// Default returns the configuration used when no file is found
func Default() Config {
	return Config{
		Jobs:    runtime.NumCPU(),
		Exclude: []string{".git", "__pycache__"},
		Markers: parser.DefaultMarkers(),
	}
}

// UserConfigPath returns the per-user config file location
func UserConfigPath() string {
	return filepath.Join(configdir.LocalConfig("easylabwork"), "config.yaml")
}

// LoadConfigFromFile loads the configuration. An explicit path must exist.
// Without one, .easylabwork.yaml in projectDir is tried, then the per-user
// config file; if neither exists the defaults are returned.
func LoadConfigFromFile(projectDir, explicitPath string) (Config, error) {
	if explicitPath != "" {
		return readFile(explicitPath)
	}

	candidates := []string{
		filepath.Join(projectDir, ProjectConfigName),
		UserConfigPath(),
	}
	for _, path := range candidates {
		cfg, err := readFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return cfg, err
	}
	return Default(), nil
}

func readFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.File = path

	// Relative roots in a config file are relative to that file
	base := filepath.Dir(path)
	if cfg.SourceDir != "" && !filepath.IsAbs(cfg.SourceDir) {
		cfg.SourceDir = filepath.Join(base, cfg.SourceDir)
	}
	if cfg.TargetDir != "" && !filepath.IsAbs(cfg.TargetDir) {
		cfg.TargetDir = filepath.Join(base, cfg.TargetDir)
	}
	return cfg, nil
}

// Parse decodes YAML config data on top of the defaults
func Parse(data []byte) (Config, error) {
	cfg := Default()
	cfg.Exclude = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.Exclude == nil {
		cfg.Exclude = Default().Exclude
	}
	cfg.Markers = cfg.Markers.Merge(parser.DefaultMarkers())
	return cfg, nil
}

// Validate checks that the configuration can drive a build
func (c *Config) Validate() error {
	if c.SourceDir == "" {
		return errors.New("no source given")
	}
	if c.TargetDir == "" {
		return errors.New("no target given")
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	for _, pattern := range c.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
	}
	if err := c.Markers.Validate(); err != nil {
		return err
	}
	return nil
}

// GetAbsoluteInputDir returns the source root as an absolute path
func (c *Config) GetAbsoluteInputDir() string {
	return absolute(c.SourceDir)
}

// GetAbsoluteOutputDir returns the target root as an absolute path
func (c *Config) GetAbsoluteOutputDir() string {
	return absolute(c.TargetDir)
}

func absolute(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
