package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/jtang613/goctf/pkg/ctf"
)

// Config represents the ctfdump configuration file
// (~/.config/ctfdump/config.yaml). Pointer fields distinguish "not set"
// from zero values.
type Config struct {
	// Sections printed when no section flag is given: header, labels,
	// objects, functions, types, strings, stats.
	Sections []string `yaml:"sections"`

	// Output
	Format   string `yaml:"format"` // text or json
	Pretty   *bool  `yaml:"pretty"`
	Color    string `yaml:"color"`
	LogLevel string `yaml:"log_level"`

	Jobs *int `yaml:"jobs"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ctfdump", "config.yaml")
}

// loadConfig reads the config file. It returns a zero Config if the file
// doesn't exist.
func loadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyConfig applies config file defaults to the options when the
// corresponding flag was not explicitly set, then resolves the section
// selection.
func applyConfig(c *cli.Command, cfg Config, o *options) error {
	if cfg.Format != "" && !c.IsSet("json") {
		switch cfg.Format {
		case "json":
			o.json = true
		case "text":
			o.json = false
		default:
			return fmt.Errorf("config: unknown format %q", cfg.Format)
		}
	}
	if cfg.Pretty != nil && !c.IsSet("pretty") {
		o.pretty = *cfg.Pretty
	}
	if cfg.Color != "" && !c.IsSet("color") {
		o.color = cfg.Color
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		o.logLevel = cfg.LogLevel
	}
	if cfg.Jobs != nil && !c.IsSet("jobs") {
		o.jobs = *cfg.Jobs
	}
	if o.jobs < 1 {
		o.jobs = 1
	}

	o.sections = o.flagSections()
	if o.sections != 0 {
		return nil
	}

	if len(cfg.Sections) == 0 {
		o.sections = ctf.SectionAll
		return nil
	}
	for _, name := range cfg.Sections {
		s, ok := ctf.ParseSection(name)
		if !ok {
			return fmt.Errorf("config: unknown section %q", name)
		}
		o.sections |= s
	}
	return nil
}

// flagSections returns the sections selected on the command line.
func (o *options) flagSections() ctf.Section {
	var s ctf.Section
	for _, f := range []struct {
		set bool
		sec ctf.Section
	}{
		{o.header, ctf.SectionHeader},
		{o.labels, ctf.SectionLabels},
		{o.objects, ctf.SectionObjects},
		{o.functions, ctf.SectionFunctions},
		{o.types, ctf.SectionTypes},
		{o.strings, ctf.SectionStrings},
		{o.stats, ctf.SectionStats},
	} {
		if f.set {
			s |= f.sec
		}
	}
	return s
}
