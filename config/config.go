// Package config loads the scheduler and engine configuration.
//
// Values come from three layers, later ones winning: struct defaults (creasty/defaults
// tags), an optional YAML file, and CLI flags or JOBSCHED_* environment variables
// bound by the command.
//
//	┌──────────────────┬────────────────────────────────┬──────────────────────────────────────┐
//	│ Field            │ Default                        │ Description                          │
//	├──────────────────┼────────────────────────────────┼──────────────────────────────────────┤
//	│ SchedulerName    │ "jobsched"                     │ Scheduler ID in logs and metrics     │
//	│ Threads          │ logger: 1, game_object: 4      │ Workers per thread category          │
//	│ HistoryCapacity  │ 100                            │ Retained job execution records       │
//	│ LogLevel         │ "info"                         │ debug, info, warn, error             │
//	│ LogFormat        │ "console"                      │ console or json                      │
//	│ LogBufferSize    │ 64                             │ Async logger buffer (messages)       │
//	│ TickInterval     │ 16ms                           │ Engine frame period                  │
//	│ Ticks            │ 0                              │ Frames to run, 0 = until interrupted │
//	│ GameObjects      │ 8                              │ Demo scene size                      │
//	│ MetricsAddr      │ ":9090"                        │ Prometheus listen address, "" = off  │
//	│ TraceStdout      │ false                          │ Print job spans to stderr            │
//	└──────────────────┴────────────────────────────────┴──────────────────────────────────────┘
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/creasty/defaults"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/Swind/go-job-scheduler/core"
)

// Configuration is the full set of runtime settings.
type Configuration struct {
	SchedulerName   string         `yaml:"scheduler_name" default:"jobsched"`
	Threads         map[string]int `yaml:"threads" default:"{\"logger\":1,\"game_object\":4}"`
	HistoryCapacity int            `yaml:"history_capacity" default:"100"`

	LogLevel      string `yaml:"log_level" default:"info"`
	LogFormat     string `yaml:"log_format" default:"console"`
	LogBufferSize int    `yaml:"log_buffer_size" default:"64"`

	TickInterval time.Duration `yaml:"tick_interval" default:"16ms"`
	Ticks        int           `yaml:"ticks" default:"0"`
	GameObjects  int           `yaml:"game_objects" default:"8"`

	MetricsAddr string `yaml:"metrics_addr" default:":9090"`
	TraceStdout bool   `yaml:"trace_stdout" default:"false"`
}

// Default returns a configuration with every default applied.
func Default() (*Configuration, error) {
	cfg := &Configuration{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config: applying defaults: %w", err)
	}
	return cfg, nil
}

// Load reads the YAML file at path over the defaults. An empty path yields the
// defaults alone. The result is validated.
func Load(path string) (*Configuration, error) {
	if path == "" {
		cfg, err := Default()
		if err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads YAML from r over the defaults and validates the result.
// A thread map in the document replaces the default map.
func Parse(r io.Reader) (*Configuration, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: reading: %w", err)
	}

	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	var doc struct {
		Threads map[string]int `yaml:"threads"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	if doc.Threads != nil {
		cfg.Threads = nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Configuration) Validate() error {
	if err := core.ValidateDescriptors(c.Descriptors()); err != nil {
		return fmt.Errorf("config: threads: %w", err)
	}
	if c.HistoryCapacity < 1 {
		return fmt.Errorf("config: history_capacity must be at least 1, got %d", c.HistoryCapacity)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("config: log_format must be console or json, got %q", c.LogFormat)
	}
	if c.LogBufferSize < 0 {
		return fmt.Errorf("config: log_buffer_size must not be negative, got %d", c.LogBufferSize)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("config: tick_interval must be positive, got %v", c.TickInterval)
	}
	if c.Ticks < 0 {
		return fmt.Errorf("config: ticks must not be negative, got %d", c.Ticks)
	}
	if c.GameObjects < 0 {
		return fmt.Errorf("config: game_objects must not be negative, got %d", c.GameObjects)
	}
	return nil
}

// Descriptors returns the thread map as descriptors sorted by category name.
func (c *Configuration) Descriptors() core.Descriptors[string] {
	names := make([]string, 0, len(c.Threads))
	for name := range c.Threads {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(core.Descriptors[string], 0, len(names))
	for _, name := range names {
		out = append(out, core.CategoryDescriptor[string]{Category: name, Threads: c.Threads[name]})
	}
	return out
}

// DebugMap returns the settings for structured logging.
func (c *Configuration) DebugMap() map[string]any {
	return map[string]any{
		"scheduler_name":   c.SchedulerName,
		"threads":          c.Threads,
		"history_capacity": c.HistoryCapacity,
		"log_level":        c.LogLevel,
		"log_format":       c.LogFormat,
		"log_buffer_size":  c.LogBufferSize,
		"tick_interval":    c.TickInterval.String(),
		"ticks":            c.Ticks,
		"game_objects":     c.GameObjects,
		"metrics_addr":     c.MetricsAddr,
		"trace_stdout":     c.TraceStdout,
	}
}
