// ============================================================================
// Configuration
// ============================================================================
//
// Package: internal/config
// File: config.go
// Purpose: Load the YAML file that describes a timeline and the processes
// that serve it.
//
// File layout (configs/default.yaml):
//
//   timeline:
//     item_width: 60
//     initial_timeline_width: 800
//     priority_list: [2, 1]
//     items:
//       - id: "1"
//         location: 0.15
//         label: First
//         priority: 2
//         value: {title: Kickoff, color: "#db4437"}
//   render:
//     format: svg          # svg | text
//     height: 100
//     output: ""           # empty writes to stdout
//   server:
//     grpc_port: 50051
//     http_port: 8080
//     watch: true          # reload the timeline section on file change
//   metrics:
//     enabled: true
//   log:
//     level: info          # debug | info | warn | error
//
// ============================================================================

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ChuLiYu/priority-timeline/internal/render"
	"github.com/ChuLiYu/priority-timeline/internal/timeline"
	"github.com/ChuLiYu/priority-timeline/pkg/types"
	"gopkg.in/yaml.v3"
)

// Render formats
const (
	FormatSVG  = render.FormatSVG
	FormatText = render.FormatText
)

// Config is the whole configuration file.
type Config struct {
	Timeline timeline.Config[types.Marker] `yaml:"timeline"`

	Render struct {
		Format string `yaml:"format"`
		Height int    `yaml:"height"`
		Output string `yaml:"output"`
	} `yaml:"render"`

	Server struct {
		GRPCPort int  `yaml:"grpc_port"`
		HTTPPort int  `yaml:"http_port"`
		Watch    bool `yaml:"watch"`
	} `yaml:"server"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load reads and parses the file at path, filling defaults for anything
// left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes into a Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	cfg.applyDefaults()

	if cfg.Render.Format != FormatSVG && cfg.Render.Format != FormatText {
		return nil, fmt.Errorf("unknown render format %q", cfg.Render.Format)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Render.Format == "" {
		c.Render.Format = FormatSVG
	}
	if c.Render.Height == 0 {
		c.Render.Height = 100
	}
	if c.Server.GRPCPort == 0 {
		c.Server.GRPCPort = 50051
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// LogLevel maps the configured level name to a slog.Level. Unknown names
// fall back to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
