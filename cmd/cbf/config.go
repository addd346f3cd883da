package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/cbf/internal/logger"
)

// Config represents the cbf configuration file (~/.config/cbf/config.yaml).
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "cbf", "config.yaml")
}

func loadConfig() Config {
	var cfg Config
	path := configPath()
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	_ = yaml.Unmarshal(data, &cfg)
	return cfg
}

func loggingFlags(level, format *string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, text, json)",
			Value:       "pretty",
			Destination: format,
		},
	}
}

// newLogger builds the command logger, letting config-file defaults fill
// in for flags the user did not set.
func newLogger(c *cli.Command, level, format string) logger.Logger {
	cfg := loadConfig()
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		level = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		format = cfg.LogFormat
	}
	return buildLogger(os.Stderr, level, format)
}

func buildLogger(w io.Writer, level, format string) logger.Logger {
	lv := logger.ParseLevel(level)
	switch format {
	case "json":
		return logger.JSON(w, lv)
	case "text":
		return logger.Text(w, lv)
	default:
		return logger.Pretty(w, lv)
	}
}
