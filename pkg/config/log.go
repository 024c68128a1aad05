package config

import (
	"fmt"
	"strings"
)

type LogConfig struct {
	Level string `koanf:"level"`
	// File enables an additional rotating JSON log file when set.
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"maxsizemb"`
	MaxBackups int    `koanf:"maxbackups"`
	MaxAgeDays int    `koanf:"maxagedays"`
}

const defaultLogMaxSizeMB = 50

// String returns a string representation of the log configuration.
func (c *LogConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Log ---\n")
	b.WriteString(fmt.Sprintf("  level: %s\n", c.Level))
	if c.File != "" {
		b.WriteString(fmt.Sprintf("  file: %s\n", c.File))
		b.WriteString(fmt.Sprintf("  maxsizemb: %d\n", c.MaxSizeMB))
		b.WriteString(fmt.Sprintf("  maxbackups: %d\n", c.MaxBackups))
		b.WriteString(fmt.Sprintf("  maxagedays: %d\n", c.MaxAgeDays))
	}
	return b.String()
}

func (c *LogConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level: %q", c.Level)
	}
	if c.File != "" && c.MaxSizeMB <= 0 {
		c.MaxSizeMB = defaultLogMaxSizeMB
	}
	return nil
}
