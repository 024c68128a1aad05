package config

import (
	"context"
	"fmt"
	"time"
)

// ShutdownConfig bounds how long each server may drain once the process is asked to stop.
type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// Context returns a context for one shutdown step, independent of the cancelled run context.
func (c *ShutdownConfig) Context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.Timeout)
}

func (c *ShutdownConfig) String() string {
	return fmt.Sprintf("\n--- Shutdown ---\n  timeout: %s\n", c.Timeout)
}

func (c *ShutdownConfig) Validate() error {
	switch {
	case c.Timeout <= 0:
		return fmt.Errorf("shutdown.timeout must be positive, got %s", c.Timeout)
	case c.Timeout > 5*time.Minute:
		return fmt.Errorf("shutdown.timeout %s exceeds 5m", c.Timeout)
	}
	return nil
}
