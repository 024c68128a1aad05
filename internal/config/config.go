// Package config holds the storefront BFF configuration.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sareesanskriti/storefront/pkg/config"
	"github.com/sareesanskriti/storefront/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

// Storage drivers for the cart and admin session slots.
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	GRPC       config.GrpcServerConfig `koanf:"grpc"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Storage    StorageConfig           `koanf:"storage"`
	API        APIConfig               `koanf:"api"`
	Resilience config.ResilienceConfig `koanf:"resilience"`
	Nats       config.NATSConfig       `koanf:"nats"`
	Subscriber config.SubscriberConfig `koanf:"subscriber"`
	Messaging  MessagingConfig         `koanf:"messaging"`
	Session    SessionConfig           `koanf:"session"`
}

// StorageConfig selects where carts and admin sessions are persisted.
type StorageConfig struct {
	Driver   string                `koanf:"driver"`
	Redis    config.RedisConfig    `koanf:"redis"`
	Database config.DatabaseConfig `koanf:"database"`
}

// APIConfig points at the remote catalog/order/admin API.
type APIConfig struct {
	BaseURL         string        `koanf:"baseurl"`
	Timeout         time.Duration `koanf:"timeout"`
	CheckoutTimeout time.Duration `koanf:"checkouttimeout"`
}

type MessagingConfig struct {
	WhatsAppPhone string `koanf:"whatsappphone"`
	// Stream is the JetStream stream that carries orders.placed.
	Stream string `koanf:"stream"`
}

type SessionConfig struct {
	CookieName string `koanf:"cookiename"`
	// TTL is the lifetime of the cookie and of carts kept in Redis.
	TTL time.Duration `koanf:"ttl"`
	// Idle is how long an unused session stays in memory before it is reloaded from storage.
	Idle          time.Duration `koanf:"idle"`
	SweepInterval time.Duration `koanf:"sweepinterval"`
}

// Defaults are applied below config.yaml, .env and the environment.
func Defaults() map[string]any {
	return map[string]any{
		"server.port":                                   8080,
		"server.maxHeaderBytes":                         1 << 20,
		"server.timeout.read":                           "10s",
		"server.timeout.write":                          "30s",
		"server.timeout.idle":                           "60s",
		"server.timeout.readHeader":                     "5s",
		"log.level":                                     "info",
		"grpc.port":                                     "9090",
		"shutdown.timeout":                              "10s",
		"storage.driver":                                StorageMemory,
		"storage.database.timeout":                      "10s",
		"api.timeout":                                   "5s",
		"api.checkouttimeout":                           "15s",
		"resilience.retry.maxattempts":                  3,
		"resilience.retry.initialbackoff":               "100ms",
		"resilience.circuitbreaker.consecutivefailures": 5,
		"resilience.circuitbreaker.errorratepercent":    50,
		"resilience.circuitbreaker.opentimeout":         "30s",
		"nats.timeout":                                  "5s",
		"subscriber.subject":                            "orders.placed",
		"subscriber.consumer":                           "ORDER_DESK",
		"subscriber.stream":                             "ORDERS",
		"subscriber.timeout":                            "5s",
		"subscriber.interval":                           "1s",
		"subscriber.workers":                            1,
		"messaging.whatsappphone":                       "919599819939",
		"messaging.stream":                              "ORDERS",
		"session.cookiename":                            "storefront_session",
		"session.ttl":                                   "720h",
		"session.idle":                                  "30m",
		"session.sweepinterval":                         "5m",
		"telemetry.metrics.path":                        "/metrics",
	}
}

func (c *StorageConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Storage ---\n")
	b.WriteString(fmt.Sprintf("  driver: %s\n", c.Driver))
	switch c.Driver {
	case StorageRedis:
		b.WriteString(c.Redis.String())
	case StoragePostgres:
		b.WriteString(c.Database.String())
	}
	return b.String()
}

func (c *StorageConfig) Validate() error {
	switch c.Driver {
	case StorageMemory:
		return nil
	case StorageRedis:
		return c.Redis.Validate()
	case StoragePostgres:
		return c.Database.Validate()
	default:
		return fmt.Errorf("unsupported storage driver: %q", c.Driver)
	}
}

func (c *APIConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("api base URL is not configured")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api base URL must be an absolute http(s) URL: %q", c.BaseURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("api timeout must be greater than 0")
	}
	if c.CheckoutTimeout <= 0 {
		return fmt.Errorf("api checkout timeout must be greater than 0")
	}
	return nil
}

func (c *MessagingConfig) Validate() error {
	for _, r := range c.WhatsAppPhone {
		if r < '0' || r > '9' {
			return fmt.Errorf("messaging.whatsappphone must contain digits only: %q", c.WhatsAppPhone)
		}
	}
	return nil
}

func (c *SessionConfig) Validate() error {
	if c.CookieName == "" {
		return fmt.Errorf("session cookie name is not configured")
	}
	if c.TTL <= 0 {
		return fmt.Errorf("session ttl must be greater than 0")
	}
	if c.Idle <= 0 {
		return fmt.Errorf("session idle timeout must be greater than 0")
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("session sweep interval must be greater than 0")
	}
	return nil
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Storage.String())

	b.WriteString("\n--- Remote API ---\n")
	b.WriteString(fmt.Sprintf("  api.baseurl: %s\n", c.API.BaseURL))
	b.WriteString(fmt.Sprintf("  api.timeout: %s\n", c.API.Timeout))
	b.WriteString(fmt.Sprintf("  api.checkouttimeout: %s\n", c.API.CheckoutTimeout))
	b.WriteString(c.Resilience.String())

	b.WriteString(c.Nats.String())
	b.WriteString(c.Subscriber.String())
	b.WriteString("\n--- Messaging ---\n")
	b.WriteString(fmt.Sprintf("  messaging.whatsappphone: %s\n", c.Messaging.WhatsAppPhone))
	b.WriteString(fmt.Sprintf("  messaging.stream: %s\n", c.Messaging.Stream))

	b.WriteString("\n--- Session ---\n")
	b.WriteString(fmt.Sprintf("  session.cookiename: %s\n", c.Session.CookieName))
	b.WriteString(fmt.Sprintf("  session.ttl: %s\n", c.Session.TTL))
	b.WriteString(fmt.Sprintf("  session.idle: %s\n", c.Session.Idle))
	b.WriteString(fmt.Sprintf("  session.sweepinterval: %s\n", c.Session.SweepInterval))

	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.GRPC.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer,
		&c.Log,
		&c.PProf,
		&c.GRPC,
		&c.Shutdown,
		&c.Telemetry,
		&c.Storage,
		&c.API,
		&c.Resilience,
		&c.Nats,
		&c.Subscriber,
		&c.Messaging,
		&c.Session,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if c.Subscriber.Enabled && !c.Nats.Enabled {
		return fmt.Errorf("subscriber is enabled but nats is disabled")
	}
	return nil
}
