package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

type Config struct {
	App      AppConfig      `yaml:"app"`
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Payment  PaymentConfig  `yaml:"payment"`
	Worker   WorkerConfig   `yaml:"worker"`
	Outbox   OutboxConfig   `yaml:"outbox"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

type AppConfig struct {
	Name string `yaml:"name"`
	Env  string `yaml:"env"`
}

type HTTPConfig struct {
	Address         string `yaml:"address"`
	SwaggerDir      string `yaml:"swagger_dir"`
	ShutdownSeconds int    `yaml:"shutdown_timeout_seconds"`
}

func (h HTTPConfig) ShutdownTimeout() time.Duration {
	return time.Duration(h.ShutdownSeconds) * time.Second
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Name           string `yaml:"name"`
	SSLMode        string `yaml:"ssl_mode"`
	MaxConns       int32  `yaml:"max_conns"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

func (d DatabaseConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
	if d.MaxConns > 0 {
		dsn += fmt.Sprintf(" pool_max_conns=%d", d.MaxConns)
	}
	return dsn
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	ReservationsTopic  string   `yaml:"reservations_topic"`
	NotificationsGroup string   `yaml:"notifications_group"`
}

type BookingConfig struct {
	CreateIsolation       string  `yaml:"create_isolation"`
	CancelIsolation       string  `yaml:"cancel_isolation"`
	HoldTTLMinutes        *int    `yaml:"hold_ttl_minutes"`
	SeatLockTTLSeconds    int     `yaml:"seat_lock_ttl_seconds"`
	FlightsCacheTTL       int     `yaml:"flights_cache_ttl_seconds"`
	MaxRetries            *uint64 `yaml:"max_retries"`
	RetryBaseMilliseconds int     `yaml:"retry_base_ms"`
}

// HoldTTL is zero when pending reservations should never expire.
func (b BookingConfig) HoldTTL() time.Duration {
	if b.HoldTTLMinutes == nil {
		return 0
	}
	return time.Duration(*b.HoldTTLMinutes) * time.Minute
}

// Retries is zero when conflicts are returned to the caller at once.
func (b BookingConfig) Retries() uint64 {
	if b.MaxRetries == nil {
		return 0
	}
	return *b.MaxRetries
}

func (b BookingConfig) SeatLockTTL() time.Duration {
	return time.Duration(b.SeatLockTTLSeconds) * time.Second
}

func (b BookingConfig) FlightsCacheTTLDuration() time.Duration {
	return time.Duration(b.FlightsCacheTTL) * time.Second
}

func (b BookingConfig) RetryBase() time.Duration {
	return time.Duration(b.RetryBaseMilliseconds) * time.Millisecond
}

type PaymentConfig struct {
	Mode string `yaml:"mode"`
}

type WorkerConfig struct {
	ExpirationSweepMinutes int `yaml:"expiration_sweep_minutes"`
	SweepBatch             int `yaml:"sweep_batch"`
}

func (w WorkerConfig) SweepInterval() time.Duration {
	return time.Duration(w.ExpirationSweepMinutes) * time.Minute
}

type OutboxConfig struct {
	PollSeconds     int    `yaml:"poll_interval_seconds"`
	BatchSize       int    `yaml:"batch_size"`
	BreakerFailures uint32 `yaml:"breaker_failures"`
	BreakerSeconds  int    `yaml:"breaker_open_seconds"`
}

func (o OutboxConfig) PollInterval() time.Duration {
	return time.Duration(o.PollSeconds) * time.Second
}

func (o OutboxConfig) BreakerTimeout() time.Duration {
	return time.Duration(o.BreakerSeconds) * time.Second
}

// TracingConfig selects the span exporter: none, stdout or otlp (gRPC).
type TracingConfig struct {
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Load reads a .env file if one exists, then the yaml file at path, then
// applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}
	return LoadConfig(path)
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes yaml, applies overrides and defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.App.Env = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Tracing.Endpoint = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		var brokers []string
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		c.Kafka.Brokers = brokers
	}
}

func (c *Config) applyDefaults() {
	setString(&c.App.Name, "travelbooking")
	setString(&c.App.Env, "development")
	setString(&c.HTTP.Address, ":8080")
	setInt(&c.HTTP.ShutdownSeconds, 10)
	setString(&c.GRPC.Address, ":9090")
	setString(&c.Database.Host, "localhost")
	setInt(&c.Database.Port, 5432)
	setString(&c.Database.SSLMode, "disable")
	setString(&c.Kafka.ReservationsTopic, "reservation-events")
	setString(&c.Kafka.NotificationsGroup, "travelbooking-notifications")
	setString(&c.Booking.CreateIsolation, "serializable")
	setString(&c.Booking.CancelIsolation, "read_committed")
	if c.Booking.HoldTTLMinutes == nil {
		c.Booking.HoldTTLMinutes = ptr(15)
	}
	setInt(&c.Booking.SeatLockTTLSeconds, 30)
	setInt(&c.Booking.FlightsCacheTTL, 60)
	setInt(&c.Booking.RetryBaseMilliseconds, 20)
	if c.Booking.MaxRetries == nil {
		c.Booking.MaxRetries = ptr[uint64](3)
	}
	setString(&c.Payment.Mode, "sync")
	setInt(&c.Worker.ExpirationSweepMinutes, 1)
	setInt(&c.Worker.SweepBatch, 100)
	setString(&c.Tracing.Exporter, "none")
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1
	}
	setInt(&c.Outbox.PollSeconds, 2)
	setInt(&c.Outbox.BatchSize, 50)
	setInt(&c.Outbox.BreakerSeconds, 30)
	if c.Outbox.BreakerFailures == 0 {
		c.Outbox.BreakerFailures = 5
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Database.User == "" || c.Database.Name == "" {
		errs = append(errs, errors.New("database user and name are required"))
	}
	for _, level := range []string{c.Booking.CreateIsolation, c.Booking.CancelIsolation} {
		switch level {
		case "read_committed", "repeatable_read", "serializable":
		default:
			errs = append(errs, fmt.Errorf("unknown isolation level %q", level))
		}
	}
	if c.Payment.Mode != "sync" && c.Payment.Mode != "async" {
		errs = append(errs, fmt.Errorf("payment mode must be sync or async, got %q", c.Payment.Mode))
	}
	if c.Booking.HoldTTLMinutes != nil && *c.Booking.HoldTTLMinutes < 0 {
		errs = append(errs, errors.New("booking hold ttl must not be negative"))
	}
	switch c.Tracing.Exporter {
	case "none", "stdout":
	case "otlp":
		if c.Tracing.Endpoint == "" {
			errs = append(errs, errors.New("otlp tracing needs an endpoint"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown trace exporter %q", c.Tracing.Exporter))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, errors.New("tracing sample ratio must be within [0, 1]"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func ptr[T any](v T) *T { return &v }

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}
