package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
database:
  user: travel
  name: travelbooking
`

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, ":9090", cfg.GRPC.Address)
	assert.Equal(t, "serializable", cfg.Booking.CreateIsolation)
	assert.Equal(t, "read_committed", cfg.Booking.CancelIsolation)
	assert.Equal(t, 15*time.Minute, cfg.Booking.HoldTTL())
	assert.Equal(t, 30*time.Second, cfg.Booking.SeatLockTTL())
	assert.Equal(t, 20*time.Millisecond, cfg.Booking.RetryBase())
	assert.Equal(t, uint64(3), cfg.Booking.Retries())
	assert.Equal(t, "sync", cfg.Payment.Mode)
	assert.Equal(t, time.Minute, cfg.Worker.SweepInterval())
	assert.Equal(t, 2*time.Second, cfg.Outbox.PollInterval())
	assert.Equal(t, uint32(5), cfg.Outbox.BreakerFailures)
	assert.Equal(t, "reservation-events", cfg.Kafka.ReservationsTopic)
	assert.Equal(t, "none", cfg.Tracing.Exporter)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
}

func TestParse_ExplicitZero(t *testing.T) {
	cfg, err := Parse([]byte(minimal + `
booking:
  hold_ttl_minutes: 0
  max_retries: 0
`))
	require.NoError(t, err)

	assert.Zero(t, cfg.Booking.HoldTTL())
	assert.Zero(t, cfg.Booking.Retries())
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("APP_ENV", "production")

	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "production", cfg.App.Env)
	assert.Contains(t, cfg.Database.DSN(), "host=db.internal")
}

func TestParse_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		yaml string
		want string
	}{
		{name: "missing database", yaml: "http:\n  address: ':1'\n", want: "database user and name are required"},
		{name: "bad isolation", yaml: minimal + "booking:\n  create_isolation: snapshot\n", want: `unknown isolation level "snapshot"`},
		{name: "bad payment mode", yaml: minimal + "payment:\n  mode: later\n", want: "payment mode must be sync or async"},
		{name: "otlp without endpoint", yaml: minimal + "tracing:\n  exporter: otlp\n", want: "otlp tracing needs an endpoint"},
		{name: "bad exporter", yaml: minimal + "tracing:\n  exporter: zipkin\n", want: `unknown trace exporter "zipkin"`},
		{name: "not yaml", yaml: "database: [", want: "failed to parse config"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  user: travel\n  name: travelbooking\n  max_conns: 8\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Contains(t, cfg.Database.DSN(), "pool_max_conns=8")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestLoadConfig_RepositoryExample(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", DefaultPath))
	require.NoError(t, err)
	assert.True(t, cfg.Database.MigrateOnStart)
	assert.Equal(t, "./api/swagger", cfg.HTTP.SwaggerDir)
}
