package notifykit

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config carries the tunables of the delivery pipeline. All fields have
// working defaults; a zero-configuration deployment delivers with a 2s tick
// and a 3-attempt retry budget.
type Config struct {
	// TickInterval is how often the drain loop wakes up.
	TickInterval time.Duration `env:"NOTIFY_TICK_INTERVAL" envDefault:"2s"`

	// DrainLimit caps deliveries attempted per tick. This is the rate
	// control: backlog beyond the limit waits for the next tick.
	DrainLimit int `env:"NOTIFY_DRAIN_LIMIT" envDefault:"25"`

	// WorkerPoolSize bounds concurrent provider calls within one tick.
	WorkerPoolSize int `env:"NOTIFY_WORKER_POOL_SIZE" envDefault:"4"`

	// DispatchTimeout bounds a single provider call.
	DispatchTimeout time.Duration `env:"NOTIFY_DISPATCH_TIMEOUT" envDefault:"10s"`

	// MaxAttempts is the delivery budget per (notification, channel) pair.
	MaxAttempts int `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"3"`

	// RetryBaseDelay is the backoff after the first failed attempt.
	RetryBaseDelay time.Duration `env:"NOTIFY_RETRY_BASE_DELAY" envDefault:"5s"`

	// RetryMaxDelay caps the exponential backoff growth.
	RetryMaxDelay time.Duration `env:"NOTIFY_RETRY_MAX_DELAY" envDefault:"5m"`
}

// ErrParsingConfig is returned when environment variables cannot be parsed
// into the config struct.
var ErrParsingConfig = errors.New("failed to parse notification config")

// LoadConfig reads Config from the environment, loading a .env file first
// when one exists.
func LoadConfig() (Config, error) {
	// The .env file is optional; absence is not an error.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	return cfg, nil
}

// MustLoadConfig works like LoadConfig but panics on failure. Use during
// startup where a broken configuration should stop the process.
func MustLoadConfig() Config {
	cfg, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return cfg
}
