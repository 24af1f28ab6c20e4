package config

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// AlgodConfig configures the algod node boundary (transaction params and
// submission).
type AlgodConfig struct {
	URL            string        `json:"url"`
	Token          string        `json:"-"` // sensitive
	RequestTimeout time.Duration `json:"requestTimeout"`
	// RoundWindow is the validity window applied to composed transactions,
	// counted from the node's last round.
	RoundWindow uint64 `json:"roundWindow"`
}

// MobileAPIConfig configures the backend used for joint-account sign
// requests.
type MobileAPIConfig struct {
	BaseURL         string        `json:"baseURL"`
	APIKey          string        `json:"-"` // sensitive
	RequestTimeout  time.Duration `json:"requestTimeout"`
	PollMinInterval time.Duration `json:"pollMinInterval"`
	PollMaxInterval time.Duration `json:"pollMaxInterval"`
}

// LedgerConfig configures hardware (Ledger) signing.
type LedgerConfig struct {
	// SignTimeout bounds a whole hardware signing attempt, from scan start
	// until the device returns a signature.
	SignTimeout time.Duration `json:"signTimeout"`
}

// KeystoreConfig configures local encrypted key storage.
type KeystoreConfig struct {
	Dir string `json:"dir"`
}

// LoggerConfig configures the zerolog global logger.
type LoggerConfig struct {
	Level              zerolog.Level `json:"level"`
	PrettyPrintConsole bool          `json:"prettyPrintConsole"`
}

// Service is the root configuration of the signing engine, assembled from
// ENV.
type Service struct {
	Algod     AlgodConfig     `json:"algod"`
	MobileAPI MobileAPIConfig `json:"mobileAPI"`
	Ledger    LedgerConfig    `json:"ledger"`
	Keystore  KeystoreConfig  `json:"keystore"`
	Logger    LoggerConfig    `json:"logger"`
}

var loadDotEnv sync.Once

// DefaultServiceConfigFromEnv returns the service config with all values
// resolved from ENV (and .env.local, if present). It never fails; missing
// keys fall back to defaults suitable for local development.
func DefaultServiceConfigFromEnv() Service {
	loadDotEnv.Do(func() {
		// Optional, ignored when absent.
		_ = gotenv.Load(".env.local")
	})

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("ALGOD_URL", "http://localhost:4001")
	v.SetDefault("ALGOD_TOKEN", "")
	v.SetDefault("ALGOD_REQUEST_TIMEOUT", "10s")
	v.SetDefault("ALGOD_ROUND_WINDOW", 1000)

	v.SetDefault("MOBILE_API_BASE_URL", "http://localhost:8000")
	v.SetDefault("MOBILE_API_KEY", "")
	v.SetDefault("MOBILE_API_REQUEST_TIMEOUT", "15s")
	v.SetDefault("MOBILE_API_POLL_MIN_INTERVAL", "2s")
	v.SetDefault("MOBILE_API_POLL_MAX_INTERVAL", "30s")

	v.SetDefault("LEDGER_SIGN_TIMEOUT", "15s")

	v.SetDefault("KEYSTORE_DIR", ".keystore")

	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_PRETTY_PRINT_CONSOLE", false)

	level, err := zerolog.ParseLevel(v.GetString("LOGGER_LEVEL"))
	if err != nil {
		level = zerolog.InfoLevel
	}

	return Service{
		Algod: AlgodConfig{
			URL:            v.GetString("ALGOD_URL"),
			Token:          v.GetString("ALGOD_TOKEN"),
			RequestTimeout: v.GetDuration("ALGOD_REQUEST_TIMEOUT"),
			RoundWindow:    v.GetUint64("ALGOD_ROUND_WINDOW"),
		},
		MobileAPI: MobileAPIConfig{
			BaseURL:         v.GetString("MOBILE_API_BASE_URL"),
			APIKey:          v.GetString("MOBILE_API_KEY"),
			RequestTimeout:  v.GetDuration("MOBILE_API_REQUEST_TIMEOUT"),
			PollMinInterval: v.GetDuration("MOBILE_API_POLL_MIN_INTERVAL"),
			PollMaxInterval: v.GetDuration("MOBILE_API_POLL_MAX_INTERVAL"),
		},
		Ledger: LedgerConfig{
			SignTimeout: v.GetDuration("LEDGER_SIGN_TIMEOUT"),
		},
		Keystore: KeystoreConfig{
			Dir: v.GetString("KEYSTORE_DIR"),
		},
		Logger: LoggerConfig{
			Level:              level,
			PrettyPrintConsole: v.GetBool("LOGGER_PRETTY_PRINT_CONSOLE"),
		},
	}
}
