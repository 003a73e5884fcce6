package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Merchant carries the KHQR individual-account fields that identify the
// shop at the Bakong payment authority.
type Merchant struct {
	AccountID string
	Name      string
	City      string
	Mobile    string
	Label     string
}

type Config struct {
	LogLevel string

	TelegramToken string

	BakongToken   string
	BakongBaseURL string
	Merchant      Merchant

	PollInterval time.Duration
	MaxAttempts  int
}

var ErrMissingToken = errors.New("config: TELEGRAM_BOT_TOKEN and BAKONG_TOKEN are required")

// Load reads configuration from the environment, after loading a .env file
// when one is present next to the binary.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		BakongToken:   os.Getenv("BAKONG_TOKEN"),
		BakongBaseURL: getEnv("BAKONG_BASE_URL", "https://api-bakong.nbc.gov.kh"),
		Merchant: Merchant{
			AccountID: getEnv("BAKONG_ACCOUNT_ID", "noch_phanet@aclb"),
			Name:      getEnv("MERCHANT_NAME", "Noch Phanet"),
			City:      getEnv("MERCHANT_CITY", "Phnom Penh"),
			Mobile:    getEnv("MERCHANT_MOBILE", "85511504463"),
			Label:     getEnv("STORE_LABEL", "Clothing Shop"),
		},
		PollInterval: getEnvDuration("POLL_INTERVAL", 10*time.Second),
		MaxAttempts:  getEnvInt("MAX_ATTEMPTS", 30),
	}

	if cfg.TelegramToken == "" || cfg.BakongToken == "" {
		return Config{}, ErrMissingToken
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
