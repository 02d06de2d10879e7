package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		ENV  string
		Name string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	Store struct {
		Backend   string // sql | redis | memory
		Driver    string // sqlite | mysql
		DSN       string
		Host      string
		Port      string
		User      string
		Password  string
		Name      string
		KeyPrefix string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	GRPC struct {
		Host string
		Port string
	}

	HTTP struct {
		Host string
		Port string
	}

	Timing struct {
		SplashDelay         time.Duration
		LoginDelay          time.Duration
		MatchLatency        time.Duration
		ReadReceiptDelay    time.Duration
		GiftAckDelay        time.Duration
		PaymentBridgeDelay  time.Duration
		PaymentConfirmDelay time.Duration
		MembershipDelay     time.Duration
		AccountOpDelay      time.Duration
		NoticeTTL           time.Duration
	}

	Reply struct {
		Endpoint  string
		APIKey    string
		Timeout   time.Duration
		Attempts  uint
		MaxTokens int
	}

	Defaults struct {
		WalletBalance      int64
		TrialCredits       int
		MembershipCoinRate int64
		HistoryPageSize    int
	}
}

// New reads an optional .env file and then builds the config from the environment.
func New() *Config {
	// missing .env is fine, real deployments use the process environment
	_ = godotenv.Load()

	cfg := &Config{}

	// App
	cfg.App.ENV = getEnvDefault("APP_ENV", "development")
	cfg.App.Name = getEnvDefault("APP_NAME", "miahui")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "session")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Preference store
	cfg.Store.Backend = strings.ToLower(getEnvDefault("STORE_BACKEND", "sql"))
	cfg.Store.Driver = strings.ToLower(getEnvDefault("STORE_DRIVER", "sqlite"))
	cfg.Store.KeyPrefix = getEnvDefault("STORE_KEY_PREFIX", "miahui:pref:")
	cfg.Store.DSN = os.Getenv("STORE_DSN")
	if cfg.Store.DSN == "" {
		switch cfg.Store.Driver {
		case "mysql":
			cfg.Store.Host = getEnvDefault("DB_HOST", "localhost")
			cfg.Store.Port = getEnvDefault("DB_PORT", "3306")
			cfg.Store.User = getEnvDefault("DB_USER", "root")
			cfg.Store.Password = getEnvDefault("DB_PASSWORD", "root")
			cfg.Store.Name = getEnvDefault("DB_NAME", "miahui")

			cfg.Store.DSN = fmt.Sprintf(
				"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
				cfg.Store.User, cfg.Store.Password, cfg.Store.Host, cfg.Store.Port, cfg.Store.Name,
			)
		default:
			cfg.Store.DSN = getEnvDefault("SQLITE_PATH", "miahui.db")
		}
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	if dbStr := getEnvDefault("REDIS_DB", "0"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = dbInt
		}
	}

	// gRPC
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// HTTP (websocket event feed)
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "127.0.0.1")
	cfg.HTTP.Port = getEnvDefault("HTTP_PORT", "8080")

	// Simulated latencies
	cfg.Timing.SplashDelay = getDurationDefault("SPLASH_DELAY", 2500*time.Millisecond)
	cfg.Timing.LoginDelay = getDurationDefault("LOGIN_DELAY", 1500*time.Millisecond)
	cfg.Timing.MatchLatency = getDurationDefault("MATCH_LATENCY", 3*time.Second)
	cfg.Timing.ReadReceiptDelay = getDurationDefault("READ_RECEIPT_DELAY", 800*time.Millisecond)
	cfg.Timing.GiftAckDelay = getDurationDefault("GIFT_ACK_DELAY", time.Second)
	cfg.Timing.PaymentBridgeDelay = getDurationDefault("PAYMENT_BRIDGE_DELAY", 2*time.Second)
	cfg.Timing.PaymentConfirmDelay = getDurationDefault("PAYMENT_CONFIRM_DELAY", 1500*time.Millisecond)
	cfg.Timing.MembershipDelay = getDurationDefault("MEMBERSHIP_DELAY", 2*time.Second)
	cfg.Timing.AccountOpDelay = getDurationDefault("ACCOUNT_OP_DELAY", 1500*time.Millisecond)
	cfg.Timing.NoticeTTL = getDurationDefault("NOTICE_TTL", 2*time.Second)

	// Reply generation service
	cfg.Reply.Endpoint = getEnvDefault("REPLY_ENDPOINT", "")
	cfg.Reply.APIKey = getEnvDefault("REPLY_API_KEY", "")
	cfg.Reply.Timeout = getDurationDefault("REPLY_TIMEOUT", 8*time.Second)
	cfg.Reply.Attempts = uint(getIntDefault("REPLY_ATTEMPTS", 2))
	cfg.Reply.MaxTokens = getIntDefault("REPLY_MAX_TOKENS", 100)

	// First-run defaults
	cfg.Defaults.WalletBalance = int64(getIntDefault("DEFAULT_WALLET_BALANCE", 1000))
	cfg.Defaults.TrialCredits = getIntDefault("DEFAULT_TRIAL_CREDITS", 5)
	cfg.Defaults.MembershipCoinRate = int64(getIntDefault("MEMBERSHIP_COIN_RATE", 10))
	cfg.Defaults.HistoryPageSize = getIntDefault("CHAT_PAGE_SIZE", 20)

	return cfg
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getIntDefault(k string, def int) int {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func getDurationDefault(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
	}
	return def
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
