package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Engine  EngineConfig
	Browser BrowserConfig
	Store   StoreConfig
	Notify  NotifyConfig
	Monitor MonitorConfig
	Logging LoggingConfig
	DataDir string
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type EngineConfig struct {
	FetchTimeout      time.Duration
	StrategyRetries   int
	StrategyRetryWait time.Duration
	RequestDelayMin   time.Duration
	RequestDelayMax   time.Duration
	UserAgents        []string
}

type BrowserConfig struct {
	Headless       bool
	Timeout        time.Duration
	PoolSize       int
	SessionTTL     time.Duration
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
}

type StoreConfig struct {
	Backend  string
	FilePath string
	Postgres PostgresConfig
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type NotifyConfig struct {
	Timeout        time.Duration
	TelegramToken  string
	TelegramChatID int64
	RedisAddr      string
	RedisStream    string
}

type MonitorConfig struct {
	Schedule     string
	ItemTimeout  time.Duration
	ItemDelayMin time.Duration
	ItemDelayMax time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Engine: EngineConfig{
			FetchTimeout:      getDurationOrDefault("ENGINE_FETCH_TIMEOUT", 20*time.Second),
			StrategyRetries:   getIntOrDefault("ENGINE_STRATEGY_RETRIES", 2),
			StrategyRetryWait: getDurationOrDefault("ENGINE_STRATEGY_RETRY_WAIT", 5*time.Second),
			RequestDelayMin:   getDurationOrDefault("ENGINE_REQUEST_DELAY_MIN", 1*time.Second),
			RequestDelayMax:   getDurationOrDefault("ENGINE_REQUEST_DELAY_MAX", 3*time.Second),
			UserAgents:        getStringSliceOrDefault("ENGINE_USER_AGENTS", defaultUserAgents()),
		},
		Browser: BrowserConfig{
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			PoolSize:       getIntOrDefault("BROWSER_POOL_SIZE", 2),
			SessionTTL:     getDurationOrDefault("BROWSER_SESSION_TTL", time.Hour),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "en-IN,en;q=0.9"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Asia/Kolkata"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "en-IN"),
		},
		Store: StoreConfig{
			Backend:  getEnvOrDefault("STORE_BACKEND", "json"),
			FilePath: getEnvOrDefault("STORE_FILE", ""),
			Postgres: PostgresConfig{
				Host:     getEnvOrDefault("DB_HOST", "localhost"),
				Port:     getIntOrDefault("DB_PORT", 5432),
				User:     getEnvOrDefault("DB_USER", "postgres"),
				Password: getEnvOrDefault("DB_PASSWORD", ""),
				DBName:   getEnvOrDefault("DB_NAME", "price_tracker"),
				SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			},
		},
		Notify: NotifyConfig{
			Timeout:        getDurationOrDefault("NOTIFY_TIMEOUT", 10*time.Second),
			TelegramToken:  getEnvOrDefault("TELEGRAM_BOT_TOKEN", ""),
			TelegramChatID: getInt64OrDefault("TELEGRAM_CHAT_ID", 0),
			RedisAddr:      getEnvOrDefault("REDIS_ADDR", ""),
			RedisStream:    getEnvOrDefault("REDIS_STREAM", "stream:price_drops"),
		},
		Monitor: MonitorConfig{
			Schedule:     getEnvOrDefault("MONITOR_SCHEDULE", "@every 30m"),
			ItemTimeout:  getDurationOrDefault("MONITOR_ITEM_TIMEOUT", 90*time.Second),
			ItemDelayMin: getDurationOrDefault("MONITOR_ITEM_DELAY_MIN", 5*time.Second),
			ItemDelayMax: getDurationOrDefault("MONITOR_ITEM_DELAY_MAX", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		DataDir: getEnvOrDefault("DATA_DIR", "./data"),
	}

	if cfg.Store.FilePath == "" {
		cfg.Store.FilePath = filepath.Join(cfg.DataDir, "items.json")
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Engine.RequestDelayMin > c.Engine.RequestDelayMax {
		return fmt.Errorf("ENGINE_REQUEST_DELAY_MIN cannot be greater than ENGINE_REQUEST_DELAY_MAX")
	}

	if c.Monitor.ItemDelayMin > c.Monitor.ItemDelayMax {
		return fmt.Errorf("MONITOR_ITEM_DELAY_MIN cannot be greater than MONITOR_ITEM_DELAY_MAX")
	}

	if c.Engine.StrategyRetries < 0 {
		return fmt.Errorf("ENGINE_STRATEGY_RETRIES cannot be negative")
	}

	if c.Browser.PoolSize < 1 {
		return fmt.Errorf("BROWSER_POOL_SIZE must be at least 1")
	}

	if c.Store.Backend != "json" && c.Store.Backend != "postgres" {
		return fmt.Errorf("STORE_BACKEND must be json or postgres, got %q", c.Store.Backend)
	}

	return nil
}

// DSN builds the connection string for the Postgres store.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	}
}
