package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// LLM backend
	LLMProvider    string        `json:"llm_provider"` // openai | deepseek
	LLMModel       string        `json:"llm_model"`
	LLMBaseURL     string        `json:"llm_base_url"`
	OpenAIAPIKey   string        `json:"openai_api_key"`
	DeepSeekAPIKey string        `json:"deepseek_api_key"`
	AgentTimeout   time.Duration `json:"agent_timeout"`
	MaxAttempts    int           `json:"max_attempts"`

	// Market data
	BinanceAPIKey      string `json:"binance_api_key"`
	BinanceSecret      string `json:"binance_secret"`
	CoinGeckoBaseURL   string `json:"coingecko_base_url"`
	DexScreenerBaseURL string `json:"dexscreener_base_url"`
	ReferenceSymbol    string `json:"reference_symbol"`

	// Signal throttling
	MaxSignalsPerWindow int `json:"max_signals_per_window"`
	SignalWindowHours   int `json:"signal_window_hours"`
	ExposureWindowHours int `json:"exposure_window_hours"`

	// Persistence
	PostgresDSN string `json:"postgres_dsn"`

	// Distribution
	TelegramToken        string        `json:"telegram_token"`
	TelegramPremiumChat  string        `json:"telegram_premium_chat"`
	TelegramStandardChat string        `json:"telegram_standard_chat"`
	TelegramFreeChat     string        `json:"telegram_free_chat"`
	StandardTierDelay    time.Duration `json:"standard_tier_delay"`
	FreeTierDelay        time.Duration `json:"free_tier_delay"`

	// Observability
	LogLevel    string `json:"log_level"`
	LogFormat   string `json:"log_format"` // console | json
	MetricsAddr string `json:"metrics_addr"`
}

func DefaultConfig() *Config {
	cfg := &Config{
		LLMProvider:  "deepseek",
		LLMModel:     "deepseek-chat",
		LLMBaseURL:   "https://api.deepseek.com/v1",
		AgentTimeout: 120 * time.Second,
		MaxAttempts:  10,

		CoinGeckoBaseURL:   "https://api.coingecko.com/api/v3",
		DexScreenerBaseURL: "https://api.dexscreener.com",
		ReferenceSymbol:    "BTC",

		MaxSignalsPerWindow: 3,
		SignalWindowHours:   24,
		ExposureWindowHours: 48,

		StandardTierDelay: 15 * time.Minute,
		FreeTierDelay:     60 * time.Minute,

		LogLevel:  "info",
		LogFormat: "console",
	}

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()

	return cfg
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = val
	}
	if val := os.Getenv("LLM_MODEL"); val != "" {
		c.LLMModel = val
	}
	if val := os.Getenv("LLM_BASE_URL"); val != "" {
		c.LLMBaseURL = val
	}
	if val := os.Getenv("OPENAI_API_KEY"); val != "" {
		c.OpenAIAPIKey = val
	}
	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekAPIKey = val
	}
	if val := os.Getenv("AGENT_TIMEOUT_SECONDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.AgentTimeout = time.Duration(v) * time.Second
		}
	}
	if val := os.Getenv("MAX_AGENT_ATTEMPTS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxAttempts = v
		}
	}

	if val := os.Getenv("BINANCE_API_KEY"); val != "" {
		c.BinanceAPIKey = val
	}
	if val := os.Getenv("BINANCE_SECRET"); val != "" {
		c.BinanceSecret = val
	}
	if val := os.Getenv("COINGECKO_BASE_URL"); val != "" {
		c.CoinGeckoBaseURL = val
	}
	if val := os.Getenv("DEXSCREENER_BASE_URL"); val != "" {
		c.DexScreenerBaseURL = val
	}
	if val := os.Getenv("REFERENCE_SYMBOL"); val != "" {
		c.ReferenceSymbol = val
	}

	if val := os.Getenv("MAX_SIGNALS_PER_WINDOW"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxSignalsPerWindow = v
		}
	}
	if val := os.Getenv("SIGNAL_WINDOW_HOURS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.SignalWindowHours = v
		}
	}
	if val := os.Getenv("EXPOSURE_WINDOW_HOURS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.ExposureWindowHours = v
		}
	}

	if val := os.Getenv("POSTGRES_DSN"); val != "" {
		c.PostgresDSN = val
	}

	if val := os.Getenv("TELEGRAM_BOT_TOKEN"); val != "" {
		c.TelegramToken = val
	}
	if val := os.Getenv("TELEGRAM_PREMIUM_CHAT"); val != "" {
		c.TelegramPremiumChat = val
	}
	if val := os.Getenv("TELEGRAM_STANDARD_CHAT"); val != "" {
		c.TelegramStandardChat = val
	}
	if val := os.Getenv("TELEGRAM_FREE_CHAT"); val != "" {
		c.TelegramFreeChat = val
	}
	if val := os.Getenv("STANDARD_TIER_DELAY_MINUTES"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.StandardTierDelay = time.Duration(v) * time.Minute
		}
	}
	if val := os.Getenv("FREE_TIER_DELAY_MINUTES"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.FreeTierDelay = time.Duration(v) * time.Minute
		}
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.LogFormat = val
	}
	if val := os.Getenv("METRICS_ADDR"); val != "" {
		c.MetricsAddr = val
	}
}

// Validate checks that the configuration can support a live pipeline run.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	case "deepseek":
		if c.DeepSeekAPIKey == "" {
			return fmt.Errorf("DEEPSEEK_API_KEY is required for the deepseek provider")
		}
	default:
		return fmt.Errorf("unknown LLM provider %q", c.LLMProvider)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("MAX_AGENT_ATTEMPTS must be at least 1")
	}
	return nil
}
