package config

import (
	"fmt"
	"os"
	"strings"

	"HoldCrypt/internal/model"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Market struct {
		BaseURL string `yaml:"base_url"`
		Depth   int    `yaml:"depth"`
		Retries int    `yaml:"retries"`
	} `yaml:"market"`
	Refresh struct {
		Cron  string          `yaml:"cron"`
		Coins []model.CoinRef `yaml:"coins"`
	} `yaml:"refresh"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	CORS struct {
		AllowOrigin string `yaml:"allow_origin"`
	} `yaml:"cors"`
	Display struct {
		Currency string `yaml:"currency"`
	} `yaml:"display"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("BINANCE_BASE_URL"); v != "" {
		cfg.Market.BaseURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("CRON_REFRESH"); v != "" {
		cfg.Refresh.Cron = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("CORS_ALLOW_ORIGIN"); v != "" {
		cfg.CORS.AllowOrigin = v
	}

	// Defaults
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/holdcrypt.db"
	}
	if cfg.Market.BaseURL == "" {
		cfg.Market.BaseURL = "https://api.binance.com"
	}
	if cfg.Market.Depth == 0 {
		cfg.Market.Depth = 50
	}
	if cfg.Market.Retries == 0 {
		cfg.Market.Retries = 2
	}
	if cfg.Refresh.Cron == "" {
		cfg.Refresh.Cron = "0 */5 * * * *"
	}
	if cfg.Display.Currency == "" {
		cfg.Display.Currency = "AUD"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Market.Depth < 1 || c.Market.Depth > 5000 {
		return fmt.Errorf("market.depth must be between 1 and 5000")
	}
	if c.Market.Retries < 0 {
		return fmt.Errorf("market.retries must not be negative")
	}
	if _, err := cron.NewParser(cronFields).Parse(c.Refresh.Cron); err != nil {
		return fmt.Errorf("refresh.cron: %w", err)
	}
	seen := make(map[string]bool, len(c.Refresh.Coins))
	for i, coin := range c.Refresh.Coins {
		if strings.TrimSpace(coin.Symbol) == "" || strings.TrimSpace(coin.Name) == "" {
			return fmt.Errorf("refresh.coins[%d]: name and symbol are required", i)
		}
		if seen[coin.Symbol] {
			return fmt.Errorf("refresh.coins[%d]: duplicate symbol %s", i, coin.Symbol)
		}
		seen[coin.Symbol] = true
	}
	if len(c.Display.Currency) != 3 {
		return fmt.Errorf("display.currency must be an ISO 4217 code")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether failure alerts should be sent.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// cronFields matches cron.WithSeconds, which the scheduler uses.
const cronFields = cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor
