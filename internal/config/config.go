package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds application configuration
type Config struct {
	ListenAddr string `toml:"listen_addr"` // HTTP bind address (e.g., ":8080")
	APIURL     string `toml:"api_url"`     // Base URL of the external chat backend
	SiteURL    string `toml:"site_url"`    // Public site URL, echoed in lead notifications
	DBPath     string `toml:"db_path"`     // SQLite database path
	Debug      bool   `toml:"debug"`

	TypeSpeedMs int `toml:"type_speed_ms"` // Milliseconds per character for the typewriter stream

	// Telegram lead notification credentials
	TelegramBotToken string `toml:"telegram_bot_token"`
	TelegramChatID   string `toml:"telegram_chat_id"`
}

// Default returns the baseline configuration before file and env overrides.
func Default() Config {
	return Config{
		ListenAddr:  ":8080",
		APIURL:      "http://localhost:8000",
		DBPath:      "optimachat.db",
		TypeSpeedMs: 30,
	}
}

// Load builds the configuration from defaults, an optional TOML file, and
// environment variables, in increasing order of precedence.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("SITE_URL"); v != "" {
		c.SiteURL = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.TelegramBotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.TelegramChatID = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.ListenAddr = ":" + v
	}
}
