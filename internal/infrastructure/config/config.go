package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Comments  CommentsConfig  `mapstructure:"comments"`
	Templates TemplatesConfig `mapstructure:"templates"`
	Sports    SportsConfig    `mapstructure:"sports"`
	Notify    NotifyConfig    `mapstructure:"notify"`
}

// ServerConfig configures the HTTP interface.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

// DatabaseConfig selects the document store backend.
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // sqlite, postgres
	DSN  string `mapstructure:"dsn"`
}

// LogConfig configures zap output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LLMConfig configures the language-model client.
type LLMConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	PrimaryModel  string        `mapstructure:"primary_model"`
	FallbackModel string        `mapstructure:"fallback_model"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// SchedulerConfig tunes the durable task poller.
type SchedulerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxAttempts  int           `mapstructure:"max_attempts"`
	BatchSize    int           `mapstructure:"batch_size"`
}

// CommentsConfig tunes the elicitation engine.
type CommentsConfig struct {
	LeadTime                 time.Duration `mapstructure:"lead_time"`        // opening question fires this long before generation
	ExpirationLead           time.Duration `mapstructure:"expiration_lead"`  // conversation closes this long before generation
	ReplyDebounce            time.Duration `mapstructure:"reply_debounce"`   // delay before analyzing a reply
	MaxMessages              int           `mapstructure:"max_messages"`
	MinResponseLength        int           `mapstructure:"min_response_length"`
	InactivityTimeoutMinutes int           `mapstructure:"inactivity_timeout_minutes"`
	MaxReplyLength           int           `mapstructure:"max_reply_length"`
}

// TemplatesConfig points at the content template registry file.
type TemplatesConfig struct {
	Path        string `mapstructure:"path"`
	WatchReload bool   `mapstructure:"watch_reload"`
}

// SportsConfig configures the read-only data collaborators.
type SportsConfig struct {
	Mode    string        `mapstructure:"mode"` // http, static
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// NotifyConfig configures the fire-and-forget notification dispatcher.
type NotifyConfig struct {
	Mode       string        `mapstructure:"mode"` // webhook, log
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Load reads configuration. Priority (low → high): defaults → global
// ~/.leaguedesk/config.yaml → ./config.yaml → environment variables
// (LEAGUEDESK_ prefix).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	globalDir := filepath.Join(os.Getenv("HOME"), ".leaguedesk")
	v.AddConfigPath(globalDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read global config: %w", err)
		}
	}

	for _, localDir := range []string{"./config", "."} {
		localPath := filepath.Join(localDir, "config.yaml")
		if _, err := os.Stat(localPath); err == nil {
			v2 := viper.New()
			v2.SetConfigFile(localPath)
			if err := v2.ReadInConfig(); err == nil {
				_ = v.MergeConfigMap(v2.AllSettings())
			}
			break
		}
	}

	v.SetEnvPrefix("LEAGUEDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "leaguedesk.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.primary_model", "gpt-4o")
	v.SetDefault("llm.fallback_model", "gpt-4o-mini")
	v.SetDefault("llm.timeout", 120*time.Second)

	v.SetDefault("scheduler.poll_interval", 2*time.Second)
	v.SetDefault("scheduler.max_attempts", 5)
	v.SetDefault("scheduler.batch_size", 16)

	v.SetDefault("comments.lead_time", 12*time.Hour)
	v.SetDefault("comments.expiration_lead", 15*time.Minute)
	v.SetDefault("comments.reply_debounce", 5*time.Second)
	v.SetDefault("comments.max_messages", 8)
	v.SetDefault("comments.min_response_length", 20)
	v.SetDefault("comments.inactivity_timeout_minutes", 120)
	v.SetDefault("comments.max_reply_length", 4000)

	v.SetDefault("templates.path", "./config/templates.yaml")
	v.SetDefault("templates.watch_reload", true)

	v.SetDefault("sports.mode", "static")
	v.SetDefault("sports.timeout", 15*time.Second)

	v.SetDefault("notify.mode", "log")
	v.SetDefault("notify.timeout", 10*time.Second)
}
