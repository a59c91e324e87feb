package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	GitHub    GitHubConfig    `json:"github"`
	Render    RenderConfig    `json:"render"`
	OpenAI    OpenAIConfig    `json:"openai"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Logging   LoggingConfig   `json:"logging"`
}

type TelegramConfig struct {
	Token     string              `json:"token" env:"REISBOT_TELEGRAM_TOKEN"`
	Proxy     string              `json:"proxy" env:"REISBOT_TELEGRAM_PROXY"`
	AllowFrom FlexibleStringSlice `json:"allow_from" env:"REISBOT_TELEGRAM_ALLOW_FROM"`
}

type GitHubConfig struct {
	Token    string `json:"token" env:"REISBOT_GITHUB_TOKEN"`
	Username string `json:"username" env:"REISBOT_GITHUB_USERNAME"`
}

type RenderConfig struct {
	APIKey      string `json:"api_key" env:"REISBOT_RENDER_API_KEY"`
	OwnerID     string `json:"owner_id" env:"REISBOT_RENDER_OWNER_ID"`
	Branch      string `json:"branch" env:"REISBOT_RENDER_BRANCH"`
	Environment string `json:"environment" env:"REISBOT_RENDER_ENVIRONMENT"`
}

type OpenAIConfig struct {
	APIKey string `json:"api_key" env:"REISBOT_OPENAI_API_KEY"`
	Model  string `json:"model" env:"REISBOT_OPENAI_MODEL"`
}

type SchedulerConfig struct {
	Enabled        bool        `json:"enabled" env:"REISBOT_SCHEDULER_ENABLED"`
	OperatorChatID string      `json:"operator_chat_id" env:"REISBOT_SCHEDULER_OPERATOR_CHAT_ID"`
	Jobs           []JobConfig `json:"jobs"`
}

type JobConfig struct {
	Name string `json:"name"`
	Cron string `json:"cron"`
}

type LoggingConfig struct {
	FileEnabled     bool   `json:"file_enabled" env:"REISBOT_LOGGING_FILE_ENABLED"`
	FilePath        string `json:"file_path" env:"REISBOT_LOGGING_FILE_PATH"`
	RotationEnabled bool   `json:"rotation_enabled" env:"REISBOT_LOGGING_ROTATION_ENABLED"`
	MaxAgeDays      int    `json:"max_age_days" env:"REISBOT_LOGGING_MAX_AGE_DAYS"`
	MaxSizeMB       int    `json:"max_size_mb" env:"REISBOT_LOGGING_MAX_SIZE_MB"`
}

func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			AllowFrom: FlexibleStringSlice{},
		},
		Render: RenderConfig{
			Branch:      "main",
			Environment: "docker",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Scheduler: SchedulerConfig{
			Enabled: false,
			Jobs: []JobConfig{
				{Name: "status_report", Cron: "0 9 * * *"},
			},
		},
		Logging: LoggingConfig{
			FileEnabled:     true,
			FilePath:        "~/.reisbot/reisbot.log",
			RotationEnabled: true,
			MaxAgeDays:      7,
			MaxSizeMB:       50,
		},
	}
}

// LoadConfig reads the JSON config at path (missing file falls back to
// defaults) and applies REISBOT_* environment overrides on top.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Subsystems degrade to a disabled state when their credentials are
// absent; the router checks these before touching a gateway.

func (c *Config) GitHubEnabled() bool {
	return c.GitHub.Token != "" && c.GitHub.Username != ""
}

func (c *Config) RenderEnabled() bool {
	return c.Render.APIKey != "" && c.Render.OwnerID != ""
}

func (c *Config) AIEnabled() bool {
	return c.OpenAI.APIKey != ""
}
