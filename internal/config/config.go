// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	OpenAI OpenAIConfig `yaml:"openai" mapstructure:"openai"`
	Budget BudgetConfig `yaml:"budget" mapstructure:"budget"`
	Rewe   ReweConfig   `yaml:"rewe" mapstructure:"rewe"`
	Auth   AuthConfig   `yaml:"auth" mapstructure:"auth"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// OpenAIConfig holds the model endpoint settings and token prices.
type OpenAIConfig struct {
	Key           string  `yaml:"key" mapstructure:"key"`
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	Model         string  `yaml:"model" mapstructure:"model"`
	MaxChars      int     `yaml:"max_chars" mapstructure:"max_chars"`
	InputPerMTok  float64 `yaml:"input_per_mtok" mapstructure:"input_per_mtok"`
	OutputPerMTok float64 `yaml:"output_per_mtok" mapstructure:"output_per_mtok"`
}

// BudgetConfig holds the daily spend caps in dollars.
type BudgetConfig struct {
	DeploymentDailyDollar float64 `yaml:"deployment_daily_dollar" mapstructure:"deployment_daily_dollar"`
	UserDailyDollar       float64 `yaml:"user_daily_dollar" mapstructure:"user_daily_dollar"`
}

// ReweConfig holds the retailer search settings.
type ReweConfig struct {
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	Market  string  `yaml:"market" mapstructure:"market"`
	RPS     float64 `yaml:"rps" mapstructure:"rps"`
}

// AuthConfig holds session settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int `yaml:"port" mapstructure:"port"`
	RequestTimeout int `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("EINKAUF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 1313)
	v.SetDefault("server.request_timeout_secs", 30)
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_chars", 16000)
	v.SetDefault("openai.input_per_mtok", 15.0)
	v.SetDefault("openai.output_per_mtok", 60.0)
	v.SetDefault("budget.deployment_daily_dollar", 1.0)
	v.SetDefault("budget.user_daily_dollar", 0.1)
	v.SetDefault("rewe.base_url", "https://shop.rewe.de")
	v.SetDefault("rewe.market", "540528")
	v.SetDefault("rewe.rps", 2.0)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
