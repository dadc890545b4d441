package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	LLM struct {
		Provider        string        `mapstructure:"provider"`
		Model           string        `mapstructure:"model"`
		APIKey          string        `mapstructure:"api_key"`
		BaseURL         string        `mapstructure:"base_url"`
		MaxOutputTokens int           `mapstructure:"max_output_tokens"`
		Timeout         time.Duration `mapstructure:"timeout"`
		RetryAttempts   int           `mapstructure:"retry_attempts"`
	} `mapstructure:"llm"`
	Providers struct {
		SearchConsoleURL   string        `mapstructure:"search_console_url"`
		KeywordResearchURL string        `mapstructure:"keyword_research_url"`
		KeywordResearchKey string        `mapstructure:"keyword_research_key"`
		Timeout            time.Duration `mapstructure:"timeout"`
		RetryCount         int           `mapstructure:"retry_count"`
		OAuth              struct {
			ClientID     string `mapstructure:"client_id"`
			ClientSecret string `mapstructure:"client_secret"`
			TokenURL     string `mapstructure:"token_url"`
		} `mapstructure:"oauth"`
	} `mapstructure:"providers"`
	Compliance struct {
		SemanticExcerptRunes int `mapstructure:"semantic_excerpt_runes"`
		SemanticMaxTokens    int `mapstructure:"semantic_max_tokens"`
	} `mapstructure:"compliance"`
	Workflow struct {
		NodeTimeout        time.Duration `mapstructure:"node_timeout"`
		MaxRewriteAttempts int           `mapstructure:"max_rewrite_attempts"`
	} `mapstructure:"workflow"`
	Scholar struct {
		LookbackDays  int `mapstructure:"lookback_days"`
		MinVolume     int `mapstructure:"min_volume"`
		MaxDifficulty int `mapstructure:"max_difficulty"`
	} `mapstructure:"scholar"`
	Conductor struct {
		MaxTopics int `mapstructure:"max_topics"`
	} `mapstructure:"conductor"`
	Scheduler struct {
		Enabled       bool   `mapstructure:"enabled"`
		Spec          string `mapstructure:"spec"`
		MaxConcurrent int    `mapstructure:"max_concurrent"`
	} `mapstructure:"scheduler"`
	Server struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"server"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
	Logging struct {
		Level string `mapstructure:"level"`
		JSON  bool   `mapstructure:"json"`
	} `mapstructure:"logging"`
}

// DSN returns the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode,
	)
}

// LoadConfig loads the configuration from a file and the environment.
// An empty path searches ./config.yaml and ./config/config.yaml; a missing
// file is not an error because every key has a default.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("SEOAGENTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.name", "seo_agents")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.max_output_tokens", 3000)
	v.SetDefault("llm.timeout", 90*time.Second)
	v.SetDefault("llm.retry_attempts", 2)

	v.SetDefault("providers.timeout", 20*time.Second)
	v.SetDefault("providers.retry_count", 2)
	v.SetDefault("providers.oauth.token_url", "https://oauth2.googleapis.com/token")

	v.SetDefault("compliance.semantic_excerpt_runes", 6000)
	v.SetDefault("compliance.semantic_max_tokens", 800)

	v.SetDefault("workflow.node_timeout", 3*time.Minute)
	v.SetDefault("workflow.max_rewrite_attempts", 2)

	v.SetDefault("scholar.lookback_days", 90)
	v.SetDefault("scholar.min_volume", 20)
	v.SetDefault("scholar.max_difficulty", 60)

	v.SetDefault("conductor.max_topics", 2)

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.spec", "0 6 * * 1")
	v.SetDefault("scheduler.max_concurrent", 4)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("logging.level", "info")
}

func (c *Config) validate() error {
	if c.LLM.MaxOutputTokens <= 0 {
		return errors.New("llm.max_output_tokens must be positive")
	}
	if c.Workflow.MaxRewriteAttempts < 0 || c.Workflow.MaxRewriteAttempts > 2 {
		return errors.New("workflow.max_rewrite_attempts must be between 0 and 2")
	}
	if c.Conductor.MaxTopics <= 0 {
		return errors.New("conductor.max_topics must be positive")
	}
	if c.Scheduler.MaxConcurrent <= 0 {
		return errors.New("scheduler.max_concurrent must be positive")
	}
	return nil
}
