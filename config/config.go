package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the assistant.
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Display    DisplayConfig    `mapstructure:"display"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server and auth settings.
type ServerConfig struct {
	Address   string `mapstructure:"address"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

func (s ServerConfig) Validate() error {
	if strings.TrimSpace(s.Address) == "" {
		return fmt.Errorf("server.address is required")
	}
	return nil
}

// LLMConfig configures the language-model oracle.
type LLMConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	PlanTemp     float64       `mapstructure:"plan_temperature"`
	ClassifyTemp float64       `mapstructure:"classify_temperature"`
}

// Normalize applies defaults for unset LLM values.
func (c LLMConfig) Normalize() LLMConfig {
	if strings.TrimSpace(c.Model) == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.PlanTemp <= 0 {
		c.PlanTemp = 0.6
	}
	if c.ClassifyTemp <= 0 {
		c.ClassifyTemp = 0.2
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

// CatalogConfig selects the catalog backend and its source file.
type CatalogConfig struct {
	// Backend is "csv" (linear scan), "indexed" (full-text), or "mock".
	Backend    string `mapstructure:"backend"`
	CSVPath    string `mapstructure:"csv_path"`
	MockTarget int    `mapstructure:"mock_target"`
}

// Normalize applies defaults for unset catalog values.
func (c CatalogConfig) Normalize() CatalogConfig {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = "mock"
	}
	if c.MockTarget <= 0 {
		c.MockTarget = 12
	}
	return c
}

func (c CatalogConfig) Validate() error {
	switch c.Backend {
	case "csv", "indexed":
		if strings.TrimSpace(c.CSVPath) == "" {
			return fmt.Errorf("catalog.csv_path required for the %s backend", c.Backend)
		}
	case "mock":
	default:
		return fmt.Errorf("catalog.backend must be csv, indexed or mock, got %q", c.Backend)
	}
	return nil
}

// RetrievalConfig tunes the variant generator.
type RetrievalConfig struct {
	VariantsGoal int `mapstructure:"variants_goal"`
}

// Normalize clamps the variant goal to a supported tier.
func (c RetrievalConfig) Normalize() RetrievalConfig {
	switch {
	case c.VariantsGoal >= 40:
		c.VariantsGoal = 40
	case c.VariantsGoal >= 30:
		c.VariantsGoal = 30
	default:
		c.VariantsGoal = 25
	}
	return c
}

// DisplayConfig controls how listings render.
type DisplayConfig struct {
	ShowPrices bool   `mapstructure:"show_prices"`
	Currency   string `mapstructure:"currency"`
}

// Normalize applies defaults for unset display values.
func (c DisplayConfig) Normalize() DisplayConfig {
	if strings.TrimSpace(c.Currency) == "" {
		c.Currency = "AR$"
	}
	return c
}

// EnrichmentConfig configures the optional live price/stock hydrator.
type EnrichmentConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// TelemetryConfig contains monitoring settings.
type TelemetryConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port"`
}

func (t TelemetryConfig) Validate() error {
	if t.Enabled && t.MetricsPort <= 0 {
		return fmt.Errorf("telemetry.metrics_port must be > 0 when telemetry is enabled")
	}
	return nil
}

// LoadConfig loads config from file. A missing config file is fine: every
// setting has a default or an environment override (FELIA_*).
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("catalog.backend", "mock")
	viper.SetDefault("catalog.mock_target", 12)
	viper.SetDefault("retrieval.variants_goal", 25)
	viper.SetDefault("display.show_prices", true)
	viper.SetDefault("display.currency", "AR$")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.timeout", 20*time.Second)
	viper.SetDefault("llm.plan_temperature", 0.6)
	viper.SetDefault("llm.classify_temperature", 0.2)
	viper.SetDefault("llm.max_retries", 0)
	// Empty defaults keep AutomaticEnv keys visible to Unmarshal.
	viper.SetDefault("server.jwt_secret", "")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.base_url", "")
	viper.SetDefault("catalog.csv_path", "")
	viper.SetDefault("enrichment.endpoint", "")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("FELIA")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv() // read in environment variables that match (FELIA_*)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	config.LLM = config.LLM.Normalize()
	config.Catalog = config.Catalog.Normalize()
	config.Retrieval = config.Retrieval.Normalize()
	config.Display = config.Display.Normalize()

	if err := config.Server.Validate(); err != nil {
		panic(err)
	}
	if err := config.Catalog.Validate(); err != nil {
		panic(err)
	}
	if err := config.Telemetry.Validate(); err != nil {
		panic(err)
	}
	return &config
}
