package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"EsgPulse/internal/domain/models"
	"EsgPulse/internal/services/validation"
	"EsgPulse/pkg/util"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Logging     struct {
		Level      string `yaml:"level" default:"info"`
		Format     string `yaml:"format" default:"console"`
		Output     string `yaml:"output" default:"stdout"`
		TimeFormat string `yaml:"time_format"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"metrics"`
	Pipeline struct {
		// Stage toggles are pointers so an explicit `false` survives
		// default filling.
		TimeFeatures     *bool    `yaml:"time_features" default:"true"`
		LagFeatures      *bool    `yaml:"lag_features" default:"true"`
		RollingFeatures  *bool    `yaml:"rolling_features" default:"true"`
		DomainRatios     *bool    `yaml:"domain_ratios" default:"true"`
		Interactions     bool     `yaml:"interactions"`
		LagPeriods       []int    `yaml:"lag_periods"`
		WindowSizes      []int    `yaml:"window_sizes"`
		InteractionDepth int      `yaml:"interaction_depth" default:"2"`
		TargetVariable   string   `yaml:"target_variable"`
		MaxFeatures      int      `yaml:"max_features"`
		TrackedMetrics   []string `yaml:"tracked_metrics"`
	} `yaml:"pipeline"`
	Validation validation.Config             `yaml:"validation"`
	Models     map[string]models.ModelConfig `yaml:"models"`
	Anomaly    struct {
		Contamination float64 `yaml:"contamination" default:"0.1"`
		NEstimators   int     `yaml:"n_estimators" default:"100"`
		SampleSize    int     `yaml:"sample_size" default:"256"`
		HiddenSizes   []int   `yaml:"hidden_sizes"`
		Epochs        int     `yaml:"epochs" default:"30"`
	} `yaml:"anomaly"`
	Training struct {
		Parallel   bool          `yaml:"parallel"`
		Workers    int           `yaml:"workers" default:"2"`
		RetryLimit int           `yaml:"retry_limit" default:"1"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"5s"`
	} `yaml:"training"`
	Storage struct {
		ModelDir string `yaml:"model_dir" default:"./models"`
	} `yaml:"storage"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"esgpulse"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("ESGPULSE_MODEL_DIR"); v != "" {
		c.Storage.ModelDir = v
	}
	if v := os.Getenv("ESGPULSE_CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("ESGPULSE_TRAINING_WORKERS"); v != "" {
		c.Training.Workers = util.ParseIntDefault(v, c.Training.Workers)
	}
	if v := os.Getenv("ESGPULSE_TRACKED_METRICS"); v != "" {
		c.Pipeline.TrackedMetrics = strings.Split(v, ",")
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	for _, k := range c.Pipeline.LagPeriods {
		if k <= 0 {
			return fmt.Errorf("pipeline.lag_periods must be positive, got %d", k)
		}
	}
	for _, w := range c.Pipeline.WindowSizes {
		if w <= 0 {
			return fmt.Errorf("pipeline.window_sizes must be positive, got %d", w)
		}
	}
	if c.Pipeline.Interactions && c.Pipeline.InteractionDepth < 2 {
		return fmt.Errorf("pipeline.interaction_depth must be >= 2, got %d", c.Pipeline.InteractionDepth)
	}
	if c.Anomaly.Contamination <= 0 || c.Anomaly.Contamination >= 0.5 {
		return fmt.Errorf("anomaly.contamination must be in (0, 0.5), got %v", c.Anomaly.Contamination)
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}
