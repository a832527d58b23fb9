// Package config loads plantreco settings from defaults, an optional YAML
// file and PLANTRECO_* environment variables, in increasing priority.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	prErrors "github.com/ezoic/plantreco/pkg/errors"
	"github.com/ezoic/plantreco/plant"
	"github.com/ezoic/plantreco/recommend"
	"github.com/ezoic/plantreco/training"
)

// EnvPrefix prefixes every environment override, e.g. PLANTRECO_SERVER_ADDR.
const EnvPrefix = "PLANTRECO_"

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "PLANTRECO_CONFIG"

// DefaultConfigPaths are searched in order when ConfigPathEnvVar is unset.
var DefaultConfigPaths = []string{
	"plantreco.yaml",
	"plantreco.yml",
}

// Config is the full application configuration.
type Config struct {
	Paths    PathsConfig    `koanf:"paths"`
	Training TrainingConfig `koanf:"training"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// PathsConfig locates datasets and artifacts.
type PathsConfig struct {
	RawCatalog      string `koanf:"raw_catalog" validate:"required"`
	Cleaned         string `koanf:"cleaned" validate:"required"`
	Preprocessor    string `koanf:"preprocessor" validate:"required"`
	Model           string `koanf:"model" validate:"required"`
	Feedback        string `koanf:"feedback" validate:"required"`
	ImportanceChart string `koanf:"importance_chart"` // empty disables the chart
}

// TrainingConfig holds the classifier hyperparameters.
type TrainingConfig struct {
	NEstimators int     `koanf:"n_estimators" validate:"min=1"`
	TestSize    float64 `koanf:"test_size" validate:"gt=0,lt=1"`
	RandomState int64   `koanf:"random_state" validate:"min=0"`
	ClassWeight string  `koanf:"class_weight" validate:"omitempty,oneof=balanced"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// CORSAllowedOrigins lists the origins allowed to call the API.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// RateLimitRequests per RateLimitWindow and client IP on /api/v1; 0 disables it.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"required_with=RateLimitRequests"`
}

// LoggingConfig configures pkg/log.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=console json"`
}

// Default returns the built-in configuration, laid out like the project tree.
func Default() *Config {
	def := training.DefaultConfig()
	return &Config{
		Paths: PathsConfig{
			RawCatalog:      "data/all_plant_details.csv",
			Cleaned:         "data/plantes_nettoyees.csv",
			Preprocessor:    "model/preprocesseur.gob",
			Model:           "model/modele_plantes.gob",
			Feedback:        "feedback/feedback_utilisateurs.csv",
			ImportanceChart: "model/importances.png",
		},
		Training: TrainingConfig{
			NEstimators: def.NEstimators,
			TestSize:    def.TestSize,
			RandomState: def.RandomState,
			ClassWeight: def.ClassWeight,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,

			CORSAllowedOrigins: []string{"*"},
			RateLimitRequests:  120,
			RateLimitWindow:    time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// PLANTRECO_CONFIG or the first of DefaultConfigPaths that exists, then
// PLANTRECO_* environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, prErrors.Wrap(err, "failed to load defaults")
	}

	// Layer 2: config file (optional)
	path, err := findConfigFile()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, prErrors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	// Layer 3: environment
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, prErrors.Wrap(err, "failed to load environment variables")
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, prErrors.Wrap(err, "failed to unmarshal configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile returns the config file to load, or "" when there is none.
// An explicit PLANTRECO_CONFIG that does not exist is an error.
func findConfigFile() (string, error) {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", prErrors.Wrapf(err, "config file %s", p)
		}
		return p, nil
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// envTransformFunc maps PLANTRECO_SECTION_SOME_KEY to section.some_key.
// PLANTRECO_CONFIG itself is not a setting and is dropped.
func envTransformFunc(key string) string {
	if key == ConfigPathEnvVar {
		return ""
	}
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, rest, ok := strings.Cut(key, "_")
	if !ok {
		return key
	}
	return section + "." + rest
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return prErrors.Wrap(err, "configuration validation failed")
	}
	return nil
}

// CleanPaths returns the files used by the cleaning step.
func (c *Config) CleanPaths() plant.CleanPaths {
	return plant.CleanPaths{
		RawCatalog:   c.Paths.RawCatalog,
		Cleaned:      c.Paths.Cleaned,
		Preprocessor: c.Paths.Preprocessor,
	}
}

// TrainingPaths returns the files used by the training step.
func (c *Config) TrainingPaths() training.Paths {
	return training.Paths{
		Cleaned:         c.Paths.Cleaned,
		Preprocessor:    c.Paths.Preprocessor,
		Model:           c.Paths.Model,
		ImportanceChart: c.Paths.ImportanceChart,
	}
}

// TrainerConfig returns the training hyperparameters.
func (c *Config) TrainerConfig() training.Config {
	return training.Config{
		NEstimators: c.Training.NEstimators,
		TestSize:    c.Training.TestSize,
		RandomState: c.Training.RandomState,
		ClassWeight: c.Training.ClassWeight,
	}
}

// ServingPaths returns the artifacts loaded by the server.
func (c *Config) ServingPaths() recommend.Paths {
	return recommend.Paths{
		Cleaned:      c.Paths.Cleaned,
		Preprocessor: c.Paths.Preprocessor,
		Model:        c.Paths.Model,
	}
}
