package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/maastricht-university/edmo-der/der"
)

type Service struct {
	URL string `mapstructure:"url" yaml:"url"`
}
type Services struct {
	Diarization    Service `mapstructure:"diarization" yaml:"diarization"`
	Visualization  Service `mapstructure:"visualization" yaml:"visualization"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}
type Scoring struct {
	Collar   float64 `mapstructure:"collar" yaml:"collar"`
	TieBreak string  `mapstructure:"tie_break" yaml:"tie_break"`
}
type Root struct {
	Pipeline struct {
		Name      string `mapstructure:"name" yaml:"name"`
		Version   string `mapstructure:"version" yaml:"version"`
		LogLvl    string `mapstructure:"log_level" yaml:"log_level"`
		LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	} `mapstructure:"pipeline" yaml:"pipeline"`
	Scoring  Scoring  `mapstructure:"scoring" yaml:"scoring"`
	Services Services `mapstructure:"services" yaml:"services"`
	Paths    struct {
		Outputs string `mapstructure:"outputs" yaml:"outputs"`
	} `mapstructure:"paths" yaml:"paths"`
	Batch struct {
		Workers int `mapstructure:"workers" yaml:"workers"`
	} `mapstructure:"batch" yaml:"batch"`
	Metrics struct {
		Textfile string `mapstructure:"textfile" yaml:"textfile"`
	} `mapstructure:"metrics" yaml:"metrics"`

	// File is the config file that was read, empty when only defaults and
	// environment were used.
	File string `mapstructure:"-" yaml:"-"`
}

const envPrefix = "EDMO"

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.name", "edmo-der")
	v.SetDefault("pipeline.version", "dev")
	v.SetDefault("pipeline.log_level", "info")
	v.SetDefault("pipeline.log_format", "text")
	v.SetDefault("scoring.collar", 0.0)
	v.SetDefault("scoring.tie_break", "insertion")
	v.SetDefault("services.diarization.url", "")
	v.SetDefault("services.visualization.url", "")
	v.SetDefault("services.timeout_seconds", 60)
	v.SetDefault("paths.outputs", "outputs")
	v.SetDefault("batch.workers", 4)
	v.SetDefault("metrics.textfile", "")
}

// Load reads path when given, otherwise the first of
// config/<CONFIG_ENV>/config.yaml and src/shared/config.yaml that exists.
// A missing default file is not an error. EDMO_* variables override file
// values, e.g. EDMO_SCORING_COLLAR.
func Load(path string) (*Root, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = guess()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Root
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func guess() string {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	for _, p := range []string{
		filepath.Join("config", env, "config.yaml"),
		filepath.Join("src", "shared", "config.yaml"),
	} {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}

func (c *Root) Validate() error {
	var errs []error
	if c.Scoring.Collar < 0 {
		errs = append(errs, fmt.Errorf("scoring.collar must be >= 0, got %v", c.Scoring.Collar))
	}
	if _, err := der.ParseTieBreak(c.Scoring.TieBreak); err != nil {
		errs = append(errs, fmt.Errorf("scoring.tie_break: %w", err))
	}
	if c.Batch.Workers < 1 {
		errs = append(errs, fmt.Errorf("batch.workers must be >= 1, got %d", c.Batch.Workers))
	}
	if c.Services.TimeoutSeconds < 1 {
		errs = append(errs, fmt.Errorf("services.timeout_seconds must be >= 1, got %d", c.Services.TimeoutSeconds))
	}
	return errors.Join(errs...)
}

// Options turns the scoring section into der options.
func (s Scoring) Options() (der.Options, error) {
	tb, err := der.ParseTieBreak(s.TieBreak)
	if err != nil {
		return der.Options{}, err
	}
	return der.Options{Collar: s.Collar, TieBreak: tb}, nil
}

func (s Services) Timeout() time.Duration { return DurSeconds(s.TimeoutSeconds) }

func DurSeconds(n int) time.Duration { return time.Duration(n) * time.Second }
