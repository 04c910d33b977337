package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	UI         UIConfig         `mapstructure:"ui"`
	Log        LogConfig        `mapstructure:"log"`
}

// APIConfig points at the analysis backend.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// UploadConfig tunes the upload progress estimate.
type UploadConfig struct {
	Progress     ProgressConfig `mapstructure:"progress"`
	PublishDelay time.Duration  `mapstructure:"publish_delay"`
}

// ProgressConfig bounds the randomized progress estimator.
type ProgressConfig struct {
	Initial       float64       `mapstructure:"initial"`
	Cap           float64       `mapstructure:"cap"`
	FirstDelayMin time.Duration `mapstructure:"first_delay_min"`
	FirstDelayMax time.Duration `mapstructure:"first_delay_max"`
	MinDelay      time.Duration `mapstructure:"min_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	MinStep       float64       `mapstructure:"min_step"`
	MaxStep       float64       `mapstructure:"max_step"`
}

// SimulationConfig holds what-if defaults.
type SimulationConfig struct {
	DefaultMonths int `mapstructure:"default_months"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	CurrencySymbol string `mapstructure:"currency_symbol"`
	Locale         string `mapstructure:"locale"`
}

// LogConfig holds logger settings. The TUI owns the terminal so logs go to a file.
type LogConfig struct {
	Path   string `mapstructure:"path"`
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://129.213.136.1")
	v.SetDefault("api.timeout", "2m")
	v.SetDefault("upload.progress.initial", 1.0)
	v.SetDefault("upload.progress.cap", 98.0)
	v.SetDefault("upload.progress.first_delay_min", "300ms")
	v.SetDefault("upload.progress.first_delay_max", "800ms")
	v.SetDefault("upload.progress.min_delay", "1s")
	v.SetDefault("upload.progress.max_delay", "5s")
	v.SetDefault("upload.progress.min_step", 1.0)
	v.SetDefault("upload.progress.max_step", 15.0)
	v.SetDefault("upload.publish_delay", "300ms")
	v.SetDefault("simulation.default_months", 12)
	v.SetDefault("ui.currency_symbol", "$")
	v.SetDefault("ui.locale", "en-US")
	v.SetDefault("log.path", filepath.Join(os.TempDir(), "copiloto.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configuration from defaults, an optional TOML file, a .env file
// and the environment. Env var overrides use prefix COPILOTO_.
func Load() (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	cfgPath := os.Getenv("COPILOTO_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "copiloto"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("COPILOTO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects settings the workflow cannot run with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.API.BaseURL) == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api.timeout must be positive"))
	}
	p := c.Upload.Progress
	if p.Initial <= 0 || p.Initial >= p.Cap {
		errs = append(errs, errors.New("upload.progress.initial must be in (0, cap)"))
	}
	if p.Cap <= 0 || p.Cap >= 100 {
		errs = append(errs, errors.New("upload.progress.cap must be in (0, 100)"))
	}
	if p.FirstDelayMin <= 0 || p.FirstDelayMax < p.FirstDelayMin {
		errs = append(errs, errors.New("upload.progress first delay range is invalid"))
	}
	if p.MinDelay <= 0 || p.MaxDelay < p.MinDelay {
		errs = append(errs, errors.New("upload.progress delay range is invalid"))
	}
	if p.MinStep <= 0 || p.MaxStep < p.MinStep {
		errs = append(errs, errors.New("upload.progress step range is invalid"))
	}
	if c.Upload.PublishDelay < 0 {
		errs = append(errs, errors.New("upload.publish_delay must not be negative"))
	}
	if c.Simulation.DefaultMonths < 1 || c.Simulation.DefaultMonths > 60 {
		errs = append(errs, errors.New("simulation.default_months must be in [1, 60]"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
