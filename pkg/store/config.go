package store

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config keys. Nested keys map to STEPPER_<SECTION>_<KEY> environment
// variables.
const (
	KeyAddr          = "addr"
	KeyHistoryPath   = "history.path"
	KeyPollInterval  = "tracker.poll_interval"
	KeyRetryInterval = "tracker.retry_interval"
	KeyPixelsPerStep = "tracker.pixels_per_step"
	KeyEmitInterval  = "emit_interval"
	KeyPetWindow     = "windows.pet"
	KeyPointer       = "pointer"
	KeyLogLevel      = "log.level"
	KeyLogFile       = "log.file"
)

// Pointer sources.
const (
	PointerRobot     = "robot"
	PointerSimulated = "simulated"
)

// Config is the resolved stepper configuration.
type Config struct {
	Addr          string        `json:"addr" yaml:"addr"`
	HistoryPath   string        `json:"history_path" yaml:"history_path"`
	PollInterval  time.Duration `json:"poll_interval" yaml:"poll_interval"`
	RetryInterval time.Duration `json:"retry_interval" yaml:"retry_interval"`
	PixelsPerStep float64       `json:"pixels_per_step" yaml:"pixels_per_step"`
	EmitInterval  time.Duration `json:"emit_interval" yaml:"emit_interval"`
	PetWindow     bool          `json:"pet_window" yaml:"pet_window"`
	Pointer       string        `json:"pointer" yaml:"pointer"`
	LogLevel      string        `json:"log_level" yaml:"log_level"`
	LogFile       string        `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	// File is the config file that was read, empty when none was found.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// BasePath is where the history store lives.
func (c *Config) BasePath() string {
	return c.HistoryPath
}

// SetDefaults installs the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyAddr, "127.0.0.1:7419")
	v.SetDefault(KeyHistoryPath, "~/.stepper.db")
	v.SetDefault(KeyPollInterval, 50*time.Millisecond)
	v.SetDefault(KeyRetryInterval, 5*time.Second)
	v.SetDefault(KeyPixelsPerStep, 100.0)
	v.SetDefault(KeyEmitInterval, time.Second)
	v.SetDefault(KeyPetWindow, true)
	v.SetDefault(KeyPointer, PointerRobot)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
}

// LoadConfig reads configuration into the global viper instance. A
// .stepper.yaml is looked up in $STEPPER_CONFIG_PATH, the working directory
// and the home directory; a missing file is not an error.
func LoadConfig() (*Config, error) {
	return loadConfig(viper.GetViper())
}

func loadConfig(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetConfigName(".stepper") // .yaml is implicit
	v.SetEnvPrefix("STEPPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if override := os.Getenv("STEPPER_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(home)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("store: read config: %w", err)
		}
	}
	return ConfigFromViper(v)
}

// ConfigFromViper resolves a Config from an already loaded viper instance.
func ConfigFromViper(v *viper.Viper) (*Config, error) {
	path, err := homedir.Expand(v.GetString(KeyHistoryPath))
	if err != nil {
		return nil, fmt.Errorf("store: expand history path: %w", err)
	}
	cfg := &Config{
		Addr:          v.GetString(KeyAddr),
		HistoryPath:   path,
		PollInterval:  v.GetDuration(KeyPollInterval),
		RetryInterval: v.GetDuration(KeyRetryInterval),
		PixelsPerStep: v.GetFloat64(KeyPixelsPerStep),
		EmitInterval:  v.GetDuration(KeyEmitInterval),
		PetWindow:     v.GetBool(KeyPetWindow),
		Pointer:       strings.ToLower(strings.TrimSpace(v.GetString(KeyPointer))),
		LogLevel:      v.GetString(KeyLogLevel),
		LogFile:       v.GetString(KeyLogFile),
		File:          v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("store: %s must not be empty", KeyAddr)
	case c.PollInterval <= 0:
		return fmt.Errorf("store: %s must be positive", KeyPollInterval)
	case c.RetryInterval <= 0:
		return fmt.Errorf("store: %s must be positive", KeyRetryInterval)
	case c.EmitInterval <= 0:
		return fmt.Errorf("store: %s must be positive", KeyEmitInterval)
	case c.PixelsPerStep <= 0:
		return fmt.Errorf("store: %s must be positive", KeyPixelsPerStep)
	}
	switch c.Pointer {
	case PointerRobot, PointerSimulated:
	default:
		return fmt.Errorf("store: %s must be %q or %q, got %q", KeyPointer, PointerRobot, PointerSimulated, c.Pointer)
	}
	return nil
}
