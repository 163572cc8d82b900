package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/channels/pkg/sources"
	"github.com/openfroyo/channels/pkg/telemetry"
)

const (
	// DefaultPath is read when no configuration file is given.
	DefaultPath = "/etc/froyo-channels/config.yaml"

	// DefaultCatalogDir is the default location of channel definitions.
	DefaultCatalogDir = "/usr/share/froyo-channels/channels"

	// DefaultAptRoot is the default apt configuration directory.
	DefaultAptRoot = "/etc/apt"

	// DefaultHistoryPath is the default operation history database.
	DefaultHistoryPath = "/var/lib/froyo-channels/history.db"

	// EnvConfigPath overrides the configuration file location.
	EnvConfigPath = "FROYO_CHANNELS_CONFIG"

	// EnvLogLevel overrides the configured log level.
	EnvLogLevel = "LOG_LEVEL"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CatalogDir: DefaultCatalogDir,
		AptRoot:    DefaultAptRoot,
		ListsDir:   sources.DefaultListsDir,
		History: HistoryConfig{
			Enabled: true,
			Path:    DefaultHistoryPath,
		},
		Telemetry: *telemetry.DefaultConfig(),
	}
}

// Load reads the configuration at path over the defaults, applies environment
// overrides and validates the result. An empty path falls back to
// $FROYO_CHANNELS_CONFIG, then to DefaultPath if it exists, then to defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = os.Getenv(EnvConfigPath)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		cfg.resolvePaths(filepath.Dir(path))
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// Built-in defaults.
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads a YAML configuration over the defaults without touching the
// environment or validating.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(r); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// resolvePaths makes relative paths relative to the configuration file.
func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{&c.CatalogDir, &c.AptRoot, &c.ListsDir, &c.PolicyDir, &c.History.Path} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// ApplyEnv applies environment overrides.
func (c *Config) ApplyEnv() {
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Telemetry.Logging.Level = level
	}
}

// Validate checks struct rules and the telemetry section.
func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		out := make(ValidationErrors, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, ValidationError{
				Field:   fieldPath(fe.Namespace()),
				Rule:    fe.Tag(),
				Message: describe(fe),
			})
		}
		return out
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("invalid telemetry configuration: %w", err)
	}
	return nil
}

// newValidator reports fields by their YAML names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
