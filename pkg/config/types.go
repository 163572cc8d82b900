package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/openfroyo/channels/pkg/telemetry"
)

// Config is the application configuration of froyo-channels.
type Config struct {
	// CatalogDir holds the channel and provider definitions.
	CatalogDir string `yaml:"catalog_dir" validate:"required"`

	// AptRoot is the directory containing sources.list and sources.list.d.
	AptRoot string `yaml:"apt_root" validate:"required"`

	// ListsDir holds apt's downloaded Release files. Empty disables
	// release-file matching during discovery.
	ListsDir string `yaml:"lists_dir"`

	// PolicyDir holds extra .rego or .json policies. Empty loads builtins only.
	PolicyDir string `yaml:"policy_dir"`

	// History configures the operation history database.
	History HistoryConfig `yaml:"history"`

	// Telemetry configures logging, tracing and metrics.
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// HistoryConfig configures the operation history store.
type HistoryConfig struct {
	// Enabled controls whether operations are recorded.
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file.
	Path string `yaml:"path" validate:"required_if=Enabled true"`

	// Retention removes operations older than this on open. Zero keeps everything.
	Retention time.Duration `yaml:"retention" validate:"gte=0"`
}

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	// Field is the YAML path of the field (e.g. "history.path").
	Field string

	// Rule is the failed validation rule.
	Rule string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is the list of invalid fields of a configuration.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}
