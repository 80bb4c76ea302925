// Package config provides configuration loading and management for ddicdi.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	errs "github.com/c360studio/semstreams/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a configuration fails validation. It is
// the shared semstreams sentinel, so errs.IsFatal reports it.
var ErrInvalidConfig = errs.ErrInvalidConfig

var validate = validator.New()

// Config represents the complete ddicdi configuration
type Config struct {
	Output  OutputConfig  `yaml:"output"`
	Rows    RowsConfig    `yaml:"rows"`
	Input   InputConfig   `yaml:"input"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// OutputConfig configures serialization
type OutputConfig struct {
	// Format is the output format name or alias (default: jsonld)
	Format string `yaml:"format" validate:"required,oneof=jsonld json-ld json xml turtle ttl ntriples n-triples nt"`
	// Dir is the output directory (empty = next to the input file)
	Dir string `yaml:"dir"`
	// BaseURI resolves fragment identifiers in Turtle and N-Triples
	BaseURI string `yaml:"base_uri" validate:"required,url"`
	// Agency is the registration authority written into XML identifiers
	Agency string `yaml:"agency" validate:"required"`
}

// RowsConfig configures how many data rows become per-row nodes
type RowsConfig struct {
	// MaxRows caps processed rows (default: 5)
	MaxRows int `yaml:"max_rows" validate:"gte=1"`
	// ProcessAll ignores MaxRows and processes every row in chunks
	ProcessAll bool `yaml:"process_all"`
	// ChunkSize is the number of rows per chunk when ProcessAll is set
	ChunkSize int `yaml:"chunk_size" validate:"gte=1"`
}

// InputConfig configures the file readers
type InputConfig struct {
	// Encodings are the candidate text encodings, tried in order
	Encodings []string `yaml:"encodings" validate:"omitempty,dive,required"`
	// CSVDelimiter is a single character separator (empty = sniff)
	CSVDelimiter string `yaml:"csv_delimiter" validate:"omitempty,len=1"`
	// DecomposeKeys splits flat JSON map keys into key_1..key_n columns
	DecomposeKeys bool `yaml:"decompose_keys"`
	// DefaultRole is the role of variables absent from Roles (empty = by format)
	DefaultRole string `yaml:"default_role" validate:"omitempty,oneof=identifier measure attribute"`
	// Roles maps variable names to comma separated role lists
	Roles map[string]string `yaml:"roles"`
}

// MetricsConfig configures the Prometheus textfile export
type MetricsConfig struct {
	// Textfile is the path metrics are written to after a run (empty = disabled)
	Textfile string `yaml:"textfile"`
}

// LogConfig configures the structured logger
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Format:  "jsonld",
			BaseURI: "http://example.org/ddi/",
			Agency:  "int.esseric",
		},
		Rows: RowsConfig{
			MaxRows:   5,
			ChunkSize: 1000,
		},
		Input: InputConfig{
			Encodings: []string{"utf-8", "windows-1252", "iso-8859-1"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, describe(err))
	}
	return nil
}

// describe renders validator errors as "output.base_uri: must be a url".
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := yamlPath(e.Namespace())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", field, e.Param()))
		case "url":
			msgs = append(msgs, field+" must be an absolute URL")
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, e.Param()))
		case "len":
			msgs = append(msgs, fmt.Sprintf("%s must be %s character long", field, e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, e.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// yamlPath maps a validator namespace such as Config.Output.BaseURI to the
// YAML key path output.base_uri.
func yamlPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

var yamlKeys = map[string]string{
	"BaseURI":      "base_uri",
	"MaxRows":      "max_rows",
	"ProcessAll":   "process_all",
	"ChunkSize":    "chunk_size",
	"CSVDelimiter": "csv_delimiter",
	"DefaultRole":  "default_role",
}

func snake(field string) string {
	if k, ok := yamlKeys[field]; ok {
		return k
	}
	return strings.ToLower(field)
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Output
	if other.Output.Format != "" {
		c.Output.Format = other.Output.Format
	}
	if other.Output.Dir != "" {
		c.Output.Dir = other.Output.Dir
	}
	if other.Output.BaseURI != "" {
		c.Output.BaseURI = other.Output.BaseURI
	}
	if other.Output.Agency != "" {
		c.Output.Agency = other.Output.Agency
	}

	// Rows
	if other.Rows.MaxRows != 0 {
		c.Rows.MaxRows = other.Rows.MaxRows
	}
	if other.Rows.ProcessAll {
		c.Rows.ProcessAll = true
	}
	if other.Rows.ChunkSize != 0 {
		c.Rows.ChunkSize = other.Rows.ChunkSize
	}

	// Input
	if len(other.Input.Encodings) > 0 {
		c.Input.Encodings = other.Input.Encodings
	}
	if other.Input.CSVDelimiter != "" {
		c.Input.CSVDelimiter = other.Input.CSVDelimiter
	}
	if other.Input.DecomposeKeys {
		c.Input.DecomposeKeys = true
	}
	if other.Input.DefaultRole != "" {
		c.Input.DefaultRole = other.Input.DefaultRole
	}
	if len(other.Input.Roles) > 0 {
		if c.Input.Roles == nil {
			c.Input.Roles = make(map[string]string, len(other.Input.Roles))
		}
		for k, v := range other.Input.Roles {
			c.Input.Roles[k] = v
		}
	}

	// Metrics
	if other.Metrics.Textfile != "" {
		c.Metrics.Textfile = other.Metrics.Textfile
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
}
