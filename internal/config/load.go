package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "INFOPANEL_"

// Load returns the defaults overlaid with the TOML file at path and the
// environment. A missing file is not an error. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return parse(cfg, path, data)
}

// parse decodes data over cfg. Keys absent from data keep their current value.
func parse(cfg *Config, source string, data []byte) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return &ParseError{
				Path:    source,
				Message: strict.String(),
				Err:     ErrUnknownField,
			}
		}

		perr := &ParseError{Path: source, Message: err.Error(), Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			perr.Line, perr.Column = derr.Position()
		}
		return perr
	}
	return nil
}

// envBinding maps one variable (without prefix) to a setter.
type envBinding struct {
	name string
	set  func(cfg *Config, value string) error
}

func stringBinding(name string, field func(*Config) *string) envBinding {
	return envBinding{name: name, set: func(cfg *Config, v string) error {
		*field(cfg) = v
		return nil
	}}
}

var envBindings = []envBinding{
	stringBinding("LOG_LEVEL", func(c *Config) *string { return &c.Logging.Level }),
	stringBinding("LOG_FILE", func(c *Config) *string { return &c.Logging.File }),
	stringBinding("ADAPTER_ID", func(c *Config) *string { return &c.Adapter.ID }),
	stringBinding("ADAPTER_ADDRESS", func(c *Config) *string { return &c.Adapter.Address }),
	stringBinding("ADAPTER_REQUEST", func(c *Config) *string { return &c.Adapter.Request }),
	stringBinding("ADAPTER_REQUEST_TIMEOUT", func(c *Config) *string { return &c.Adapter.RequestTimeout }),
	stringBinding("SETTINGS_PATH", func(c *Config) *string { return &c.Settings.Path }),
	stringBinding("PANEL_LABEL", func(c *Config) *string { return &c.Panel.Label }),
	{name: "ADAPTER_COMMAND", set: func(c *Config, v string) error {
		fields := strings.Fields(v)
		if len(fields) == 0 {
			c.Adapter.Command = ""
			c.Adapter.Args = nil
			return nil
		}
		c.Adapter.Command = fields[0]
		c.Adapter.Args = fields[1:]
		return nil
	}},
	{name: "PANEL_MINIMUM_SIZE", set: func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.Panel.MinimumSize = n
		return nil
	}},
}

// ApplyEnv overrides cfg from variables found by lookup, such as
// os.LookupEnv. An empty value is a valid value, not unset.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error
	for _, b := range envBindings {
		name := EnvPrefix + b.name
		v, ok := lookup(name)
		if !ok {
			continue
		}
		if err := b.set(cfg, v); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s=%q: %v", ErrInvalidEnv, name, v, err))
		}
	}
	return errors.Join(errs...)
}
