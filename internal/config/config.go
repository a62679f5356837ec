package config

import (
	"encoding/json"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/quantfold/backtest/pkg/errors"
)

// Config holds the backtester construction parameters. Every field has a
// default and can be overridden individually.
type Config struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" validate:"gt=0" jsonschema:"title=Initial Capital,description=Starting capital for the backtest,minimum=0"`
	// Currency is advisory only; no FX conversion happens anywhere.
	Currency string `yaml:"currency" json:"currency" validate:"required" jsonschema:"title=Currency,description=Reporting currency code"`
	// Slippage is the fractional execution-price penalty applied on every fill.
	Slippage float64 `yaml:"slippage" json:"slippage" validate:"gte=0" jsonschema:"title=Slippage,description=Fractional price penalty per fill,minimum=0"`
	// Commission is the fractional fee on executed notional.
	Commission float64 `yaml:"commission" json:"commission" validate:"gte=0" jsonschema:"title=Commission,description=Fractional fee on executed notional,minimum=0"`
	// MarginEnabled and MaxLeverage are recorded but not enforced by the
	// execution logic.
	MarginEnabled bool    `yaml:"margin_enabled" json:"margin_enabled" jsonschema:"title=Margin Enabled"`
	MaxLeverage   float64 `yaml:"max_leverage" json:"max_leverage" validate:"gte=1" jsonschema:"title=Max Leverage,minimum=1"`
	// RiskFreeRate is the annual rate used by Sharpe-style ratios.
	RiskFreeRate float64 `yaml:"risk_free_rate" json:"risk_free_rate" validate:"gte=0" jsonschema:"title=Risk Free Rate,description=Annual risk-free rate,minimum=0"`
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 10000,
		Currency:       "USD",
		Slippage:       0.001,
		Commission:     0.001,
		MarginEnabled:  false,
		MaxLeverage:    1,
		RiskFreeRate:   0.05,
	}
}

// ParseConfig parses a YAML document over the defaults, so omitted fields
// keep their default values.
func ParseConfig(content []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
	}

	return ParseConfig(content)
}

// Validate validates the config values.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	return nil
}

// GenerateSchema generates a JSON schema for the Config.
func (c *Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
	}

	schema := reflector.Reflect(c)
	schema.Title = "backtester-config"
	schema.Description = "Configuration schema for the backtesting engine"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates an indented JSON schema string for the Config.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schema := c.GenerateSchema()

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
