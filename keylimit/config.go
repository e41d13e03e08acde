/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package keylimit

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-keysem/config"
)

const cfgDefaultKeyPrefix = "keyLimit"

const (
	cfgKeyDefaultLimit = "defaultLimit"
	cfgKeyRules        = "rules"
)

// DefaultLimit is the number of concurrent holders allowed for a key that matches no rule.
const DefaultLimit = 1

// Config represents a set of configuration parameters for the per-key limiter.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	// DefaultLimit is applied to keys that match no rule.
	DefaultLimit uint `mapstructure:"defaultLimit" yaml:"defaultLimit" json:"defaultLimit"`

	// Rules are checked in order, the first rule with a matching key pattern wins.
	Rules []RuleConfig `mapstructure:"rules" yaml:"rules" json:"rules"`

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// RuleConfig assigns a limit to the keys matching one of the glob patterns.
type RuleConfig struct {
	Keys  KeyPatterns `mapstructure:"keys" yaml:"keys" json:"keys"`
	Limit uint        `mapstructure:"limit" yaml:"limit" json:"limit"`
}

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.DefaultLimit = DefaultLimit
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the limiter in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyDefaultLimit, DefaultLimit)
}

// Set sets limiter configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	defaultLimit, err := dp.GetInt(cfgKeyDefaultLimit)
	if err != nil {
		return err
	}
	if defaultLimit < 1 {
		return dp.WrapKeyErr(cfgKeyDefaultLimit, fmt.Errorf("should be >= 1"))
	}
	c.DefaultLimit = uint(defaultLimit)

	c.Rules = nil
	if err = dp.UnmarshalKey(cfgKeyRules, &c.Rules, func(decoderConfig *mapstructure.DecoderConfig) {
		decoderConfig.DecodeHook = mapstructureDecodeHook()
	}); err != nil {
		return err
	}
	for i := range c.Rules {
		if err = c.Rules[i].Validate(); err != nil {
			return dp.WrapKeyErr(fmt.Sprintf("%s[%d]", cfgKeyRules, i), err)
		}
	}
	return nil
}

// Validate validates configuration.
func (c *Config) Validate() error {
	if c.DefaultLimit < 1 {
		return config.WrapKeyErr(cfgKeyDefaultLimit, fmt.Errorf("should be >= 1"))
	}
	for i := range c.Rules {
		if err := c.Rules[i].Validate(); err != nil {
			return config.WrapKeyErr(fmt.Sprintf("%s[%d]", cfgKeyRules, i), err)
		}
	}
	return nil
}

// Validate validates rule configuration.
func (r *RuleConfig) Validate() error {
	if len(r.Keys) == 0 {
		return fmt.Errorf("at least one key pattern should be specified")
	}
	for _, key := range r.Keys {
		if key == "" {
			return fmt.Errorf("key pattern cannot be empty")
		}
	}
	if r.Limit < 1 {
		return fmt.Errorf("limit should be >= 1")
	}
	return nil
}

// KeyPatterns is a list of glob patterns ("*" matches any sequence of characters).
// It may be specified either as a list or as a comma-separated string.
type KeyPatterns []string

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (kp *KeyPatterns) UnmarshalText(text []byte) error {
	kp.unmarshal(string(text))
	return nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (kp *KeyPatterns) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		kp.unmarshal(s)
		return nil
	}
	var l []string
	if err := json.Unmarshal(data, &l); err == nil {
		*kp = trimSpaces(l)
		return nil
	}
	return fmt.Errorf("invalid key patterns: %s", data)
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (kp *KeyPatterns) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		kp.unmarshal(s)
		return nil
	}
	var l []string
	if err := value.Decode(&l); err == nil {
		*kp = trimSpaces(l)
		return nil
	}
	return fmt.Errorf("invalid key patterns at line %d", value.Line)
}

func (kp *KeyPatterns) unmarshal(data string) {
	*kp = KeyPatterns{}
	data = strings.TrimSpace(data)
	if data == "" {
		return
	}
	for _, p := range strings.Split(data, ",") {
		*kp = append(*kp, strings.TrimSpace(p))
	}
}

func (kp KeyPatterns) String() string {
	return strings.Join(kp, ",")
}

// MarshalText implements the encoding.TextMarshaler interface.
func (kp KeyPatterns) MarshalText() ([]byte, error) {
	return []byte(kp.String()), nil
}

func trimSpaces(l []string) []string {
	res := make([]string, 0, len(l))
	for _, s := range l {
		res = append(res, strings.TrimSpace(s))
	}
	return res
}

func mapstructureTrimSpaceStringsHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Kind, t reflect.Kind, data interface{}) (interface{}, error) {
		if f != reflect.Slice || t != reflect.Slice {
			return data, nil
		}
		switch dt := data.(type) {
		case []string:
			return trimSpaces(dt), nil
		case []interface{}:
			res := make([]interface{}, 0, len(dt))
			for _, v := range dt {
				if s, ok := v.(string); ok {
					v = strings.TrimSpace(s)
				}
				res = append(res, v)
			}
			return res, nil
		default:
			return data, nil
		}
	}
}

func mapstructureDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructureTrimSpaceStringsHookFunc(),
	)
}
