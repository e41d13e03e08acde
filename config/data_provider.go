/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"io"
	"time"

	"github.com/mitchellh/mapstructure"
)

// DataType is a format of configuration data.
type DataType string

// Supported data formats.
const (
	DataTypeYAML DataType = "yaml"
	DataTypeJSON DataType = "json"
)

// DataProvider gives access to configuration values merged from defaults, data files,
// environment variables and explicit overrides.
// Typed getters return an error wrapped with the key if the value cannot be converted.
type DataProvider interface {
	// UseEnvVars makes values of environment variables with the prefix take precedence over data files.
	UseEnvVars(prefix string)

	Set(key string, value interface{})
	SetDefault(key string, value interface{})
	SetFromFile(path string, dataType DataType) error
	SetFromReader(reader io.Reader, dataType DataType) error

	IsSet(key string) bool
	Get(key string) interface{}
	GetBool(key string) (bool, error)
	GetInt(key string) (int, error)
	GetString(key string) (string, error)
	GetDuration(key string) (time.Duration, error)
	GetByteSize(key string) (ByteSize, error)

	// GetStringFromSet returns an error if the value is not one of set.
	GetStringFromSet(key string, set []string, ignoreCase bool) (string, error)

	// UnmarshalKey decodes the value of the key (usually a list or a section) into rawVal with mapstructure.
	UnmarshalKey(key string, rawVal interface{}, opts ...DecoderConfigOption) error

	// WrapKeyErr prefixes err with the full key, so validation errors point to the place in the data.
	WrapKeyErr(key string, err error) error
}

// DecoderConfigOption tunes mapstructure decoding in DataProvider.UnmarshalKey (e.g. sets decode hooks).
type DecoderConfigOption func(*mapstructure.DecoderConfig)

// WrapKeyErrIfNeeded is WrapKeyErr that keeps nil errors nil.
func WrapKeyErrIfNeeded(key string, err error) error {
	if err == nil {
		return nil
	}
	return WrapKeyErr(key, err)
}

// WrapKeyErr returns an error in "key: err" form.
func WrapKeyErr(key string, err error) error {
	return fmt.Errorf("%s: %w", key, err)
}
