/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package config loads configuration objects from YAML/JSON data and environment variables.
//
// A configuration object implements Config: it registers its defaults in a DataProvider and then reads
// and validates its values from it. Objects implementing KeyPrefixProvider read their values
// under their own section ("log.level", "keyLimit.rules", ...).
package config

import "reflect"

// Config is a common interface for configuration objects that may be used by Loader.
type Config interface {
	SetProviderDefaults(dp DataProvider)
	Set(dp DataProvider) error
}

// KeyPrefixProvider is an interface for providing key prefix that will be used for configuration parameters.
type KeyPrefixProvider interface {
	KeyPrefix() string
}

// providerFor returns dp scoped to the cfg section if cfg has a key prefix.
func providerFor(cfg interface{}, dp DataProvider) DataProvider {
	if kp, ok := cfg.(KeyPrefixProvider); ok && kp.KeyPrefix() != "" {
		return NewKeyPrefixedDataProvider(dp, kp.KeyPrefix())
	}
	return dp
}

// configFields returns exported non-nil fields of the struct pointed by obj that implement Config.
func configFields(obj interface{}) []Config {
	el := reflect.ValueOf(obj).Elem()
	var res []Config
	for i := 0; i < el.NumField(); i++ {
		if !el.Type().Field(i).IsExported() {
			continue
		}
		field := el.Field(i)
		if (field.Kind() == reflect.Ptr || field.Kind() == reflect.Interface) && field.IsNil() {
			continue
		}
		if c, ok := field.Interface().(Config); ok {
			res = append(res, c)
		}
	}
	return res
}

// CallSetProviderDefaultsForFields calls SetProviderDefaults for every initialized (non-nil) field
// of the passed object that implements Config.
func CallSetProviderDefaultsForFields(obj interface{}, dp DataProvider) {
	for _, c := range configFields(obj) {
		c.SetProviderDefaults(providerFor(c, dp))
	}
}

// CallSetForFields calls Set for every initialized (non-nil) field of the passed object that implements Config.
// It stops at the first error.
func CallSetForFields(obj interface{}, dp DataProvider) error {
	for _, c := range configFields(obj) {
		if err := c.Set(providerFor(c, dp)); err != nil {
			return err
		}
	}
	return nil
}
