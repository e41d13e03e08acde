/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"fmt"
	"time"

	"github.com/acronis/go-keysem/config"
	"github.com/acronis/go-keysem/httpserver"
	"github.com/acronis/go-keysem/keylimit"
	"github.com/acronis/go-keysem/log"
)

const envVarsPrefix = "keysem"

const defaultScenarioWork = time.Second

type AppConfig struct {
	Log       *log.Config
	KeyLimit  *keylimit.Config
	Scenarios *ScenariosConfig
	Server    *httpserver.Config
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		Log:       log.NewConfig(),
		KeyLimit:  keylimit.NewConfig(),
		Scenarios: &ScenariosConfig{},
		Server:    httpserver.NewConfig(),
	}
}

func (c *AppConfig) SetProviderDefaults(dp config.DataProvider) {
	config.CallSetProviderDefaultsForFields(c, dp)
}

func (c *AppConfig) Set(dp config.DataProvider) error {
	return config.CallSetForFields(c, dp)
}

// ScenariosConfig configures the demo scenarios.
type ScenariosConfig struct {
	// Work is how long each task holds its permit.
	Work time.Duration
}

func (c *ScenariosConfig) KeyPrefix() string { return "scenarios" }

func (c *ScenariosConfig) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault("work", defaultScenarioWork.String())
}

func (c *ScenariosConfig) Set(dp config.DataProvider) (err error) {
	if c.Work, err = dp.GetDuration("work"); err != nil {
		return err
	}
	if c.Work <= 0 {
		return dp.WrapKeyErr("work", fmt.Errorf("should be positive"))
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	cfg := NewAppConfig()
	err := config.NewDefaultLoader(envVarsPrefix).LoadFromFile(path, config.DataTypeYAML, cfg)
	return cfg, err
}
