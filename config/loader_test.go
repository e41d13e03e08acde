/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testAppConfig struct {
	Worker *testWorkerConfig
	Name   string
}

func (c *testAppConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("name", "keysem")
	CallSetProviderDefaultsForFields(c, dp)
}

func (c *testAppConfig) Set(dp DataProvider) error {
	var err error
	if c.Name, err = dp.GetString("name"); err != nil {
		return err
	}
	return CallSetForFields(c, dp)
}

type testWorkerConfig struct {
	Limit   int
	MaxSize ByteSize
	Mode    string
}

func (c *testWorkerConfig) KeyPrefix() string {
	return "worker"
}

func (c *testWorkerConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("limit", 1)
	dp.SetDefault("mode", "wait")
}

func (c *testWorkerConfig) Set(dp DataProvider) (err error) {
	if c.Limit, err = dp.GetInt("limit"); err != nil {
		return err
	}
	if c.MaxSize, err = dp.GetByteSize("maxSize"); err != nil {
		return err
	}
	c.Mode, err = dp.GetStringFromSet("mode", []string{"wait", "try"}, true)
	return err
}

func TestLoader_LoadFromReader(t *testing.T) {
	t.Run("defaults are used", func(t *testing.T) {
		cfg := &testAppConfig{Worker: &testWorkerConfig{}}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, cfg)
		require.NoError(t, err)
		require.Equal(t, "keysem", cfg.Name)
		require.Equal(t, 1, cfg.Worker.Limit)
		require.Equal(t, "wait", cfg.Worker.Mode)
		require.Equal(t, ByteSize(0), cfg.Worker.MaxSize)
	})

	t.Run("yaml values override defaults", func(t *testing.T) {
		cfgData := `
name: demo
worker:
  limit: 5
  maxSize: 2Mi
  mode: TRY
`
		cfg := &testAppConfig{Worker: &testWorkerConfig{}}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(cfgData), DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, "demo", cfg.Name)
		require.Equal(t, 5, cfg.Worker.Limit)
		require.Equal(t, ByteSize(2*1024*1024), cfg.Worker.MaxSize)
		require.Equal(t, "TRY", cfg.Worker.Mode)
	})

	t.Run("unknown value from set", func(t *testing.T) {
		cfg := &testAppConfig{Worker: &testWorkerConfig{}}
		err := NewLoader(NewViperAdapter()).LoadFromReader(
			bytes.NewBufferString(`{"worker":{"mode":"fail"}}`), DataTypeJSON, cfg)
		require.EqualError(t, err, `worker.mode: unknown value "fail", should be one of [wait try]`)
	})

	t.Run("nil sub-config is skipped", func(t *testing.T) {
		cfg := &testAppConfig{}
		err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, cfg)
		require.NoError(t, err)
		require.Nil(t, cfg.Worker)
	})
}

func TestLoader_LoadFromFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("worker:\n  limit: 3\n"), 0o600))

	cfg := &testWorkerConfig{}
	require.NoError(t, NewLoader(NewViperAdapter()).LoadFromFile(cfgPath, DataTypeYAML, cfg))
	require.Equal(t, 3, cfg.Limit)
}

func TestNewDefaultLoader_EnvVars(t *testing.T) {
	t.Setenv("KEYSEMTEST_WORKER_LIMIT", "7")

	cfg := &testWorkerConfig{}
	err := NewDefaultLoader("keysemtest").LoadFromReader(bytes.NewBufferString(`{}`), DataTypeJSON, cfg)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.Limit)
}

func TestViperAdapter_GetByteSize(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    ByteSize
		wantErr bool
	}{
		{name: "human readable", value: "10M", want: 10 * 1024 * 1024},
		{name: "k8s suffix", value: "1Gi", want: 1024 * 1024 * 1024},
		{name: "integer", value: 4096, want: 4096},
		{name: "negative integer", value: -1, wantErr: true},
		{name: "garbage", value: "ten megabytes", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			va := NewViperAdapter()
			va.Set("size", tt.value)
			got, err := va.GetByteSize("size")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestKeyPrefixedDataProvider_GetDuration(t *testing.T) {
	va := NewViperAdapter()
	require.NoError(t, va.SetFromReader(bytes.NewBufferString("scenarios:\n  work: 1500ms\n  bad: soon\n"), DataTypeYAML))
	dp := NewKeyPrefixedDataProvider(va, "scenarios")

	work, err := dp.GetDuration("work")
	require.NoError(t, err)
	require.Equal(t, 1500*time.Millisecond, work)

	_, err = dp.GetDuration("bad")
	require.ErrorContains(t, err, "scenarios.bad: ")
}
