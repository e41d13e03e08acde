/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package keylimit

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-keysem/config"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfgData  string
		dataType config.DataType
		expected *Config
	}{
		{
			name:     "defaults",
			cfgData:  ``,
			dataType: config.DataTypeYAML,
			expected: &Config{DefaultLimit: DefaultLimit},
		},
		{
			name: "yaml, list and comma-separated keys",
			cfgData: `
keyLimit:
  defaultLimit: 2
  rules:
    - keys: ["tenant:*", " user:* "]
      limit: 4
    - keys: "report:daily, report:weekly"
      limit: 1
`,
			dataType: config.DataTypeYAML,
			expected: &Config{
				DefaultLimit: 2,
				Rules: []RuleConfig{
					{Keys: KeyPatterns{"tenant:*", "user:*"}, Limit: 4},
					{Keys: KeyPatterns{"report:daily", "report:weekly"}, Limit: 1},
				},
			},
		},
		{
			name:     "json",
			cfgData:  `{"keyLimit": {"defaultLimit": 3, "rules": [{"keys": ["a*"], "limit": 5}]}}`,
			dataType: config.DataTypeJSON,
			expected: &Config{DefaultLimit: 3, Rules: []RuleConfig{{Keys: KeyPatterns{"a*"}, Limit: 5}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), tt.dataType, cfg)
			require.NoError(t, err)
			tt.expected.keyPrefix = cfgDefaultKeyPrefix
			require.Equal(t, tt.expected, cfg)
		})
	}
}

func TestConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfgData string
		wantErr string
	}{
		{
			name:    "zero default limit",
			cfgData: "keyLimit:\n  defaultLimit: 0\n",
			wantErr: "keyLimit.defaultLimit: should be >= 1",
		},
		{
			name:    "rule without keys",
			cfgData: "keyLimit:\n  rules:\n    - limit: 2\n",
			wantErr: "keyLimit.rules[0]: at least one key pattern should be specified",
		},
		{
			name:    "rule with zero limit",
			cfgData: "keyLimit:\n  rules:\n    - keys: foo\n      limit: 1\n    - keys: bar\n",
			wantErr: "keyLimit.rules[1]: limit should be >= 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, NewConfig())
			require.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestConfig_WithKeyPrefix(t *testing.T) {
	cfg := NewConfig(WithKeyPrefix("locks"))
	cfgData := "locks:\n  defaultLimit: 7\n"
	require.NoError(t, config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg))
	require.Equal(t, uint(7), cfg.DefaultLimit)
	require.Equal(t, "locks", cfg.KeyPrefix())
}

func TestConfig_DirectUnmarshal(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		var cfg Config
		require.NoError(t, yaml.Unmarshal([]byte(`
defaultLimit: 1
rules:
  - keys: "a*, b*"
    limit: 2
  - keys: [c]
    limit: 3
`), &cfg))
		require.NoError(t, cfg.Validate())
		require.Equal(t, []RuleConfig{
			{Keys: KeyPatterns{"a*", "b*"}, Limit: 2},
			{Keys: KeyPatterns{"c"}, Limit: 3},
		}, cfg.Rules)
	})

	t.Run("json", func(t *testing.T) {
		var cfg Config
		require.NoError(t, json.Unmarshal([]byte(`{"defaultLimit": 1, "rules": [{"keys": "x", "limit": 1}]}`), &cfg))
		require.NoError(t, cfg.Validate())
		require.Equal(t, KeyPatterns{"x"}, cfg.Rules[0].Keys)
	})

	t.Run("invalid", func(t *testing.T) {
		var cfg Config
		require.NoError(t, yaml.Unmarshal([]byte("rules:\n  - keys: [\"\"]\n    limit: 1\n"), &cfg))
		require.EqualError(t, cfg.Validate(), "defaultLimit: should be >= 1")
		cfg.DefaultLimit = 1
		require.EqualError(t, cfg.Validate(), "rules[0]: key pattern cannot be empty")
	})

	t.Run("invalid keys type", func(t *testing.T) {
		var cfg Config
		require.Error(t, yaml.Unmarshal([]byte("rules:\n  - keys: {a: b}\n"), &cfg))
	})
}
