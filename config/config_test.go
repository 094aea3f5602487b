package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flume.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `{
		"nats_url": "nats://localhost:4222",
		"subject": "events.ingest",
		"default_format": "jsonl",
		"max_open_writers": 64,
		"log": {"level": "debug", "format": "text"},
		"metrics": {"enabled": true, "port": 9100},
		"sinks": [
			{"name": "events", "type": "escapedpath", "args": ["/logs/%{host}", "%{service}.log"]}
		]
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "nats://localhost:4222", cfg.NATSUrl)
	assert.Equal(t, "events.ingest", cfg.Subject)
	assert.Equal(t, "jsonl", cfg.DefaultFormat)
	assert.Equal(t, 64, cfg.MaxOpenWriters)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)

	require.Len(t, cfg.Sinks, 1)
	assert.Equal(t, "events", cfg.Sinks[0].Name)
	assert.Equal(t, "escapedpath", cfg.Sinks[0].Type)
	assert.Equal(t, []string{"/logs/%{host}", "%{service}.log"}, cfg.Sinks[0].Args)
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `{"sinks": [{"name": "s", "type": "escapedpath", "args": ["/logs"]}]}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "raw", cfg.DefaultFormat)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadMalformedJSON(t *testing.T) {
	path := writeConfig(t, `{"sinks": [`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"bad log level", `{"log": {"level": "loud"}}`},
		{"bad log format", `{"log": {"format": "yaml"}}`},
		{"negative cache bound", `{"max_open_writers": -1}`},
		{"bad metrics port", `{"metrics": {"enabled": true, "port": 123456}}`},
		{"subject without nats url", `{"subject": "events.ingest"}`},
		{"sink without name", `{"sinks": [{"type": "escapedpath", "args": ["/x"]}]}`},
		{"sink without type", `{"sinks": [{"name": "s", "args": ["/x"]}]}`},
		{"duplicate sink names", `{"sinks": [
			{"name": "s", "type": "escapedpath", "args": ["/x"]},
			{"name": "s", "type": "escapedpath", "args": ["/y"]}
		]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.json)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSafeUnmarshalEmptyKeepsDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, SafeUnmarshal(nil, &cfg))
	assert.Equal(t, "raw", cfg.DefaultFormat)
}
