package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseda-hg/lazyjournal/internal/config"
)

func TestNewWriterJSONCarriesSession(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriter(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)

	logger.Debug("record added")
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "record added", entry["msg"])
	assert.NotEmpty(t, entry["session"])
	assert.Contains(t, entry, "ts")
}

func TestNewWriterFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWriter(config.LogConfig{Level: "warn"}, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	_, err = NewWriter(config.LogConfig{Level: "loud"}, &buf)
	assert.Error(t, err)
}

func TestFilePath(t *testing.T) {
	assert.Equal(t, "/var/log/lj.log", FilePath(config.Config{Log: config.LogConfig{File: "/var/log/lj.log"}}))
	assert.Equal(t, filepath.Join("/data", DefaultFile), FilePath(config.Config{DBPath: "/data/journal.db"}))
	assert.Equal(t, filepath.Join(os.TempDir(), DefaultFile), FilePath(config.Config{DBPath: ":memory:"}))
}

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DBPath = filepath.Join(dir, "journal.db")

	logger, closeLog, err := New(cfg)
	require.NoError(t, err)
	logger.Info("started")
	closeLog()

	data, err := os.ReadFile(filepath.Join(dir, DefaultFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "started")
}
