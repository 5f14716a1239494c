package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("row stamped", "slug", "ebit-calculator")

	assert.Contains(t, stderr.String(), "row stamped")
	assert.NotContains(t, stderr.String(), "hidden")

	var record map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &record))
	assert.Equal(t, "row stamped", record["msg"])
	assert.Equal(t, "ebit-calculator", record["slug"])
}

func TestSetupLoggerWithWritersTextOnly(t *testing.T) {
	var stderr bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, nil, slog.LevelWarn)

	logger.Info("skipped")
	logger.Warn("no zip reference found", "slug", "ebit")

	assert.NotContains(t, stderr.String(), "skipped")
	assert.Contains(t, stderr.String(), "slug=ebit")
}

func TestSetupLoggerFileCarriesRunID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "factory-runner.log")
	logger, closeLog := SetupLogger(path, slog.LevelInfo)
	logger.Info("batch complete")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &record))
	assert.Equal(t, "batch complete", record["msg"])
	assert.NotEmpty(t, record["run_id"])
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"debug ":  slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"warn":    slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"INFO":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
