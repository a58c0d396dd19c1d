package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GannCycles/internal/config"
	"GannCycles/internal/recorder"
)

func TestParseFlags_OnlyExplicitFlagsOverride(t *testing.T) {
	opts, set, err := parseFlags([]string{"-range", "90", "-today", "2025-01-01", "-auto"})
	require.NoError(t, err)
	assert.True(t, opts.auto)

	cfg := config.Default()
	applyFlags(cfg, opts, set)
	assert.Equal(t, 90, cfg.Analysis.HorizonDays)
	assert.Equal(t, "2025-01-01", cfg.Analysis.Today)
	assert.Equal(t, 14, cfg.Detection.Lookback, "unset flags keep the config value")
	assert.Equal(t, 2, cfg.Analysis.MinScore)
}

func TestParseFlags_ExplicitZero(t *testing.T) {
	opts, set, err := parseFlags([]string{"-min-score", "0"})
	require.NoError(t, err)

	cfg := config.Default()
	applyFlags(cfg, opts, set)
	assert.Equal(t, 0, cfg.Analysis.MinScore)
}

func TestReadPivots(t *testing.T) {
	raw := `[{"date":"2024-03-14","type":"high","price":73777},{"date":"2024-08-05","type":"low","price":49000}]`

	inline, err := readPivots(raw)
	require.NoError(t, err)
	require.Len(t, inline, 2)
	assert.Equal(t, "high", inline[0].Type)

	path := filepath.Join(t.TempDir(), "pivots.json")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
	fromFile, err := readPivots("@" + path)
	require.NoError(t, err)
	assert.Equal(t, inline, fromFile)

	_, err = readPivots("[{")
	assert.ErrorContains(t, err, "decode pivots")
}

func TestNewRecorder(t *testing.T) {
	cfg := config.Default()
	cfg.Database.SQLitePath = ""
	cfg.Output.JSONPath = ""
	assert.IsType(t, &recorder.NoopRecorder{}, newRecorder(cfg))

	dir := t.TempDir()
	cfg.Database.SQLitePath = filepath.Join(dir, "gann.db")
	cfg.Output.JSONPath = filepath.Join(dir, "out.json")
	rec := newRecorder(cfg)
	defer rec.Close()
	multi, ok := rec.(recorder.MultiRecorder)
	require.True(t, ok)
	assert.Len(t, multi, 2)
}
