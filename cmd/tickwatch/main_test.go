package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"tickwatch/internal/analyzer"
	"tickwatch/internal/config"
	"tickwatch/internal/logger"
	"tickwatch/internal/phase"
)

const sampleCSV = `timestamp_ms,digit,digit_conf,ms_since_last_digit_change,mouse_x,mouse_y
1700000000000,1,0.910,100,10,10
1700000000600,1,0.880,140,10,10
1700000001200,1,0.930,180,10,10
1700000001800,2,0.900,90,10,10
1700000002400,,0.000,,10,10
`

// setupWorkspace пишет конфиг и лог замеров во временную директорию
func setupWorkspace(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	samples := filepath.Join(dir, "tick_samples.csv")
	require.NoError(t, os.WriteFile(samples, []byte(sampleCSV), 0644))

	cfgPath := filepath.Join(dir, "config.yaml")
	body := "log_file_path: " + filepath.Join(dir, "logs", "tickwatch.log") + "\n" +
		"recorder:\n  log_path: " + samples + "\n" +
		"analyzer:\n  target_phase: 1\n  margin_ms: 20\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0644))
	return cfgPath, samples
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		configPath, logLevel = "", ""
		analyzeLogPath, analyzePhase, analyzeMargin, analyzeFormat = "", 0, -1, "text"
		for _, name := range []string{"log", "phase", "margin", "format"} {
			analyzeCmd.Flags().Lookup(name).Changed = false
		}
	})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAnalyzeTextReport(t *testing.T) {
	cfgPath, _ := setupWorkspace(t)

	out, err := execute(t, "--config", cfgPath, "analyze")
	require.NoError(t, err)
	assert.Contains(t, out, "Строк в логе: 5, использовано: 4")
	assert.Contains(t, out, "Рекомендуемый сдвиг для фазы 1: 120 мс")
}

func TestAnalyzeYAMLWithFlags(t *testing.T) {
	cfgPath, samples := setupWorkspace(t)

	out, err := execute(t, "--config", cfgPath, "analyze", "--log", samples, "--phase", "2", "--margin", "100", "--format", "yaml")
	require.NoError(t, err)

	var report analyzer.Report
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, phase.Phase(2), report.TargetPhase)
	require.NotNil(t, report.RecommendedOffsetMs)
	assert.Equal(t, 0.0, *report.RecommendedOffsetMs, "offset floored at zero")
	assert.Len(t, report.Phases, 2)
}

func TestAnalyzeRejectsBadFlags(t *testing.T) {
	cfgPath, _ := setupWorkspace(t)

	_, err := execute(t, "--config", cfgPath, "analyze", "--phase", "7")
	assert.Error(t, err)

	// 257 не должно усекаться до фазы 1
	_, err = execute(t, "--config", cfgPath, "analyze", "--phase", "257")
	assert.Error(t, err)

	_, err = execute(t, "--config", cfgPath, "analyze", "--format", "xml")
	assert.Error(t, err)

	_, err = execute(t, "--config", cfgPath, "analyze", "--log", filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestClickOffsetFromSampleLog(t *testing.T) {
	_, samples := setupWorkspace(t)
	c, _, err := config.InitConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, config.ErrConfigMissing)
	c.Recorder.LogPath = samples
	c.Arduino.TargetPhase = 1
	log := logger.NewNopLoggerManager()

	assert.Equal(t, msDuration(120), clickOffset(c, log), "median 140 minus margin 20")

	c.Arduino.ClickOffsetMs = 55
	assert.Equal(t, msDuration(55), clickOffset(c, log))

	c.Arduino.ClickOffsetMs = 0
	c.Recorder.LogPath = filepath.Join(t.TempDir(), "absent.csv")
	assert.Zero(t, clickOffset(c, log))
}

func TestResolveCaptureRegionWithoutWindowSearch(t *testing.T) {
	c := config.Capture{Region: config.CoordinatesWithSize{X: 1, Y: 2, Width: 3, Height: 4}}
	assert.Equal(t, c.Region, resolveCaptureRegion(c, logger.NewNopLoggerManager()))
}

func TestSnapshotPath(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC)

	p, err := snapshotPath("", 3, "templates", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("templates", "digit_3.png"), p)

	p, err = snapshotPath("out.png", 0, "templates", now)
	require.NoError(t, err)
	assert.Equal(t, "out.png", p)

	p, err = snapshotPath("", 0, "templates", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("snapshots", "frame_20260102_030405.006.png"), p)

	for _, digit := range []int{9, -1, 257} {
		_, err = snapshotPath("", digit, "templates", now)
		assert.Error(t, err, "digit %d", digit)
	}
}
