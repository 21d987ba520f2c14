package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-report/internal/config"
)

func TestSetupLoggerLevels(t *testing.T) {
	for level, want := range map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"":      logrus.InfoLevel,
		"loud":  logrus.InfoLevel,
	} {
		logger, err := SetupLogger(config.LoggingConfig{Level: level})
		require.NoError(t, err)
		assert.Equal(t, want, logger.GetLevel(), level)
	}
}

func TestSetupLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "report.log")

	logger, err := SetupLogger(config.LoggingConfig{Level: "info", File: path})
	require.NoError(t, err)
	logger.Info("report rendered")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "report rendered")
}

func TestDateFormats(t *testing.T) {
	ts := time.Date(2024, 3, 10, 8, 5, 0, 0, time.UTC)

	assert.Equal(t, "2024-03-10 08:05:00", FormatTimestamp(ts))
	assert.Equal(t, "2024-03-10", FormatDate(ts))
	assert.Equal(t, "March 10, 2024", FormatLongDate(ts))
}

func TestIsOlderThan(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.True(t, IsOlderThan(time.Time{}, time.Hour, now))
	assert.True(t, IsOlderThan(now.Add(-26*time.Hour), 25*time.Hour, now))
	assert.False(t, IsOlderThan(now.Add(-time.Hour), 25*time.Hour, now))
}
