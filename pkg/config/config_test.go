package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formflow/pkg/options"
)

func TestParseDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(map[string]string{})
	require.NoError(t, err)
	require.Equal(t, 10, cfg.PageSize)
	require.Equal(t, options.RetryPolicy{MaxRetries: 2, Delay: 500 * time.Millisecond}, cfg.RetryPolicy())
	require.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	require.Equal(t, logrus.InfoLevel, cfg.LogrusLevel())
	require.Equal(t, "screens.yaml", cfg.ScreensFile)
}

func TestParseOverrides(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(map[string]string{
		"FORMFLOW_API_BASE_URL":       "https://api.example.test",
		"FORMFLOW_PAGE_SIZE":          "25",
		"FORMFLOW_OPTION_RETRIES":     "0",
		"FORMFLOW_OPTION_RETRY_DELAY": "1s",
		"FORMFLOW_LOG_LEVEL":          "debug",
		"FORMFLOW_LOG_FORMAT":         "json",
		"PAGE_SIZE":                   "99",
	})
	require.NoError(t, err)
	require.Equal(t, "https://api.example.test", cfg.APIBaseURL)
	require.Equal(t, 25, cfg.PageSize)
	require.Equal(t, options.RetryPolicy{MaxRetries: 0, Delay: time.Second}, cfg.RetryPolicy())
	require.Equal(t, logrus.DebugLevel, cfg.Logger().GetLevel())
	_, isJSON := cfg.Logger().Formatter.(*logrus.JSONFormatter)
	require.True(t, isJSON)
}

func TestParseRejectsInvalid(t *testing.T) {
	t.Parallel()

	for _, environ := range []map[string]string{
		{"FORMFLOW_PAGE_SIZE": "0"},
		{"FORMFLOW_OPTION_RETRIES": "-1"},
		{"FORMFLOW_LOG_FORMAT": "xml"},
		{"FORMFLOW_HTTP_TIMEOUT": "soon"},
	} {
		_, err := Parse(environ)
		require.Error(t, err, "%v", environ)
	}
}

func TestLoadEnvSkipsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("FORMFLOW_TEST_LOADENV=yes\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("FORMFLOW_TEST_LOADENV") })

	n, err := LoadEnv([]string{filepath.Join(dir, "missing.env"), file})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, "yes", os.Getenv("FORMFLOW_TEST_LOADENV"))
}
