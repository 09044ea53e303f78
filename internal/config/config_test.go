package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	require.Equal(t, 5*time.Second, cfg.Debugger.Timeout)
	require.Equal(t, 100000, cfg.Debugger.MaxSteps)
	require.Equal(t, 1<<20, cfg.Debugger.MaxOutputBytes)
	require.Equal(t, "main.py", cfg.Debugger.DisplayName)
	require.Equal(t, []string{"<frozen", "/lib/"}, cfg.Debugger.LibraryPatterns)
	require.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
debugger:
  timeout: 2s
  max_steps: 500
log:
  format: text
`), 0o644))

	t.Setenv("STEPBYTE_DEBUGGER__MAX_STEPS", "750")
	t.Setenv("STEPBYTE_DEBUGGER__LIBRARY_PATTERNS", "<frozen, site-packages")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Server.Addr)
	require.Equal(t, 2*time.Second, cfg.Debugger.Timeout)
	require.Equal(t, 750, cfg.Debugger.MaxSteps)
	require.Equal(t, []string{"<frozen", "site-packages"}, cfg.Debugger.LibraryPatterns)
	require.Equal(t, "text", cfg.Log.Format)
	require.Equal(t, 1000, cfg.Debugger.MaxDepth)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name string
		env  map[string]string
		want string
	}{
		{"timeout", map[string]string{"STEPBYTE_DEBUGGER__TIMEOUT": "0s"}, "debugger.timeout"},
		{"steps", map[string]string{"STEPBYTE_DEBUGGER__MAX_STEPS": "-1"}, "debugger.max_steps"},
		{"level", map[string]string{"STEPBYTE_LOG__LEVEL": "loud"}, "log.level"},
		{"format", map[string]string{"STEPBYTE_LOG__FORMAT": "xml"}, "log.format"},
		{"staging", map[string]string{"STEPBYTE_DEBUGGER__STAGING_DIR": "/usr/lib/stepbyte"}, "matches library pattern"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}
