package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTmpConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "meteodata.conf")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeTmpConfig(t, "user = station\n"))
	require.NoError(t, err)

	assert.Equal(t, "/var/run/meteodata/control.sock", cfg.Control.Socket)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":9117", cfg.Metrics.Listen)
	assert.Equal(t, 10*time.Second, cfg.ShutdownGrace)
}

func TestLoadReadsValues(t *testing.T) {
	cfg, err := Load(writeTmpConfig(t, `
user = station
password = secret
host = 192.168.1.10
log.level = debug
log.format = text
`))
	require.NoError(t, err)

	assert.Equal(t, "station", cfg.User)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, "192.168.1.10", cfg.Host)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	_, err := Load(writeTmpConfig(t, "log.level = noisy\n"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidLogFormat(t *testing.T) {
	_, err := Load(writeTmpConfig(t, "log.format = xml\n"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	assert.Error(t, err)
}

func TestClassSelectionDefaultsAllEnabled(t *testing.T) {
	sel := NewClassSelection(nil, nil)
	for _, c := range Classes {
		assert.True(t, sel.Enabled(c), c)
	}
}

func TestClassSelectionNoDisablesOne(t *testing.T) {
	sel := NewClassSelection(map[string]bool{"synop": true}, nil)
	assert.False(t, sel.Enabled("synop"))
	assert.True(t, sel.Enabled("mqtt"))
}

func TestClassSelectionOnlyDisablesEverythingElse(t *testing.T) {
	sel := NewClassSelection(nil, map[string]bool{"vp2": true})
	assert.True(t, sel.Enabled("vp2"))
	for _, c := range Classes {
		if c != "vp2" {
			assert.False(t, sel.Enabled(c), c)
		}
	}
}

func TestClassSelectionOnlyFirstMatchWins(t *testing.T) {
	only := map[string]bool{"synop": true, "ship": true}
	sel := NewClassSelection(nil, only)
	// Classes is ordered mqtt, synop, ship, ... so synop is the first match.
	assert.True(t, sel.Enabled("synop"))
	assert.False(t, sel.Enabled("ship"))
}

func TestZeroValueClassSelectionEnablesEverything(t *testing.T) {
	var sel ClassSelection
	assert.True(t, sel.Enabled("mqtt"))
}
