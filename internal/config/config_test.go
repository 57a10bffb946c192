package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "sheetlink/cli/internal/errors"
)

func TestDefaultsWithoutFile(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	c, err := s.Config()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3001", c.Relay.URL)
	assert.Equal(t, 5*time.Second, c.Poll.Interval)
	assert.Equal(t, 60, c.Poll.MaxAttempts)
	assert.Equal(t, 25, c.Display.RowsPerPage)
	assert.Equal(t, "sheetlink.xlsx", c.Workbook.Path)
}

func TestSetPersistsAndReloads(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set("databricks.host", "adb-1.azuredatabricks.net"))
	require.NoError(t, s.Set("poll.interval", "2s"))
	require.NoError(t, s.Set("display.rows_per_page", "10"))

	info, err := os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	s2, err := Open(dir)
	require.NoError(t, err)
	c, err := s2.Config()
	require.NoError(t, err)
	assert.Equal(t, "adb-1.azuredatabricks.net", c.Databricks.Host)
	assert.Equal(t, 2*time.Second, c.Poll.Interval)
	assert.Equal(t, 10, c.Display.RowsPerPage)
}

func TestSetRejectsBadInput(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		key, value string
	}{
		{"no.such.key", "x"},
		{"poll.max_attempts", "many"},
		{"poll.max_attempts", "0"},
		{"poll.interval", "soon"},
		{"log.json", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			err := s.Set(tt.key, tt.value)
			require.Error(t, err)
			assert.True(t, serrors.IsKind(err, serrors.Config))
		})
	}
}

func TestEnvOverridesFileButIsNotPersisted(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("databricks.warehouse_id", "from-file"))

	t.Setenv("SHEETLINK_DATABRICKS_TOKEN", "dapi-env")
	t.Setenv("SHEETLINK_DATABRICKS_WAREHOUSE_ID", "from-env")
	s, err = Open(dir)
	require.NoError(t, err)
	c, err := s.Config()
	require.NoError(t, err)
	assert.Equal(t, "dapi-env", c.Databricks.Token)
	assert.Equal(t, "from-env", c.Databricks.WarehouseID)

	require.NoError(t, s.Set("workbook.path", "out.xlsx"))
	raw, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "dapi-env")
	assert.Contains(t, string(raw), "from-file")
}

func TestRequire(t *testing.T) {
	c := Config{Databricks: DatabricksConfig{Host: "h"}}
	err := c.RequireWarehouse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "databricks.token, databricks.warehouse_id")

	c.Databricks.Token = "t"
	c.Databricks.SpaceID = "sp"
	assert.NoError(t, c.RequireGenie())
}

func TestKeysSortedAndSecret(t *testing.T) {
	ks := Keys()
	assert.Equal(t, "databricks.host", ks[0])
	assert.True(t, Secret("databricks.token"))
	assert.False(t, Secret("databricks.host"))
}
