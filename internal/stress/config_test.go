package stress

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	c, err := Load(writeConfig(t, `
workers = 4
ops = 1000
hasher = "xxh3"

[device]
ops_per_sec = 500
burst = 10
`))
	require.NoError(t, err)
	require.Equal(t, 4, c.Workers)
	require.Equal(t, 1000, c.Ops)
	require.Equal(t, "xxh3", c.Hasher)
	require.Equal(t, 13, c.Buckets, "unset keys keep their defaults")
	require.NotNil(t, c.Device)
	require.InDelta(t, 500.0, c.Device.OpsPerSec, 1e-9)
	require.Equal(t, 10, c.Device.Burst)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorContains(t, err, "read config")

	_, err = Load(writeConfig(t, `workers = "many"`))
	require.ErrorContains(t, err, "unmarshal config")

	for _, content := range []string{
		`workers = 0`,
		`workers = 100`,
		`ops = -1`,
		`blocks = 0`,
		`block_size = 8`,
		`write_ratio = 1.5`,
		`hasher = "md5"`,
		"[device]\nops_per_sec = 10",
	} {
		_, err := Load(writeConfig(t, content))
		require.ErrorContains(t, err, "validate config", content)
	}
}
