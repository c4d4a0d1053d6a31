package depforge

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FileThenEnvironment(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeFile(t, filepath.Join(dir, ConfigFileName), `# depforge settings
DEPFORGE_GENERATOR="Unix Makefiles"
DEPFORGE_BUILD_TYPE = Debug
GCLOUD_BUCKET='from-file'
not a setting
`)

	cfg, err := loadConfig(path, []string{
		"GCLOUD_BUCKET=from-env",
		"HOME=/home/someone",
		"DEPFORGE_DEBUG=1",
	})
	require.NoError(t, err)
	require.Equal(t, "Unix Makefiles", cfg.Values["DEPFORGE_GENERATOR"])
	require.Equal(t, "Debug", cfg.Values["DEPFORGE_BUILD_TYPE"])
	require.Equal(t, "from-env", cfg.Values["GCLOUD_BUCKET"], "environment wins over the file")
	require.Equal(t, "1", cfg.Values["DEPFORGE_DEBUG"])
	require.NotContains(t, cfg.Values, "HOME")
}

func TestLoadConfig_MissingFileIsFine(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.conf"), []string{"VCVARS_ARCH=x64"})
	require.NoError(t, err)
	require.Equal(t, "x64", cfg.Values["VCVARS_ARCH"])
}

func TestNewSettings(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := &Config{Values: map[string]string{
		"DEPFORGE_ROOT":                  root,
		"GCLOUD_BUCKET":                  "assets",
		"DEPFORGE_DEBUG":                 "1",
		"DEPFORGE_LOG_FORMAT":            "json",
		"DEPFORGE_GCS_ACCESS_KEY_ID":     "GOOG1",
		"DEPFORGE_GCS_SECRET_ACCESS_KEY": "secret",
		"DEPFORGE_S3_ENDPOINT":           "http://127.0.0.1:9000",
		"VCVARS_ARCH":                    "x64",
		"VCVARS_VERSION":                 "14.29",
		"ProgramFiles":                   `C:\Program Files`,
		"ProgramFiles(x86)":              `C:\Program Files (x86)`,
	}}

	s, err := newSettings(cfg)
	require.NoError(t, err)
	require.Equal(t, root, s.Root)
	require.Equal(t, "assets", s.Bucket)
	require.True(t, s.Debug)
	require.Equal(t, "json", s.LogFormat)
	require.Equal(t, "GOOG1", s.ObjectStore.GCSAccessKeyID)
	require.Equal(t, "http://127.0.0.1:9000", s.ObjectStore.S3Endpoint)
	require.Equal(t, ToolchainConfig{Arch: "x64", Version: "14.29", ProgramFiles: `C:\Program Files (x86)`}, s.Toolchain)
}

func TestNewSettings_Defaults(t *testing.T) {
	t.Parallel()

	s, err := newSettings(&Config{Values: map[string]string{}})
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(s.Root))
	require.Empty(t, s.Bucket)
	require.False(t, s.Debug)
}

func TestNewSettings_BadLogFormat(t *testing.T) {
	t.Parallel()

	_, err := newSettings(&Config{Values: map[string]string{"DEPFORGE_LOG_FORMAT": "xml"}})
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestConfigPath(t *testing.T) {
	t.Parallel()

	require.Equal(t, filepath.Join("/r", ConfigFileName), configPath("/r", nil))
	require.Equal(t, "/etc/depforge.conf", configPath("/r", []string{"DEPFORGE_CONFIG=/etc/depforge.conf"}))
}
