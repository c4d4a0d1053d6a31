package depforge

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Config holds raw KEY=VALUE settings from the config file and environment.
type Config struct {
	Values map[string]string
}

// Environment variables imported besides DEPFORGE_*.
var passthroughEnv = []string{"GCLOUD_BUCKET", "VCVARS_ARCH", "VCVARS_VERSION", "ProgramFiles", "ProgramFiles(x86)"}

// loadConfig reads the config file at path, if any, then applies environment overrides.
func loadConfig(path string, environ []string) (*Config, error) {
	cfg := &Config{Values: make(map[string]string)}

	// Attempt to read the file
	file, err := os.Open(path)
	switch {
	case err == nil:
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			key, val, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			key = strings.TrimSpace(key)
			val = strings.Trim(strings.TrimSpace(val), `"'`)
			cfg.Values[key] = val
		}
		if err := scanner.Err(); err != nil {
			return cfg, err
		}
	case !errors.Is(err, fs.ErrNotExist):
		return cfg, err
	}

	mergeEnvOverrides(cfg, environ)
	return cfg, nil
}

// mergeEnvOverrides applies DEPFORGE_* variables and the passthrough list.
func mergeEnvOverrides(cfg *Config, environ []string) {
	for _, env := range environ {
		key, val, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}
		if strings.HasPrefix(key, "DEPFORGE_") {
			cfg.Values[key] = val
			continue
		}
		for _, p := range passthroughEnv {
			if strings.EqualFold(key, p) {
				cfg.Values[p] = val
			}
		}
	}
}

// Settings is the typed, explicit configuration handed to the pipeline and
// its collaborators. Nothing reads the process environment after it is built.
type Settings struct {
	Root        string
	Manifest    string
	Bucket      string
	Generator   string
	BuildType   string
	Debug       bool
	LogFormat   string
	ObjectStore ObjectStoreConfig
	Toolchain   ToolchainConfig
	NativeFetch bool
}

func newSettings(cfg *Config) (*Settings, error) {
	v := cfg.Values
	s := &Settings{
		Root:      v["DEPFORGE_ROOT"],
		Manifest:  v["DEPFORGE_MANIFEST"],
		Bucket:    v["GCLOUD_BUCKET"],
		Generator: v["DEPFORGE_GENERATOR"],
		BuildType: v["DEPFORGE_BUILD_TYPE"],
		Debug:     v["DEPFORGE_DEBUG"] == "1",
		LogFormat: v["DEPFORGE_LOG_FORMAT"],
		ObjectStore: ObjectStoreConfig{
			GCSAccessKeyID:     v["DEPFORGE_GCS_ACCESS_KEY_ID"],
			GCSSecretAccessKey: v["DEPFORGE_GCS_SECRET_ACCESS_KEY"],
			S3AccessKeyID:      v["DEPFORGE_S3_ACCESS_KEY_ID"],
			S3SecretAccessKey:  v["DEPFORGE_S3_SECRET_ACCESS_KEY"],
			S3Endpoint:         v["DEPFORGE_S3_ENDPOINT"],
			S3Region:           v["DEPFORGE_S3_REGION"],
		},
		Toolchain: ToolchainConfig{
			Arch:         v["VCVARS_ARCH"],
			Version:      v["VCVARS_VERSION"],
			ProgramFiles: v["ProgramFiles(x86)"],
		},
		NativeFetch: v["DEPFORGE_NATIVE_FETCH"] == "1",
	}
	if s.Toolchain.ProgramFiles == "" {
		s.Toolchain.ProgramFiles = v["ProgramFiles"]
	}
	if bucket := v["DEPFORGE_BUCKET"]; bucket != "" {
		s.Bucket = bucket
	}

	if s.Root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		s.Root = wd
	}
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return nil, err
	}
	s.Root = root

	switch s.LogFormat {
	case "", "console", "json":
	default:
		return nil, configErrorf("DEPFORGE_LOG_FORMAT must be console or json, got %q", s.LogFormat)
	}
	return s, nil
}

// configPath picks the config file: DEPFORGE_CONFIG, else depforge.conf in root.
func configPath(root string, environ []string) string {
	for _, env := range environ {
		if v, ok := strings.CutPrefix(env, "DEPFORGE_CONFIG="); ok && v != "" {
			return v
		}
	}
	return filepath.Join(root, ConfigFileName)
}
