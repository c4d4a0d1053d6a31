package depforge

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// manifestFile is the YAML form of a target list:
//
//	targets:
//	  - name: zlib
//	    version: 1.3.1
//	    sha256: 38ef96b8...
//	    filename: zlib-{version}.tar.xz
//	    source_subdir: zlib-{version}
//	    url: https://www.zlib.net/{filename}
//	    configure_options: []
//	    stages:
//	      patch: skip
type manifestFile struct {
	Targets []manifestTarget `yaml:"targets"`
}

type manifestTarget struct {
	Name             string            `yaml:"name"`
	Version          string            `yaml:"version"`
	SHA256           string            `yaml:"sha256"`
	Digest           string            `yaml:"digest"`
	Filename         string            `yaml:"filename"`
	SourceSubdir     string            `yaml:"source_subdir"`
	URL              string            `yaml:"url"`
	ConfigureOptions []string          `yaml:"configure_options"`
	Stages           map[string]string `yaml:"stages"`
}

// parseManifest decodes a manifest into targets. Stage values are "default",
// "skip" or the name of a registered handler.
func parseManifest(data []byte) ([]*Target, error) {
	var mf manifestFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, configErrorf("manifest: %v", err)
	}
	if len(mf.Targets) == 0 {
		return nil, configErrorf("manifest declares no targets")
	}

	targets := make([]*Target, 0, len(mf.Targets))
	for _, mt := range mf.Targets {
		digest := mt.Digest
		if digest == "" {
			digest = mt.SHA256
		}
		t := &Target{
			Name:             mt.Name,
			Version:          mt.Version,
			Digest:           digest,
			Filename:         mt.Filename,
			SourceSubdir:     mt.SourceSubdir,
			URL:              mt.URL,
			ConfigureOptions: mt.ConfigureOptions,
		}
		if len(mt.Stages) > 0 {
			t.Stages = make(map[Stage]StageAction, len(mt.Stages))
		}
		for name, value := range mt.Stages {
			stage, err := ParseStage(name)
			if err != nil {
				return nil, configErrorf("manifest target %q: %v", mt.Name, err)
			}
			action, err := parseAction(value)
			if err != nil {
				return nil, configErrorf("manifest target %q stage %s: %v", mt.Name, stage, err)
			}
			t.Stages[stage] = action
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func parseAction(value string) (StageAction, error) {
	switch value {
	case "", "default":
		return Default(), nil
	case "skip":
		return Skip(), nil
	}
	fn, ok := handlers[value]
	if !ok {
		return StageAction{}, fmt.Errorf("unknown handler %q", value)
	}
	return Custom(value, fn), nil
}

// loadRegistry builds the registry from the manifest at path, or from the
// built-in declarations when path is empty.
func loadRegistry(path string) (*Registry, error) {
	if path == "" {
		return NewRegistry(builtinTargets()...)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configErrorf("read manifest: %v", err)
	}
	targets, err := parseManifest(data)
	if err != nil {
		return nil, err
	}
	return NewRegistry(targets...)
}
