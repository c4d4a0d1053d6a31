package depforge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// handlers are the custom stage implementations a manifest may reference by name.
var handlers = map[string]StageFunc{
	"steamworks-install": installSteamworks,
}

// builtinTargets declares the libraries built by default, in build order.
func builtinTargets() []*Target {
	return []*Target{
		{
			Name:         "zlib",
			Version:      "1.3.1",
			Digest:       "38ef96b8dfe510d42707d9c781877914792541133e1870841463bfa73f883e32",
			Filename:     "zlib-{version}.tar.xz",
			SourceSubdir: "zlib-{version}",
			URL:          "https://www.zlib.net/{filename}",
		},
		{
			Name:         "boost",
			Version:      "1.81.0",
			Digest:       "06bc525a392650eb6248f40a13f40112b6c485eec7103b6dcde7196f2a3570e0",
			Filename:     "boost-{version}.tar.xz",
			SourceSubdir: "boost-{version}",
			URL:          "https://github.com/boostorg/boost/releases/download/boost-{version}/{filename}",
		},
		{
			Name:         "cereal",
			Version:      "1.3.2",
			Digest:       "16a7ad9b31ba5880dac55d62b5d6f243c3ebc8d46a3514149e56b5e7ea81f85f",
			Filename:     "v{version}.tar.gz",
			SourceSubdir: "cereal-{version}",
			URL:          "https://github.com/USCiLab/cereal/archive/refs/tags/{filename}",
			ConfigureOptions: []string{
				"-DBUILD_TESTS=OFF",
				"-DBUILD_DOC=OFF",
				"-DBUILD_SANDBOX=OFF",
				"-DSKIP_PERFORMANCE_COMPARISON=ON",
			},
		},
		{
			Name:         "msgpack",
			Version:      "6.0.0",
			Digest:       "0948d2db98245fb97b9721cfbc3e44c1b832e3ce3b8cfd7485adc368dc084d14",
			Filename:     "msgpack-cxx-{version}.tar.gz",
			SourceSubdir: "msgpack-cxx-{version}",
			URL:          "https://github.com/msgpack/msgpack-c/releases/download/cpp-{version}/{filename}",
			ConfigureOptions: []string{
				"-DMSGPACK_CXX20=ON",
				"-DMSGPACK_BUILD_DOCS=OFF",
				"-DMSGPACK_USE_BOOST=OFF",
			},
		},
		{
			Name:             "wxwidgets",
			Version:          "3.2.2.1",
			Digest:           "dffcb6be71296fff4b7f8840eb1b510178f57aa2eb236b20da41182009242c02",
			Filename:         "wxWidgets-{version}.tar.bz2",
			SourceSubdir:     "wxWidgets-{version}",
			URL:              "https://github.com/wxWidgets/wxWidgets/releases/download/v{version}/{filename}",
			ConfigureOptions: []string{"-DwxBUILD_SHARED=OFF"},
		},
		{
			Name:         "steamworks-sdk",
			Version:      "1.55",
			Digest:       "3d5ab5d2b5538fdbe49fd81abf3b6bc6c18b91bcc6a0fecd4122f22b243ee704",
			Filename:     "steamworks_sdk_155.zip",
			SourceSubdir: "sdk",
			URL:          "gs://{bucket}/libraries/steamworks-sdk/{filename}",
			Stages: map[Stage]StageAction{
				StageConfigure: Skip(),
				StageCompile:   Skip(),
				StageInstall:   Custom("steamworks-install", installSteamworks),
			},
		},
	}
}

// steamworksLibs lists the redistributable files to install for goos/goarch,
// relative to redistributable_bin, and whether they go to bin or lib.
func steamworksLibs(goos, goarch string) (files []string, destDir string, err error) {
	is64 := goarch == "amd64" || goarch == "arm64"
	switch goos {
	case "darwin":
		return []string{filepath.Join("osx", "libsteam_api.dylib")}, "lib", nil
	case "linux":
		if is64 {
			return []string{filepath.Join("linux64", "libsteam_api.so")}, "lib", nil
		}
		return []string{filepath.Join("linux32", "libsteam_api.so")}, "lib", nil
	case "windows":
		if is64 {
			return []string{
				filepath.Join("win64", "steam_api64.dll"),
				filepath.Join("win64", "steam_api64.lib"),
			}, "bin", nil
		}
		return []string{"steam_api.dll", "steam_api.lib"}, "bin", nil
	}
	return nil, "", fmt.Errorf("steamworks sdk has no libraries for %s/%s", goos, goarch)
}

// installSteamworks copies the SDK headers and the platform's prebuilt library
// into the install root. The SDK ships binaries only, so there is nothing to
// configure or compile.
func installSteamworks(_ context.Context, p *Pipeline, t *Target) error {
	marker, err := p.Marker(t, StageInstall)
	if err != nil {
		return err
	}
	if p.Markers.Exists(marker) {
		return nil
	}
	src, err := p.SourceDir(t)
	if err != nil {
		return err
	}
	step("Installing %s", t)

	includeSrc := filepath.Join(src, "public", "steam")
	entries, err := os.ReadDir(includeSrc)
	if err != nil {
		return fmt.Errorf("steamworks headers: %w", err)
	}
	includeDst := filepath.Join(p.Layout.InstallDir(), "include", "steam")
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".h") {
			continue
		}
		if err := copyFile(filepath.Join(includeSrc, e.Name()), filepath.Join(includeDst, e.Name())); err != nil {
			return err
		}
	}

	libs, destDir, err := steamworksLibs(goos, arch)
	if err != nil {
		return err
	}
	libSrc := filepath.Join(src, "redistributable_bin")
	libDst := filepath.Join(p.Layout.InstallDir(), destDir)
	for _, rel := range libs {
		if err := copyFile(filepath.Join(libSrc, rel), filepath.Join(libDst, filepath.Base(rel))); err != nil {
			return err
		}
	}
	return p.Markers.Create(marker)
}
