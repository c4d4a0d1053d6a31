package depforge

import "path/filepath"

// Layout derives every path the pipeline reads or writes from a single root.
type Layout struct {
	Root string
}

func (l Layout) DownloadDir() string { return filepath.Join(l.Root, "download") }
func (l Layout) SourceDir() string   { return filepath.Join(l.Root, "source") }
func (l Layout) BuildDir() string    { return filepath.Join(l.Root, "build") }
func (l Layout) InstallDir() string  { return filepath.Join(l.Root, "install") }
func (l Layout) PatchDir() string    { return filepath.Join(l.Root, "patch") }
func (l Layout) LibDir() string      { return filepath.Join(l.Root, "lib") }

// ArtifactPath is where the download for t is stored, given its expanded filename.
func (l Layout) ArtifactPath(t *Target, filename string) string {
	return filepath.Join(l.DownloadDir(), t.Name, t.Version, filename)
}

// ExtractDir is the directory the archive of t is unpacked into.
func (l Layout) ExtractDir(t *Target) string {
	return filepath.Join(l.SourceDir(), t.Name, t.Version)
}

// TargetBuildDir is the CMake binary directory of t.
func (l Layout) TargetBuildDir(t *Target) string {
	return filepath.Join(l.BuildDir(), t.Name, t.Version)
}

// PatchFile is the optional patch applied to the sources of t.
func (l Layout) PatchFile(t *Target) string {
	return filepath.Join(l.PatchDir(), t.Name+"_"+t.Version+".patch")
}

// MarkerPath returns the completion marker of (t, stage). The download marker
// sits next to the artifact, so it needs the expanded filename; other stages
// ignore it.
func (l Layout) MarkerPath(t *Target, s Stage, filename string) string {
	switch s {
	case StageDownload:
		return l.ArtifactPath(t, filename) + markerSuffix
	case StageExtract, StagePatch:
		return l.ExtractDir(t) + "." + string(s) + markerSuffix
	default:
		return l.TargetBuildDir(t) + "." + string(s) + markerSuffix
	}
}
