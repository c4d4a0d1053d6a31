package depforge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

func (p *Pipeline) download(ctx context.Context, t *Target) error {
	url, err := p.Expander.Expand(t, t.URL)
	if err != nil {
		return err
	}
	filename, err := p.Expander.Filename(t)
	if err != nil {
		return err
	}
	artifact := p.Layout.ArtifactPath(t, filename)
	marker := p.Layout.MarkerPath(t, StageDownload, filename)
	if p.Markers.Exists(marker) {
		return nil
	}

	switch _, err := os.Stat(artifact); {
	case errors.Is(err, fs.ErrNotExist):
		step("Downloading %s from %s", t, url)
		if err := p.Fetcher.Fetch(ctx, url, artifact); err != nil {
			return fmt.Errorf("failed to download %s: %w", url, err)
		}
	case err != nil:
		return err
	default:
		debugf("%s: %s already downloaded, verifying", t, artifact)
	}

	// A present artifact may come from an interrupted run; always verify.
	actual, ok, err := verifyDigest(artifact, t.Digest)
	if err != nil {
		return err
	}
	if !ok {
		return &IntegrityError{Path: artifact, Expected: t.Digest, Actual: actual}
	}
	return p.Markers.Create(marker)
}

func (p *Pipeline) extract(t *Target) error {
	marker := p.Layout.MarkerPath(t, StageExtract, "")
	if p.Markers.Exists(marker) {
		return nil
	}
	filename, err := p.Expander.Filename(t)
	if err != nil {
		return err
	}
	artifact := p.Layout.ArtifactPath(t, filename)
	if _, err := os.Stat(artifact); err != nil {
		return fmt.Errorf("downloaded archive missing: %w", err)
	}

	step("Extracting %s sources", t)
	dir := p.Layout.ExtractDir(t)
	// Drop whatever an interrupted extraction left behind.
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	if err := p.Extractor.Extract(artifact, dir); err != nil {
		return fmt.Errorf("failed to extract %s: %w", artifact, err)
	}
	return p.Markers.Create(marker)
}

// patch is a silent no-op without a patch file. Once applied, the marker
// prevents a second application even if the patch file changes.
func (p *Pipeline) patch(t *Target) error {
	patchFile := p.Layout.PatchFile(t)
	if !fileExists(patchFile) {
		return nil
	}
	marker := p.Layout.MarkerPath(t, StagePatch, "")
	if p.Markers.Exists(marker) {
		return nil
	}
	dir, err := p.SourceDir(t)
	if err != nil {
		return err
	}

	step("Patching %s sources", t)
	if err := p.Patcher.Apply(patchFile, dir); err != nil {
		return err
	}
	return p.Markers.Create(marker)
}

func (p *Pipeline) configure(t *Target) error {
	marker := p.Layout.MarkerPath(t, StageConfigure, "")
	if p.Markers.Exists(marker) {
		return nil
	}
	src, err := p.SourceDir(t)
	if err != nil {
		return err
	}

	step("Configuring %s", t)
	if err := p.Tool.Configure(src, p.Layout.TargetBuildDir(t), p.Layout.InstallDir(), t.ConfigureOptions); err != nil {
		return err
	}
	return p.Markers.Create(marker)
}

func (p *Pipeline) compile(t *Target) error {
	marker := p.Layout.MarkerPath(t, StageCompile, "")
	if p.Markers.Exists(marker) {
		return nil
	}

	step("Building %s", t)
	if err := p.Tool.Compile(p.Layout.TargetBuildDir(t)); err != nil {
		return err
	}
	return p.Markers.Create(marker)
}

func (p *Pipeline) install(t *Target) error {
	marker := p.Layout.MarkerPath(t, StageInstall, "")
	if p.Markers.Exists(marker) {
		return nil
	}

	step("Installing %s", t)
	if err := p.Tool.Install(p.Layout.TargetBuildDir(t), p.Layout.InstallDir()); err != nil {
		return err
	}
	return p.Markers.Create(marker)
}
