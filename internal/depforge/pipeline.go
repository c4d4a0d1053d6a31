package depforge

import (
	"context"
	"fmt"
	"path/filepath"
)

// Pipeline applies the stages to the registry's targets, stage by stage.
type Pipeline struct {
	Registry  *Registry
	Layout    Layout
	Expander  *Expander
	Markers   MarkerStore
	Fetcher   Fetcher
	Extractor Extractor
	Patcher   Patcher
	Tool      BuildTool
}

// Run executes every stage for the named targets (all when names is empty).
// Every target finishes a stage before any target starts the next one. The
// first failure aborts the run; rerunning resumes from the missing markers.
func (p *Pipeline) Run(ctx context.Context, names []string) error {
	targets, err := p.Registry.Select(names)
	if err != nil {
		return err
	}

	for _, stage := range Stages {
		for _, t := range targets {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := p.runStage(ctx, stage, t); err != nil {
				return &StageError{Target: t.Name, Version: t.Version, Stage: stage, Err: err}
			}
		}
	}
	return nil
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, t *Target) error {
	action := t.Action(stage)
	switch action.Kind {
	case ActionSkip:
		debugf("%s: %s skipped", t, stage)
		return nil
	case ActionCustom:
		debugf("%s: %s handled by %s", t, stage, action)
		return action.Fn(ctx, p, t)
	}

	switch stage {
	case StageDownload:
		return p.download(ctx, t)
	case StageExtract:
		return p.extract(t)
	case StagePatch:
		return p.patch(t)
	case StageConfigure:
		return p.configure(t)
	case StageCompile:
		return p.compile(t)
	case StageInstall:
		return p.install(t)
	}
	return fmt.Errorf("no default behavior for stage %q", stage)
}

// Marker returns the completion marker path of (t, stage).
func (p *Pipeline) Marker(t *Target, stage Stage) (string, error) {
	filename := ""
	if stage == StageDownload {
		var err error
		if filename, err = p.Expander.Filename(t); err != nil {
			return "", err
		}
	}
	return p.Layout.MarkerPath(t, stage, filename), nil
}

// SourceDir is the extracted source tree of t, including its expanded
// source subdirectory.
func (p *Pipeline) SourceDir(t *Target) (string, error) {
	subdir, err := p.Expander.Expand(t, t.SourceSubdir)
	if err != nil {
		return "", err
	}
	return filepath.Join(p.Layout.ExtractDir(t), subdir), nil
}
