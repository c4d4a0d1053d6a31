package depforge

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Stage is one step of the build pipeline.
type Stage string

const (
	StageDownload  Stage = "download"
	StageExtract   Stage = "extract"
	StagePatch     Stage = "patch"
	StageConfigure Stage = "configure"
	StageCompile   Stage = "compile"
	StageInstall   Stage = "install"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageDownload, StageExtract, StagePatch, StageConfigure, StageCompile, StageInstall}

// ParseStage maps a stage name to its Stage.
func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if string(st) == strings.ToLower(strings.TrimSpace(s)) {
			return st, nil
		}
	}
	return "", configErrorf("unknown stage %q", s)
}

// StageFunc replaces the default behavior of a stage for one target. It is
// responsible for its own idempotency and completion marker.
type StageFunc func(ctx context.Context, p *Pipeline, t *Target) error

// ActionKind selects how the pipeline treats a (target, stage) pair.
type ActionKind int

const (
	ActionDefault ActionKind = iota
	ActionSkip
	ActionCustom
)

func (k ActionKind) String() string {
	switch k {
	case ActionSkip:
		return "skip"
	case ActionCustom:
		return "custom"
	default:
		return "default"
	}
}

// StageAction is the per-stage behavior declared by a target.
type StageAction struct {
	Kind ActionKind
	// Name identifies a custom handler in listings and manifests.
	Name string
	Fn   StageFunc
}

// Default runs the built-in stage behavior.
func Default() StageAction { return StageAction{Kind: ActionDefault} }

// Skip turns the stage into a no-op for the target.
func Skip() StageAction { return StageAction{Kind: ActionSkip} }

// Custom replaces the stage with fn.
func Custom(name string, fn StageFunc) StageAction {
	return StageAction{Kind: ActionCustom, Name: name, Fn: fn}
}

func (a StageAction) String() string {
	if a.Kind == ActionCustom && a.Name != "" {
		return a.Name
	}
	return a.Kind.String()
}

// Target describes one third-party dependency. Filename, SourceSubdir and URL
// are templates expanded by Expander.
type Target struct {
	Name             string `validate:"required,excludesall=/"`
	Version          string `validate:"required,excludesall=/"`
	Digest           string `validate:"required"`
	Filename         string `validate:"required"`
	SourceSubdir     string
	URL              string `validate:"required"`
	ConfigureOptions []string
	Stages           map[Stage]StageAction
}

// Action returns the declared behavior for stage s.
func (t *Target) Action(s Stage) StageAction {
	if a, ok := t.Stages[s]; ok {
		return a
	}
	return Default()
}

func (t *Target) String() string { return t.Name + " " + t.Version }

var validate = validator.New()

func validateTarget(t *Target) error {
	if err := validate.Struct(t); err != nil {
		return configErrorf("target %q: %v", t.Name, err)
	}
	if _, _, err := parseDigest(t.Digest); err != nil {
		return configErrorf("target %q: %v", t.Name, err)
	}
	for s, a := range t.Stages {
		if _, err := ParseStage(string(s)); err != nil {
			return configErrorf("target %q: %v", t.Name, err)
		}
		if a.Kind == ActionCustom && a.Fn == nil {
			return configErrorf("target %q: stage %s: custom action without a handler", t.Name, s)
		}
	}
	return nil
}

// Registry is the ordered set of declared targets.
type Registry struct {
	targets []*Target
	index   map[string]*Target
}

// NewRegistry validates the declarations and keeps them in the given order.
func NewRegistry(targets ...*Target) (*Registry, error) {
	r := &Registry{index: make(map[string]*Target, len(targets))}
	for _, t := range targets {
		if err := validateTarget(t); err != nil {
			return nil, err
		}
		if _, dup := r.index[t.Name]; dup {
			return nil, configErrorf("duplicate target %q", t.Name)
		}
		r.index[t.Name] = t
		r.targets = append(r.targets, t)
	}
	return r, nil
}

// Targets returns all targets in registry order.
func (r *Registry) Targets() []*Target {
	out := make([]*Target, len(r.targets))
	copy(out, r.targets)
	return out
}

// Lookup finds a target by name.
func (r *Registry) Lookup(name string) (*Target, bool) {
	t, ok := r.index[name]
	return t, ok
}

// Select returns the named targets in registry order. No names selects all.
// Every name is checked before anything is returned.
func (r *Registry) Select(names []string) ([]*Target, error) {
	if len(names) == 0 {
		return r.Targets(), nil
	}
	want := make(map[string]bool, len(names))
	var unknown []string
	for _, n := range names {
		if _, ok := r.index[n]; !ok {
			unknown = append(unknown, n)
			continue
		}
		want[n] = true
	}
	if len(unknown) > 0 {
		return nil, configErrorf("unknown target(s): %s", strings.Join(unknown, ", "))
	}

	var out []*Target
	for _, t := range r.targets {
		if want[t.Name] {
			out = append(out, t)
		}
	}
	return out, nil
}

// Names returns target names in registry order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.targets))
	for _, t := range r.targets {
		names = append(names, t.Name)
	}
	return names
}
