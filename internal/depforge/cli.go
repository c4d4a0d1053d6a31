package depforge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

// cliOptions holds the global flags and the environment snapshot a command
// works from.
type cliOptions struct {
	root     string
	manifest string
	debug    bool
	environ  []string
}

// Main is the CLI entrypoint for cmd/depforge.
func Main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigs:
			colArrow.Print("\n-> ")
			color.Danger.Printf("Received %v. Cancelling build\n", sig)
			cancel()

			// A second signal skips waiting for the children to wind down.
			<-sigs
			colArrow.Print("\n-> ")
			color.Danger.Println("Second interrupt received. Forcing immediate exit.")
			os.Exit(130)
		case <-ctx.Done():
		}
	}()

	opts := &cliOptions{environ: os.Environ()}
	if err := newRootCommand(opts).ExecuteContext(ctx); err != nil {
		colArrow.Print("-> ")
		colError.Printf("%v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}

func newRootCommand(opts *cliOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "depforge [target...]",
		Short: "Build native third-party libraries into a shared install prefix",
		Long: `depforge downloads, verifies, extracts, patches, configures, compiles and
installs the declared third-party libraries. Every completed step leaves a
marker on disk, so an interrupted run resumes where it stopped.

With no arguments every declared target is built.`,
		Example: `  # Build everything
  depforge

  # Build only zlib and cereal under a custom root
  depforge --root ./third_party zlib cereal`,
		Version:       fmt.Sprintf("%s (built: %s, %s)", version, buildDate, arch),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), opts, args)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.root, "root", "", "root directory for download/source/build/install trees")
	rootCmd.PersistentFlags().StringVar(&opts.manifest, "manifest", "", "YAML manifest declaring the targets")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newListCommand(opts))
	rootCmd.AddCommand(newStatusCommand(opts))
	rootCmd.AddCommand(newResetCommand(opts))
	rootCmd.AddCommand(newEnvCommand(opts))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// prepare loads the settings, installs the logger and builds the registry.
func prepare(opts *cliOptions) (*Settings, *Registry, error) {
	rootHint := opts.root
	if rootHint == "" {
		for _, env := range opts.environ {
			if v, ok := strings.CutPrefix(env, "DEPFORGE_ROOT="); ok {
				rootHint = v
			}
		}
	}
	if rootHint == "" {
		rootHint = "."
	}

	cfg, err := loadConfig(configPath(rootHint, opts.environ), opts.environ)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.root != "" {
		cfg.Values["DEPFORGE_ROOT"] = opts.root
	}
	if opts.manifest != "" {
		cfg.Values["DEPFORGE_MANIFEST"] = opts.manifest
	}
	if opts.debug {
		cfg.Values["DEPFORGE_DEBUG"] = "1"
	}

	s, err := newSettings(cfg)
	if err != nil {
		return nil, nil, err
	}
	setLogger(newLogger(os.Stderr, s.LogFormat, s.Debug))

	reg, err := loadRegistry(s.Manifest)
	if err != nil {
		return nil, nil, err
	}
	return s, reg, nil
}

// newPipeline wires the default collaborators around runner.
func newPipeline(s *Settings, reg *Registry, runner CommandRunner) *Pipeline {
	return &Pipeline{
		Registry: reg,
		Layout:   Layout{Root: s.Root},
		Expander: &Expander{Bucket: s.Bucket},
		Fetcher: &SchemeFetcher{
			HTTP: &HTTPFetcher{
				Runner:     runner,
				Client:     newHTTPClient(),
				NativeOnly: s.NativeFetch,
				Progress:   terminalProgress(),
			},
			Objects: &ObjectStoreFetcher{Config: s.ObjectStore},
		},
		Extractor: ArchiveExtractor{},
		Patcher:   &GitPatcher{Runner: runner},
		Tool: &CMake{
			Runner:    runner,
			Generator: s.Generator,
			BuildType: s.BuildType,
		},
	}
}

// activate runs the toolchain activator and returns an executor carrying its
// environment.
func activate(ctx context.Context, s *Settings) (*Executor, error) {
	activator := newActivator(s.Toolchain, NewExecutor(ctx, nil))
	env, err := activator.Activate(ctx)
	if err != nil {
		return nil, fmt.Errorf("toolchain activation failed: %w", err)
	}
	logger.Debug().Int("vars", len(env)).Msg("toolchain activated")
	return NewExecutor(ctx, env), nil
}

func runBuild(ctx context.Context, opts *cliOptions, names []string) error {
	s, reg, err := prepare(opts)
	if err != nil {
		return err
	}
	// Resolve the selection before touching the tree.
	targets, err := reg.Select(names)
	if err != nil {
		return err
	}

	lock, err := acquireRunLock(s.Root)
	if err != nil {
		return err
	}
	defer lock.Release()

	exe, err := activate(ctx, s)
	if err != nil {
		return err
	}

	p := newPipeline(s, reg, exe)
	if err := copyLibToInstall(p.Layout); err != nil {
		return fmt.Errorf("failed to copy bundled libraries: %w", err)
	}

	logger.Info().Str("root", s.Root).Int("targets", len(targets)).Msg("starting build")
	start := time.Now()
	if err := p.Run(ctx, names); err != nil {
		return err
	}
	step("Built %d target(s) in %s", len(targets), time.Since(start).Round(time.Millisecond))
	return nil
}

func newListCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List declared targets and their stage actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, reg, err := prepare(opts)
			if err != nil {
				return err
			}
			for _, t := range reg.Targets() {
				cPrintf(colInfo, "%s %s\n", t.Name, t.Version)
				cPrintf(nil, "  url: %s\n", t.URL)
				for _, s := range Stages {
					if a := t.Action(s); a.Kind != ActionDefault {
						cPrintf(colNote, "  %s: %s\n", s, a)
					}
				}
			}
			return nil
		},
	}
}

func newStatusCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status [target...]",
		Short: "Show which stages are complete for each target",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, reg, err := prepare(opts)
			if err != nil {
				return err
			}
			targets, err := reg.Select(args)
			if err != nil {
				return err
			}
			p := newPipeline(s, reg, nil)
			for _, t := range targets {
				cPrintln(colInfo, t.String())
				for _, stage := range Stages {
					marker, err := p.Marker(t, stage)
					if err != nil {
						return err
					}
					switch {
					case t.Action(stage).Kind == ActionSkip:
						cPrintf(colNote, "  %-10s skipped\n", stage)
					case stage == StagePatch && !fileExists(p.Layout.PatchFile(t)):
						cPrintf(colNote, "  %-10s no patch\n", stage)
					case p.Markers.Exists(marker):
						cPrintf(colSuccess, "  %-10s done\n", stage)
					default:
						cPrintf(colWarn, "  %-10s pending\n", stage)
					}
				}
			}

			stale, err := staleMarkers(p)
			if err != nil {
				return err
			}
			if len(stale) > 0 {
				cPrintln(colWarn, "stale markers (no declared target or version):")
				for _, m := range stale {
					cPrintf(nil, "  %s\n", m)
				}
			}
			return nil
		},
	}
}

// staleMarkers returns the markers under the root that belong to no declared
// (target, version, stage), such as those of an older version.
func staleMarkers(p *Pipeline) ([]string, error) {
	declared := make(map[string]bool)
	for _, t := range p.Registry.Targets() {
		for _, stage := range Stages {
			marker, err := p.Marker(t, stage)
			if err != nil {
				return nil, err
			}
			declared[filepath.Clean(marker)] = true
		}
	}
	markers, err := p.Markers.List(p.Layout.Root)
	if err != nil {
		return nil, err
	}
	var stale []string
	for _, m := range markers {
		if !declared[filepath.Clean(m)] {
			stale = append(stale, m)
		}
	}
	return stale, nil
}

func newResetCommand(opts *cliOptions) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "reset <target>",
		Short: "Delete completion markers so stages run again",
		Long: `Delete the completion markers of a target. With --stage, the named stage
and every later stage are reset; without it, all stages are.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, reg, err := prepare(opts)
			if err != nil {
				return err
			}
			targets, err := reg.Select(args)
			if err != nil {
				return err
			}
			first := StageDownload
			if from != "" {
				if first, err = ParseStage(from); err != nil {
					return err
				}
			}

			lock, err := acquireRunLock(s.Root)
			if err != nil {
				return err
			}
			defer lock.Release()

			p := newPipeline(s, reg, nil)
			n, err := resetMarkers(p, targets[0], first)
			if err != nil {
				return err
			}
			step("Reset %d marker(s) for %s", n, targets[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "stage", "", "first stage to reset")
	return cmd
}

// resetMarkers clears the markers of stage from and every later stage. It
// returns how many markers existed.
func resetMarkers(p *Pipeline, t *Target, from Stage) (int, error) {
	n := 0
	started := false
	for _, stage := range Stages {
		if stage == from {
			started = true
		}
		if !started {
			continue
		}
		marker, err := p.Marker(t, stage)
		if err != nil {
			return n, err
		}
		if p.Markers.Exists(marker) {
			n++
		}
		if err := p.Markers.Clear(marker); err != nil {
			return n, err
		}
		debugf("cleared %s", marker)
	}
	return n, nil
}

func newEnvCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "env -- <command> [args...]",
		Short: "Run a command inside the activated toolchain environment",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := prepare(opts)
			if err != nil {
				return err
			}
			exe, err := activate(cmd.Context(), s)
			if err != nil {
				return err
			}
			c := exec.Command(args[0], args[1:]...)
			c.Stdin = os.Stdin
			return exe.Run(c)
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "depforge %s (built: %s, %s/%s)\n", version, buildDate, goos, arch)
		},
	}
}
