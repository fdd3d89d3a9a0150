// Package cmd provides the CLI commands for test-select.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/learning-assistant/test-select/internal/domain"
	"github.com/learning-assistant/test-select/internal/infrastructure/config"
)

// Logger defines the logging interface used by the command.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// Dependencies holds all injectable dependencies for the command.
// This enables testing by allowing mock implementations to be injected.
type Dependencies struct {
	// LoggerFactory creates a logger instance.
	LoggerFactory func() Logger

	// ConfigLoader loads the selector configuration from the given path
	// (empty means the default lookup).
	ConfigLoader func(path string) (*config.Config, error)

	// ListerFactory creates a ChangeLister for the repository at path.
	ListerFactory func(path string, log Logger) (domain.ChangeLister, error)

	// BuilderFactory creates a TestMapBuilder rooted at the repository path.
	BuilderFactory func(repoPath string, cfg *config.Config, log Logger) domain.TestMapBuilder

	// SelectorFactory creates the Selector with the given dependencies.
	SelectorFactory func(
		lister domain.ChangeLister,
		builder domain.TestMapBuilder,
		cfg *config.Config,
		log Logger,
	) domain.Selector

	// WriterFactory creates a ReportWriter.
	WriterFactory func(cfg *config.Config) domain.ReportWriter

	// Stdout is the writer for standard output (for the run summary).
	Stdout io.Writer

	// Stderr is the writer for standard error (for warnings/errors).
	Stderr io.Writer
}

// Command-line flags.
var (
	baseRev    string
	headRev    string
	configPath string
	outputDir  string
	strict     bool
	verbose    bool
)

// defaultDeps holds the production dependencies.
// This is set by the production wiring in main or via SetDefaultDependencies.
var defaultDeps *Dependencies

// SetDefaultDependencies sets the default dependencies for production use.
// This should be called from main() before Execute().
func SetDefaultDependencies(deps *Dependencies) {
	defaultDeps = deps
}

// NewRootCmd creates the root command for test-select.
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithDeps(defaultDeps)
}

// NewRootCmdWithDeps creates the root command with explicit dependencies.
// This is the primary constructor that enables testing via dependency injection.
func NewRootCmdWithDeps(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "test-select [path]",
		Short: "Select the tests impacted by the files changed since the previous commit",
		Long: `test-select reduces CI time by running only the tests impacted by a change.

It diffs the repository's head commit against its parent (or explicit
revisions), builds a dependency map from test files to the source files they
import, and selects the impacted tests: directly via the dependency map and
naming conventions, and broadly via category heuristics. It writes a
selection artifact and a CI job matrix, and appends outputs to the CI output
sink when one is configured.

When nothing matches, a minimal smoke selection keeps CI from running zero
tests. A manifest or lockfile change selects every test.

Examples:
  # Select tests for the latest commit of the current checkout
  test-select

  # Select tests for a pull request range
  test-select --base origin/main --head HEAD

  # Use a custom selector configuration
  test-select --config ci/test-select.yaml

  # Fail instead of falling back when the diff cannot be computed
  test-select --strict`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(cmd, args, deps)
		},
	}

	// Define flags
	rootCmd.Flags().StringVarP(&baseRev, "base", "b", "",
		"Base revision to diff against (default: first parent of head)")
	rootCmd.Flags().StringVarP(&headRev, "head", "H", "",
		"Head revision to diff (default: HEAD)")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "",
		"Path to the selector configuration file")
	rootCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "",
		"Directory for the JSON artifacts (default: config output_dir)")
	rootCmd.Flags().BoolVar(&strict, "strict", false,
		"Treat a failed changed-file diff as fatal instead of selecting the smoke fallback")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose/debug logging")

	return rootCmd
}

// runSelect executes the selection pipeline with injected dependencies.
func runSelect(cmd *cobra.Command, args []string, deps *Dependencies) error {
	if deps == nil {
		return errors.New("dependencies not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Determine repository path
	repoPath := "."
	if len(args) > 0 {
		repoPath = args[0]
	}

	// Get stderr for warnings
	stderr := deps.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	// Set log level based on verbose flag (best-effort)
	if verbose {
		if err := os.Setenv("LOG_LEVEL", "debug"); err != nil {
			writeWarningf(stderr, "warning: could not set log level: %v\n", err)
		}
	}

	// Initialize logger
	log := deps.LoggerFactory()

	log.Info(ctx, "starting test-select", map[string]interface{}{
		"path":    repoPath,
		"base":    baseRev,
		"head":    headRev,
		"verbose": verbose,
	})

	// Load configuration
	cfg, err := deps.ConfigLoader(configPath)
	if err != nil {
		log.Error(ctx, "failed to load configuration", err, nil)
		return fmt.Errorf("configuration error: %w", err)
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if strict {
		cfg.Strict = true
	}

	// Initialize the change lister. Outside strict mode an unopenable
	// repository degrades the same way a failed diff does.
	lister, err := deps.ListerFactory(repoPath, log)
	if err != nil {
		if cfg.Strict {
			log.Error(ctx, "failed to open git repository", err, map[string]interface{}{
				"path": repoPath,
			})
			if errors.Is(err, domain.ErrRepositoryNotFound) {
				return fmt.Errorf("not a git repository: %s", repoPath)
			}
			return err
		}
		log.Warn(ctx, "failed to open git repository; treating as no changes", map[string]interface{}{
			"path":  repoPath,
			"error": err.Error(),
		})
		lister = failedLister{err: err}
	}
	defer func() {
		if closeErr := lister.Close(); closeErr != nil {
			log.Warn(ctx, "failed to close git repository", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()

	// Build the selector and run the pipeline
	builder := deps.BuilderFactory(repoPath, cfg, log)
	selector := deps.SelectorFactory(lister, builder, cfg, log)

	result, err := selector.Run(ctx, domain.RunInput{
		BaseRev: baseRev,
		HeadRev: headRev,
	})
	if err != nil {
		log.Error(ctx, "test selection failed", err, nil)
		return err
	}

	// Persist artifacts and CI outputs
	writer := deps.WriterFactory(cfg)
	if err := writer.WriteArtifacts(result); err != nil {
		log.Error(ctx, "failed to write artifacts", err, nil)
		return fmt.Errorf("output error: %w", err)
	}
	if err := writer.WriteCIOutput(result); err != nil {
		log.Error(ctx, "failed to write CI output", err, nil)
		return fmt.Errorf("output error: %w", err)
	}

	stdout := deps.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	if err := writer.WriteSummary(stdout, result); err != nil {
		log.Error(ctx, "failed to write summary", err, nil)
		return fmt.Errorf("output error: %w", err)
	}

	log.Info(ctx, "test selection complete", map[string]interface{}{
		"selected":  result.Impact.SelectedTests,
		"total":     result.Impact.TotalTests,
		"reduction": result.Impact.ReductionPercent,
		"run_all":   result.Selection.RunAll,
		"fallback":  result.Selection.Fallback,
	})

	return nil
}

// failedLister stands in for a repository that could not be opened. Its
// ListChanged reports the original error so the selector's degrade-gracefully
// path handles it like any other diff failure.
type failedLister struct {
	err error
}

func (l failedLister) ListChanged(context.Context, string, string) ([]string, error) {
	return nil, l.err
}

func (l failedLister) Close() error { return nil }

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// writeWarningf writes a warning message to the given writer.
// This is a best-effort operation; errors are intentionally ignored
// because there is no recovery action if stderr writes fail.
func writeWarningf(w io.Writer, format string, args ...any) {
	_, err := fmt.Fprintf(w, format, args...)
	if err != nil {
		return
	}
}
