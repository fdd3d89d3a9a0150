// Package main is the entry point for the test-select CLI application.
// test-select picks the test files impacted by the files changed since the
// previous commit and emits runner commands, a CI job matrix, and impact
// metrics for consumption by the CI pipeline.
package main

import (
	"os"

	"github.com/MyCarrier-DevOps/goLibMyCarrier/logger"

	"github.com/learning-assistant/test-select/cmd"
	"github.com/learning-assistant/test-select/internal/adapters/extractor"
	"github.com/learning-assistant/test-select/internal/adapters/git"
	logadapter "github.com/learning-assistant/test-select/internal/adapters/logger"
	"github.com/learning-assistant/test-select/internal/adapters/output"
	"github.com/learning-assistant/test-select/internal/adapters/testmap"
	"github.com/learning-assistant/test-select/internal/domain"
	"github.com/learning-assistant/test-select/internal/infrastructure/config"
	"github.com/learning-assistant/test-select/internal/usecases"
)

func main() {
	deps := buildDependencies()
	cmd.SetDefaultDependencies(deps)
	cmd.Execute()
}

// buildDependencies wires the production adapters into the command's
// dependency struct. Everything is constructed lazily through factories so
// tests can swap individual pieces.
func buildDependencies() *cmd.Dependencies {
	// Create a single shared logger instance for the application
	zapLog := logger.NewZapLoggerFromConfig()
	adapter := logadapter.NewZapAdapter(zapLog)

	return &cmd.Dependencies{
		LoggerFactory: func() cmd.Logger {
			return adapter
		},

		ConfigLoader: config.Load,

		ListerFactory: func(path string, _ cmd.Logger) (domain.ChangeLister, error) {
			return git.NewGoGitLister(path, adapter.WithComponent("git"))
		},

		BuilderFactory: func(repoPath string, cfg *config.Config, _ cmd.Logger) domain.TestMapBuilder {
			ext := extractor.NewRegexExtractor(
				repoPath,
				cfg.Aliases,
				cfg.SourceExtensions,
				adapter.WithComponent("extractor"),
			)
			return testmap.NewBuilder(
				repoPath,
				cfg.TestRoots,
				cfg.TestFilePatterns,
				ext,
				cfg.Workers,
				adapter.WithComponent("testmap"),
			)
		},

		SelectorFactory: func(
			lister domain.ChangeLister,
			builder domain.TestMapBuilder,
			cfg *config.Config,
			_ cmd.Logger,
		) domain.Selector {
			return usecases.NewTestSelector(lister, builder, usecases.Params{
				Rules:            cfg.MatchRules(),
				Runners:          cfg.Runners,
				TimeSavingFactor: cfg.TimeSavingFactor,
				Strict:           cfg.Strict,
			}, adapter)
		},

		WriterFactory: func(cfg *config.Config) domain.ReportWriter {
			return output.NewWriter(cfg.OutputDir)
		},

		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}
