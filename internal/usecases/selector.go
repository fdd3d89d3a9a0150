// Package usecases contains the application business logic.
// This package orchestrates domain entities and interfaces to fulfill use cases.
package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/learning-assistant/test-select/internal/domain"
)

// Logger defines the logging interface required by the selector.
// This abstracts the logger dependency to avoid coupling to a specific implementation.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields map[string]interface{})
}

// Params carries the heuristic configuration the selector applies.
type Params struct {
	// Rules drive the matcher.
	Rules domain.MatchRules

	// Runners are the profiles commands are generated for.
	Runners []domain.RunnerProfile

	// TimeSavingFactor scales the reduction percentage into the estimated
	// time saving.
	TimeSavingFactor float64

	// Strict makes a failed changed-file diff fatal. The default treats it
	// as "no changed files" so a broken diff degrades to the smoke fallback
	// instead of blocking CI.
	Strict bool
}

// TestSelector runs the full selection pipeline: changed files from the
// repository, the dependency-aware test map, the matched selection, and the
// derived report. Each stage produces an immutable value consumed by the
// next; the matcher never starts before both the diff and the map are
// complete.
type TestSelector struct {
	lister  domain.ChangeLister
	builder domain.TestMapBuilder
	params  Params
	logger  Logger
	now     func() time.Time
}

// NewTestSelector creates a TestSelector with the given dependencies.
func NewTestSelector(
	lister domain.ChangeLister,
	builder domain.TestMapBuilder,
	params Params,
	log Logger,
) *TestSelector {
	return &TestSelector{
		lister:  lister,
		builder: builder,
		params:  params,
		logger:  log,
		now:     time.Now,
	}
}

// Run executes one selection run for the given revisions.
func (s *TestSelector) Run(ctx context.Context, input domain.RunInput) (*domain.RunResult, error) {
	changed, err := s.lister.ListChanged(ctx, input.BaseRev, input.HeadRev)
	if err != nil {
		if s.params.Strict {
			return nil, fmt.Errorf("failed to list changed files: %w", err)
		}
		s.logger.Warn(ctx, "changed-file diff failed; treating as no changes", map[string]interface{}{
			"base":  input.BaseRev,
			"head":  input.HeadRev,
			"error": err.Error(),
		})
		changed = nil
	}

	s.logger.Info(ctx, "collected changed files", map[string]interface{}{
		"changed": len(changed),
	})

	testMap, err := s.builder.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build test map: %w", err)
	}

	selection := SelectTests(changed, testMap, s.params.Rules)
	impact := BuildImpactReport(testMap, selection, s.params.TimeSavingFactor)

	s.logger.Info(ctx, "test selection complete", map[string]interface{}{
		"total":     impact.TotalTests,
		"selected":  impact.SelectedTests,
		"reduction": impact.ReductionPercent,
		"run_all":   selection.RunAll,
		"fallback":  selection.Fallback,
	})

	return &domain.RunResult{
		ChangedFiles: changed,
		Selection:    selection,
		Commands:     BuildCommands(selection, s.params.Runners),
		Matrix:       BuildMatrix(selection, s.params.Rules),
		Impact:       impact,
		GeneratedAt:  s.now().UTC(),
	}, nil
}
