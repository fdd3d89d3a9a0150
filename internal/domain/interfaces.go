// Package domain defines the core business entities and interfaces for test-select.
// This package contains no external dependencies and represents the innermost layer
// of the CLEAN architecture.
package domain

import (
	"context"
	"errors"
	"io"
)

// Domain errors for git operations and test selection.
var (
	// ErrRepositoryNotFound indicates the specified path is not a valid Git repository.
	ErrRepositoryNotFound = errors.New("git repository not found at specified path")

	// ErrRevisionNotFound indicates a requested revision could not be resolved.
	ErrRevisionNotFound = errors.New("revision not found in repository")

	// ErrDiffFailed indicates the changed-file diff could not be computed.
	ErrDiffFailed = errors.New("failed to compute changed files")

	// ErrTestMapIncomplete indicates the test map scan aborted before covering
	// every configured test root.
	ErrTestMapIncomplete = errors.New("test map construction did not complete")
)

// ChangeLister reports the files changed between two revisions of a local
// repository. Paths are repository-relative and slash-separated.
type ChangeLister interface {
	// ListChanged returns the deduplicated, sorted paths touched between
	// base and head. An empty base means the first parent of head; an empty
	// head means HEAD. A root commit diffs against the empty tree.
	ListChanged(ctx context.Context, baseRev, headRev string) ([]string, error)

	// Close releases any resources held by the lister.
	Close() error
}

// DependencyExtractor discovers the on-disk source files a test file
// statically imports. Implementations are best-effort: dynamic imports and
// conditional requires are missed, which the matcher's category rules
// compensate for. The interface exists so a full-parser implementation can
// replace the regex one without touching the matcher.
type DependencyExtractor interface {
	// Extract reads the test file at the given repository-relative path and
	// returns its resolved dependencies. Unresolvable specifiers (npm
	// packages) are silently excluded. An unreadable file yields an empty
	// set and a nil error; the condition is surfaced via logging only.
	Extract(ctx context.Context, testPath string) (DependencySet, error)
}

// TestMapBuilder scans the configured test roots and produces the full
// dependency index. The map is complete when Build returns; matching never
// starts against a partial map.
type TestMapBuilder interface {
	Build(ctx context.Context) (TestMap, error)
}

// Selector runs the whole selection pipeline for one set of revisions.
type Selector interface {
	Run(ctx context.Context, input RunInput) (*RunResult, error)
}

// ReportWriter persists the run result for CI consumption.
type ReportWriter interface {
	// WriteArtifacts writes the selection detail and job matrix documents.
	WriteArtifacts(result *RunResult) error

	// WriteCIOutput appends key=value lines to the CI output sink, when one
	// is configured. A missing sink is not an error.
	WriteCIOutput(result *RunResult) error

	// WriteSummary prints a short human summary of the run to out.
	WriteSummary(out io.Writer, result *RunResult) error
}
