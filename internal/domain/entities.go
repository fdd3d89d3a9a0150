// Package domain defines the core business entities and interfaces for test-select.
package domain

import "time"

// DependencySet is an unordered set of repository-relative source file paths
// that a test file statically imports. Paths are slash-separated.
type DependencySet map[string]struct{}

// Contains reports whether the set holds the given path.
func (s DependencySet) Contains(path string) bool {
	_, ok := s[path]
	return ok
}

// Add inserts a path into the set.
func (s DependencySet) Add(path string) {
	s[path] = struct{}{}
}

// Paths returns the members of the set in unspecified order.
func (s DependencySet) Paths() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	return out
}

// TestMap maps a test file path to the source files it depends on.
// It is built once per run, before matching starts, and never mutated after.
type TestMap map[string]DependencySet

// Keys returns every test file path in the map in unspecified order.
func (m TestMap) Keys() []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// CategoryRule classifies changed files into a broad test grouping when
// precise dependency data is unavailable. A changed file matching any of
// the glob Patterns selects every known test under TestRoot.
type CategoryRule struct {
	// Name identifies the category (unit, integration, components, ...).
	Name string `yaml:"name"`

	// Patterns are doublestar globs matched against slash-separated
	// repository-relative changed file paths.
	Patterns []string `yaml:"patterns"`

	// TestRoot is the repository-relative directory holding this
	// category's tests.
	TestRoot string `yaml:"test_root"`
}

// MatchRules holds every heuristic the matcher applies. The values are
// arbitrary project conventions with no empirical derivation, so they are
// carried as configuration rather than constants.
type MatchRules struct {
	// Categories are applied in order; a changed file may match several.
	Categories []CategoryRule

	// ManifestFiles are base names (package.json, lockfiles) whose change
	// invalidates every test.
	ManifestFiles []string

	// SmokePattern is the glob selecting the minimal always-run tests when
	// nothing else matched.
	SmokePattern string
}

// Selection is the deduplicated, sorted set of tests chosen for a run.
type Selection struct {
	// Tests is sorted and contains no duplicates. Every entry is a key of
	// the TestMap the selection was computed from.
	Tests []string

	// RunAll is set when a manifest change forced full selection.
	RunAll bool

	// Fallback is set when no rule matched and the smoke pattern was used.
	Fallback bool
}

// Contains reports whether the selection includes the given test path.
func (s Selection) Contains(test string) bool {
	for _, t := range s.Tests {
		if t == test {
			return true
		}
	}
	return false
}

// ImpactReport summarizes how much CI work the selection avoids.
// EstimatedSavingPercent is a heuristic estimate derived from the reduction
// by a fixed linear factor, not a measured quantity.
type ImpactReport struct {
	TotalTests             int `json:"total_tests"`
	SelectedTests          int `json:"selected_tests"`
	ReductionPercent       int `json:"reduction_percent"`
	EstimatedSavingPercent int `json:"estimated_saving_percent"`
}

// RunnerProfile describes one external test runner invocation.
type RunnerProfile struct {
	// Name identifies the runner (jest, vitest, playwright).
	Name string `yaml:"name"`

	// Command is the base invocation, e.g. "npx jest".
	Command string `yaml:"command"`

	// RunAllArgs are appended instead of test paths when everything runs.
	RunAllArgs string `yaml:"run_all_args"`
}

// RunnerCommand is a concrete command line for one runner profile.
type RunnerCommand struct {
	Runner  string `json:"runner"`
	Command string `json:"command"`
}

// MatrixEntry is one row of the CI job matrix: a non-empty test category
// with its space-joined test paths.
type MatrixEntry struct {
	Category string `json:"category"`
	Tests    string `json:"tests"`
	Count    int    `json:"count"`
}

// RunInput contains the parameters for a selection run. The repository path
// is provided separately when creating the ChangeLister.
type RunInput struct {
	// BaseRev is the diff base revision. Empty means the first parent of head.
	BaseRev string

	// HeadRev is the diff head revision. Empty means HEAD.
	HeadRev string
}

// RunResult is the complete outcome of a selection run, consumed by the
// report writer and by callers embedding the selector.
type RunResult struct {
	ChangedFiles []string        `json:"changed_files"`
	Selection    Selection       `json:"selection"`
	Commands     []RunnerCommand `json:"commands"`
	Matrix       []MatrixEntry   `json:"matrix"`
	Impact       ImpactReport    `json:"impact"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// SmokeCategory names the placeholder matrix entry emitted when no category
// has any selected tests, so the matrix is never empty.
const SmokeCategory = "smoke"
