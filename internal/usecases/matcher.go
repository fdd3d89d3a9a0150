package usecases

import (
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/learning-assistant/test-select/internal/domain"
)

// SelectTests computes which tests must run for the given changed files.
// It is a pure function of its inputs: the same changed files and test map
// always yield the same selection, and the result is always a sorted,
// deduplicated subset of the test map's keys.
//
// Three rules apply, additively:
//
//  1. Manifest rule: a changed package manifest or lockfile selects every
//     known test and overrides everything else for the run.
//  2. Direct-dependency rule: a test is selected when one of its extracted
//     dependencies is a changed file, or when its base name (minus the
//     .test/.spec suffix) matches the changed file's base name. The naming
//     fallback covers tests whose import graph the static analysis missed.
//  3. Category rule: each changed file is classified by glob heuristics;
//     a matched category selects every test under that category's root.
//
// When no rule selects anything, the smoke pattern picks the minimal
// always-run tests so CI never executes zero tests.
func SelectTests(changed []string, testMap domain.TestMap, rules domain.MatchRules) domain.Selection {
	if manifestChanged(changed, rules.ManifestFiles) {
		return domain.Selection{Tests: sortedKeys(testMap), RunAll: true}
	}

	selected := make(map[string]struct{})

	for test, deps := range testMap {
		for _, file := range changed {
			if deps.Contains(file) || baseNamesMatch(test, file) {
				selected[test] = struct{}{}
				break
			}
		}
	}

	for _, file := range changed {
		for _, rule := range rules.Categories {
			if !matchesAny(rule.Patterns, file) {
				continue
			}
			for test := range testMap {
				if underRoot(test, rule.TestRoot) {
					selected[test] = struct{}{}
				}
			}
		}
	}

	if len(selected) == 0 {
		for test := range testMap {
			if matched, err := doublestar.Match(rules.SmokePattern, test); err == nil && matched {
				selected[test] = struct{}{}
			}
		}
		return domain.Selection{Tests: sortedSet(selected), Fallback: true}
	}

	return domain.Selection{Tests: sortedSet(selected)}
}

// manifestChanged reports whether any changed file is a package manifest or
// lockfile. Matching is by base name so nested workspaces count too.
func manifestChanged(changed, manifests []string) bool {
	for _, file := range changed {
		base := path.Base(file)
		for _, m := range manifests {
			if base == m {
				return true
			}
		}
	}
	return false
}

// baseNamesMatch reports whether the test file's name, stripped of its
// .test/.spec suffix and extension, equals the changed file's name stripped
// of its extension. "tests/unit/auth.test.ts" matches "src/lib/auth.ts".
func baseNamesMatch(test, changed string) bool {
	testBase := strings.TrimSuffix(path.Base(test), path.Ext(test))
	testBase = strings.TrimSuffix(testBase, ".test")
	testBase = strings.TrimSuffix(testBase, ".spec")

	changedBase := strings.TrimSuffix(path.Base(changed), path.Ext(changed))

	return testBase != "" && testBase == changedBase
}

// matchesAny reports whether the slash path matches any of the doublestar
// patterns. Invalid patterns are skipped.
func matchesAny(patterns []string, file string) bool {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, file)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// underRoot reports whether the test path lives under the given
// repository-relative root directory.
func underRoot(test, root string) bool {
	return strings.HasPrefix(test, root+"/")
}

func sortedKeys(testMap domain.TestMap) []string {
	keys := testMap.Keys()
	sort.Strings(keys)
	return keys
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
