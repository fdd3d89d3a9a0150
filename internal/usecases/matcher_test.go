package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learning-assistant/test-select/internal/domain"
)

// testRules mirrors the default configuration's heuristics.
func testRules() domain.MatchRules {
	return domain.MatchRules{
		Categories: []domain.CategoryRule{
			{
				Name:     "components",
				Patterns: []string{"src/components/**"},
				TestRoot: "tests/components",
			},
			{
				Name:     "unit",
				Patterns: []string{"src/lib/**", "src/services/**"},
				TestRoot: "tests/unit",
			},
			{
				Name:     "integration",
				Patterns: []string{"src/app/api/**", "**/api/**"},
				TestRoot: "tests/integration",
			},
			{
				Name:     "accessibility",
				Patterns: []string{"src/styles/**", "**/*.css", "**/*.scss"},
				TestRoot: "tests/accessibility",
			},
		},
		ManifestFiles: []string{"package.json", "package-lock.json", "yarn.lock", "pnpm-lock.yaml"},
		SmokePattern:  "**/smoke.test.*",
	}
}

func deps(paths ...string) domain.DependencySet {
	set := make(domain.DependencySet, len(paths))
	for _, p := range paths {
		set.Add(p)
	}
	return set
}

func TestSelectTests_DirectDependency(t *testing.T) {
	testMap := domain.TestMap{
		"tests/unit/A.test.ts": deps("src/foo.ts"),
		"tests/unit/B.test.ts": deps("src/bar.ts"),
	}

	sel := SelectTests([]string{"src/foo.ts"}, testMap, testRules())

	assert.Equal(t, []string{"tests/unit/A.test.ts"}, sel.Tests)
	assert.False(t, sel.RunAll)
	assert.False(t, sel.Fallback)
}

func TestSelectTests_ManifestChangeSelectsEverything(t *testing.T) {
	testMap := domain.TestMap{
		"tests/unit/A.test.ts": deps("src/foo.ts"),
		"tests/unit/B.test.ts": deps("src/bar.ts"),
	}

	sel := SelectTests([]string{"package.json"}, testMap, testRules())

	assert.Equal(t, []string{"tests/unit/A.test.ts", "tests/unit/B.test.ts"}, sel.Tests)
	assert.True(t, sel.RunAll)
}

func TestSelectTests_ManifestOverridesOtherRules(t *testing.T) {
	testMap := domain.TestMap{
		"tests/unit/A.test.ts":       deps("src/foo.ts"),
		"tests/components/C.test.ts": deps(),
	}

	// A nested lockfile counts too; base-name matching.
	sel := SelectTests([]string{"packages/web/yarn.lock", "src/foo.ts"}, testMap, testRules())

	assert.True(t, sel.RunAll)
	assert.Len(t, sel.Tests, 2)
}

func TestSelectTests_EmptyChangesFallsBackToSmoke(t *testing.T) {
	testMap := domain.TestMap{
		"tests/unit/smoke.test.ts": deps(),
		"tests/unit/A.test.ts":     deps("src/foo.ts"),
	}

	sel := SelectTests(nil, testMap, testRules())

	assert.Equal(t, []string{"tests/unit/smoke.test.ts"}, sel.Tests)
	assert.True(t, sel.Fallback)
	assert.False(t, sel.RunAll)
}

func TestSelectTests_FallbackWithoutSmokeFileIsEmpty(t *testing.T) {
	testMap := domain.TestMap{
		"tests/unit/A.test.ts": deps("src/foo.ts"),
	}

	sel := SelectTests(nil, testMap, testRules())

	assert.Empty(t, sel.Tests)
	assert.True(t, sel.Fallback)
}

func TestSelectTests_BaseNameConvention(t *testing.T) {
	// auth.test.ts has no extracted dependency on auth.ts (static analysis
	// missed it), but the naming convention still links them.
	testMap := domain.TestMap{
		"tests/unit/auth.test.ts":  deps(),
		"tests/unit/other.test.ts": deps(),
	}

	sel := SelectTests([]string{"src/lib/auth.ts"}, testMap, testRules())

	// Both the naming rule and the unit category rule fire; the category
	// rule additionally selects other.test.ts.
	assert.Contains(t, sel.Tests, "tests/unit/auth.test.ts")
	assert.Contains(t, sel.Tests, "tests/unit/other.test.ts")
}

func TestSelectTests_SpecSuffixConvention(t *testing.T) {
	testMap := domain.TestMap{
		"tests/unit/cart.spec.ts": deps(),
	}

	sel := SelectTests([]string{"src/cart.ts"}, testMap, testRules())

	assert.Equal(t, []string{"tests/unit/cart.spec.ts"}, sel.Tests)
}

func TestSelectTests_CategoryRules(t *testing.T) {
	testMap := domain.TestMap{
		"tests/unit/a.test.ts":           deps(),
		"tests/components/b.test.tsx":    deps(),
		"tests/integration/c.test.ts":    deps(),
		"tests/accessibility/d.test.ts":  deps(),
		"tests/performance/load.test.ts": deps(),
	}

	tests := []struct {
		name    string
		changed string
		want    []string
	}{
		{
			name:    "component source selects component tests",
			changed: "src/components/Button.tsx",
			want:    []string{"tests/components/b.test.tsx"},
		},
		{
			name:    "lib source selects unit tests",
			changed: "src/lib/math.ts",
			want:    []string{"tests/unit/a.test.ts"},
		},
		{
			name:    "services source selects unit tests",
			changed: "src/services/session.ts",
			want:    []string{"tests/unit/a.test.ts"},
		},
		{
			name:    "api route selects integration tests",
			changed: "src/app/api/users/route.ts",
			want:    []string{"tests/integration/c.test.ts"},
		},
		{
			name:    "stylesheet selects accessibility tests",
			changed: "src/components/button.css",
			want: []string{
				"tests/accessibility/d.test.ts",
				// button.css also matches the components pattern.
				"tests/components/b.test.tsx",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := SelectTests([]string{tt.changed}, testMap, testRules())
			assert.ElementsMatch(t, tt.want, sel.Tests)
		})
	}
}

func TestSelectTests_RulesAreAdditive(t *testing.T) {
	testMap := domain.TestMap{
		"tests/unit/a.test.ts":        deps("src/components/Button.tsx"),
		"tests/components/b.test.tsx": deps(),
	}

	// Direct rule selects a.test.ts, category rule selects b.test.tsx;
	// a test matched by both rules appears once.
	sel := SelectTests([]string{"src/components/Button.tsx"}, testMap, testRules())

	assert.Equal(t, []string{"tests/components/b.test.tsx", "tests/unit/a.test.ts"}, sel.Tests)
}

func TestSelectTests_NoDuplicates(t *testing.T) {
	testMap := domain.TestMap{
		"tests/unit/a.test.ts": deps("src/lib/a.ts"),
	}

	// Matched by direct dependency, naming convention, and the unit
	// category rule at once.
	sel := SelectTests([]string{"src/lib/a.ts"}, testMap, testRules())

	assert.Equal(t, []string{"tests/unit/a.test.ts"}, sel.Tests)
}

func TestSelectTests_SubsetOfTestMap(t *testing.T) {
	testMap := domain.TestMap{
		"tests/unit/a.test.ts":        deps("src/lib/a.ts"),
		"tests/unit/b.test.ts":        deps(),
		"tests/components/c.test.tsx": deps(),
	}

	changedSets := [][]string{
		nil,
		{"src/lib/a.ts"},
		{"package.json"},
		{"README.md"},
		{"src/components/Button.tsx", "src/styles/app.css", "yarn.lock"},
	}

	for _, changed := range changedSets {
		sel := SelectTests(changed, testMap, testRules())
		for _, test := range sel.Tests {
			_, known := testMap[test]
			require.True(t, known, "selected %q is not a test map key (changed=%v)", test, changed)
		}
	}
}

func TestSelectTests_Idempotent(t *testing.T) {
	testMap := domain.TestMap{
		"tests/unit/a.test.ts":        deps("src/lib/a.ts"),
		"tests/components/c.test.tsx": deps(),
	}
	changed := []string{"src/lib/a.ts", "src/components/Button.tsx"}

	first := SelectTests(changed, testMap, testRules())
	second := SelectTests(changed, testMap, testRules())

	assert.Equal(t, first, second)
}

func TestSelectTests_UnrelatedChangeFallsBack(t *testing.T) {
	testMap := domain.TestMap{
		"tests/unit/smoke.test.ts": deps(),
		"tests/unit/a.test.ts":     deps("src/lib/a.ts"),
	}

	sel := SelectTests([]string{"docs/README.md"}, testMap, testRules())

	assert.True(t, sel.Fallback)
	assert.Equal(t, []string{"tests/unit/smoke.test.ts"}, sel.Tests)
}

func TestBaseNamesMatch(t *testing.T) {
	tests := []struct {
		name    string
		test    string
		changed string
		want    bool
	}{
		{"test suffix", "tests/unit/auth.test.ts", "src/lib/auth.ts", true},
		{"spec suffix", "tests/unit/auth.spec.ts", "src/lib/auth.ts", true},
		{"different base", "tests/unit/auth.test.ts", "src/lib/session.ts", false},
		{"extension ignored", "tests/components/Button.test.tsx", "src/components/Button.jsx", true},
		{"no suffix still matches", "tests/unit/helpers.ts", "src/lib/helpers.ts", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, baseNamesMatch(tt.test, tt.changed))
		})
	}
}
