// Package config provides configuration loading for the test-select application.
// Every heuristic the selector applies (category globs, smoke pattern, runner
// profiles, the time-saving factor) is carried here rather than as constants,
// because none of the values has an empirically validated derivation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/learning-assistant/test-select/internal/domain"
)

// Environment variable names.
const (
	// EnvConfigPath points at a selector config file, overriding the default lookup.
	EnvConfigPath = "TEST_SELECT_CONFIG"

	// EnvStrict makes a failed changed-file diff fatal instead of degrading
	// to the smoke fallback ("true"/"1").
	EnvStrict = "TEST_SELECT_STRICT"

	// EnvLogLevel is the log level (debug, info, error).
	EnvLogLevel = "LOG_LEVEL"

	// EnvLogAppName is the application name for log context.
	EnvLogAppName = "LOG_APP_NAME"
)

// Default values.
const (
	DefaultLogLevel         = "info"
	DefaultLogAppName       = "test-select"
	DefaultConfigFile       = ".test-select.yaml"
	DefaultOutputDir        = "."
	DefaultSourceRoot       = "src"
	DefaultSmokePattern     = "**/smoke.test.*"
	DefaultTimeSavingFactor = 0.9
)

// Configuration errors.
var (
	// ErrConfigNotFound indicates an explicitly requested config file does not exist.
	ErrConfigNotFound = errors.New("selector configuration file not found")

	// ErrConfigInvalid indicates the config file is not valid YAML or fails validation.
	ErrConfigInvalid = errors.New("selector configuration is invalid")
)

// Config holds all application configuration.
type Config struct {
	// SourceRoot is the repository-relative directory aliases resolve into.
	SourceRoot string `yaml:"source_root"`

	// TestRoots are the repository-relative directories scanned for tests.
	// Roots that do not exist in a checkout are skipped silently.
	TestRoots []string `yaml:"test_roots"`

	// TestFilePatterns are doublestar globs identifying test files inside
	// the test roots.
	TestFilePatterns []string `yaml:"test_file_patterns"`

	// SourceExtensions are tried, in order, when resolving an extensionless
	// import specifier.
	SourceExtensions []string `yaml:"source_extensions"`

	// Aliases maps import-path prefixes to repository-relative prefixes,
	// e.g. "@/" -> "src/".
	Aliases map[string]string `yaml:"aliases"`

	// Categories are the path-heuristic rules mapping changed files to
	// test groupings.
	Categories []domain.CategoryRule `yaml:"categories"`

	// ManifestFiles are base names whose change selects every known test.
	ManifestFiles []string `yaml:"manifest_files"`

	// SmokePattern selects the minimal always-run tests when nothing else matched.
	SmokePattern string `yaml:"smoke_pattern"`

	// TimeSavingFactor linearly scales the reduction percentage into the
	// estimated time saving. Heuristic, in (0, 1].
	TimeSavingFactor float64 `yaml:"time_saving_factor"`

	// Runners are the fixed runner profiles commands are generated for.
	Runners []domain.RunnerProfile `yaml:"runners"`

	// OutputDir receives the JSON artifacts.
	OutputDir string `yaml:"output_dir"`

	// Strict makes a failed diff fatal instead of treating it as "no changes".
	Strict bool `yaml:"strict"`

	// Workers bounds parallel dependency extraction. Zero means GOMAXPROCS.
	Workers int `yaml:"workers"`

	// LogLevel is the logging level (debug, info, error).
	LogLevel string `yaml:"-"`

	// LogAppName is the application name for log context.
	LogAppName string `yaml:"-"`
}

// Default returns the built-in configuration, mirroring the Learning
// Assistant repository conventions.
func Default() *Config {
	return &Config{
		SourceRoot: DefaultSourceRoot,
		TestRoots: []string{
			"tests/unit",
			"tests/integration",
			"tests/components",
			"tests/accessibility",
			"tests/performance",
		},
		TestFilePatterns: []string{
			"**/*.test.{ts,tsx,js,jsx}",
			"**/*.spec.{ts,tsx,js,jsx}",
		},
		SourceExtensions: []string{".ts", ".tsx", ".js", ".jsx"},
		Aliases: map[string]string{
			"@/": "src/",
		},
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
		ManifestFiles: []string{
			"package.json",
			"package-lock.json",
			"yarn.lock",
			"pnpm-lock.yaml",
		},
		SmokePattern:     DefaultSmokePattern,
		TimeSavingFactor: DefaultTimeSavingFactor,
		Runners: []domain.RunnerProfile{
			{Name: "jest", Command: "npx jest", RunAllArgs: "--ci"},
			{Name: "vitest", Command: "npx vitest run", RunAllArgs: ""},
			{Name: "playwright", Command: "npx playwright test", RunAllArgs: ""},
		},
		OutputDir:  DefaultOutputDir,
		LogLevel:   DefaultLogLevel,
		LogAppName: DefaultLogAppName,
	}
}

// Load loads configuration from the given file path, layered over defaults.
// An empty path falls back to TEST_SELECT_CONFIG, then to .test-select.yaml
// when that file exists; with no file anywhere the defaults are returned.
// An explicitly named file that does not exist is an error; the implicit
// default file is optional.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigPath)
		explicit = path != ""
	}
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrConfigInvalid, path, err)
		}
	case os.IsNotExist(err):
		if explicit {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the selector relies on.
func (c *Config) Validate() error {
	if len(c.TestRoots) == 0 {
		return fmt.Errorf("%w: at least one test root is required", ErrConfigInvalid)
	}
	if len(c.TestFilePatterns) == 0 {
		return fmt.Errorf("%w: at least one test file pattern is required", ErrConfigInvalid)
	}
	if c.TimeSavingFactor <= 0 || c.TimeSavingFactor > 1 {
		return fmt.Errorf("%w: time_saving_factor must be in (0, 1], got %g",
			ErrConfigInvalid, c.TimeSavingFactor)
	}
	if c.SmokePattern == "" {
		return fmt.Errorf("%w: smoke_pattern must not be empty", ErrConfigInvalid)
	}
	for _, cat := range c.Categories {
		if cat.Name == "" || cat.TestRoot == "" {
			return fmt.Errorf("%w: category rules need a name and a test_root", ErrConfigInvalid)
		}
	}
	return nil
}

// MatchRules derives the matcher's rule set from the configuration.
func (c *Config) MatchRules() domain.MatchRules {
	return domain.MatchRules{
		Categories:    c.Categories,
		ManifestFiles: c.ManifestFiles,
		SmokePattern:  c.SmokePattern,
	}
}

// applyEnv layers environment overrides on top of file and default values.
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvLogAppName); v != "" {
		cfg.LogAppName = v
	}
	if v := os.Getenv(EnvStrict); v != "" {
		if strict, err := strconv.ParseBool(v); err == nil {
			cfg.Strict = strict
		}
	}
}
