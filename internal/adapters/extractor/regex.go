// Package extractor discovers the source files a JavaScript/TypeScript test
// file statically imports. It implements domain.DependencyExtractor with
// textual regex matching over import/require syntax: best-effort static
// dependency discovery that misses dynamic imports and conditional requires.
// The matcher's category rules exist to compensate for that imprecision, so
// this adapter must not silently become more precise than they assume.
package extractor

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/learning-assistant/test-select/internal/domain"
)

// Logger defines the logging interface for the extractor.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// Regular expressions for the two recognized import styles.
var (
	// importPattern matches ES module imports, with or without bindings:
	// import x from './a'; import { a, b } from "../b"; import './setup'.
	importPattern = regexp.MustCompile(`import\s+(?:[\w*\s{},$]+\s+from\s+)?['"]([^'"]+)['"]`)

	// requirePattern matches CommonJS requires: require('./a').
	requirePattern = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
)

// RegexExtractor implements domain.DependencyExtractor using regex scanning
// and on-disk candidate probing.
type RegexExtractor struct {
	repoRoot   string
	aliases    []aliasRule
	extensions []string
	logger     Logger
}

// aliasRule rewrites an import-path prefix to a repository-relative prefix.
type aliasRule struct {
	prefix string
	target string
}

// NewRegexExtractor creates an extractor rooted at repoRoot. Aliases map
// import prefixes (e.g. "@/") to repository-relative prefixes (e.g. "src/");
// extensions are tried in order when a specifier omits its extension.
func NewRegexExtractor(repoRoot string, aliases map[string]string, extensions []string, log Logger) *RegexExtractor {
	rules := make([]aliasRule, 0, len(aliases))
	for prefix, target := range aliases {
		rules = append(rules, aliasRule{prefix: prefix, target: target})
	}
	// Longest prefix first so "@components/" wins over "@/".
	sort.Slice(rules, func(i, j int) bool {
		if len(rules[i].prefix) != len(rules[j].prefix) {
			return len(rules[i].prefix) > len(rules[j].prefix)
		}
		return rules[i].prefix < rules[j].prefix
	})

	return &RegexExtractor{
		repoRoot:   repoRoot,
		aliases:    rules,
		extensions: extensions,
		logger:     log,
	}
}

// Extract reads the test file at the given repository-relative path and
// returns the set of existing source files it imports. An unreadable file
// yields an empty set and a nil error; the condition is logged as a warning.
// Bare specifiers (npm packages) and specifiers that resolve to nothing on
// disk are dropped silently.
func (e *RegexExtractor) Extract(ctx context.Context, testPath string) (domain.DependencySet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deps := make(domain.DependencySet)

	data, err := os.ReadFile(filepath.Join(e.repoRoot, filepath.FromSlash(testPath)))
	if err != nil {
		e.logger.Warn(ctx, "could not read test file; treating dependencies as unknown", map[string]interface{}{
			"test":  testPath,
			"error": err.Error(),
		})
		return deps, nil
	}

	for _, spec := range importSpecifiers(string(data)) {
		resolved, ok := e.resolve(spec, path.Dir(testPath))
		if !ok {
			continue
		}
		deps.Add(resolved)
	}

	e.logger.Debug(ctx, "extracted test dependencies", map[string]interface{}{
		"test":         testPath,
		"dependencies": len(deps),
	})

	return deps, nil
}

// importSpecifiers returns every import/require specifier found in source,
// deduplicated in first-seen order.
func importSpecifiers(source string) []string {
	var specs []string
	seen := make(map[string]struct{})

	for _, pattern := range []*regexp.Regexp{importPattern, requirePattern} {
		for _, m := range pattern.FindAllStringSubmatch(source, -1) {
			spec := m[1]
			if _, dup := seen[spec]; dup {
				continue
			}
			seen[spec] = struct{}{}
			specs = append(specs, spec)
		}
	}

	return specs
}

// resolve turns an import specifier into a repository-relative path of an
// existing file. Relative specifiers resolve against the importing file's
// directory; alias prefixes rewrite into the source tree. Bare specifiers
// (third-party packages) report ok=false.
func (e *RegexExtractor) resolve(spec, fromDir string) (string, bool) {
	var candidate string

	switch {
	case strings.HasPrefix(spec, "."):
		candidate = path.Join(fromDir, spec)
	default:
		target, ok := e.rewriteAlias(spec)
		if !ok {
			return "", false
		}
		candidate = path.Clean(target)
	}

	// A specifier that climbs out of the repository cannot be a project file.
	if candidate == ".." || strings.HasPrefix(candidate, "../") {
		return "", false
	}

	return e.firstExisting(candidate)
}

// rewriteAlias applies the longest matching alias prefix.
func (e *RegexExtractor) rewriteAlias(spec string) (string, bool) {
	for _, rule := range e.aliases {
		if strings.HasPrefix(spec, rule.prefix) {
			return rule.target + spec[len(rule.prefix):], true
		}
	}
	return "", false
}

// firstExisting probes resolution candidates in order: the literal path, the
// path with each source extension appended, then the path as a directory
// with an index file per extension. The first regular file on disk wins.
func (e *RegexExtractor) firstExisting(candidate string) (string, bool) {
	if e.isFile(candidate) {
		return candidate, true
	}
	for _, ext := range e.extensions {
		if p := candidate + ext; e.isFile(p) {
			return p, true
		}
	}
	for _, ext := range e.extensions {
		if p := path.Join(candidate, "index"+ext); e.isFile(p) {
			return p, true
		}
	}
	return "", false
}

// isFile reports whether the repository-relative path is a regular file.
func (e *RegexExtractor) isFile(rel string) bool {
	info, err := os.Stat(filepath.Join(e.repoRoot, filepath.FromSlash(rel)))
	return err == nil && info.Mode().IsRegular()
}
