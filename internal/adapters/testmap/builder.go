// Package testmap builds the dependency index from test files to the source
// files they import. Scanning is a pure read-and-compute step: the returned
// map is complete before any matching starts and is never mutated after.
package testmap

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/learning-assistant/test-select/internal/domain"
)

// MaxWorkers caps the number of concurrent extraction workers.
const MaxWorkers = 64

// Logger defines the logging interface for the builder.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// Builder implements domain.TestMapBuilder by walking the configured test
// roots and fanning the per-file dependency extraction out over a bounded
// worker pool. Each extraction is an independent, side-effect-free read of
// its own file, so ordering does not matter.
type Builder struct {
	repoRoot  string
	testRoots []string
	patterns  []string
	extractor domain.DependencyExtractor
	workers   int
	logger    Logger
}

// NewBuilder creates a Builder. testRoots are repository-relative; roots
// missing from the checkout are skipped without error. patterns are
// doublestar globs matched against paths relative to each test root.
// workers <= 0 means GOMAXPROCS.
func NewBuilder(
	repoRoot string,
	testRoots []string,
	patterns []string,
	ext domain.DependencyExtractor,
	workers int,
	log Logger,
) *Builder {
	return &Builder{
		repoRoot:  repoRoot,
		testRoots: testRoots,
		patterns:  patterns,
		extractor: ext,
		workers:   workers,
		logger:    log,
	}
}

// Build scans every test root and returns the full test map.
func (b *Builder) Build(ctx context.Context) (domain.TestMap, error) {
	files, err := b.discover(ctx)
	if err != nil {
		return nil, err
	}

	workers := b.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}

	testMap, err := b.extractParallel(ctx, files, workers)
	if err != nil {
		return nil, err
	}

	b.logger.Debug(ctx, "built test map", map[string]interface{}{
		"tests":   len(testMap),
		"workers": workers,
	})

	return testMap, nil
}

// discover walks the test roots collecting test file paths, repository-relative
// and slash-separated. Missing roots are skipped; any other walk error aborts.
func (b *Builder) discover(ctx context.Context) ([]string, error) {
	var files []string

	for _, root := range b.testRoots {
		absRoot := filepath.Join(b.repoRoot, filepath.FromSlash(root))
		if _, err := os.Stat(absRoot); os.IsNotExist(err) {
			b.logger.Debug(ctx, "test root does not exist; skipping", map[string]interface{}{
				"root": root,
			})
			continue
		}

		err := filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}

			rel, err := filepath.Rel(absRoot, p)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)

			if b.matchesPattern(rel) {
				files = append(files, root+"/"+rel)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: walking %s: %w", domain.ErrTestMapIncomplete, root, err)
		}
	}

	return files, nil
}

// matchesPattern reports whether the root-relative path matches any
// configured test file pattern. Invalid patterns are skipped.
func (b *Builder) matchesPattern(rel string) bool {
	for _, pattern := range b.patterns {
		matched, err := doublestar.Match(pattern, rel)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// extractParallel runs the dependency extractor over every discovered test
// file using an errgroup bounded by a weighted semaphore, merging results
// under a mutex into the final map.
func (b *Builder) extractParallel(ctx context.Context, files []string, workers int) (domain.TestMap, error) {
	sem := semaphore.NewWeighted(int64(workers))
	g, gCtx := errgroup.WithContext(ctx)

	var (
		mu      sync.Mutex
		testMap = make(domain.TestMap, len(files))
	)

	for _, file := range files {
		g.Go(func() error {
			if err := sem.Acquire(gCtx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			deps, err := b.extractor.Extract(gCtx, file)
			if err != nil {
				return fmt.Errorf("extracting %s: %w", file, err)
			}

			mu.Lock()
			testMap[file] = deps
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTestMapIncomplete, err)
	}

	return testMap, nil
}
