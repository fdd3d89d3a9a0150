// Package git provides adapters for interacting with local Git repositories.
// This package implements the domain.ChangeLister interface using go-git/v5.
package git

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/learning-assistant/test-select/internal/domain"
)

// Logger defines the logging interface for the git adapter.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
}

// GoGitLister implements domain.ChangeLister using go-git/v5. It computes
// the changed-file list by diffing commit trees, the in-process equivalent
// of `git diff --name-only base..head`.
type GoGitLister struct {
	repo   *git.Repository
	path   string
	logger Logger
}

// NewGoGitLister creates a GoGitLister for the repository at path.
// The path can be either a working directory or a bare repository.
// Returns domain.ErrRepositoryNotFound if the path is not a valid Git repository.
func NewGoGitLister(path string, log Logger) (*GoGitLister, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRepositoryNotFound, path)
	}

	return &GoGitLister{
		repo:   repo,
		path:   path,
		logger: log,
	}, nil
}

// ListChanged returns the repository-relative paths touched between baseRev
// and headRev, sorted and deduplicated. An empty headRev means HEAD; an
// empty baseRev means the first parent of head. A root commit (no parent)
// diffs against the empty tree, so every file in it counts as changed.
func (l *GoGitLister) ListChanged(ctx context.Context, baseRev, headRev string) ([]string, error) {
	headCommit, err := l.resolveCommit(headRev, "HEAD")
	if err != nil {
		return nil, err
	}

	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("%w: reading head tree: %w", domain.ErrDiffFailed, err)
	}

	baseTree, err := l.baseTree(ctx, headCommit, baseRev)
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTreeWithOptions(ctx, baseTree, headTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDiffFailed, err)
	}

	paths := changedPaths(changes)

	l.logger.Debug(ctx, "computed changed files", map[string]interface{}{
		"base":    baseRev,
		"head":    headCommit.Hash.String(),
		"changed": len(paths),
	})

	return paths, nil
}

// Close releases any resources held by the lister.
// For go-git, this is a no-op as the repository doesn't hold persistent resources.
func (l *GoGitLister) Close() error {
	return nil
}

// resolveCommit resolves a revision string to its commit object. An empty
// rev falls back to the given default (normally "HEAD").
func (l *GoGitLister) resolveCommit(rev, fallback string) (*object.Commit, error) {
	if rev == "" {
		rev = fallback
	}

	hash, err := l.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrRevisionNotFound, rev, err)
	}

	commit, err := l.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrRevisionNotFound, rev, err)
	}

	return commit, nil
}

// baseTree returns the tree to diff against: the explicit base revision when
// given, otherwise the first parent of head, otherwise nil (the empty tree)
// for a root commit.
func (l *GoGitLister) baseTree(ctx context.Context, head *object.Commit, baseRev string) (*object.Tree, error) {
	if baseRev != "" {
		baseCommit, err := l.resolveCommit(baseRev, "")
		if err != nil {
			return nil, err
		}
		tree, err := baseCommit.Tree()
		if err != nil {
			return nil, fmt.Errorf("%w: reading base tree: %w", domain.ErrDiffFailed, err)
		}
		return tree, nil
	}

	if head.NumParents() == 0 {
		l.logger.Warn(ctx, "head commit has no parent; diffing against empty tree", map[string]interface{}{
			"head": head.Hash.String(),
		})
		return nil, nil
	}

	parent, err := head.Parent(0)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving first parent: %w", domain.ErrDiffFailed, err)
	}
	tree, err := parent.Tree()
	if err != nil {
		return nil, fmt.Errorf("%w: reading parent tree: %w", domain.ErrDiffFailed, err)
	}
	return tree, nil
}

// changedPaths flattens tree changes to sorted, deduplicated file paths.
// Deletions report the pre-image path; everything else the post-image path.
func changedPaths(changes object.Changes) []string {
	seen := make(map[string]struct{}, len(changes))
	for _, ch := range changes {
		name := ch.To.Name
		if name == "" {
			name = ch.From.Name
		}
		if name == "" {
			continue
		}
		seen[name] = struct{}{}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
