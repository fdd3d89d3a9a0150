// Package git provides adapters for interacting with local Git repositories.
package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learning-assistant/test-select/internal/domain"
)

// testLogger is a minimal logger for testing that doesn't output anything.
type testLogger struct{}

func (l *testLogger) Debug(_ context.Context, _ string, _ map[string]interface{}) {}
func (l *testLogger) Warn(_ context.Context, _ string, _ map[string]interface{})  {}

// setupTestRepo creates a temporary git repository with one initial commit.
func setupTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()

	runGit(t, dir, "init")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test User")

	writeAndCommit(t, dir, "First commit", map[string]string{
		"README.md":      "# test repo",
		"src/lib/a.ts":   "export const a = 1;",
		"src/lib/b.ts":   "export const b = 2;",
		"tests/a.test.ts": "import { a } from '../src/lib/a';",
	})

	return dir
}

// writeAndCommit writes the given files and commits them.
func writeAndCommit(t *testing.T, dir, message string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", message)
}

// runGit executes a git command in the given directory.
func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\nOutput: %s", args, err, output)
	}
}

func TestNewGoGitLister_Success(t *testing.T) {
	repoPath := setupTestRepo(t)

	lister, err := NewGoGitLister(repoPath, &testLogger{})

	require.NoError(t, err)
	require.NotNil(t, lister)
	assert.Equal(t, repoPath, lister.path)
	require.NoError(t, lister.Close())
}

func TestNewGoGitLister_NotARepository(t *testing.T) {
	lister, err := NewGoGitLister(t.TempDir(), &testLogger{})

	require.Error(t, err)
	assert.Nil(t, lister)
	assert.ErrorIs(t, err, domain.ErrRepositoryNotFound)
}

func TestListChanged_SecondCommit(t *testing.T) {
	repoPath := setupTestRepo(t)
	writeAndCommit(t, repoPath, "Change a and add c", map[string]string{
		"src/lib/a.ts": "export const a = 10;",
		"src/lib/c.ts": "export const c = 3;",
	})

	lister, err := NewGoGitLister(repoPath, &testLogger{})
	require.NoError(t, err)
	defer lister.Close()

	changed, err := lister.ListChanged(context.Background(), "", "")

	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib/a.ts", "src/lib/c.ts"}, changed)
}

func TestListChanged_RootCommitDiffsAgainstEmptyTree(t *testing.T) {
	repoPath := setupTestRepo(t)

	lister, err := NewGoGitLister(repoPath, &testLogger{})
	require.NoError(t, err)
	defer lister.Close()

	changed, err := lister.ListChanged(context.Background(), "", "")

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"README.md",
		"src/lib/a.ts",
		"src/lib/b.ts",
		"tests/a.test.ts",
	}, changed)
}

func TestListChanged_ExplicitRevisions(t *testing.T) {
	repoPath := setupTestRepo(t)
	writeAndCommit(t, repoPath, "Second", map[string]string{
		"src/lib/a.ts": "export const a = 10;",
	})
	writeAndCommit(t, repoPath, "Third", map[string]string{
		"src/lib/b.ts": "export const b = 20;",
	})

	lister, err := NewGoGitLister(repoPath, &testLogger{})
	require.NoError(t, err)
	defer lister.Close()

	// Full range: both intermediate changes appear.
	changed, err := lister.ListChanged(context.Background(), "HEAD~2", "HEAD")
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib/a.ts", "src/lib/b.ts"}, changed)

	// Single step back.
	changed, err = lister.ListChanged(context.Background(), "HEAD~1", "HEAD")
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib/b.ts"}, changed)
}

func TestListChanged_DeletedFileIsReported(t *testing.T) {
	repoPath := setupTestRepo(t)
	require.NoError(t, os.Remove(filepath.Join(repoPath, "src", "lib", "b.ts")))
	runGit(t, repoPath, "add", "-A")
	runGit(t, repoPath, "commit", "-m", "Delete b")

	lister, err := NewGoGitLister(repoPath, &testLogger{})
	require.NoError(t, err)
	defer lister.Close()

	changed, err := lister.ListChanged(context.Background(), "", "")

	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib/b.ts"}, changed)
}

func TestListChanged_UnknownRevision(t *testing.T) {
	repoPath := setupTestRepo(t)

	lister, err := NewGoGitLister(repoPath, &testLogger{})
	require.NoError(t, err)
	defer lister.Close()

	_, err = lister.ListChanged(context.Background(), "no-such-branch", "")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRevisionNotFound)
}

func TestListChanged_NoChangesBetweenSameRevision(t *testing.T) {
	repoPath := setupTestRepo(t)

	lister, err := NewGoGitLister(repoPath, &testLogger{})
	require.NoError(t, err)
	defer lister.Close()

	changed, err := lister.ListChanged(context.Background(), "HEAD", "HEAD")

	require.NoError(t, err)
	assert.Empty(t, changed)
}
