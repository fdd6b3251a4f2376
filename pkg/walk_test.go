package dupfind

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectWalk runs walkTree and returns the discovered paths relative to root
func collectWalk(t *testing.T, root string, opts walkOptions) ([]string, *diagnostics) {
	t.Helper()
	stats := &progress{}
	diag := newDiagnostics(stats)
	recordChan := make(chan FileRecord, 16)
	errChan := make(chan error, 1)

	go func() {
		errChan <- walkTree(root, opts, recordChan, diag, stats, nil)
	}()

	var found []string
	for r := range recordChan {
		rel, err := filepath.Rel(root, r.Path)
		require.NoError(t, err)
		found = append(found, filepath.ToSlash(rel))
	}
	require.NoError(t, <-errChan)
	sort.Strings(found)
	return found, diag
}

func TestWalkReportsRegularFilesOnly(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.txt", []byte("a"))
	writeTestFile(t, root, "dir/b.txt", []byte("b"))
	writeTestFile(t, root, "dir/deeper/c.txt", []byte("c"))
	require.NoError(t, os.Symlink(filepath.Join(root, "a.txt"), filepath.Join(root, "link.txt")))
	// A cycle that would never end if links were followed
	require.NoError(t, os.Symlink(root, filepath.Join(root, "dir", "loop")))

	found, diag := collectWalk(t, root, walkOptions{workers: 2})
	assert.Equal(t, []string{"a.txt", "dir/b.txt", "dir/deeper/c.txt"}, found)
	assert.Empty(t, diag.list())
}

func TestWalkRecordsInodes(t *testing.T) {
	root := t.TempDir()
	orig := writeTestFile(t, root, "a", []byte("data"))
	require.NoError(t, os.Link(orig, filepath.Join(root, "b")))

	stats := &progress{}
	recordChan := make(chan FileRecord, 4)
	require.NoError(t, walkTree(root, walkOptions{}, recordChan, newDiagnostics(stats), stats, nil))

	var records []FileRecord
	for r := range recordChan {
		records = append(records, r)
	}
	require.Len(t, records, 2)
	assert.Equal(t, records[0].inode(), records[1].inode())
	assert.True(t, records[0].hasLinks())
	assert.Equal(t, uint64(2), records[0].Nlink)
	assert.Equal(t, int64(2), stats.filesDiscovered.Load())
}

func TestWalkIgnorePatterns(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "keep.txt", []byte("k"))
	writeTestFile(t, root, "build/out.o", []byte("o"))
	writeTestFile(t, root, "src/main.tmp", []byte("t"))
	writeTestFile(t, root, "src/main.go", []byte("g"))

	ignore := NewIgnoreManager("")
	require.NoError(t, ignore.AddPattern(`^build$`))
	require.NoError(t, ignore.AddPattern(`\.tmp$`))

	found, _ := collectWalk(t, root, walkOptions{ignore: ignore})
	assert.Equal(t, []string{"keep.txt", "src/main.go"}, found)
}

func TestWalkMinSize(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "empty", nil)
	writeTestFile(t, root, "small", []byte("12"))
	writeTestFile(t, root, "large", []byte("1234567890"))

	found, _ := collectWalk(t, root, walkOptions{minSize: 3})
	assert.Equal(t, []string{"large"}, found)
}

// removeDir returns a beforeDir hook deleting every directory named base
// just before it is listed, so listing it fails
func removeDir(t *testing.T, base string) func(string) {
	return func(path string) {
		if filepath.Base(path) == base {
			if err := os.RemoveAll(path); err != nil {
				t.Errorf("failed to remove %s: %v", path, err)
			}
		}
	}
}

func TestWalkContinuesPastVanishedDirectory(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "ok.txt", []byte("fine"))
	writeTestFile(t, root, "doomed/lost.txt", []byte("lost"))
	writeTestFile(t, root, "sibling/kept.txt", []byte("kept"))

	found, diag := collectWalk(t, root, walkOptions{workers: 2, beforeDir: removeDir(t, "doomed")})
	assert.Equal(t, []string{"ok.txt", "sibling/kept.txt"}, found)

	warnings := diag.list()
	require.Len(t, warnings, 1)
	assert.Equal(t, filepath.Join(root, "doomed"), warnings[0].Path)
	assert.Equal(t, StageWalk, warnings[0].Stage)
	assert.ErrorIs(t, warnings[0].Err, ErrUnreadableDirectory)
	assert.ErrorIs(t, warnings[0].Err, os.ErrNotExist)
}

func TestScanCompletesPastVanishedDirectory(t *testing.T) {
	root := t.TempDir()
	a := writeTestFile(t, root, "a.txt", []byte("hello"))
	b := writeTestFile(t, root, "b.txt", []byte("hello"))
	writeTestFile(t, root, "doomed/c.txt", []byte("hello"))

	s := newTestScanner(t, Options{Workers: 2})
	s.beforeDir = removeDir(t, "doomed")
	result, err := s.Scan(root, nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Complete)

	resolvedA, err := filepath.EvalSymlinks(a)
	require.NoError(t, err)
	resolvedB, err := filepath.EvalSymlinks(b)
	require.NoError(t, err)
	require.Len(t, result.Duplicates[5], 1)
	for _, group := range result.Duplicates[5] {
		assert.Equal(t, []string{resolvedA, resolvedB}, group)
	}

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "doomed", filepath.Base(result.Warnings[0].Path))
	assert.ErrorIs(t, result.Warnings[0].Err, ErrUnreadableDirectory)
	assert.Equal(t, int64(1), result.Stats.Errors)
}

func TestWalkUnreadableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	root := t.TempDir()
	writeTestFile(t, root, "ok.txt", []byte("fine"))
	writeTestFile(t, root, "locked/secret.txt", []byte("hidden"))
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	found, diag := collectWalk(t, root, walkOptions{})
	assert.Equal(t, []string{"ok.txt"}, found)

	warnings := diag.list()
	require.Len(t, warnings, 1)
	assert.Equal(t, locked, warnings[0].Path)
	assert.Equal(t, StageWalk, warnings[0].Stage)
	assert.ErrorIs(t, warnings[0].Err, ErrUnreadableDirectory)
}

func TestResolveRoot(t *testing.T) {
	root := t.TempDir()
	resolved, err := ResolveRoot(root)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(resolved))

	alias := filepath.Join(t.TempDir(), "alias")
	require.NoError(t, os.Symlink(root, alias))
	viaLink, err := ResolveRoot(alias)
	require.NoError(t, err)
	assert.Equal(t, resolved, viaLink)

	_, err = ResolveRoot("")
	assert.ErrorIs(t, err, ErrInvalidRoot)
	assert.Contains(t, err.Error(), "no directory to scan")

	_, err = ResolveRoot(filepath.Join(root, "missing"))
	assert.ErrorIs(t, err, ErrInvalidRoot)
}
