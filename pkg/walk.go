package dupfind

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"syscall"

	"github.com/charlievieth/fastwalk"
	"github.com/pkg/errors"
)

// walkOptions controls which files the walker reports
type walkOptions struct {
	workers int
	minSize int64
	ignore  *IgnoreManager
	// beforeDir runs for every subdirectory before it is listed
	beforeDir func(path string)
}

// ResolveRoot turns root into a clean absolute directory path or returns
// ErrInvalidRoot
func ResolveRoot(root string) (string, error) {
	if root == "" {
		return "", errors.Wrap(ErrInvalidRoot, "no directory to scan")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidRoot, "%s: %v", root, err)
	}

	// The root itself may be a symlink; nothing below it is followed.
	resolved, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidRoot, "%s: %v", absRoot, err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidRoot, "%s: %v", absRoot, err)
	}
	if !info.IsDir() {
		return "", errors.Wrapf(ErrInvalidRoot, "'%s' is not a directory", absRoot)
	}

	return resolved, nil
}

// walkTree streams every regular file under root to resultChan and closes it
// when done. Unreadable directories and files are reported through diag and
// skipped. Symlinks are never followed, so link cycles cannot occur.
func walkTree(root string, opts walkOptions, resultChan chan<- FileRecord, diag *diagnostics, stats *progress, shutdownChan <-chan struct{}) error {
	defer close(resultChan)

	workers := opts.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	conf := fastwalk.Config{Follow: false, NumWorkers: workers}

	var interrupted atomic.Bool

	walkFn := func(path string, d fs.DirEntry, err error) error {
		select {
		case <-shutdownChan:
			interrupted.Store(true)
			return fs.SkipAll
		default:
		}

		// fastwalk has already given up on a directory it reports here;
		// any non-nil return would end the whole walk.
		if err != nil {
			kind := ErrUnreadableDirectory
			if d != nil && !d.IsDir() {
				kind = ErrUnreadableFile
			}
			diag.warn(newScanError(kind, StageWalk, path, err))
			return nil
		}

		if path == root {
			return nil
		}

		if opts.ignore != nil && opts.ignore.HasPatterns() {
			if opts.ignore.ShouldIgnore(relativeTo(root, path)) {
				if IsDebugEnabled("walk") {
					VerboseLog(2, "walk: ignored %s", path)
				}
				if d.IsDir() {
					return fastwalk.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			if opts.beforeDir != nil {
				opts.beforeDir(path)
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			VerboseLog(2, "walk: ignored '%s' (symlink)", path)
			return nil
		}
		if !d.Type().IsRegular() {
			VerboseLog(2, "walk: ignored '%s' (not a regular file)", path)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			diag.warn(newScanError(ErrUnreadableFile, StageWalk, path, err))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if info.Size() < opts.minSize {
			return nil
		}

		record := FileRecord{Path: path, Size: info.Size()}
		if st, ok := info.Sys().(*syscall.Stat_t); ok {
			record.Dev = uint64(st.Dev)
			record.Ino = uint64(st.Ino)
			record.Nlink = uint64(st.Nlink)
		}

		stats.filesDiscovered.Add(1)
		if IsDebugEnabled("walk") {
			VerboseLog(3, "walk: file '%s' (%d bytes)", path, record.Size)
		}

		select {
		case resultChan <- record:
		case <-shutdownChan:
			interrupted.Store(true)
			return fs.SkipAll
		}
		return nil
	}

	err := fastwalk.Walk(&conf, root, walkFn)
	if err != nil && !errors.Is(err, fs.SkipAll) {
		return errors.Wrapf(err, "failed to walk %s", root)
	}

	if interrupted.Load() {
		return errors.Wrap(ErrInterrupted, "walk")
	}
	return nil
}
