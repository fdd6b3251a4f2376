package dupfind

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds. Only ErrInvalidRoot aborts a scan; the others are recorded
// as warnings and the affected path is dropped from its candidate group.
var (
	ErrInvalidRoot         = errors.New("invalid scan root")
	ErrUnreadableDirectory = errors.New("unreadable directory")
	ErrUnreadableFile      = errors.New("unreadable file")
	ErrHashComputation     = errors.New("hash computation failed")
	ErrFileChanged         = errors.New("file changed during scan")
	ErrInterrupted         = errors.New("scan interrupted")
)

// ScanError ties an error kind to the path and stage it occurred at
type ScanError struct {
	Kind  error
	Stage string
	Path  string
	Err   error
}

func (e *ScanError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v: %v", e.Stage, e.Path, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the underlying cause to errors.Is
func (e *ScanError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newScanError(kind error, stage, path string, err error) *ScanError {
	return &ScanError{Kind: kind, Stage: stage, Path: path, Err: err}
}

// IsRecoverable reports whether err is one of the per-path kinds a scan
// absorbs rather than aborting on
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrUnreadableDirectory) ||
		errors.Is(err, ErrUnreadableFile) ||
		errors.Is(err, ErrHashComputation) ||
		errors.Is(err, ErrFileChanged)
}

func isInterrupt(err error) bool {
	return errors.Is(err, ErrInterrupted)
}
