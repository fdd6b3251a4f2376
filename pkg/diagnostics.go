package dupfind

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// diagnostics collects the warnings of one scan. Every recorded warning is
// also emitted as a structured log event.
type diagnostics struct {
	mu       sync.Mutex
	warnings []Warning
	stats    *progress
}

func newDiagnostics(stats *progress) *diagnostics {
	return &diagnostics{stats: stats}
}

func (d *diagnostics) warn(err *ScanError) {
	w := Warning{
		Path:   err.Path,
		Stage:  err.Stage,
		Reason: err.Kind.Error(),
		Err:    err,
	}
	if err.Err != nil {
		w.Reason = err.Kind.Error() + ": " + err.Err.Error()
	}

	logger.WithFields(logrus.Fields{
		"path":  err.Path,
		"stage": err.Stage,
		"error": err.Err,
	}).Warnf("skipped: %v", err.Kind)

	d.stats.errors.Add(1)

	d.mu.Lock()
	d.warnings = append(d.warnings, w)
	d.mu.Unlock()
}

func (d *diagnostics) list() []Warning {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Warning, len(d.warnings))
	copy(out, d.warnings)
	return out
}
