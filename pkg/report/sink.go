package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/renameio"
	"github.com/pkg/errors"

	dupfind "github.com/mattkeenan/dupfind/pkg"
)

// Stdout is the output path that means standard output
const Stdout = "-"

// FileSink writes a result to Path in Format. The previous file is replaced
// atomically, so readers see either the old report or the new one.
type FileSink struct {
	Format string
	Path   string
	Out    io.Writer // used when Path is "-"; defaults to os.Stdout
}

// NewSink validates format against path and returns a sink
func NewSink(format, path string) (*FileSink, error) {
	format = strings.ToLower(format)
	if err := dupfind.ValidateOutputFormat(format); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("no output file given")
	}
	if path == Stdout && format == FormatSQLite {
		return nil, fmt.Errorf("sqlite output must be written to a file")
	}
	return &FileSink{Format: format, Path: path}, nil
}

// Write implements dupfind.ResultSink
func (s *FileSink) Write(result *dupfind.Result) error {
	r := FromResult(result)

	if s.Path == Stdout {
		out := s.Out
		if out == nil {
			out = os.Stdout
		}
		enc, err := EncoderFor(s.Format)
		if err != nil {
			return err
		}
		return enc(out, r)
	}

	lock := flock.New(s.Path + ".lock")
	if err := lock.Lock(); err != nil {
		return errors.Wrapf(err, "failed to acquire lock on %s", s.Path)
	}
	defer lock.Unlock()

	pending, err := renameio.TempFile("", s.Path)
	if err != nil {
		return errors.Wrapf(err, "failed to create temporary file for %s", s.Path)
	}
	defer pending.Cleanup()

	if s.Format == FormatSQLite {
		if err := WriteSQLite(pending.Name(), r); err != nil {
			return errors.Wrapf(err, "failed to write %s", s.Path)
		}
	} else {
		enc, err := EncoderFor(s.Format)
		if err != nil {
			return err
		}
		if err := enc(pending, r); err != nil {
			return errors.Wrapf(err, "failed to write %s", s.Path)
		}
	}

	if err := pending.CloseAtomicallyReplace(); err != nil {
		return errors.Wrapf(err, "failed to replace %s", s.Path)
	}
	dupfind.VerboseLog(1, "Wrote %s report to %s", s.Format, s.Path)
	return nil
}

// DetectFormat guesses a report's format from its file extension
func DetectFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".msgpack", ".mpk":
		return FormatMsgpack, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	default:
		return "", fmt.Errorf("cannot tell the format of %s; pass --format", path)
	}
}
