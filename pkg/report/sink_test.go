package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dupfind "github.com/mattkeenan/dupfind/pkg"
)

func TestNewSinkValidation(t *testing.T) {
	_, err := NewSink("xml", "out.xml")
	assert.Error(t, err)
	_, err = NewSink(FormatJSON, "")
	assert.Error(t, err)
	_, err = NewSink(FormatSQLite, Stdout)
	assert.Error(t, err)

	sink, err := NewSink("YAML", "out.yaml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, sink.Format)
}

func TestFileSinkWritesEveryFormat(t *testing.T) {
	dir := t.TempDir()
	result := sampleResult()

	for _, tc := range []struct {
		format, file string
	}{
		{FormatJSON, "dups.json"},
		{FormatYAML, "dups.yaml"},
		{FormatMsgpack, "dups.msgpack"},
		{FormatSQLite, "dups.db"},
	} {
		t.Run(tc.format, func(t *testing.T) {
			path := filepath.Join(dir, tc.file)
			sink, err := NewSink(tc.format, path)
			require.NoError(t, err)
			require.NoError(t, sink.Write(result))

			loaded, err := Load(path, "")
			require.NoError(t, err)
			assert.Equal(t, result.ID, loaded.ScanID)
			assert.Equal(t, result.Duplicates, loaded.Duplicates)
			assert.Equal(t, result.Warnings, loaded.Warnings)
			assert.Equal(t, result.Stats, loaded.Stats)
			assert.True(t, loaded.Complete)
			assert.True(t, result.FinishedAt.Equal(loaded.FinishedAt))
		})
	}
}

func TestFileSinkReplacesExistingReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "duplicates.json")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))

	sink, err := NewSink(FormatJSON, path)
	require.NoError(t, err)
	require.NoError(t, sink.Write(sampleResult()))

	loaded, err := Load(path, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Duplicates.Groups())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"duplicates.json", "duplicates.json.lock"}, names, "no temporary files left behind")
}

func TestFileSinkWaitsForLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "duplicates.json")
	held := flock.New(path + ".lock")
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)

	done := make(chan error, 1)
	go func() {
		sink := &FileSink{Format: FormatJSON, Path: path}
		done <- sink.Write(sampleResult())
	}()

	select {
	case <-done:
		t.Fatal("write finished while another writer held the lock")
	default:
	}
	require.NoError(t, held.Unlock())
	require.NoError(t, <-done)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestFileSinkStdout(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewSink(FormatFdupes, Stdout)
	require.NoError(t, err)
	sink.Out = &buf

	require.NoError(t, sink.Write(sampleResult()))
	assert.Contains(t, buf.String(), "/data/a.txt\n/data/b.txt\n")
}

func TestFileSinkEmptyResultStillWritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.json")
	sink, err := NewSink(FormatJSON, path)
	require.NoError(t, err)
	require.NoError(t, sink.Write(&dupfind.Result{ID: "empty", Complete: true}))

	loaded, err := Load(path, "")
	require.NoError(t, err)
	assert.Empty(t, loaded.Duplicates)
	assert.Equal(t, "empty", loaded.ScanID)
}

func TestLoadUnknownExtension(t *testing.T) {
	_, err := Load("report.txt", "")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.db"), "")
	assert.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	for path, want := range map[string]string{
		"a.json":    FormatJSON,
		"a.YML":     FormatYAML,
		"a.yaml":    FormatYAML,
		"a.msgpack": FormatMsgpack,
		"a.db":      FormatSQLite,
		"a.sqlite3": FormatSQLite,
	} {
		got, err := DetectFormat(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
}
