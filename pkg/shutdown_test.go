package dupfind

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanWithClosedShutdownChannel(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.txt", []byte("hello"))
	writeTestFile(t, root, "b.txt", []byte("hello"))

	shutdownChan := make(chan struct{})
	close(shutdownChan)

	result, err := newTestScanner(t, Options{}).Scan(root, shutdownChan)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInterrupted)
	require.NotNil(t, result, "an interrupted scan still returns its partial result")
	assert.False(t, result.Complete)
	assert.Empty(t, result.Duplicates)
}

func TestScanToWritesPartialResult(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "a.txt", []byte("hello"))

	shutdownChan := make(chan struct{})
	close(shutdownChan)

	sink := &recordingSink{}
	_, err := newTestScanner(t, Options{}).ScanTo(root, sink, shutdownChan)
	assert.ErrorIs(t, err, ErrInterrupted)
	require.Len(t, sink.results, 1)
	assert.False(t, sink.results[0].Complete)
}

func TestHashStageDiscardsInterruptedBuckets(t *testing.T) {
	shutdownChan := make(chan struct{})
	s := newTestScanner(t, Options{Workers: 1})
	stats := &progress{}
	diag := newDiagnostics(stats)

	buckets := []stageBucket{
		{Size: 10, Records: []FileRecord{{Path: "/r/a", Size: 10}, {Path: "/r/b", Size: 10}}},
		{Size: 20, Records: []FileRecord{{Path: "/r/c", Size: 20}, {Path: "/r/d", Size: 20}}},
	}

	// A single worker takes jobs in order: a and b finish, c sees shutdown
	hash := func(job *hashJob) (string, int64, error) {
		if job.Records[0].Path == "/r/c" {
			close(shutdownChan)
			return "", 0, errors.Wrap(ErrInterrupted, "hashing /r/c")
		}
		return "same", job.Records[0].Size, nil
	}

	outcomes, interrupted := s.hashStage(StageFull, buckets, hash, diag, stats, shutdownChan)
	assert.True(t, interrupted)
	require.Len(t, outcomes, 2)

	assert.True(t, outcomes[0].Complete)
	assert.Equal(t, []string{"/r/a", "/r/b"}, paths(outcomes[0].Groups["same"]))

	assert.False(t, outcomes[1].Complete)
	assert.Nil(t, outcomes[1].Groups)
	assert.Empty(t, diag.list(), "interruption is not a per-file warning")
}

func TestHashFileInterruptible(t *testing.T) {
	path := writeTestFile(t, t.TempDir(), "big.bin", patterned(1<<20, 2))
	alg, err := GetHashAlgorithm("sha512")
	require.NoError(t, err)

	shutdownChan := make(chan struct{})
	close(shutdownChan)

	digest, n, err := HashFileInterruptible(path, alg, 4096, shutdownChan)
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.Empty(t, digest)
	assert.Less(t, n, int64(1<<20))

	digest, n, err = HashFileInterruptible(path, alg, 4096, make(chan struct{}))
	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), n)
	assert.Len(t, digest, 2*HashSize512)
}

func TestHashManagerStopsOnShutdown(t *testing.T) {
	shutdownChan := make(chan struct{})
	close(shutdownChan)

	calls := 0
	manager := newHashManager(2, func(job *hashJob) (string, int64, error) {
		calls++
		return "x", 0, nil
	}, shutdownChan)

	assert.False(t, manager.Submit(&hashJob{Records: []FileRecord{{Path: filepath.Join("/", "x")}}}))
	manager.FinishSubmitting()
	manager.FinishSubmitting()

	for range manager.Results() {
		t.Error("no result expected after shutdown")
	}
	assert.Equal(t, 0, calls)
}
