package dupfind

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Options configures a Scanner. Zero values fall back to the defaults in
// constants.go.
type Options struct {
	Algorithm  string
	PrefixSize int64
	HashBuffer int
	Workers    int
	MinSize    int64
	HardLinks  string
	Verify     bool
	IgnoreFile string
	Excludes   []string
}

// Scanner finds groups of byte-identical files. A Scanner holds no state
// between scans and may be reused.
type Scanner struct {
	opts      Options
	algorithm *HashAlgorithm
	ignore    *IgnoreManager
	beforeDir func(path string)
}

// NewScanner validates opts and prepares the ignore patterns
func NewScanner(opts Options) (*Scanner, error) {
	if opts.Algorithm == "" {
		opts.Algorithm = DefaultAlgorithm
	}
	if opts.PrefixSize <= 0 {
		opts.PrefixSize = DefaultPrefixSize
	}
	if opts.HashBuffer <= 0 {
		opts.HashBuffer = DefaultHashBuffer
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	opts.HardLinks = strings.ToLower(opts.HardLinks)
	if opts.HardLinks == "" {
		opts.HardLinks = HardLinkInclude
	}

	algorithm, err := GetHashAlgorithm(opts.Algorithm)
	if err != nil {
		return nil, err
	}
	if err := ValidateHashWorkers(opts.Workers); err != nil {
		return nil, err
	}
	if err := ValidateHardLinkMode(opts.HardLinks); err != nil {
		return nil, err
	}

	ignore := NewIgnoreManager(opts.IgnoreFile)
	if err := ignore.LoadIgnorePatterns(); err != nil {
		return nil, err
	}
	for _, pattern := range opts.Excludes {
		if err := ignore.AddPattern(pattern); err != nil {
			return nil, err
		}
	}

	return &Scanner{
		opts:      opts,
		algorithm: algorithm,
		ignore:    ignore,
	}, nil
}

// Options returns the effective options after defaults were applied
func (s *Scanner) Options() Options {
	return s.opts
}

// stageBucket is one candidate group entering a hashing stage
type stageBucket struct {
	Size    int64
	Records []FileRecord
}

// stageOutcome is a bucket's refinement. Groups is nil unless every member
// of the bucket finished hashing.
type stageOutcome struct {
	Size     int64
	Groups   CandidateGroup
	Complete bool
}

// Scan runs walk -> size grouping -> prefix hashing -> full hashing over root.
//
// Only ErrInvalidRoot (or a walk that cannot start) returns a nil Result.
// When shutdownChan closes, the returned Result holds only the groups whose
// every member was fully hashed, Complete is false, and the error wraps
// ErrInterrupted.
func (s *Scanner) Scan(root string, shutdownChan <-chan struct{}) (*Result, error) {
	resolved, err := ResolveRoot(root)
	if err != nil {
		logger.WithField("root", root).Error(err)
		return nil, err
	}

	stats := &progress{}
	diag := newDiagnostics(stats)
	result := &Result{
		ID:         uuid.NewString(),
		Root:       resolved,
		Algorithm:  s.algorithm.Name,
		PrefixSize: s.opts.PrefixSize,
		StartedAt:  time.Now().UTC(),
		Duplicates: make(DuplicateSet),
	}
	log := logger.WithField("scan", result.ID)
	log.Infof("Scanning directory: '%s'..", resolved)

	sizeGroups, err := s.collectSizes(resolved, diag, stats, shutdownChan)
	if err != nil {
		if isInterrupt(err) {
			return s.finish(result, diag, stats, false), err
		}
		return nil, err
	}

	prefixBuckets := make([]stageBucket, 0, len(sizeGroups))
	for _, size := range sortedSizes(sizeGroups) {
		prefixBuckets = append(prefixBuckets, stageBucket{Size: size, Records: sizeGroups[size]})
		stats.sizeCandidates.Add(int64(len(sizeGroups[size])))
	}
	sizeGroups = nil

	prefixOutcomes, interrupted := s.hashStage(StagePrefix, prefixBuckets, s.prefixHash(stats), diag, stats, shutdownChan)
	if interrupted {
		log.Warn("Interrupted during prefix hashing; no group was fully verified")
		return s.finish(result, diag, stats, false), errors.Wrap(ErrInterrupted, StagePrefix)
	}

	// Files no longer than the prefix were read completely, so their prefix
	// digest is already the full-content digest.
	var fullBuckets []stageBucket
	var settled []stageOutcome
	for _, outcome := range prefixOutcomes {
		if outcome.Size <= s.opts.PrefixSize {
			settled = append(settled, outcome)
			continue
		}
		for _, digest := range sortedDigests(outcome.Groups) {
			fullBuckets = append(fullBuckets, stageBucket{Size: outcome.Size, Records: outcome.Groups[digest]})
		}
	}
	prefixOutcomes = nil
	log.Infof("Prefix hashing left %d candidate groups for full hashing", len(fullBuckets))

	fullOutcomes, interrupted := s.hashStage(StageFull, fullBuckets, s.fullHash(stats, shutdownChan), diag, stats, shutdownChan)

	for _, outcome := range append(settled, fullOutcomes...) {
		if !outcome.Complete {
			continue
		}
		for _, digest := range sortedDigests(outcome.Groups) {
			s.addGroup(result.Duplicates, outcome.Size, digest, outcome.Groups[digest], diag, stats)
		}
	}

	if interrupted {
		log.Warn("Interrupted during full hashing; reporting completed groups only")
		return s.finish(result, diag, stats, false), errors.Wrap(ErrInterrupted, StageFull)
	}

	return s.finish(result, diag, stats, true), nil
}

// ScanTo runs Scan and hands any produced Result to sink, including the
// partial Result of an interrupted scan
func (s *Scanner) ScanTo(root string, sink ResultSink, shutdownChan <-chan struct{}) (*Result, error) {
	result, scanErr := s.Scan(root, shutdownChan)
	if result == nil || sink == nil {
		return result, scanErr
	}

	if err := sink.Write(result); err != nil {
		if scanErr != nil {
			return result, errors.Wrapf(err, "failed to write results (%v)", scanErr)
		}
		return result, errors.Wrap(err, "failed to write results")
	}
	return result, scanErr
}

// collectSizes consumes the walker's stream into size groups. The walker
// runs concurrently; this goroutine is the only writer of the grouping.
func (s *Scanner) collectSizes(root string, diag *diagnostics, stats *progress, shutdownChan <-chan struct{}) (SizeGroup, error) {
	recordChan := make(chan FileRecord, 256)
	walkErrChan := make(chan error, 1)

	go func() {
		opts := walkOptions{
			workers: s.opts.Workers,
			minSize: s.opts.MinSize,
			ignore:  s.ignore,

			beforeDir: s.beforeDir,
		}
		walkErrChan <- walkTree(root, opts, recordChan, diag, stats, shutdownChan)
	}()

	sizes := newGrouper[int64](StageWalk)
	for record := range recordChan {
		sizes.Add(record.Size, record)
	}
	if err := <-walkErrChan; err != nil {
		return nil, err
	}

	groups := SizeGroup(sizes.Groups())
	logger.Infof("Got file listing with %d different file sizes", sizes.Len())

	if s.opts.HardLinks == HardLinkCollapse {
		for size, records := range groups {
			collapsed := collapseHardLinks(records)
			if len(collapsed) < 2 {
				delete(groups, size)
				continue
			}
			groups[size] = collapsed
		}
	}

	logger.Infof("Original count of file sizes was %d. Found %d with more than one file", sizes.Len(), len(groups))
	return groups, nil
}

// hashStage hashes every member of every bucket on the worker pool and
// refines each bucket by digest. Results are merged on this goroutine only.
// A bucket missing any result because of shutdown is reported incomplete
// and its partial grouping is discarded.
func (s *Scanner) hashStage(stage string, buckets []stageBucket, hash hashFunc, diag *diagnostics, stats *progress, shutdownChan <-chan struct{}) ([]stageOutcome, bool) {
	if len(buckets) == 0 {
		return nil, false
	}

	var nextID uint64
	var jobs []*hashJob
	expected := make([]int, len(buckets))
	for i, bucket := range buckets {
		bucketJobs := linkJobs(i, bucket.Records, &nextID)
		expected[i] = len(bucketJobs)
		jobs = append(jobs, bucketJobs...)
	}

	manager := newHashManager(s.opts.Workers, hash, shutdownChan)
	go func() {
		defer manager.FinishSubmitting()
		for _, job := range jobs {
			if !manager.Submit(job) {
				return
			}
		}
	}()

	groupers := make([]*grouper[string], len(buckets))
	for i := range groupers {
		groupers[i] = newGrouper[string](stage)
	}
	finished := make([]int, len(buckets))

	for res := range manager.Results() {
		if res.Interrupted {
			continue
		}
		i := res.Job.Bucket
		finished[i]++
		stats.bytesRead.Add(res.BytesRead)

		if res.Err != nil {
			s.recordHashError(stage, res, diag)
			continue
		}
		for _, r := range res.Job.Records {
			groupers[i].Add(res.Digest, r)
		}
	}

	interrupted := false
	outcomes := make([]stageOutcome, 0, len(buckets))
	for i, bucket := range buckets {
		if finished[i] != expected[i] {
			interrupted = true
			outcomes = append(outcomes, stageOutcome{Size: bucket.Size})
			continue
		}
		groups := CandidateGroup(groupers[i].Groups())
		if len(groups) == 0 {
			if IsDebugEnabled("group") {
				VerboseLog(1, "%s: size %d bucket of %d files has no shared digest", stage, bucket.Size, len(bucket.Records))
			}
			continue
		}
		outcomes = append(outcomes, stageOutcome{Size: bucket.Size, Groups: groups, Complete: true})
	}

	return outcomes, interrupted
}

func (s *Scanner) recordHashError(stage string, res *hashResult, diag *diagnostics) {
	for _, r := range res.Job.Records {
		var scanErr *ScanError
		if errors.As(res.Err, &scanErr) {
			diag.warn(newScanError(scanErr.Kind, stage, r.Path, scanErr.Err))
			continue
		}
		diag.warn(newScanError(ErrHashComputation, stage, r.Path, res.Err))
	}
}

func (s *Scanner) prefixHash(stats *progress) hashFunc {
	return func(job *hashJob) (string, int64, error) {
		r := job.Records[0]
		digest, n, err := HashPrefix(r.Path, s.algorithm, s.opts.PrefixSize)
		if err != nil {
			return "", n, err
		}
		want := r.Size
		if want > s.opts.PrefixSize {
			want = s.opts.PrefixSize
		}
		if n != want {
			return "", n, newScanError(ErrFileChanged, StagePrefix, r.Path,
				fmt.Errorf("read %d bytes, expected %d", n, want))
		}
		stats.prefixHashed.Add(int64(len(job.Records)))
		return digest, n, nil
	}
}

func (s *Scanner) fullHash(stats *progress, shutdownChan <-chan struct{}) hashFunc {
	return func(job *hashJob) (string, int64, error) {
		r := job.Records[0]
		digest, n, err := HashFileInterruptible(r.Path, s.algorithm, s.opts.HashBuffer, shutdownChan)
		if err != nil {
			return "", n, err
		}
		if n != r.Size {
			return "", n, newScanError(ErrFileChanged, StageFull, r.Path,
				fmt.Errorf("read %d bytes, walk recorded %d", n, r.Size))
		}
		stats.fullHashed.Add(int64(len(job.Records)))
		return digest, n, nil
	}
}

// addGroup moves a full-hash group into the duplicate set, running the
// bytewise check first when enabled. When distinct contents share one
// digest, the largest class keeps the digest and every further class is
// keyed digest-2, digest-3 and so on.
func (s *Scanner) addGroup(ds DuplicateSet, size int64, digest string, records []FileRecord, diag *diagnostics, stats *progress) {
	if !s.opts.Verify {
		ds.Add(size, digest, records)
		return
	}

	classes := verifyClasses(records, s.opts.HashBuffer, diag, stats)
	if len(classes) == 0 {
		return
	}
	sort.SliceStable(classes, func(i, j int) bool { return len(classes[i]) > len(classes[j]) })
	if len(classes) > 1 {
		logger.WithFields(logrus.Fields{"digest": digest, "size": size}).
			Errorf("digest collision: %d distinct contents share one digest", len(classes))
	}
	for i, class := range classes {
		ds.Add(size, classDigest(digest, i), class)
	}
}

// classDigest names the i'th byte-identical class found under digest
func classDigest(digest string, i int) string {
	if i == 0 {
		return digest
	}
	return fmt.Sprintf("%s-%d", digest, i+1)
}

func (s *Scanner) finish(result *Result, diag *diagnostics, stats *progress, complete bool) *Result {
	result.FinishedAt = time.Now().UTC()
	result.Complete = complete
	result.Warnings = diag.list()
	result.Stats = stats.snapshot()
	result.Stats.DuplicateGroups = int64(result.Duplicates.Groups())
	result.Stats.DuplicateFiles = int64(result.Duplicates.Files())
	result.Stats.ReclaimableBytes = result.Duplicates.ReclaimableBytes()

	log := logger.WithField("scan", result.ID)
	if len(result.Duplicates) == 0 {
		log.Info("No duplicate files found.")
	} else {
		log.Infof("Found %s duplicate groups holding %s files, %s reclaimable",
			humanize.Comma(result.Stats.DuplicateGroups),
			humanize.Comma(result.Stats.DuplicateFiles),
			humanize.IBytes(uint64(result.Stats.ReclaimableBytes)))
	}
	if len(result.Warnings) > 0 {
		log.Warnf("%d paths were skipped", len(result.Warnings))
	}
	log.Infof("Done in %s (%s read)", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond),
		humanize.IBytes(uint64(result.Stats.BytesRead)))

	return result
}

// linkJobs turns one bucket into hash jobs, one per distinct inode
func linkJobs(bucket int, records []FileRecord, nextID *uint64) []*hashJob {
	var jobs []*hashJob
	byInode := make(map[inodeKey]*hashJob)

	for _, r := range records {
		if r.hasLinks() {
			if job, ok := byInode[r.inode()]; ok {
				job.Records = append(job.Records, r)
				continue
			}
		}
		*nextID++
		job := &hashJob{JobID: *nextID, Bucket: bucket, Records: []FileRecord{r}}
		if r.hasLinks() {
			byInode[r.inode()] = job
		}
		jobs = append(jobs, job)
	}
	return jobs
}

// collapseHardLinks keeps the first path (in path order) of each inode
func collapseHardLinks(records []FileRecord) []FileRecord {
	seen := make(map[inodeKey]bool)
	kept := make([]FileRecord, 0, len(records))
	for _, r := range records {
		if r.hasLinks() {
			if seen[r.inode()] {
				VerboseLog(2, "hard link '%s' collapsed", r.Path)
				continue
			}
			seen[r.inode()] = true
		}
		kept = append(kept, r)
	}
	return kept
}

func sortedSizes(groups SizeGroup) []int64 {
	sizes := make([]int64, 0, len(groups))
	for size := range groups {
		sizes = append(sizes, size)
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })
	return sizes
}

func sortedDigests(groups CandidateGroup) []string {
	digests := make([]string, 0, len(groups))
	for digest := range groups {
		digests = append(digests, digest)
	}
	sort.Strings(digests)
	return digests
}

// ShortDigest abbreviates a hex digest for display, keeping any class
// suffix added by bytewise verification
func ShortDigest(digest string) string {
	hexPart, suffix := digest, ""
	if i := strings.IndexByte(digest, '-'); i >= 0 {
		hexPart, suffix = digest[:i], digest[i:]
	}
	if len(hexPart) <= 16 {
		return digest
	}
	return hexPart[:16] + suffix
}
