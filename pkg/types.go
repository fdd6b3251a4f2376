package dupfind

import (
	"sort"
	"time"
)

// FileRecord is a regular file observed by the walker. It is never
// modified after the walk.
type FileRecord struct {
	Path  string
	Size  int64
	Dev   uint64
	Ino   uint64
	Nlink uint64
}

// inodeKey identifies the data a record points at
type inodeKey struct {
	Dev uint64
	Ino uint64
}

func (r FileRecord) inode() inodeKey {
	return inodeKey{Dev: r.Dev, Ino: r.Ino}
}

// hasLinks reports whether other paths may share this record's inode
func (r FileRecord) hasLinks() bool {
	return r.Nlink > 1 && r.Ino != 0
}

// SizeGroup maps a file size to the path-ordered records of that size
type SizeGroup map[int64][]FileRecord

// CandidateGroup maps a hex digest to the path-ordered records sharing it,
// within one parent size bucket
type CandidateGroup map[string][]FileRecord

// DuplicateSet maps size -> hex full digest -> paths (always >= 2 entries)
type DuplicateSet map[int64]map[string][]string

// Add records a verified group
func (ds DuplicateSet) Add(size int64, digest string, records []FileRecord) {
	if len(records) < 2 {
		return
	}
	byDigest, ok := ds[size]
	if !ok {
		byDigest = make(map[string][]string)
		ds[size] = byDigest
	}
	paths := make([]string, 0, len(records))
	for _, r := range records {
		paths = append(paths, r.Path)
	}
	byDigest[digest] = paths
}

// Groups returns the number of duplicate groups
func (ds DuplicateSet) Groups() int {
	n := 0
	for _, byDigest := range ds {
		n += len(byDigest)
	}
	return n
}

// Files returns the number of paths across all groups
func (ds DuplicateSet) Files() int {
	n := 0
	for _, byDigest := range ds {
		for _, paths := range byDigest {
			n += len(paths)
		}
	}
	return n
}

// ReclaimableBytes is the space held by every copy beyond the first
func (ds DuplicateSet) ReclaimableBytes() int64 {
	var total int64
	for size, byDigest := range ds {
		for _, paths := range byDigest {
			total += size * int64(len(paths)-1)
		}
	}
	return total
}

// Sizes returns the group sizes in descending order
func (ds DuplicateSet) Sizes() []int64 {
	sizes := make([]int64, 0, len(ds))
	for size := range ds {
		sizes = append(sizes, size)
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] > sizes[j] })
	return sizes
}

// Digests returns the digests under size in lexical order
func (ds DuplicateSet) Digests(size int64) []string {
	digests := make([]string, 0, len(ds[size]))
	for d := range ds[size] {
		digests = append(digests, d)
	}
	sort.Strings(digests)
	return digests
}

// Warning is a recoverable problem recorded during a scan
type Warning struct {
	Path   string `json:"path" yaml:"path" msgpack:"path"`
	Stage  string `json:"stage" yaml:"stage" msgpack:"stage"`
	Reason string `json:"reason" yaml:"reason" msgpack:"reason"`
	Err    error  `json:"-" yaml:"-" msgpack:"-"`
}

// Result is everything a scan hands to a ResultSink
type Result struct {
	ID         string
	Root       string
	Algorithm  string
	PrefixSize int64
	StartedAt  time.Time
	FinishedAt time.Time
	Complete   bool
	Duplicates DuplicateSet
	Warnings   []Warning
	Stats      Stats
}

// ResultSink persists a finished Result
type ResultSink interface {
	Write(result *Result) error
}
