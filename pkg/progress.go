package dupfind

import "sync/atomic"

// progress holds live counters updated by the walker and hash workers
type progress struct {
	filesDiscovered atomic.Int64
	sizeCandidates  atomic.Int64
	prefixHashed    atomic.Int64
	fullHashed      atomic.Int64
	verified        atomic.Int64
	bytesRead       atomic.Int64
	errors          atomic.Int64
}

// Stats is a point-in-time copy of a scan's counters
type Stats struct {
	FilesDiscovered  int64 `json:"files_discovered" yaml:"files_discovered" msgpack:"files_discovered"`
	SizeCandidates   int64 `json:"size_candidates" yaml:"size_candidates" msgpack:"size_candidates"`
	PrefixHashed     int64 `json:"prefix_hashed" yaml:"prefix_hashed" msgpack:"prefix_hashed"`
	FullHashed       int64 `json:"full_hashed" yaml:"full_hashed" msgpack:"full_hashed"`
	Verified         int64 `json:"verified" yaml:"verified" msgpack:"verified"`
	BytesRead        int64 `json:"bytes_read" yaml:"bytes_read" msgpack:"bytes_read"`
	Errors           int64 `json:"errors" yaml:"errors" msgpack:"errors"`
	DuplicateGroups  int64 `json:"duplicate_groups" yaml:"duplicate_groups" msgpack:"duplicate_groups"`
	DuplicateFiles   int64 `json:"duplicate_files" yaml:"duplicate_files" msgpack:"duplicate_files"`
	ReclaimableBytes int64 `json:"reclaimable_bytes" yaml:"reclaimable_bytes" msgpack:"reclaimable_bytes"`
}

func (p *progress) snapshot() Stats {
	return Stats{
		FilesDiscovered: p.filesDiscovered.Load(),
		SizeCandidates:  p.sizeCandidates.Load(),
		PrefixHashed:    p.prefixHashed.Load(),
		FullHashed:      p.fullHashed.Load(),
		Verified:        p.verified.Load(),
		BytesRead:       p.bytesRead.Load(),
		Errors:          p.errors.Load(),
	}
}
