// Package report serialises scan results and reads them back.
package report

import (
	"fmt"
	"time"

	dupfind "github.com/mattkeenan/dupfind/pkg"
)

// Report is the persisted form of a dupfind.Result
type Report struct {
	Schema     string               `json:"schema" yaml:"schema" msgpack:"schema"`
	Version    int                  `json:"version" yaml:"version" msgpack:"version"`
	ScanID     string               `json:"scan_id" yaml:"scan_id" msgpack:"scan_id"`
	Root       string               `json:"root" yaml:"root" msgpack:"root"`
	Algorithm  string               `json:"algorithm" yaml:"algorithm" msgpack:"algorithm"`
	PrefixSize int64                `json:"prefix_size" yaml:"prefix_size" msgpack:"prefix_size"`
	Complete   bool                 `json:"complete" yaml:"complete" msgpack:"complete"`
	StartedAt  time.Time            `json:"started_at" yaml:"started_at" msgpack:"started_at"`
	FinishedAt time.Time            `json:"finished_at" yaml:"finished_at" msgpack:"finished_at"`
	Duplicates dupfind.DuplicateSet `json:"duplicates" yaml:"duplicates" msgpack:"duplicates"`
	Warnings   []dupfind.Warning    `json:"warnings" yaml:"warnings" msgpack:"warnings"`
	Stats      dupfind.Stats        `json:"stats" yaml:"stats" msgpack:"stats"`
}

// Group is one duplicate group in display order
type Group struct {
	Size   int64
	Digest string
	Paths  []string
}

// FromResult wraps a scan result in the versioned envelope
func FromResult(result *dupfind.Result) *Report {
	r := &Report{
		Schema:     dupfind.ReportSchema,
		Version:    dupfind.ReportVersion,
		ScanID:     result.ID,
		Root:       result.Root,
		Algorithm:  result.Algorithm,
		PrefixSize: result.PrefixSize,
		Complete:   result.Complete,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Duplicates: result.Duplicates,
		Warnings:   result.Warnings,
		Stats:      result.Stats,
	}
	r.normalize()
	return r
}

// normalize makes empty collections encode as {} and [] rather than null
func (r *Report) normalize() {
	if r.Duplicates == nil {
		r.Duplicates = make(dupfind.DuplicateSet)
	}
	if r.Warnings == nil {
		r.Warnings = []dupfind.Warning{}
	}
}

// Check rejects documents written by something else or by a newer dupfind
func (r *Report) Check() error {
	if r.Schema != dupfind.ReportSchema {
		return fmt.Errorf("not a dupfind report (schema %q)", r.Schema)
	}
	if r.Version < 1 || r.Version > dupfind.ReportVersion {
		return fmt.Errorf("unsupported report version %d (supported: 1-%d)", r.Version, dupfind.ReportVersion)
	}
	return nil
}

// Groups lists the duplicate groups, largest size first, then by digest
func (r *Report) Groups() []Group {
	var groups []Group
	for _, size := range r.Duplicates.Sizes() {
		for _, digest := range r.Duplicates.Digests(size) {
			groups = append(groups, Group{Size: size, Digest: digest, Paths: r.Duplicates[size][digest]})
		}
	}
	return groups
}
