// Package dupfind finds groups of byte-identical regular files below a
// directory.
//
// # Core API
//
// The entry point is Scanner, which runs a staged pipeline: a concurrent
// walk, grouping by size, a cheap hash over the first PrefixSize bytes of
// each candidate, and a full-content hash of whatever still collides.
//
//	scanner, err := dupfind.NewScanner(dupfind.Options{Workers: 8})
//	if err != nil {
//		return err
//	}
//	result, err := scanner.Scan("/path/to/dir", shutdownChan)
//
// Result.Duplicates maps size -> hex digest -> sorted paths. Only groups of
// two or more paths appear.
//
// # Errors
//
// A root that is not a readable directory fails the scan with
// ErrInvalidRoot. Every other per-path failure (unreadable directories and
// files, files that change size while being hashed) is logged, recorded in
// Result.Warnings and the path is left out. Closing shutdownChan stops the
// scan; the partial Result contains only groups whose members were all
// fully hashed and the returned error wraps ErrInterrupted.
//
// # Configuration
//
// Config reads an ini file with [filehash], [performance], [output],
// [verbose], [walk], [hardlink] and [verify] sections; DUPFIND_* environment
// variables and "key:value" overrides are applied on top:
//
//	cfg, err := dupfind.LoadConfig("")
//	cfg.ApplyOverrides([]string{"default:blake2b-512", "hash_workers:8"})
//	opts, err := cfg.ScanOptions()
//
// Enable debug output:
//
//	dupfind.SetDebugFlags("walk,hash,group")
//	dupfind.SetVerboseLevel(2)
package dupfind
