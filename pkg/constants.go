package dupfind

import (
	"strings"
)

// Pipeline stage names, used in warnings, logging and skiplist contexts
const (
	StageWalk   = "walk"
	StagePrefix = "prefix"
	StageFull   = "full"
	StageVerify = "verify"
)

// Report schema identity
const (
	ReportSchema  = "dupfind/duplicates"
	ReportVersion = 1
)

// Defaults shared by the config layer and NewScanner
const (
	DefaultAlgorithm  = "sha512"
	DefaultPrefixSize = 1024 // bytes read by the prefix hasher
	DefaultHashBuffer = 1024 // chunk size used by the full hasher
	DefaultWorkers    = 4
	DefaultFormat     = "json"
	DefaultOutputFile = "duplicates.json"
	MaxWorkers        = 64
)

// Hard-link handling modes
const (
	HardLinkInclude  = "include"
	HardLinkCollapse = "collapse"
)

// Hash type constants
const (
	HashTypeSHA512     uint16 = 3 // SHA-512 (64 bytes)
	HashTypeSHA3_512   uint16 = 4 // SHA3-512 (64 bytes)
	HashTypeBLAKE2b512 uint16 = 5 // BLAKE2b-512 (64 bytes)
)

// All supported digests are 512 bits
const HashSize512 = 64

// HashTypeName returns the human-readable name for a hash type
func HashTypeName(hashType uint16) string {
	switch hashType {
	case HashTypeSHA512:
		return "sha512"
	case HashTypeSHA3_512:
		return "sha3-512"
	case HashTypeBLAKE2b512:
		return "blake2b-512"
	default:
		return "unknown"
	}
}

// HashTypeFromName returns the hash type constant from a name (case-insensitive)
func HashTypeFromName(name string) (uint16, bool) {
	switch strings.ToLower(name) {
	case "sha512":
		return HashTypeSHA512, true
	case "sha3-512":
		return HashTypeSHA3_512, true
	case "blake2b-512":
		return HashTypeBLAKE2b512, true
	default:
		return 0, false
	}
}
