package dupfind

import (
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
	"golang.org/x/sys/unix"
)

// HashAlgorithm represents a hash algorithm configuration
type HashAlgorithm struct {
	Name    string
	TypeID  uint16
	Size    int
	NewFunc func() hash.Hash
}

// GetHashAlgorithm returns the hash algorithm configuration for the given name
func GetHashAlgorithm(name string) (*HashAlgorithm, error) {
	switch strings.ToLower(name) {
	case "sha512":
		return &HashAlgorithm{
			Name:    "sha512",
			TypeID:  HashTypeSHA512,
			Size:    HashSize512,
			NewFunc: func() hash.Hash { return sha512.New() },
		}, nil
	case "sha3-512":
		return &HashAlgorithm{
			Name:    "sha3-512",
			TypeID:  HashTypeSHA3_512,
			Size:    HashSize512,
			NewFunc: func() hash.Hash { return sha3.New512() },
		}, nil
	case "blake2b-512":
		return &HashAlgorithm{
			Name:   "blake2b-512",
			TypeID: HashTypeBLAKE2b512,
			Size:   HashSize512,
			NewFunc: func() hash.Hash {
				// only fails for keys longer than 64 bytes
				h, _ := blake2b.New512(nil)
				return h
			},
		}, nil
	default:
		return nil, errors.Errorf("unsupported hash algorithm: %s", name)
	}
}

// GetHashAlgorithmByType returns the hash algorithm configuration for the given type ID
func GetHashAlgorithmByType(typeID uint16) (*HashAlgorithm, error) {
	name := HashTypeName(typeID)
	if name == "unknown" {
		return nil, errors.Errorf("unsupported hash type ID: %d", typeID)
	}
	return GetHashAlgorithm(name)
}

// HashPrefix digests at most the first limit bytes of filePath. It returns
// the hex digest and the number of bytes read.
func HashPrefix(filePath string, algorithm *HashAlgorithm, limit int64) (string, int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", 0, newScanError(ErrUnreadableFile, StagePrefix, filePath, err)
	}
	defer file.Close()

	hasher := algorithm.NewFunc()
	n, err := io.Copy(hasher, io.LimitReader(file, limit))
	if err != nil {
		return "", n, newScanError(ErrHashComputation, StagePrefix, filePath, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), n, nil
}

// HashFileInterruptible digests the whole of filePath in bufferSize reads
// and checks for shutdown between reads
func HashFileInterruptible(filePath string, algorithm *HashAlgorithm, bufferSize int, shutdownChan <-chan struct{}) (string, int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", 0, newScanError(ErrUnreadableFile, StageFull, filePath, err)
	}
	defer file.Close()

	// Advisory only; a filesystem that rejects it is still read correctly
	if err := unix.Fadvise(int(file.Fd()), 0, 0, unix.FADV_SEQUENTIAL); err != nil && IsDebugEnabled("hash") {
		VerboseLog(2, "fadvise %s: %v", filePath, err)
	}

	hasher := algorithm.NewFunc()
	buffer := make([]byte, bufferSize)
	var total int64

	for {
		select {
		case <-shutdownChan:
			return "", total, errors.Wrapf(ErrInterrupted, "hashing %s", filePath)
		default:
		}

		n, err := file.Read(buffer)
		if n > 0 {
			hasher.Write(buffer[:n])
			total += int64(n)
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return "", total, newScanError(ErrHashComputation, StageFull, filePath, err)
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), total, nil
}

// HashFileToHexString digests the whole of filePath without interruption
func HashFileToHexString(filePath string, algorithm *HashAlgorithm) (string, error) {
	digest, _, err := HashFileInterruptible(filePath, algorithm, DefaultHashBuffer, nil)
	return digest, err
}
