package dupfind

import (
	"os"

	"github.com/pkg/errors"
	"github.com/stevegt/readercomp"
)

// verifyClasses splits a full-hash group into byte-identical classes by
// comparing each member against each class representative. Members that
// cannot be read are reported and dropped. Classes keep path order.
func verifyClasses(records []FileRecord, bufferSize int, diag *diagnostics, stats *progress) [][]FileRecord {
	var classes [][]FileRecord

	for _, r := range records {
		placed := false
		for i := 0; i < len(classes); i++ {
			class := classes[i]
			// Links to one inode are identical without reading
			if r.hasLinks() && r.inode() == class[0].inode() {
				classes[i] = append(classes[i], r)
				placed = true
				break
			}

			same, repErr, err := sameContent(class[0].Path, r.Path, bufferSize)
			if repErr != nil {
				// The representative vanished; nothing in its class can be confirmed
				diag.warn(newScanError(ErrUnreadableFile, StageVerify, class[0].Path, repErr))
				for _, member := range class[1:] {
					diag.warn(newScanError(ErrUnreadableFile, StageVerify, member.Path,
						errors.Errorf("class representative %s is unreadable", class[0].Path)))
				}
				classes = append(classes[:i], classes[i+1:]...)
				i--
				continue
			}
			if err != nil {
				diag.warn(newScanError(ErrUnreadableFile, StageVerify, r.Path, err))
				placed = true // dropped
				break
			}
			if same {
				classes[i] = append(classes[i], r)
				placed = true
				break
			}
		}
		if !placed {
			classes = append(classes, []FileRecord{r})
		}
		stats.verified.Add(1)
	}

	kept := classes[:0]
	for _, class := range classes {
		if len(class) >= 2 {
			kept = append(kept, class)
		}
	}
	return kept
}

// sameContent compares two files byte for byte. repErr is set when the
// first file cannot be opened, err for any other failure. Differing
// content is not an error.
func sameContent(a, b string, bufferSize int) (same bool, repErr error, err error) {
	fa, repErr := os.Open(a)
	if repErr != nil {
		return false, repErr, nil
	}
	defer fa.Close()

	fb, err := os.Open(b)
	if err != nil {
		return false, nil, err
	}
	defer fb.Close()

	same, err = readercomp.Equal(fa, fb, bufferSize)
	if err != nil && isMismatch(err) {
		return false, nil, nil
	}
	return same, nil, err
}

// isMismatch reports whether err is readercomp's way of saying the
// streams differ rather than a read failure
func isMismatch(err error) bool {
	var ptr *readercomp.ReaderCompError
	var val readercomp.ReaderCompError
	return errors.As(err, &ptr) || errors.As(err, &val)
}
