package report

import (
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/google/vectorio"
)

// maxIovecs stays within IOV_MAX on every platform we build for
const maxIovecs = 1024

var newline = []byte("\n")

// fileDescriptor is satisfied by *os.File and renameio.PendingFile
type fileDescriptor interface {
	Fd() uintptr
}

// EncodeFdupes writes one path per line with a blank line after each group,
// the layout fdupes and jdupes print
func EncodeFdupes(w io.Writer, r *Report) error {
	var lines [][]byte
	for _, g := range r.Groups() {
		for _, path := range g.Paths {
			lines = append(lines, []byte(path), newline)
		}
		lines = append(lines, newline)
	}
	if len(lines) == 0 {
		return nil
	}

	if f, ok := w.(fileDescriptor); ok {
		return writev(f.Fd(), lines)
	}
	buffers := net.Buffers(lines)
	_, err := buffers.WriteTo(w)
	return err
}

// writev writes lines with vectored I/O, in chunks of maxIovecs
func writev(fd uintptr, lines [][]byte) error {
	iovecs := make([]syscall.Iovec, 0, len(lines))
	total := 0
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		iov := syscall.Iovec{Base: &line[0]}
		iov.SetLen(len(line))
		iovecs = append(iovecs, iov)
		total += len(line)
	}

	written := 0
	for offset := 0; offset < len(iovecs); offset += maxIovecs {
		end := offset + maxIovecs
		if end > len(iovecs) {
			end = len(iovecs)
		}
		chunk := iovecs[offset:end]

		want := 0
		for _, iov := range chunk {
			want += int(iov.Len)
		}
		nw, err := vectorio.WritevRaw(fd, chunk)
		if err != nil {
			return fmt.Errorf("failed to write paths with vectorio: %w", err)
		}
		if nw != want {
			return fmt.Errorf("short vectored write: wrote %d bytes, expected %d", nw, want)
		}
		written += nw
	}

	if written != total {
		return fmt.Errorf("paths write incomplete: wrote %d bytes, expected %d", written, total)
	}
	return nil
}
