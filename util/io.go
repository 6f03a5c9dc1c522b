package util

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
)

// DefaultBufSize is the read chunk for device output streams (32 KiB).
const DefaultBufSize = 32 * 1024

// chunks recycles read buffers between shell commands.
var chunks = sync.Pool{
	New: func() any {
		b := make([]byte, DefaultBufSize)
		return &b
	},
}

// ErrOutputTooLarge is returned by ReadAllLimit when the stream exceeds
// its limit.
var ErrOutputTooLarge = errors.New("output exceeds limit")

// ReadAllLimit reads r to EOF and returns at most limit bytes.  A
// stream longer than limit returns the first limit bytes with
// ErrOutputTooLarge.  Reads go through a pooled buffer.
func ReadAllLimit(r io.Reader, limit int) ([]byte, error) {
	buf := chunks.Get().(*[]byte)
	defer chunks.Put(buf)

	var out []byte
	for {
		n, err := r.Read(*buf)
		if n > 0 {
			if len(out)+n > limit {
				out = append(out, (*buf)[:limit-len(out)]...)
				return out, fmt.Errorf("%w (%d bytes)", ErrOutputTooLarge, limit)
			}
			out = append(out, (*buf)[:n]...)
		}
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}

// IsClosed reports whether err is the expected result of reading from
// a connection that either side has closed.
func IsClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
