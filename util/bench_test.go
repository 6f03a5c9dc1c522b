package util

import (
	"bytes"
	"testing"
)

// BenchmarkReadAllLimit measures draining a large shell output.
func BenchmarkReadAllLimit(b *testing.B) {
	payload := bytes.Repeat([]byte("X"), 4*DefaultBufSize)
	b.SetBytes(int64(len(payload)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ReadAllLimit(bytes.NewReader(payload), len(payload)); err != nil {
			b.Fatal(err)
		}
	}
}

// A listing-sized reply, the most frequent read.
func BenchmarkReadAllLimit_Small(b *testing.B) {
	payload := []byte("1WMHH000000000\tdevice\n192.168.1.23:5555\tdevice\n")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := ReadAllLimit(bytes.NewReader(payload), 1<<20); err != nil {
			b.Fatal(err)
		}
	}
}
