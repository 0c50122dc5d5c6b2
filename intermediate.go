// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// IntermediateWriter wraps a zstd writer over a temp file for one pass-one
// joiner shard. The file is owned by the caller and should be removed once
// pass two has consumed it.
type IntermediateWriter struct {
	file *os.File
	zw   *zstd.Encoder
}

// CreateIntermediateShard opens path for zstd-compressed writing.
func CreateIntermediateShard(path string) (*IntermediateWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("conceptjoin: creating intermediate shard %q: %w", path, err)
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("conceptjoin: creating zstd writer for %q: %w", path, err)
	}
	return &IntermediateWriter{file: f, zw: zw}, nil
}

// WriteLine appends one line (without its trailing newline).
func (w *IntermediateWriter) WriteLine(line string) error {
	if _, err := w.zw.Write([]byte(line)); err != nil {
		return err
	}
	_, err := w.zw.Write([]byte{'\n'})
	return err
}

// Close flushes the zstd stream and closes the underlying file.
func (w *IntermediateWriter) Close() error {
	if err := w.zw.Close(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// OpenIntermediateShard opens a zstd-compressed shard for reading, with
// decoder concurrency disabled since callers read these sequentially
// through a LineMerger.
func OpenIntermediateShard(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("conceptjoin: opening intermediate shard %q: %w", path, err)
	}
	zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("conceptjoin: creating zstd reader for %q: %w", path, err)
	}
	return &zstdReadCloser{zr: zr, file: f}, nil
}

type zstdReadCloser struct {
	zr   *zstd.Decoder
	file *os.File
}

func (r *zstdReadCloser) Read(p []byte) (int, error) {
	return r.zr.Read(p)
}

func (r *zstdReadCloser) Close() error {
	r.zr.Close()
	return r.file.Close()
}
