// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/dsnet/compress/bzip2"
	"github.com/dustin/go-humanize"
	"github.com/ulikunitz/xz"
)

// readAheadBufferSize is the size of the buffer XMLStream wraps around the
// underlying file, chosen to amortize the syscall cost of reading a multi-GB
// dump in one pass.
const readAheadBufferSize = 100 * 1024 * 1024

// XMLStream pulls UTF-8 text out of a possibly-compressed Wikipedia dump
// file, autodetecting the compression from the file name suffix and
// reporting byte/line progress as it is consumed.
type XMLStream struct {
	file       *os.File
	reader     *bufio.Reader
	bytesRead  int64
	linesRead  int64
	size       int64
	path       string
	closeFuncs []func() error
}

// OpenXMLStream opens path, which may be plain text or compressed with
// gzip (.gz), bzip2 (.bz2) or xz (.xz). Any other suffix is treated as
// plain text.
func OpenXMLStream(path string) (*XMLStream, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	s := &XMLStream{file: file, size: stat.Size(), path: path}
	var r io.Reader = &countingReader{r: file, n: &s.bytesRead}

	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(r)
		if err != nil {
			file.Close()
			return nil, err
		}
		r = gz
		s.closeFuncs = append(s.closeFuncs, gz.Close)
	case strings.HasSuffix(path, ".bz2"):
		bz, err := bzip2.NewReader(r, &bzip2.ReaderConfig{})
		if err != nil {
			file.Close()
			return nil, err
		}
		r = bz
		s.closeFuncs = append(s.closeFuncs, bz.Close)
	case strings.HasSuffix(path, ".xz"):
		xzr, err := xz.NewReader(r)
		if err != nil {
			file.Close()
			return nil, err
		}
		r = xzr
	}

	s.reader = bufio.NewReaderSize(r, readAheadBufferSize)
	return s, nil
}

// Read implements io.Reader.
func (s *XMLStream) Read(p []byte) (int, error) {
	n, err := s.reader.Read(p)
	for i := 0; i < n; i++ {
		if p[i] == '\n' {
			atomic.AddInt64(&s.linesRead, 1)
		}
	}
	return n, err
}

// ReadByte implements io.ByteReader, which encoding/xml's decoder prefers
// when available because it avoids an extra buffering layer.
func (s *XMLStream) ReadByte() (byte, error) {
	b, err := s.reader.ReadByte()
	if err == nil && b == '\n' {
		atomic.AddInt64(&s.linesRead, 1)
	}
	return b, err
}

// Progress returns a human-readable summary of how much of the dump has
// been consumed so far, such as "1.2 GB / 5.4 GB (123,456 lines)".
func (s *XMLStream) Progress() string {
	read := atomic.LoadInt64(&s.bytesRead)
	lines := atomic.LoadInt64(&s.linesRead)
	if s.size > 0 {
		return fmt.Sprintf("%s / %s (%s lines)",
			humanize.Bytes(uint64(read)), humanize.Bytes(uint64(s.size)),
			humanize.Comma(lines))
	}
	return fmt.Sprintf("%s (%s lines)", humanize.Bytes(uint64(read)), humanize.Comma(lines))
}

// Close releases all resources held by the stream.
func (s *XMLStream) Close() error {
	var firstErr error
	for i := len(s.closeFuncs) - 1; i >= 0; i-- {
		if err := s.closeFuncs[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := s.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

type countingReader struct {
	r io.Reader
	n *int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	atomic.AddInt64(c.n, int64(n))
	return n, err
}
