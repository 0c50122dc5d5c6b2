// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/andybalholm/brotli"
	"github.com/vmihailenco/msgpack/v5"
)

// WriteArticleDump writes the supplementary per-language article dump: the
// msgpack-compatible sequence of CanonicalArticle records described in the
// data model, brotli-compressed. Each record is length-prefixed so the
// reader doesn't need msgpack's own framing to find record boundaries.
func WriteArticleDump(path string, articles *ArticleStore) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("conceptjoin: creating article dump %q: %w", path, err)
	}
	defer f.Close()

	w := brotli.NewWriterLevel(f, 6)

	err = articles.ForEach(func(a *CanonicalArticle) error {
		buf, err := msgpack.Marshal(a)
		if err != nil {
			return fmt.Errorf("conceptjoin: marshaling article %q: %w", a.Title, err)
		}
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(buf)))
		if _, err := w.Write(lenBuf[:]); err != nil {
			return err
		}
		_, err = w.Write(buf)
		return err
	})
	if err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("conceptjoin: closing article dump writer: %w", err)
	}
	return f.Sync()
}

// ReadArticleDump reads back a dump written by WriteArticleDump, calling fn
// once per CanonicalArticle in file order.
func ReadArticleDump(path string, fn func(*CanonicalArticle) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("conceptjoin: opening article dump %q: %w", path, err)
	}
	defer f.Close()

	r := brotli.NewReader(f)
	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("conceptjoin: reading article dump length prefix: %w", err)
		}
		size := binary.BigEndian.Uint32(lenBuf[:])
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("conceptjoin: reading article dump record: %w", err)
		}
		var a CanonicalArticle
		if err := msgpack.Unmarshal(buf, &a); err != nil {
			return fmt.Errorf("conceptjoin: unmarshaling article dump record: %w", err)
		}
		if err := fn(&a); err != nil {
			return err
		}
	}
}
