// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeGzipFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w := gzip.NewWriter(f)
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestXMLStreamPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.xml")
	want := "<mediawiki><page><title>Paris</title></page></mediawiki>"
	if err := os.WriteFile(path, []byte(want), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := OpenXMLStream(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	got, err := io.ReadAll(s)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestXMLStreamGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.xml.gz")
	want := "<mediawiki><page><title>Paris</title></page></mediawiki>\n"
	writeGzipFile(t, path, want)

	s, err := OpenXMLStream(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	got, err := io.ReadAll(s)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if s.linesRead != 1 {
		t.Errorf("linesRead = %d, want 1", s.linesRead)
	}
}

func TestXMLStreamProgress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.xml")
	if err := os.WriteFile(path, []byte("hello world"), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := OpenXMLStream(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	io.ReadAll(s)
	if p := s.Progress(); p == "" {
		t.Errorf("expected non-empty progress string")
	}
}
