// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"bufio"
	"path/filepath"
	"testing"
)

func TestIntermediateShardRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shard-0.zst")

	w, err := CreateIntermediateShard(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range []string{"Q1\trow-a", "Q2\trow-b"} {
		if err := w.WriteLine(line); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := OpenIntermediateShard(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatal(err)
	}
	want := []string{"Q1\trow-a", "Q2\trow-b"}
	if len(lines) != len(want) {
		t.Fatalf("got %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}

// TestIntermediateShardHandlesSlowReaders guards against the zstd decoder
// misbehaving on an io.Reader that returns data in small, awkward chunks
// mixed with EOF — a real regression the underlying decoder had to fix for
// callers reading one byte at a time.
func TestIntermediateShardHandlesSlowReaders(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shard-slow.zst")

	w, err := CreateIntermediateShard(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteLine("Q1\thello world"); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := OpenIntermediateShard(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	buf := make([]byte, 1)
	var got []byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			got = append(got, buf[:n]...)
		}
		if err != nil {
			break
		}
	}
	if string(got) != "Q1\thello world\n" {
		t.Errorf("got %q", got)
	}
}
