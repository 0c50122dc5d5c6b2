// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestWikidataStreamSkipsBracketsAndCommas(t *testing.T) {
	doc := "[\n" +
		`{"type":"item","id":"Q1"},` + "\n" +
		`{"type":"item","id":"Q2"},` + "\n" +
		`{"type":"item","id":"Q3"}` + "\n" +
		"]\n"
	s := NewWikidataStream(strings.NewReader(doc))
	var lines []string
	for {
		line, err := s.Next(context.Background())
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		lines = append(lines, string(line))
	}
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %v", len(lines), lines)
	}
	if lines[0] != `{"type":"item","id":"Q1"}` {
		t.Errorf("lines[0] = %q", lines[0])
	}
	if lines[2] != `{"type":"item","id":"Q3"}` {
		t.Errorf("lines[2] = %q", lines[2])
	}
}

func TestWikidataStreamCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewWikidataStream(strings.NewReader(`{"type":"item","id":"Q1"}` + "\n"))
	_, err := s.Next(ctx)
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
}
