// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseWikitext(t *testing.T) {
	text := `Paris is the capital of [[France]]. See also [[Paris, Texas|Texas variant]]
and [[France#History|French history]]. [[:Category:Capitals]] too. [[France]] again.`
	links := ParseWikitext(text)
	want := map[string]int{
		"France":             2,
		"Paris, Texas":       1,
		"Category:Capitals":  1,
	}
	if len(links) != len(want) {
		t.Fatalf("got %v, want %v", links, want)
	}
	for k, v := range want {
		if links[k] != v {
			t.Errorf("links[%q] = %d, want %d", k, links[k], v)
		}
	}
}

func runPool(t *testing.T, pool *WikitextWorkerPool, pages []*UnparsedPage) ([]*ParsedPage, error) {
	t.Helper()
	in := make(chan *UnparsedPage, len(pages))
	out := make(chan *ParsedPage, len(pages))
	for _, p := range pages {
		in <- p
	}
	close(in)

	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		errCh <- pool.Run(context.Background(), in, out)
	}()

	var got []*ParsedPage
	for p := range out {
		got = append(got, p)
	}
	return got, <-errCh
}

func TestWikitextWorkerPoolBasic(t *testing.T) {
	pages := []*UnparsedPage{
		{ID: "1", Title: "Paris", Text: "See [[France]]."},
		{ID: "2", Title: "Lutetia", Redirect: strPtr("Paris")},
	}
	pool := NewWikitextWorkerPool()
	pool.NumWorkers = 2
	got, err := runPool(t, pool, pages)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d pages, want 2", len(got))
	}
	if pool.Stats.Parsed != 2 {
		t.Errorf("Stats.Parsed = %d, want 2", pool.Stats.Parsed)
	}
}

func TestWikitextWorkerPoolTimeoutDropsPage(t *testing.T) {
	pages := []*UnparsedPage{
		{ID: "1", Title: "Slow", Text: "[[A]]"},
		{ID: "2", Title: "Fast", Text: "[[B]]"},
	}
	pool := NewWikitextWorkerPool()
	pool.NumWorkers = 1
	pool.Timeout = 1 * time.Nanosecond
	got, err := runPool(t, pool, pages)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected all pages dropped by the tiny timeout, got %d", len(got))
	}
	if pool.Stats.TimedOut != 2 {
		t.Errorf("Stats.TimedOut = %d, want 2", pool.Stats.TimedOut)
	}
}

func TestWikitextWorkerPoolCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan *UnparsedPage)
	out := make(chan *ParsedPage)
	pool := NewWikitextWorkerPool()
	pool.NumWorkers = 1

	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx, in, out) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not shut down after cancellation")
	}
}

func strPtr(s string) *string { return &s }
