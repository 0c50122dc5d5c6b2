// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// ParsedPage is the result of parsing an UnparsedPage's wikitext. A page is
// either a redirect (Redirect set, Links empty) or a content page with a
// multiset of the titles it links to, counted by occurrence.
type ParsedPage struct {
	ID       string
	Title    string
	Redirect *string
	Links    map[string]int
}

// DefaultPageTimeout is the wall-clock budget a WikitextWorkerPool worker
// gives to parsing a single page before dropping it.
const DefaultPageTimeout = 60 * time.Second

var errPageTimeout = errors.New("conceptjoin: page parse timed out")

// wikilinkPattern matches [[Target]], [[Target|label]], and
// [[Target#Section|label]] wikilinks. It deliberately does not try to
// handle nested double brackets (e.g. links inside image captions with
// further links); those are rare enough that the extra complexity isn't
// worth it for a link-weighted PageRank graph.
var wikilinkPattern = regexp.MustCompile(`\[\[([^\[\]\|#]+)(?:#[^\]\|]*)?(?:\|[^\]]*)?\]\]`)

// ParseWikitext extracts the multiset of internal link targets referenced
// by a page's wikitext.
func ParseWikitext(text string) map[string]int {
	links := make(map[string]int)
	for _, m := range wikilinkPattern.FindAllStringSubmatch(text, -1) {
		target := strings.TrimSpace(m[1])
		target = strings.TrimPrefix(target, ":")
		if target == "" {
			continue
		}
		target = normalizeTitle(target)
		links[target]++
	}
	return links
}

// WikitextWorkerPoolStats reports per-run diagnostics: pages parsed and
// pages dropped because they exceeded the per-page timeout. Both counters
// are updated from every worker goroutine via atomic.AddInt64.
type WikitextWorkerPoolStats struct {
	Parsed   int64
	TimedOut int64
}

// WikitextWorkerPool is a fixed pool of workers that each pull an
// UnparsedPage, parse its wikitext into a link multiset, and emit a
// ParsedPage. Workers share no per-page state; there is no ordering
// guarantee across workers. The run-level Stats counters are the one piece
// of state every worker touches, so they're updated atomically.
type WikitextWorkerPool struct {
	NumWorkers int
	Timeout    time.Duration
	Stats      WikitextWorkerPoolStats
	Warn       func(format string, args ...interface{})
}

// NewWikitextWorkerPool returns a pool sized at 2x the number of CPUs, the
// teacher's default for I/O-adjacent CPU-bound worker pools.
func NewWikitextWorkerPool() *WikitextWorkerPool {
	return &WikitextWorkerPool{NumWorkers: 2 * runtime.NumCPU(), Timeout: DefaultPageTimeout}
}

// Run starts the pool, reading from in and writing to out until in is
// closed (after which workers exit on a poison-value read of the closed
// channel) or a worker returns an error, which tears down the whole pool.
func (p *WikitextWorkerPool) Run(ctx context.Context, in <-chan *UnparsedPage, out chan<- *ParsedPage) error {
	numWorkers := p.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 2 * runtime.NumCPU()
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultPageTimeout
	}
	warn := p.Warn
	if warn == nil {
		warn = func(string, ...interface{}) {}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < numWorkers; i++ {
		g.Go(func() error {
			for {
				select {
				case page, ok := <-in:
					if !ok {
						return nil
					}
					parsed, err := parsePageWithTimeout(page, timeout)
					if err == errPageTimeout {
						atomic.AddInt64(&p.Stats.TimedOut, 1)
						warn("dropping page %q: exceeded %s parse timeout", page.Title, timeout)
						continue
					}
					if err != nil {
						return err
					}
					atomic.AddInt64(&p.Stats.Parsed, 1)
					select {
					case out <- parsed:
					case <-gctx.Done():
						return gctx.Err()
					}
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		})
	}
	return g.Wait()
}

func parsePageWithTimeout(page *UnparsedPage, timeout time.Duration) (*ParsedPage, error) {
	type result struct {
		page *ParsedPage
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{nil, fmt.Errorf("conceptjoin: panic parsing %q: %v", page.Title, r)}
			}
		}()
		if page.Redirect != nil {
			target := normalizeTitle(*page.Redirect)
			ch <- result{&ParsedPage{ID: page.ID, Title: page.Title, Redirect: &target}, nil}
			return
		}
		ch <- result{&ParsedPage{ID: page.ID, Title: page.Title, Links: ParseWikitext(page.Text)}, nil}
	}()

	select {
	case r := <-ch:
		return r.page, r.err
	case <-time.After(timeout):
		return nil, errPageTimeout
	}
}
