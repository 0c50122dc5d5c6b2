// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"bufio"
	"bytes"
	"container/heap"
	"io"
	"strings"
)

// lineMergerMaxLineSize bounds a single pass-one TSV row. Rows carry a
// concept's full Inlinks/Outlinks/Aliases payload for one wiki, which can
// run well past bufio.Scanner's 64 KiB default for heavily-linked articles.
const lineMergerMaxLineSize = 16 * 1024 * 1024

// LineMerger merges already title-sorted pass-one joiner shards (one TSV
// stream per worker, each line a FullWikiRow keyed by its leading
// title/concept-id field up to the first tab) into a single globally
// title-ordered stream, so pass two's concept-id rewrite can consume rows
// in order without holding every shard in memory at once.
type LineMerger struct {
	heap   lineMergerHeap
	err    error
	inited bool
}

// NewLineMerger returns a merger over shards, each of which must already be
// sorted by its TSV key (the text before the first tab on each line).
func NewLineMerger(shards []io.Reader) *LineMerger {
	m := &LineMerger{}
	m.heap = make(lineMergerHeap, 0, len(shards))
	for _, shard := range shards {
		item := &mergee{scanner: bufio.NewScanner(shard)}
		item.scanner.Buffer(make([]byte, 64*1024), lineMergerMaxLineSize)
		if item.scanner.Scan() {
			m.heap = append(m.heap, item)
		}
		if err := item.scanner.Err(); err != nil {
			m.err = err
			return m
		}
	}
	return m
}

// Advance moves to the next line in merged order. It returns false once
// every reader is exhausted or an error occurred.
func (m *LineMerger) Advance() bool {
	if m.err != nil {
		return false
	}
	if len(m.heap) == 0 {
		return false
	}
	if !m.inited {
		heap.Init(&m.heap)
		m.inited = true
		return true
	}
	item := m.heap[0]
	if item.scanner.Scan() {
		heap.Fix(&m.heap, 0)
	} else {
		heap.Remove(&m.heap, 0)
	}
	if err := item.scanner.Err(); err != nil {
		m.err = err
		return false
	}
	return len(m.heap) > 0
}

// Err returns the first error encountered while scanning, if any.
func (m *LineMerger) Err() error {
	return m.err
}

// Line returns the current merged row.
func (m *LineMerger) Line() string {
	n := len(m.heap)
	if n > 0 {
		return m.heap[0].scanner.Text()
	}
	return ""
}

// Key returns the TSV key (everything before the first tab) of the current
// merged row — the title in a pass-one shard, or the concept id once pass
// two has rewritten it. RewritePass2 callers use this to detect the shard
// boundary where a title's rows from different workers need to be grouped.
func (m *LineMerger) Key() string {
	line := m.Line()
	if i := strings.IndexByte(line, '\t'); i >= 0 {
		return line[:i]
	}
	return line
}

type mergee struct {
	scanner *bufio.Scanner
	index   int
}

type lineMergerHeap []*mergee

func (h lineMergerHeap) Len() int { return len(h) }

// Less orders shards by their row's leading TSV key, not the raw line
// bytes, so two shards whose current rows share a title merge adjacently
// regardless of what differs later in the row (inlink/outlink counts,
// alias lists).
func (h lineMergerHeap) Less(i, j int) bool {
	return bytes.Compare(tsvKey(h[i].scanner.Bytes()), tsvKey(h[j].scanner.Bytes())) < 0
}

func tsvKey(line []byte) []byte {
	if i := bytes.IndexByte(line, '\t'); i >= 0 {
		return line[:i]
	}
	return line
}

func (h lineMergerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *lineMergerHeap) Push(x interface{}) {
	n := len(*h)
	item := x.(*mergee)
	item.index = n
	*h = append(*h, item)
}

func (h *lineMergerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[0 : n-1]
	return item
}
