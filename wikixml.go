// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// UnparsedPage is a single <page> record pulled out of a Wikipedia XML dump,
// before its wikitext revision has been parsed into links.
type UnparsedPage struct {
	ID       string
	Title    string
	Redirect *string // target title, if this page is a redirect
	Text     string
}

// DefaultMaxRevisionBytes bounds how much revision text WikiXMLExtractor
// keeps per page. Text beyond this cap is discarded with a warning rather
// than aborting the run.
const DefaultMaxRevisionBytes = 100 * 1024 * 1024

// ErrLimitReached is returned by Extract once the configured page limit has
// been hit; callers should treat it the same as a clean end of stream.
var ErrLimitReached = errors.New("conceptjoin: page limit reached")

// ExtractorStats reports the diagnostics WikiXMLExtractor accumulates over
// a run: pages emitted and revision texts truncated by the per-page cap.
type ExtractorStats struct {
	PagesEmitted   int64
	TextsTruncated int64
}

// WikiXMLExtractor is a SAX-style consumer that reconstructs <page> records
// from a token stream and hands them to a bounded queue.
type WikiXMLExtractor struct {
	MaxRevisionBytes int
	Limit            int // 0 means unlimited
	Stats            ExtractorStats
	Warn             func(format string, args ...interface{})
}

// NewWikiXMLExtractor returns an extractor with the default revision-text
// cap and no page limit.
func NewWikiXMLExtractor() *WikiXMLExtractor {
	return &WikiXMLExtractor{MaxRevisionBytes: DefaultMaxRevisionBytes}
}

// pageState tracks everything WikiXMLExtractor knows about the <page>
// element it is currently inside. The nesting stack only ever holds the
// elements relative to <page>, since that is all the state machine needs
// to tell an <id> that is a direct child of <page> from one nested inside
// <revision>.
type pageState struct {
	stack       []string // element names, relative to <page>
	id          string
	title       string
	redirect    *string
	text        []byte
	sawTitle    bool
	sawRedirect bool
	sawRevision bool
	truncated   bool
}

func (s *pageState) parent() string {
	if len(s.stack) < 2 {
		return ""
	}
	return s.stack[len(s.stack)-2]
}

func (s *pageState) current() string {
	if len(s.stack) == 0 {
		return ""
	}
	return s.stack[len(s.stack)-1]
}

// Extract streams <page> elements out of r, emitting one UnparsedPage per
// completed <page> into out. The send to out applies backpressure: Extract
// blocks until the consumer (or ctx) is ready, which is how the bounded
// queue throttles the XML reader.
//
// Invariants enforced: no nested <page> elements; at most one <title>,
// <redirect>, and <revision> per page; an <id> directly under <page>
// records the page id, while an <id> nested inside <revision> is ignored.
// Violating the no-nesting or at-most-one invariants is a structural error
// that aborts the whole run, since it indicates a corrupt dump.
func (x *WikiXMLExtractor) Extract(ctx context.Context, r io.Reader, out chan<- *UnparsedPage) error {
	maxBytes := x.MaxRevisionBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRevisionBytes
	}
	warn := x.Warn
	if warn == nil {
		warn = func(string, ...interface{}) {}
	}

	dec := xml.NewDecoder(r)
	var st pageState
	inPage := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("conceptjoin: xml decode error: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if name == "page" {
				if inPage {
					return fmt.Errorf("conceptjoin: nested <page> element (corrupt dump)")
				}
				inPage = true
				st = pageState{}
				continue // <page> itself is not pushed; stack is relative to it
			}
			if !inPage {
				continue
			}
			st.stack = append(st.stack, name)
			switch {
			case name == "title" && st.parent() == "":
				if st.sawTitle {
					return fmt.Errorf("conceptjoin: duplicate <title> in page %q (corrupt dump)", st.title)
				}
				st.sawTitle = true
			case name == "redirect" && st.parent() == "":
				if st.sawRedirect {
					return fmt.Errorf("conceptjoin: duplicate <redirect> in page %q (corrupt dump)", st.title)
				}
				st.sawRedirect = true
				for _, a := range t.Attr {
					if a.Name.Local == "title" {
						target := a.Value
						st.redirect = &target
					}
				}
			case name == "revision" && st.parent() == "":
				if st.sawRevision {
					return fmt.Errorf("conceptjoin: duplicate <revision> in page %q (corrupt dump)", st.title)
				}
				st.sawRevision = true
			}

		case xml.EndElement:
			if t.Name.Local == "page" {
				if !inPage {
					continue
				}
				inPage = false
				page := &UnparsedPage{
					ID:       st.id,
					Title:    normalizeTitle(st.title),
					Redirect: st.redirect,
					Text:     string(st.text),
				}
				if st.truncated {
					x.Stats.TextsTruncated++
					warn("revision text for %q truncated at %d bytes", page.Title, maxBytes)
				}
				select {
				case out <- page:
				case <-ctx.Done():
					return ctx.Err()
				}
				x.Stats.PagesEmitted++
				if x.Limit > 0 && int(x.Stats.PagesEmitted) >= x.Limit {
					return ErrLimitReached
				}
				continue
			}
			if !inPage || len(st.stack) == 0 {
				continue
			}
			st.stack = st.stack[:len(st.stack)-1]

		case xml.CharData:
			if !inPage {
				continue
			}
			switch {
			case st.current() == "title" && st.parent() == "":
				st.title += string(t)
			case st.current() == "text" && st.parent() == "revision":
				if len(st.text) >= maxBytes {
					st.truncated = true
					continue
				}
				remaining := maxBytes - len(st.text)
				if len(t) > remaining {
					st.text = append(st.text, t[:remaining]...)
					st.truncated = true
				} else {
					st.text = append(st.text, t...)
				}
			case st.current() == "id" && st.parent() == "":
				st.id += string(t)
			}
		}
	}
}
