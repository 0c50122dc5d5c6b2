// SPDX-License-Identifier: MIT

package conceptjoin

// CanonicalArticle is a terminal (non-redirect) article after all incoming
// redirects have been collapsed into it. Its Links and Inlinks multisets are
// only guaranteed to key exclusively into the same store's terminal titles
// once RedirectResolver.Resolve has run to completion.
type CanonicalArticle struct {
	ID                 string
	Title              string
	Aliases            map[string]struct{}
	Links              map[string]int
	Inlinks            map[string]int
	PageRank           *float64
	PageRankPercentile *float64
}

func newCanonicalArticle(id, title string) *CanonicalArticle {
	return &CanonicalArticle{
		ID:      id,
		Title:   title,
		Aliases: make(map[string]struct{}),
		Links:   make(map[string]int),
		Inlinks: make(map[string]int),
	}
}

// ResolverStats are the aggregate statistics RedirectResolver reports at the
// end of a run. They are bookkeeping, not errors: every anomaly they count
// is handled gracefully per spec §7.
type ResolverStats struct {
	Resolved   int64 // redirects chased to a terminal target
	Cycles     int64 // redirect chains that looped back on themselves
	Dangling   int64 // redirects whose chain never reaches a terminal page
	GoodLinks  int64 // links rewritten to a terminal title
	BadLinks   int64 // links that could not be resolved to any terminal title
	FileLinks  int64 // unresolved File:/Image: links, discarded silently
}

// RedirectResolver partitions a stream of parsed pages into terminal
// articles and redirects, chases each redirect chain to its terminal
// target, and rewrites every link multiset to refer only to terminal
// titles. It is single-threaded: canonicalization does not depend on the
// order in which pages arrive.
type RedirectResolver struct {
	Stats ResolverStats
}

// NewRedirectResolver returns a resolver ready to consume a page stream.
func NewRedirectResolver() *RedirectResolver {
	return &RedirectResolver{}
}

// Resolve consumes every ParsedPage from pages and returns the resulting
// set of canonical articles, keyed by title.
func (r *RedirectResolver) Resolve(pages <-chan *ParsedPage) map[string]*CanonicalArticle {
	terminal := make(map[string]*CanonicalArticle)
	redirects := make(map[string]string)
	rawLinks := make(map[string]map[string]int)

	for p := range pages {
		if p.Redirect != nil {
			redirects[p.Title] = *p.Redirect
			continue
		}
		terminal[p.Title] = newCanonicalArticle(p.ID, p.Title)
		rawLinks[p.Title] = p.Links
	}

	for source := range redirects {
		r.resolveChain(source, terminal, redirects)
	}

	for title, article := range terminal {
		links := rawLinks[title]
		for raw, count := range links {
			target, ok := resolveLinkTarget(raw, terminal, redirects)
			if !ok {
				if isFileOrImageLink(raw) {
					r.Stats.FileLinks += int64(count)
				} else {
					r.Stats.BadLinks += int64(count)
				}
				continue
			}
			article.Links[target] += count
			terminal[target].Inlinks[title] += count
			r.Stats.GoodLinks += int64(count)
		}
	}

	return terminal
}

// resolveChain follows the redirect chain starting at source until it
// either reaches a terminal article (recording the alias and path-
// compressing the chain), loops back on itself (a cycle), or runs off the
// edge of both maps (dangling).
func (r *RedirectResolver) resolveChain(source string, terminal map[string]*CanonicalArticle, redirects map[string]string) {
	pointer := redirects[source]
	seen := map[string]bool{source: true}
	for {
		if article, ok := terminal[pointer]; ok {
			article.Aliases[source] = struct{}{}
			redirects[source] = pointer
			r.Stats.Resolved++
			return
		}
		if seen[pointer] {
			r.Stats.Cycles++
			return
		}
		seen[pointer] = true
		next, ok := redirects[pointer]
		if !ok {
			r.Stats.Dangling++
			return
		}
		pointer = next
	}
}

// resolveLinkTarget tries raw, then its title-cased variant, resolving each
// through the redirect map first and falling back to a direct terminal
// lookup, per spec §4.3 step 3.
func resolveLinkTarget(raw string, terminal map[string]*CanonicalArticle, redirects map[string]string) (string, bool) {
	for _, candidate := range []string{raw, titleCaseFirst(raw)} {
		if target, ok := redirects[candidate]; ok {
			if article, ok := terminal[target]; ok {
				return article.Title, true
			}
			continue
		}
		if article, ok := terminal[candidate]; ok {
			return article.Title, true
		}
	}
	return "", false
}
