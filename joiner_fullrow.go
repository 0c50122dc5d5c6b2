// SPDX-License-Identifier: MIT

package conceptjoin

import "io"

// MergeIntermediatePassOneRows merges already title-sorted pass-one output
// shards (one intermediate TSV stream per worker) into a single globally
// title-ordered stream, using the generic LineMerger. This is only needed
// when pass one was sharded across workers for a wiki too large to process
// single-threaded; a single-shard pass one can feed its file to pass two
// directly.
func MergeIntermediatePassOneRows(shards []io.Reader) *LineMerger {
	return NewLineMerger(shards)
}

// FullWikiRow is the additional per-wiki detail the full single-wiki
// variant emits beyond the cross-wiki JoinRow: percentile, in/outlinks, and
// aliases. Inlinks and Outlinks are keyed by article title after pass one
// and rewritten to concept ids in pass two, once the whole Wikidata dump
// has been read and every title's concept id is known.
type FullWikiRow struct {
	ConceptID  string
	Title      string
	PageRank   *float64
	Percentile *float64
	Inlinks    map[string]int
	Outlinks   map[string]int
	Aliases    []string
}

// SingleWikiJoiner produces FullWikiRow values for one target wiki,
// resolving each entity's sitelink the same way Joiner does (ArticleStore,
// falling back to AliasStore).
type SingleWikiJoiner struct {
	Wiki     string
	Articles *ArticleStore
	Aliases  *AliasStore
	Stats    JoinerStats
}

// NewSingleWikiJoiner returns a joiner for one wiki.
func NewSingleWikiJoiner(wiki string, articles *ArticleStore, aliases *AliasStore) *SingleWikiJoiner {
	return &SingleWikiJoiner{Wiki: wiki, Articles: articles, Aliases: aliases}
}

// JoinPass1 resolves one entity's sitelink for this wiki. The returned
// TitleToConceptID pair (when ok) is the accumulation the driver needs to
// build the full title->concept-id index before pass two can run.
func (s *SingleWikiJoiner) JoinPass1(e *WikidataEntity) (row *FullWikiRow, titleForConceptIndex string, ok bool, err error) {
	s.Stats.Considered++
	title, hasTitle := e.TitlesByWiki[s.Wiki]
	if !hasTitle {
		s.Stats.NoTitle++
		return nil, "", false, nil
	}

	article, found, err := s.Articles.Get(title)
	if err != nil {
		return nil, "", false, err
	}
	if !found && s.Aliases != nil {
		canonical, aliasFound, err := s.Aliases.Resolve(title)
		if err != nil {
			return nil, "", false, err
		}
		if aliasFound {
			article, found, err = s.Articles.Get(canonical)
			if err != nil {
				return nil, "", false, err
			}
			if found {
				s.Stats.Aliased++
			}
		}
	}
	if !found {
		s.Stats.MissingArticle++
		return &FullWikiRow{ConceptID: e.ID, Title: title}, title, true, nil
	}

	row = &FullWikiRow{
		ConceptID:  e.ID,
		Title:      article.Title,
		PageRank:   article.PageRank,
		Percentile: article.PageRankPercentile,
		Inlinks:    copyCountMap(article.Inlinks),
		Outlinks:   copyCountMap(article.Links),
		Aliases:    sortedStringSet(article.Aliases),
	}
	return row, article.Title, true, nil
}

// RewritePass2 rewrites row's Inlinks and Outlinks from article titles to
// concept ids using titleToConcept, the index accumulated across every
// JoinPass1 call in the run. Pairs whose title never mapped to a concept
// id (the linked article has no sitelink for this wiki at all) are
// dropped, per spec §4.8.
func RewritePass2(row *FullWikiRow, titleToConcept map[string]string) {
	row.Inlinks = rewriteLinkKeys(row.Inlinks, titleToConcept)
	row.Outlinks = rewriteLinkKeys(row.Outlinks, titleToConcept)
}

func rewriteLinkKeys(links map[string]int, titleToConcept map[string]string) map[string]int {
	rewritten := make(map[string]int, len(links))
	for title, count := range links {
		conceptID, ok := titleToConcept[title]
		if !ok {
			continue
		}
		rewritten[conceptID] += count
	}
	return rewritten
}

func copyCountMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedStringSet(m map[string]struct{}) []string {
	return sortedKeys(m)
}
