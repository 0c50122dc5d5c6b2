// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// JoinerStats accumulates the quintuple of counters the driver reports at
// the end of a join run: entities considered, entities with no sitelinks at
// all for any target wiki, sitelinks missing a title, sitelinks whose title
// could not be found in either store, and sitelinks resolved only via the
// alias store.
type JoinerStats struct {
	Considered     int64
	Empty          int64
	NoTitle        int64
	MissingArticle int64
	Aliased        int64
}

// WikiJoinResult is one target wiki's resolution outcome for a single
// Wikidata entity.
type WikiJoinResult struct {
	Title      string
	PageRank   *float64
	Percentile *float64
	Found      bool
}

// JoinRow is one output row of the concept join: a Wikidata entity's
// concept-level fields plus its per-wiki article resolution and ancestor
// closures.
type JoinRow struct {
	ConceptID           string
	SampleLabel         *string
	Coord               *GlobeCoord
	CountryOfOrigin     *string
	PublicationDate     *int64
	PerWiki             map[string]WikiJoinResult
	DirectInstanceOf    []string
	RecursiveInstanceOf []string
	DirectSubclassOf    []string
	RecursiveSubclassOf []string
}

// Joiner streams Wikidata entities against a fixed set of target wikis,
// resolving each sitelink against that wiki's ArticleStore (falling back to
// its AliasStore), and computes ancestor closures via an InheritanceGraph.
type Joiner struct {
	Wikis         []string
	ArticleStores map[string]*ArticleStore
	AliasStores   map[string]*AliasStore
	Graph         *InheritanceGraph
	Stats         JoinerStats
}

// NewJoiner returns a joiner over the given target wikis. articleStores and
// aliasStores must have one entry per wiki name in wikis.
func NewJoiner(wikis []string, articleStores map[string]*ArticleStore, aliasStores map[string]*AliasStore, graph *InheritanceGraph) *Joiner {
	return &Joiner{Wikis: wikis, ArticleStores: articleStores, AliasStores: aliasStores, Graph: graph}
}

// Join resolves one Wikidata entity into a JoinRow.
func (j *Joiner) Join(e *WikidataEntity) (*JoinRow, error) {
	j.Stats.Considered++
	if len(e.TitlesByWiki) == 0 {
		j.Stats.Empty++
	}

	row := &JoinRow{
		ConceptID:       e.ID,
		SampleLabel:     e.SampleLabel,
		Coord:           e.SampleCoord,
		CountryOfOrigin: e.CountryOfOrigin,
		PublicationDate: e.PublicationDate,
		PerWiki:         make(map[string]WikiJoinResult),
	}

	for _, w := range j.Wikis {
		title, ok := e.TitlesByWiki[w]
		if !ok {
			j.Stats.NoTitle++
			row.PerWiki[w] = WikiJoinResult{}
			continue
		}
		result, err := j.resolveWikiTitle(w, title)
		if err != nil {
			return nil, err
		}
		row.PerWiki[w] = result
	}

	row.DirectInstanceOf = sortedKeys(e.DirectInstanceOf)
	row.DirectSubclassOf = sortedKeys(e.DirectSubclassOf)
	row.RecursiveInstanceOf = sortedSet(j.Graph.AncestorsOfAll(e.DirectInstanceOf))
	row.RecursiveSubclassOf = sortedSet(j.Graph.AncestorsOfAll(e.DirectSubclassOf))

	return row, nil
}

// resolveWikiTitle implements spec §4.8 step 1: ArticleStore direct lookup,
// then AliasStore fallback to ArticleStore, recording statistics either
// way. A sitelink that never resolves is not a fatal error: the row still
// carries the raw title with a null PageRank.
func (j *Joiner) resolveWikiTitle(wiki, title string) (WikiJoinResult, error) {
	articles, ok := j.ArticleStores[wiki]
	if !ok {
		return WikiJoinResult{}, fmt.Errorf("conceptjoin: no article store configured for wiki %q", wiki)
	}

	article, found, err := articles.Get(title)
	if err != nil {
		return WikiJoinResult{}, err
	}
	if found {
		return articleResult(article), nil
	}

	aliases, ok := j.AliasStores[wiki]
	if ok {
		canonical, found, err := aliases.Resolve(title)
		if err != nil {
			return WikiJoinResult{}, err
		}
		if found {
			article, found, err := articles.Get(canonical)
			if err != nil {
				return WikiJoinResult{}, err
			}
			if found {
				j.Stats.Aliased++
				return articleResult(article), nil
			}
		}
	}

	j.Stats.MissingArticle++
	return WikiJoinResult{Title: title, Found: false}, nil
}

func articleResult(a *CanonicalArticle) WikiJoinResult {
	return WikiJoinResult{Title: a.Title, PageRank: a.PageRank, Percentile: a.PageRankPercentile, Found: true}
}

func sortedKeys(m map[string]struct{}) []string {
	if len(m) == 0 {
		return nil
	}
	result := make([]string, 0, len(m))
	for k := range m {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

func sortedSet(m map[string]struct{}) []string {
	return sortedKeys(m)
}

// CSVEmitter writes JoinRow values as tab-separated rows with a header,
// using RFC 4180-style minimal quoting and a fixed comma-joined convention
// for list-valued columns.
type CSVEmitter struct {
	w           *strings.Builder
	wikis       []string
	wroteHeader bool
}

// NewCSVEmitter returns an emitter for the given ordered wiki list; column
// names for per-wiki fields are derived from wikis at construction time.
func NewCSVEmitter(wikis []string) *CSVEmitter {
	return &CSVEmitter{w: &strings.Builder{}, wikis: wikis}
}

func (c *CSVEmitter) header() []string {
	cols := []string{"concept_id", "sample_label", "coord_latitude", "coord_longitude", "coord_altitude", "coord_precision", "country_of_origin", "publication_date"}
	for _, w := range c.wikis {
		cols = append(cols, w+"_title", w+"_pagerank")
	}
	cols = append(cols, "direct_instance_of", "recursive_instance_of", "direct_subclass_of", "recursive_subclass_of")
	return cols
}

// WriteHeader writes the header row once.
func (c *CSVEmitter) WriteHeader() {
	if c.wroteHeader {
		return
	}
	c.writeRow(c.header())
	c.wroteHeader = true
}

// WriteRow appends one JoinRow's columns.
func (c *CSVEmitter) WriteRow(row *JoinRow) {
	cols := []string{row.ConceptID, optStr(row.SampleLabel)}
	if row.Coord != nil {
		cols = append(cols, formatFloat(row.Coord.Latitude), formatFloat(row.Coord.Longitude), optFloat(row.Coord.Altitude), optFloat(row.Coord.Precision))
	} else {
		cols = append(cols, "", "", "", "")
	}
	cols = append(cols, optStr(row.CountryOfOrigin), optInt64(row.PublicationDate))
	for _, w := range c.wikis {
		r := row.PerWiki[w]
		cols = append(cols, r.Title, optFloat(r.PageRank))
	}
	cols = append(cols, strings.Join(row.DirectInstanceOf, ","), strings.Join(row.RecursiveInstanceOf, ","), strings.Join(row.DirectSubclassOf, ","), strings.Join(row.RecursiveSubclassOf, ","))
	c.writeRow(cols)
}

// String returns the accumulated TSV content.
func (c *CSVEmitter) String() string {
	return c.w.String()
}

func (c *CSVEmitter) writeRow(cols []string) {
	for i, col := range cols {
		if i > 0 {
			c.w.WriteByte('\t')
		}
		c.w.WriteString(quoteTSVField(col))
	}
	c.w.WriteByte('\n')
}

// quoteTSVField applies RFC 4180-style minimal quoting: a field is quoted
// only if it contains the delimiter, a quote, or a newline, with embedded
// quotes doubled.
func quoteTSVField(s string) string {
	if !strings.ContainsAny(s, "\t\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func optStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return formatFloat(*f)
}

func optInt64(i *int64) string {
	if i == nil {
		return ""
	}
	return strconv.FormatInt(*i, 10)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
