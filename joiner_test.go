// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"io"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStores(t *testing.T, articles ...*CanonicalArticle) (*ArticleStore, *AliasStore) {
	t.Helper()
	dir := t.TempDir()
	store, err := OpenArticleStore(filepath.Join(dir, "articles"))
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range articles {
		if err := store.Put(a); err != nil {
			t.Fatal(err)
		}
	}
	aliases, err := OpenAliasStore(filepath.Join(dir, "aliases"))
	if err != nil {
		t.Fatal(err)
	}
	if err := aliases.PopulateFromArticles(store); err != nil {
		t.Fatal(err)
	}
	return store, aliases
}

func TestJoinerCrossWikiJoin(t *testing.T) {
	enPr := 0.7
	enArticles, enAliases := newTestStores(t, &CanonicalArticle{ID: "1", Title: "Paris", Aliases: map[string]struct{}{}, Links: map[string]int{}, Inlinks: map[string]int{}, PageRank: &enPr})
	frPr := 0.9
	frArticles, frAliases := newTestStores(t, &CanonicalArticle{ID: "1", Title: "Paris", Aliases: map[string]struct{}{}, Links: map[string]int{}, Inlinks: map[string]int{}, PageRank: &frPr})
	defer enArticles.Close()
	defer frArticles.Close()
	defer enAliases.Close()
	defer frAliases.Close()

	joiner := NewJoiner(
		[]string{"enwiki", "frwiki"},
		map[string]*ArticleStore{"enwiki": enArticles, "frwiki": frArticles},
		map[string]*AliasStore{"enwiki": enAliases, "frwiki": frAliases},
		NewInheritanceGraph(),
	)

	entity := &WikidataEntity{
		ID:               "Q1",
		TitlesByWiki:     map[string]string{"enwiki": "Paris", "frwiki": "Paris"},
		DirectInstanceOf: map[string]struct{}{},
		DirectSubclassOf: map[string]struct{}{},
	}
	row, err := joiner.Join(entity)
	if err != nil {
		t.Fatal(err)
	}
	if row.PerWiki["enwiki"].Title != "Paris" || *row.PerWiki["enwiki"].PageRank != 0.7 {
		t.Errorf("enwiki result = %+v", row.PerWiki["enwiki"])
	}
	if row.PerWiki["frwiki"].Title != "Paris" || *row.PerWiki["frwiki"].PageRank != 0.9 {
		t.Errorf("frwiki result = %+v", row.PerWiki["frwiki"])
	}
}

func TestJoinerAliasFallback(t *testing.T) {
	pr := 0.3
	uk := &CanonicalArticle{ID: "2", Title: "United Kingdom", Aliases: map[string]struct{}{"UK": {}}, Links: map[string]int{}, Inlinks: map[string]int{}, PageRank: &pr}
	articles, aliases := newTestStores(t, uk)
	defer articles.Close()
	defer aliases.Close()

	joiner := NewJoiner(
		[]string{"enwiki"},
		map[string]*ArticleStore{"enwiki": articles},
		map[string]*AliasStore{"enwiki": aliases},
		NewInheritanceGraph(),
	)

	entity := &WikidataEntity{
		ID:               "Q2",
		TitlesByWiki:     map[string]string{"enwiki": "UK"},
		DirectInstanceOf: map[string]struct{}{},
		DirectSubclassOf: map[string]struct{}{},
	}
	row, err := joiner.Join(entity)
	if err != nil {
		t.Fatal(err)
	}
	result := row.PerWiki["enwiki"]
	if result.Title != "United Kingdom" {
		t.Errorf("Title = %q, want United Kingdom", result.Title)
	}
	if result.PageRank == nil || *result.PageRank != 0.3 {
		t.Errorf("PageRank = %v, want 0.3", result.PageRank)
	}
	if joiner.Stats.Aliased != 1 {
		t.Errorf("Stats.Aliased = %d, want 1", joiner.Stats.Aliased)
	}
}

func TestJoinerMissingArticleEmitsNullPagerank(t *testing.T) {
	articles, aliases := newTestStores(t)
	defer articles.Close()
	defer aliases.Close()

	joiner := NewJoiner(
		[]string{"enwiki"},
		map[string]*ArticleStore{"enwiki": articles},
		map[string]*AliasStore{"enwiki": aliases},
		NewInheritanceGraph(),
	)
	entity := &WikidataEntity{ID: "Q3", TitlesByWiki: map[string]string{"enwiki": "Nonexistent"}}
	row, err := joiner.Join(entity)
	if err != nil {
		t.Fatal(err)
	}
	result := row.PerWiki["enwiki"]
	if result.Title != "Nonexistent" || result.PageRank != nil {
		t.Errorf("result = %+v, want raw title with null pagerank", result)
	}
	if joiner.Stats.MissingArticle != 1 {
		t.Errorf("Stats.MissingArticle = %d, want 1", joiner.Stats.MissingArticle)
	}
}

func TestJoinerAncestorClosure(t *testing.T) {
	articles, aliases := newTestStores(t)
	defer articles.Close()
	defer aliases.Close()
	graph := NewInheritanceGraph()
	graph.AddSubclassOf("Q215627", "Q5")
	graph.AddSubclassOf("Q3305213", "Q215627")

	joiner := NewJoiner([]string{}, map[string]*ArticleStore{}, map[string]*AliasStore{}, graph)
	entity := &WikidataEntity{
		ID:               "Q3305213",
		DirectSubclassOf: map[string]struct{}{"Q215627": {}},
		DirectInstanceOf: map[string]struct{}{},
	}
	row, err := joiner.Join(entity)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{"Q3305213": true, "Q215627": true, "Q5": true}
	if len(row.RecursiveSubclassOf) != len(want) {
		t.Fatalf("RecursiveSubclassOf = %v, want %v", row.RecursiveSubclassOf, want)
	}
	for _, id := range row.RecursiveSubclassOf {
		if !want[id] {
			t.Errorf("unexpected id %q in closure", id)
		}
	}
}

func TestCSVEmitterHeaderAndRow(t *testing.T) {
	emitter := NewCSVEmitter([]string{"enwiki"})
	emitter.WriteHeader()
	pr := 0.5
	emitter.WriteRow(&JoinRow{
		ConceptID: "Q1",
		PerWiki:   map[string]WikiJoinResult{"enwiki": {Title: "Paris", PageRank: &pr, Found: true}},
	})
	out := emitter.String()
	if out == "" {
		t.Fatal("expected non-empty output")
	}
	wantHeader := "concept_id\tsample_label\tcoord_latitude\tcoord_longitude\tcoord_altitude\tcoord_precision\tcountry_of_origin\tpublication_date\tenwiki_title\tenwiki_pagerank\tdirect_instance_of\trecursive_instance_of\tdirect_subclass_of\trecursive_subclass_of\n"
	wantRow := "Q1\t\t\t\t\t\t\t\tParis\t0.5\t\t\t\t\n"
	if out != wantHeader+wantRow {
		t.Errorf("output = %q, want %q", out, wantHeader+wantRow)
	}
}

func TestCSVEmitterQuotesSpecialCharacters(t *testing.T) {
	emitter := NewCSVEmitter(nil)
	label := "has\ttab"
	emitter.WriteRow(&JoinRow{ConceptID: "Q1", SampleLabel: &label})
	out := emitter.String()
	if !contains(out, `"has`+"\t"+`tab"`) {
		t.Errorf("expected quoted tab field, got %q", out)
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}

func TestTwoPassLinkRewrite(t *testing.T) {
	pr := 0.6
	paris := &CanonicalArticle{
		ID: "1", Title: "Paris",
		Aliases: map[string]struct{}{},
		Links:   map[string]int{"France": 2, "Unmapped Title": 1},
		Inlinks: map[string]int{"France": 1},
		PageRank: &pr,
	}
	articles, aliases := newTestStores(t, paris)
	defer articles.Close()
	defer aliases.Close()

	sw := NewSingleWikiJoiner("enwiki", articles, aliases)
	entity := &WikidataEntity{ID: "Q1", TitlesByWiki: map[string]string{"enwiki": "Paris"}}
	row, title, ok, err := sw.JoinPass1(entity)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || title != "Paris" {
		t.Fatalf("JoinPass1 ok=%v title=%q", ok, title)
	}

	titleToConcept := map[string]string{"Paris": "Q1", "France": "Q2"}
	RewritePass2(row, titleToConcept)

	if row.Outlinks["Q2"] != 2 {
		t.Errorf("Outlinks[Q2] = %d, want 2", row.Outlinks["Q2"])
	}
	if _, ok := row.Outlinks["Unmapped Title"]; ok {
		t.Error("unmapped title should have been dropped in pass two")
	}
	if row.Inlinks["Q2"] != 1 {
		t.Errorf("Inlinks[Q2] = %d, want 1", row.Inlinks["Q2"])
	}
}

func TestMergeIntermediatePassOneRows(t *testing.T) {
	shardA := strings.NewReader("Q1\trow-a\nQ3\trow-c\n")
	shardB := strings.NewReader("Q2\trow-b\n")
	merger := MergeIntermediatePassOneRows([]io.Reader{shardA, shardB})
	var lines []string
	for merger.Advance() {
		lines = append(lines, merger.Line())
	}
	if err := merger.Err(); err != nil {
		t.Fatal(err)
	}
	want := []string{"Q1\trow-a", "Q2\trow-b", "Q3\trow-c"}
	if len(lines) != len(want) {
		t.Fatalf("got %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}
