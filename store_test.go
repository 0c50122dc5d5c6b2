// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"path/filepath"
	"testing"
)

func TestArticleStorePutGet(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenArticleStore(filepath.Join(dir, "articles"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	pr := 0.5
	a := &CanonicalArticle{
		ID:       "1",
		Title:    "Paris",
		Aliases:  map[string]struct{}{"Lutetia": {}},
		Links:    map[string]int{"France": 2},
		Inlinks:  map[string]int{},
		PageRank: &pr,
	}
	if err := store.Put(a); err != nil {
		t.Fatal(err)
	}

	got, ok, err := store.Get("Paris")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("article not found")
	}
	if got.Title != "Paris" || got.Links["France"] != 2 {
		t.Errorf("got = %+v", got)
	}
	if got.PageRank == nil || *got.PageRank != 0.5 {
		t.Errorf("PageRank = %v, want 0.5", got.PageRank)
	}
	if _, ok := got.Aliases["Lutetia"]; !ok {
		t.Errorf("Aliases missing Lutetia: %v", got.Aliases)
	}

	_, ok, err = store.Get("Nonexistent")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected Nonexistent to be absent")
	}
}

func TestArticleStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "articles")

	store, err := OpenArticleStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(newCanonicalArticle("1", "Berlin")); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenArticleStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	got, ok, err := reopened.Get("Berlin")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got.Title != "Berlin" {
		t.Fatalf("got = %+v, ok = %v", got, ok)
	}
}

func TestArticleStoreForEachOrder(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenArticleStore(filepath.Join(dir, "articles"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	for _, title := range []string{"Zebra", "Apple", "Mango"} {
		if err := store.Put(newCanonicalArticle("x", title)); err != nil {
			t.Fatal(err)
		}
	}
	var titles []string
	err = store.ForEach(func(a *CanonicalArticle) error {
		titles = append(titles, a.Title)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Apple", "Mango", "Zebra"}
	if len(titles) != len(want) {
		t.Fatalf("got %v, want %v", titles, want)
	}
	for i := range want {
		if titles[i] != want[i] {
			t.Errorf("titles[%d] = %q, want %q", i, titles[i], want[i])
		}
	}
}

func TestAliasStoreFallbackRoundTrip(t *testing.T) {
	dir := t.TempDir()
	articles, err := OpenArticleStore(filepath.Join(dir, "articles"))
	if err != nil {
		t.Fatal(err)
	}
	defer articles.Close()

	uk := newCanonicalArticle("2", "United Kingdom")
	uk.Aliases["UK"] = struct{}{}
	uk.Aliases["Great Britain"] = struct{}{}
	if err := articles.Put(uk); err != nil {
		t.Fatal(err)
	}

	aliases, err := OpenAliasStore(filepath.Join(dir, "aliases"))
	if err != nil {
		t.Fatal(err)
	}
	defer aliases.Close()
	if err := aliases.PopulateFromArticles(articles); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"UK", "Great Britain", "United Kingdom"} {
		target, ok, err := aliases.Resolve(key)
		if err != nil {
			t.Fatal(err)
		}
		if !ok || target != "United Kingdom" {
			t.Errorf("Resolve(%q) = %q, %v, want %q, true", key, target, ok, "United Kingdom")
		}
		article, ok, err := articles.Get(target)
		if err != nil {
			t.Fatal(err)
		}
		if !ok || article.Title != uk.Title {
			t.Errorf("ArticleStore.Get(%q) = %+v, want title %q", target, article, uk.Title)
		}
	}

	_, ok, err := aliases.Resolve("Nonexistent")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected Nonexistent alias to be unresolved")
	}
}
