// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/vmihailenco/msgpack/v5"
)

// ArticleStore is a disk-backed, title-keyed map of CanonicalArticle for a
// single wiki. Writes happen in bulk while the corresponding language's
// XML dump is processed; reads are random, during the join stage. Backed by
// goleveldb so a run can resume against a store populated by an earlier,
// interrupted run without re-parsing the dump.
type ArticleStore struct {
	db   *leveldb.DB
	path string
}

// OpenArticleStore opens (creating if necessary) a store at path.
func OpenArticleStore(path string) (*ArticleStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("conceptjoin: opening article store %q: %w", path, err)
	}
	return &ArticleStore{db: db, path: path}, nil
}

// Put writes a canonical article, keyed by its (already-resolved) title.
func (s *ArticleStore) Put(a *CanonicalArticle) error {
	buf, err := msgpack.Marshal(a)
	if err != nil {
		return fmt.Errorf("conceptjoin: marshaling article %q: %w", a.Title, err)
	}
	return s.db.Put([]byte(a.Title), buf, nil)
}

// Get looks up a canonical article by exact title. The second return value
// is false if no article has that title.
func (s *ArticleStore) Get(title string) (*CanonicalArticle, bool, error) {
	buf, err := s.db.Get([]byte(title), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("conceptjoin: reading article %q: %w", title, err)
	}
	var a CanonicalArticle
	if err := msgpack.Unmarshal(buf, &a); err != nil {
		return nil, false, fmt.Errorf("conceptjoin: unmarshaling article %q: %w", title, err)
	}
	return &a, true, nil
}

// ForEach iterates every stored article in key (title) order, which leveldb
// maintains regardless of the order in which articles were written.
func (s *ArticleStore) ForEach(fn func(*CanonicalArticle) error) error {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		var a CanonicalArticle
		if err := msgpack.Unmarshal(iter.Value(), &a); err != nil {
			return fmt.Errorf("conceptjoin: unmarshaling article: %w", err)
		}
		if err := fn(&a); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Close releases the underlying database handle.
func (s *ArticleStore) Close() error {
	return s.db.Close()
}

// AliasStore is a disk-backed map from a title or redirect alias to its
// canonical target title, for a single wiki. Populated after the matching
// ArticleStore is closed for writes, by iterating every article and
// inserting the identity mapping plus one entry per alias.
type AliasStore struct {
	db *leveldb.DB
}

// OpenAliasStore opens (creating if necessary) a store at path.
func OpenAliasStore(path string) (*AliasStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("conceptjoin: opening alias store %q: %w", path, err)
	}
	return &AliasStore{db: db}, nil
}

// PopulateFromArticles populates the alias store from every article in
// articles: the identity mapping title -> title, plus alias -> title for
// every alias.
func (s *AliasStore) PopulateFromArticles(articles *ArticleStore) error {
	return articles.ForEach(func(a *CanonicalArticle) error {
		if err := s.db.Put([]byte(a.Title), []byte(a.Title), nil); err != nil {
			return fmt.Errorf("conceptjoin: aliasing identity %q: %w", a.Title, err)
		}
		for alias := range a.Aliases {
			if err := s.db.Put([]byte(alias), []byte(a.Title), nil); err != nil {
				return fmt.Errorf("conceptjoin: aliasing %q -> %q: %w", alias, a.Title, err)
			}
		}
		return nil
	})
}

// Resolve looks up title (or alias) and returns the canonical title it maps
// to. The second return value is false if title is not known at all.
func (s *AliasStore) Resolve(title string) (string, bool, error) {
	buf, err := s.db.Get([]byte(title), nil)
	if err == leveldb.ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("conceptjoin: resolving alias %q: %w", title, err)
	}
	return string(buf), true, nil
}

// Close releases the underlying database handle.
func (s *AliasStore) Close() error {
	return s.db.Close()
}
