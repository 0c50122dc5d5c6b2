// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"context"
	"fmt"
	"runtime"

	"github.com/lanrat/extsort"
	"golang.org/x/sync/errgroup"
)

// PopulateArticleStore writes every article in articles into store in
// title order, using an external merge sort over the title keys so the
// write order is reproducible even when the in-memory article set is too
// large to sort with a single in-process slice sort. ArticleStore's
// iteration order does not depend on this: leveldb always iterates in key
// (title) order.
func PopulateArticleStore(ctx context.Context, store *ArticleStore, articles map[string]*CanonicalArticle) error {
	ch := make(chan string, 10000)
	config := extsort.DefaultConfig()
	config.NumWorkers = runtime.NumCPU()
	sorter, outChan, errChan := extsort.Strings(ch, config)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(ch)
		for title := range articles {
			select {
			case ch <- title:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	g.Go(func() error {
		sorter.Sort(gctx)
		for title := range outChan {
			if err := store.Put(articles[title]); err != nil {
				return err
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if err := <-errChan; err != nil {
		return fmt.Errorf("conceptjoin: sorting article titles: %w", err)
	}
	return nil
}
