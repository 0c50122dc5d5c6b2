// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"

	conceptjoin "github.com/wikiconcept/conceptjoin"
)

// wikiSource is one Wikipedia language edition's XML dump, as given on the
// command line.
type wikiSource struct {
	Wiki string
	Path string
}

// wikiArtifacts is what buildWikiArticles produces for a single wiki: its
// canonical-article store and alias index, ready for the joiner.
type wikiArtifacts struct {
	Wiki     string
	Articles *conceptjoin.ArticleStore
	Aliases  *conceptjoin.AliasStore
}

// Build runs the entire concept-join pipeline: extract and rank every
// configured wiki's articles in parallel, then stream the Wikidata dump
// twice: once to build the inheritance graph, and once to join each entity
// against every wiki's store.
func Build(ctx context.Context, wikis []wikiSource, wikidataPath, workdir, outPath string, limit int64, metrics *conceptjoin.Metrics) (*conceptjoin.RunStats, error) {
	if err := os.MkdirAll(workdir, 0755); err != nil {
		return nil, fmt.Errorf("conceptjoin-builder: creating workdir: %w", err)
	}

	artifacts, resolverStats, err := buildAllWikis(ctx, wikis, workdir, metrics)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, a := range artifacts {
			a.Articles.Close()
			a.Aliases.Close()
		}
	}()

	articleStores := make(map[string]*conceptjoin.ArticleStore, len(artifacts))
	aliasStores := make(map[string]*conceptjoin.AliasStore, len(artifacts))
	wikiNames := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		articleStores[a.Wiki] = a.Articles
		aliasStores[a.Wiki] = a.Aliases
		wikiNames = append(wikiNames, a.Wiki)
	}
	sort.Strings(wikiNames)

	graph, err := buildInheritanceGraph(ctx, wikidataPath)
	if err != nil {
		return nil, err
	}

	joiner := conceptjoin.NewJoiner(wikiNames, articleStores, aliasStores, graph)
	emitter := conceptjoin.NewCSVEmitter(wikiNames)
	emitter.WriteHeader()

	if err := joinWikidataDump(ctx, wikidataPath, limit, joiner, emitter, metrics); err != nil {
		return nil, err
	}

	if err := os.WriteFile(outPath, []byte(emitter.String()), 0644); err != nil {
		return nil, fmt.Errorf("conceptjoin-builder: writing output: %w", err)
	}

	stats := &conceptjoin.RunStats{
		Resolver: *resolverStats,
		Joiner:   joiner.Stats,
	}
	return stats, nil
}

// buildAllWikis extracts, ranks, and stores every configured wiki's articles
// concurrently, mirroring the teacher's errgroup-over-sites pattern: one
// worker goroutine per wiki, bounded implicitly by len(wikis) since each
// wiki's XML dump is itself the bottleneck resource.
func buildAllWikis(ctx context.Context, wikis []wikiSource, workdir string, metrics *conceptjoin.Metrics) ([]*wikiArtifacts, *conceptjoin.ResolverStats, error) {
	results := make([]*wikiArtifacts, len(wikis))
	statsPerWiki := make([]conceptjoin.ResolverStats, len(wikis))

	group, gctx := errgroup.WithContext(ctx)
	for i, src := range wikis {
		i, src := i, src
		group.Go(func() error {
			a, stats, err := buildWikiArticles(gctx, src, workdir, metrics)
			if err != nil {
				return fmt.Errorf("conceptjoin-builder: building %s: %w", src.Wiki, err)
			}
			results[i] = a
			statsPerWiki[i] = stats
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}

	merged := &conceptjoin.ResolverStats{}
	for _, s := range statsPerWiki {
		merged.Resolved += s.Resolved
		merged.Cycles += s.Cycles
		merged.Dangling += s.Dangling
		merged.GoodLinks += s.GoodLinks
		merged.BadLinks += s.BadLinks
		merged.FileLinks += s.FileLinks
	}
	return results, merged, nil
}

// buildWikiArticles runs one wiki's dump through the full extraction →
// parsing → redirect-resolution → PageRank → storage pipeline.
func buildWikiArticles(ctx context.Context, src wikiSource, workdir string, metrics *conceptjoin.Metrics) (*wikiArtifacts, conceptjoin.ResolverStats, error) {
	xs, err := conceptjoin.OpenXMLStream(src.Path)
	if err != nil {
		return nil, conceptjoin.ResolverStats{}, err
	}
	defer xs.Close()

	pages := make(chan *conceptjoin.UnparsedPage, 256)
	parsed := make(chan *conceptjoin.ParsedPage, 256)

	extractor := conceptjoin.NewWikiXMLExtractor()
	pool := conceptjoin.NewWikitextWorkerPool()
	resolver := conceptjoin.NewRedirectResolver()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		defer close(pages)
		err := extractor.Extract(gctx, xs, pages)
		if err != nil && err != conceptjoin.ErrLimitReached {
			return err
		}
		return nil
	})
	group.Go(func() error {
		defer close(parsed)
		return pool.Run(gctx, pages, parsed)
	})

	var articles map[string]*conceptjoin.CanonicalArticle
	group.Go(func() error {
		articles = resolver.Resolve(parsed)
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, conceptjoin.ResolverStats{}, err
	}
	metrics.IncPagesExtracted(extractor.Stats.PagesEmitted)
	metrics.IncPagesTimedOut(pool.Stats.TimedOut)

	engine := conceptjoin.NewPageRankEngine()
	for _, a := range articles {
		engine.AddArticle(a)
	}
	results, err := engine.Run()
	if err != nil {
		return nil, conceptjoin.ResolverStats{}, err
	}
	conceptjoin.ApplyPageRank(results, articles)

	wikiDir := filepath.Join(workdir, src.Wiki)
	articleStore, err := conceptjoin.OpenArticleStore(filepath.Join(wikiDir, "articles"))
	if err != nil {
		return nil, conceptjoin.ResolverStats{}, err
	}
	if err := conceptjoin.PopulateArticleStore(ctx, articleStore, articles); err != nil {
		articleStore.Close()
		return nil, conceptjoin.ResolverStats{}, err
	}

	aliasStore, err := conceptjoin.OpenAliasStore(filepath.Join(wikiDir, "aliases"))
	if err != nil {
		articleStore.Close()
		return nil, conceptjoin.ResolverStats{}, err
	}
	if err := aliasStore.PopulateFromArticles(articleStore); err != nil {
		articleStore.Close()
		aliasStore.Close()
		return nil, conceptjoin.ResolverStats{}, err
	}

	if err := conceptjoin.WriteArticleDump(filepath.Join(wikiDir, "articles.dump.br"), articleStore); err != nil {
		articleStore.Close()
		aliasStore.Close()
		return nil, conceptjoin.ResolverStats{}, err
	}

	return &wikiArtifacts{Wiki: src.Wiki, Articles: articleStore, Aliases: aliasStore}, resolver.Stats, nil
}

// buildInheritanceGraph makes a single pass over the Wikidata dump to
// populate the subclass-of hierarchy before the join pass,
// since computing ancestor closures during the join would otherwise need
// the whole graph to already be resolved.
func buildInheritanceGraph(ctx context.Context, wikidataPath string) (*conceptjoin.InheritanceGraph, error) {
	f, err := conceptjoin.OpenXMLStream(wikidataPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	graph := conceptjoin.NewInheritanceGraph()
	parser := conceptjoin.NewWikidataEntityParser()
	stream := conceptjoin.NewWikidataStream(f)
	for {
		line, err := stream.Next(ctx)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		entity, err := parser.Parse(line)
		if err != nil {
			continue
		}
		if entity.SampleLabel != nil {
			graph.SetLabel(entity.ID, *entity.SampleLabel)
		}
		// Only subclass-of edges go into the graph itself; an entity's
		// instance-of classes are traversal seeds at join time (see
		// Joiner.Join), not edges of the class hierarchy.
		for super := range entity.DirectSubclassOf {
			graph.AddSubclassOf(entity.ID, super)
		}
	}
	return graph, nil
}

// joinWikidataDump streams the Wikidata dump a second time, joining each
// entity against every wiki's article store and writing one row per entity
// that parses, whether or not any of its sitelinks resolve; entities that
// fail to parse are counted as decoder warnings and get no row.
func joinWikidataDump(ctx context.Context, wikidataPath string, limit int64, joiner *conceptjoin.Joiner, emitter *conceptjoin.CSVEmitter, metrics *conceptjoin.Metrics) error {
	f, err := conceptjoin.OpenXMLStream(wikidataPath)
	if err != nil {
		return err
	}
	defer f.Close()

	parser := conceptjoin.NewWikidataEntityParser()
	stream := conceptjoin.NewWikidataStream(f)
	var n int64
	for {
		if limit > 0 && n >= limit {
			break
		}
		line, err := stream.Next(ctx)
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		entity, err := parser.Parse(line)
		if err != nil {
			metrics.IncDecoderWarnings()
			continue
		}
		row, err := joiner.Join(entity)
		if err != nil {
			metrics.IncDecoderWarnings()
			continue
		}
		emitter.WriteRow(row)
		metrics.IncEntitiesJoined()
		n++
	}
	return nil
}
