// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	conceptjoin "github.com/wikiconcept/conceptjoin"
)

// wikiFlag collects repeated -wiki=lang=/path/to/dump.xml.bz2 flags into a
// slice of wikiSource values, the idiomatic way to accept a repeatable flag
// with the standard flag package.
type wikiFlag []wikiSource

func (w *wikiFlag) String() string {
	parts := make([]string, len(*w))
	for i, s := range *w {
		parts[i] = s.Wiki + "=" + s.Path
	}
	return strings.Join(parts, ",")
}

func (w *wikiFlag) Set(value string) error {
	name, path, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("conceptjoin-builder: -wiki expects lang=path, got %q", value)
	}
	*w = append(*w, wikiSource{Wiki: name, Path: path})
	return nil
}

func main() {
	var wikis wikiFlag
	flag.Var(&wikis, "wiki", "repeatable: lang=path to a Wikipedia pages-articles dump, e.g. -wiki=enwiki=/dumps/enwiki.xml.bz2")
	wikidata := flag.String("wikidata", "", "path to the Wikidata JSON dump (entities in JSON-lines-within-array form)")
	out := flag.String("out", "concepts.tsv", "path to write the joined output")
	workdir := flag.String("workdir", "workdir", "scratch directory for per-wiki article/alias stores and intermediate shards")
	limit := flag.Int64("limit", 0, "if > 0, stop after joining this many Wikidata entities; for testing")
	storagekey := flag.String("storagekey", "", "path to key file with S3-compatible storage credentials; if empty, reads S3_ENDPOINT/S3_KEY/S3_SECRET from the environment")
	bucket := flag.String("bucket", "", "if set together with -dest, publish the output to this S3 bucket")
	dest := flag.String("dest", "", "object name to publish the output under, within -bucket")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus metrics at this address (e.g. :9090) for the duration of the run")
	flag.Parse()

	if *wikidata == "" || len(wikis) == 0 {
		fmt.Fprintln(os.Stderr, "conceptjoin-builder: at least one -wiki and a -wikidata dump are required")
		os.Exit(2)
	}

	logger := log.New(os.Stderr, "conceptjoin-builder: ", log.Ldate|log.Ltime|log.LUTC)

	registry := prometheus.NewRegistry()
	metrics := conceptjoin.NewMetrics(registry)
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("metrics server: %v", err)
			}
		}()
		defer srv.Close()
	}

	ctx := context.Background()
	logger.Printf("starting build: %d wikis, workdir=%s", len(wikis), *workdir)

	stats, err := Build(ctx, []wikiSource(wikis), *wikidata, *workdir, *out, *limit, metrics)
	if err != nil {
		logger.Fatalf("build failed: %v", err)
	}
	logger.Printf("join stats: considered=%d empty=%d no_title=%d missing_article=%d aliased=%d",
		stats.Joiner.Considered, stats.Joiner.Empty, stats.Joiner.NoTitle, stats.Joiner.MissingArticle, stats.Joiner.Aliased)

	statsPath := filepath.Join(*workdir, "run-stats.json")
	if err := conceptjoin.WriteRunStats(stats, statsPath); err != nil {
		logger.Fatalf("writing run stats: %v", err)
	}

	if *bucket != "" && *dest != "" {
		storage, err := conceptjoin.NewStorageClient(*storagekey)
		if err != nil {
			logger.Fatalf("setting up storage client: %v", err)
		}
		if err := conceptjoin.PublishOutput(ctx, storage, *bucket, *dest, *out, "text/tab-separated-values"); err != nil {
			logger.Fatalf("publishing output: %v", err)
		}
		logger.Printf("published %s to %s/%s", *out, *bucket, *dest)
	}

	if err := conceptjoin.CleanupWorkdir(*workdir); err != nil {
		logger.Printf("cleanup warning: %v", err)
	}

	logger.Printf("build complete: output written to %s", *out)
}
