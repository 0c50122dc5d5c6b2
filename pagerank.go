// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"fmt"
	"sort"
)

const (
	pageRankDamping       = 0.85
	pageRankTolerance     = 1e-10
	pageRankMaxIterations = 1000
)

// pageRankEdge is a weighted edge in the link graph: Weight is the fraction
// of the source article's outgoing link count that points at To.
type pageRankEdge struct {
	To     int
	Weight float64
}

// PageRankEngine builds a weighted directed graph over one wiki's canonical
// articles and computes weighted PageRank over it, attaching the result and
// its average-rank percentile back onto each article.
//
// Two build modes are supported: AddArticle for in-memory construction, and
// BuildStreaming for a two-pass re-read that trades memory for I/O. Both
// produce identical PageRank values for the same input.
type PageRankEngine struct {
	index map[string]int
	titles []string
	outSum []float64
	edges  [][]pageRankEdge
}

// NewPageRankEngine returns an empty engine ready for article ingestion.
func NewPageRankEngine() *PageRankEngine {
	return &PageRankEngine{index: make(map[string]int)}
}

func (e *PageRankEngine) internTitle(title string) int {
	if i, ok := e.index[title]; ok {
		return i
	}
	i := len(e.titles)
	e.index[title] = i
	e.titles = append(e.titles, title)
	e.outSum = append(e.outSum, 0)
	e.edges = append(e.edges, nil)
	return i
}

// AddArticle registers one canonical article's outgoing links into the
// graph. Call it once per article in the wiki before Run.
func (e *PageRankEngine) AddArticle(a *CanonicalArticle) {
	from := e.internTitle(a.Title)
	var total int
	for _, count := range a.Links {
		total += count
	}
	if total == 0 {
		return
	}
	e.outSum[from] = float64(total)
	for target, count := range a.Links {
		to := e.internTitle(target)
		e.edges[from] = append(e.edges[from], pageRankEdge{To: to, Weight: float64(count) / float64(total)})
	}
}

// BuildStreaming populates the engine from a page source that must be
// callable twice: once to intern every title with AddArticle's vertex-only
// effect, and once to add weighted edges now that every target is known.
// This is the "streaming" memory mode from the design: callers that can't
// hold the whole wiki's CanonicalArticle set in RAM re-read it from disk for
// each pass.
func (e *PageRankEngine) BuildStreaming(source func(visit func(*CanonicalArticle)) error) error {
	if err := source(func(a *CanonicalArticle) {
		e.internTitle(a.Title)
	}); err != nil {
		return err
	}
	return source(func(a *CanonicalArticle) {
		e.AddArticle(a)
	})
}

// PageRankResult is the computed rank and average-rank percentile for one
// article title.
type PageRankResult struct {
	Title      string
	PageRank   float64
	Percentile float64
}

// Run executes the damped random-walk iteration to convergence and returns
// one PageRankResult per vertex. It does not modify any CanonicalArticle;
// ApplyPageRank copies the results onto articles by title.
func (e *PageRankEngine) Run() ([]PageRankResult, error) {
	n := len(e.titles)
	if n == 0 {
		return nil, fmt.Errorf("conceptjoin: pagerank graph has no vertices")
	}

	rank := make([]float64, n)
	for i := range rank {
		rank[i] = 1.0 / float64(n)
	}

	for iter := 0; iter < pageRankMaxIterations; iter++ {
		next := make([]float64, n)
		var danglingMass float64
		for v := 0; v < n; v++ {
			if len(e.edges[v]) == 0 {
				danglingMass += rank[v]
			}
		}
		base := (1 - pageRankDamping) / float64(n)
		redistribute := pageRankDamping * danglingMass / float64(n)
		for v := range next {
			next[v] = base + redistribute
		}
		for v := 0; v < n; v++ {
			if rank[v] == 0 {
				continue
			}
			for _, edge := range e.edges[v] {
				next[edge.To] += pageRankDamping * rank[v] * edge.Weight
			}
		}

		var delta float64
		for v := range rank {
			d := next[v] - rank[v]
			if d < 0 {
				d = -d
			}
			delta += d
		}
		rank = next
		if delta < pageRankTolerance {
			break
		}
	}

	return attachPercentiles(e.titles, rank), nil
}

// ApplyPageRank writes each result's PageRank and PageRankPercentile back onto the
// matching article in articles, keyed by title.
func ApplyPageRank(results []PageRankResult, articles map[string]*CanonicalArticle) {
	for _, r := range results {
		a, ok := articles[r.Title]
		if !ok {
			continue
		}
		pr, pct := r.PageRank, r.Percentile
		a.PageRank = &pr
		a.PageRankPercentile = &pct
	}
}

// attachPercentiles computes the average-rank percentile of each title's
// PageRank value within the full set, breaking ties by averaging the
// positions tied values would occupy. Percentiles land in (0, 1].
func attachPercentiles(titles []string, rank []float64) []PageRankResult {
	n := len(titles)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return rank[order[i]] < rank[order[j]] })

	percentile := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j < n && rank[order[j]] == rank[order[i]] {
			j++
		}
		// Positions i..j-1 (0-indexed) are tied; average rank is the mean of
		// their 1-indexed positions.
		avgRank := float64(i+j+1) / 2.0
		pct := avgRank / float64(n)
		for k := i; k < j; k++ {
			percentile[order[k]] = pct
		}
		i = j
	}

	results := make([]PageRankResult, n)
	for i, title := range titles {
		results[i] = PageRankResult{Title: title, PageRank: rank[i], Percentile: percentile[i]}
	}
	return results
}
