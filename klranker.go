// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"fmt"
	"math"
	"sort"
)

// KLContribution is one concept's divergence tuple between a base and
// target language's PageRank distribution, restricted to concepts
// sitelinked in both.
type KLContribution struct {
	ConceptID    string
	BaseArticle  string
	TargetArticle string
	Contribution float64
	Rank         float64
}

// KLRanker computes per-concept KL-divergence contributions between two
// languages' PageRank distributions, projected onto their commonly
// sitelinked concepts.
type KLRanker struct {
	// Metric selects which contribution vector Rank ranks over:
	// "forward" (p*log(p/q)), "backward" (q*log(q/p)), or "jsd".
	Metric string
}

// NewKLRanker returns a ranker using forward KL by default.
func NewKLRanker() *KLRanker {
	return &KLRanker{Metric: "forward"}
}

// ConceptPageRank pairs a concept's base-language and target-language
// article title and PageRank, both required to be present and positive.
type ConceptPageRank struct {
	ConceptID     string
	BaseArticle   string
	BasePageRank  float64
	TargetArticle string
	TargetPageRank float64
}

// Rank computes the KL/JSD contribution for every entry in concepts (the
// intersection of concepts with a positive-PageRank article in both
// languages) and returns them sorted by contribution descending, with
// average-rank percentiles attached.
func (k *KLRanker) Rank(concepts []ConceptPageRank) ([]KLContribution, error) {
	if len(concepts) == 0 {
		return nil, fmt.Errorf("conceptjoin: KLRanker requires a non-empty concept intersection")
	}

	p := make([]float64, len(concepts))
	q := make([]float64, len(concepts))
	var pSum, qSum float64
	for i, c := range concepts {
		if c.BasePageRank <= 0 || c.TargetPageRank <= 0 {
			return nil, fmt.Errorf("conceptjoin: concept %q has non-positive pagerank on one side", c.ConceptID)
		}
		p[i], q[i] = c.BasePageRank, c.TargetPageRank
		pSum += p[i]
		qSum += q[i]
	}
	if pSum == 0 || qSum == 0 {
		return nil, fmt.Errorf("conceptjoin: KLRanker requires non-zero-sum distributions")
	}
	for i := range p {
		p[i] /= pSum
		q[i] /= qSum
	}

	contribution := make([]float64, len(concepts))
	for i := range concepts {
		switch k.Metric {
		case "backward":
			contribution[i] = klTerm(q[i], p[i])
		case "jsd":
			m := (p[i] + q[i]) / 2
			contribution[i] = 0.5*klTerm(p[i], m) + 0.5*klTerm(q[i], m)
		default:
			contribution[i] = klTerm(p[i], q[i])
		}
	}

	ranks := averageRank(contribution)

	results := make([]KLContribution, len(concepts))
	for i, c := range concepts {
		results[i] = KLContribution{
			ConceptID:     c.ConceptID,
			BaseArticle:   c.BaseArticle,
			TargetArticle: c.TargetArticle,
			Contribution:  contribution[i],
			Rank:          ranks[i],
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Contribution > results[j].Contribution })
	return results, nil
}

// klTerm is one summand of KL(p||q) with the convention 0*log(0) = 0.
func klTerm(p, q float64) float64 {
	if p == 0 {
		return 0
	}
	return p * (math.Log(p) - math.Log(q))
}

// averageRank returns, for each element of values, its percentile under
// average-rank tie-breaking, normalized to (0, 1].
func averageRank(values []float64) []float64 {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return values[order[i]] < values[order[j]] })

	percentile := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j < n && values[order[j]] == values[order[i]] {
			j++
		}
		avgRank := float64(i+j+1) / 2.0
		pct := avgRank / float64(n)
		for k := i; k < j; k++ {
			percentile[order[k]] = pct
		}
		i = j
	}
	return percentile
}
