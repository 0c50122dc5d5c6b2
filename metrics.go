// SPDX-License-Identifier: MIT

package conceptjoin

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the ambient Prometheus counters and gauges a long-running
// build process exposes for monitoring. The driver's pipeline functions take
// an optional *Metrics; a nil value means "don't instrument" and every method
// becomes a no-op, so tests and one-off CLI runs aren't forced to wire a
// registry.
type Metrics struct {
	PagesExtracted  prometheus.Counter
	PagesTimedOut   prometheus.Counter
	DecoderWarnings prometheus.Counter
	EntitiesJoined  prometheus.Counter
	QueueDepth      prometheus.Gauge
}

// NewMetrics registers a fresh set of collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PagesExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conceptjoin_pages_extracted_total",
			Help: "Number of Wikipedia pages extracted from the XML dump.",
		}),
		PagesTimedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conceptjoin_pages_timed_out_total",
			Help: "Number of pages dropped for exceeding the wikitext parse timeout.",
		}),
		DecoderWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conceptjoin_decoder_warnings_total",
			Help: "Number of structural input records dropped with a diagnostic.",
		}),
		EntitiesJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "conceptjoin_entities_joined_total",
			Help: "Number of Wikidata entities processed by the joiner.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "conceptjoin_extractor_queue_depth",
			Help: "Current depth of the bounded queue between the XML reader and wikitext workers.",
		}),
	}
	reg.MustRegister(m.PagesExtracted, m.PagesTimedOut, m.DecoderWarnings, m.EntitiesJoined, m.QueueDepth)
	return m
}

// IncPagesExtracted adds delta to the pages-extracted counter. A nil
// receiver is a no-op so callers don't need to guard every call site when
// metrics weren't configured.
func (m *Metrics) IncPagesExtracted(delta int64) {
	if m != nil {
		m.PagesExtracted.Add(float64(delta))
	}
}

// IncPagesTimedOut adds delta to the pages-timed-out counter.
func (m *Metrics) IncPagesTimedOut(delta int64) {
	if m != nil {
		m.PagesTimedOut.Add(float64(delta))
	}
}

// IncDecoderWarnings increments the decoder-warnings counter by one.
func (m *Metrics) IncDecoderWarnings() {
	if m != nil {
		m.DecoderWarnings.Inc()
	}
}

// IncEntitiesJoined increments the entities-joined counter by one.
func (m *Metrics) IncEntitiesJoined() {
	if m != nil {
		m.EntitiesJoined.Inc()
	}
}

// SetQueueDepth reports the current extractor queue depth.
func (m *Metrics) SetQueueDepth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}
