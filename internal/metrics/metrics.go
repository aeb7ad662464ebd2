package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder groups the ingest and linking counters. A nil *Recorder is valid and records nothing.
type Recorder struct {
	ingested    *prometheus.CounterVec
	deliveries  prometheus.Counter
	links       *prometheus.CounterVec
	linkSkips   *prometheus.CounterVec
	retractions *prometheus.CounterVec
}

// New registers the counters on reg. A nil registerer uses a private registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := &Recorder{
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sttingest",
			Name:      "items_ingested_total",
			Help:      "Items stored from STT feeds by type.",
		}, []string{"type"}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sttingest",
			Name:      "deliveries_recorded_total",
			Help:      "Provisional delivery rows written to the ledger.",
		}),
		links: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sttingest",
			Name:      "links_total",
			Help:      "Assignment to content links created.",
		}, []string{"trigger"}),
		linkSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sttingest",
			Name:      "link_skips_total",
			Help:      "Linking attempts abandoned, by reason.",
		}, []string{"trigger", "reason"}),
		retractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sttingest",
			Name:      "retractions_total",
			Help:      "Events and planning items retracted after a remove signal.",
		}, []string{"action"}),
	}

	reg.MustRegister(r.ingested, r.deliveries, r.links, r.linkSkips, r.retractions)
	return r
}

// Ingested counts a stored item.
func (r *Recorder) Ingested(itemType string) {
	if r == nil {
		return
	}
	r.ingested.WithLabelValues(itemType).Inc()
}

// DeliveriesRecorded counts ledger rows written.
func (r *Recorder) DeliveriesRecorded(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.deliveries.Add(float64(n))
}

// Linked counts an assignment link.
func (r *Recorder) Linked(trigger string) {
	if r == nil {
		return
	}
	r.links.WithLabelValues(trigger).Inc()
}

// Skipped counts an abandoned linking attempt.
func (r *Recorder) Skipped(trigger, reason string) {
	if r == nil {
		return
	}
	r.linkSkips.WithLabelValues(trigger, reason).Inc()
}

// Retracted counts a spike or unpost.
func (r *Recorder) Retracted(action string) {
	if r == nil {
		return
	}
	r.retractions.WithLabelValues(action).Inc()
}
