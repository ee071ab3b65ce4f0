// Package metrics counts the notifications a model emits, using a private
// Prometheus registry.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mesh-intelligence/modelgraph/pkg/model"
)

const (
	notificationsName = "modelgraph_notifications_total"
	nodesName         = "modelgraph_nodes"
)

// Recorder counts notifications by kind and tracks the number of live nodes
// of the models it is attached to.
type Recorder struct {
	registry      *prometheus.Registry
	notifications *prometheus.CounterVec
	nodes         prometheus.Gauge
	stops         []func()
}

// NewRecorder returns a recorder with its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: notificationsName,
			Help: "Notifications emitted by the model, by kind.",
		}, []string{"kind"}),
		nodes: factory.NewGauge(prometheus.GaugeOpts{
			Name: nodesName,
			Help: "Live nodes in the attached models.",
		}),
	}
}

// Registry exposes the registry, e.g. for an HTTP handler.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Attach counts the events of m from now on. The nodes already in m are
// added to the node gauge.
func (r *Recorder) Attach(m *model.Model) {
	r.nodes.Add(float64(m.Len()))
	r.stops = append(r.stops, m.Subscribe(r.observe))
}

// Detach stops counting for every attached model.
func (r *Recorder) Detach() {
	for _, stop := range r.stops {
		stop()
	}
	r.stops = nil
}

func (r *Recorder) observe(e model.Event) {
	r.notifications.WithLabelValues(e.Kind.String()).Inc()
	switch e.Kind {
	case model.NodeCreated:
		r.nodes.Inc()
	case model.NodeUnlinked:
		r.nodes.Dec()
	}
}

// Snapshot returns the current notification counts keyed by kind, plus the
// node gauge under "nodes".
func (r *Recorder) Snapshot() (map[string]float64, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gathering metrics: %w", err)
	}
	out := make(map[string]float64)
	for _, mf := range families {
		switch mf.GetName() {
		case notificationsName:
			for _, m := range mf.GetMetric() {
				for _, lp := range m.GetLabel() {
					if lp.GetName() == "kind" {
						out[lp.GetValue()] = m.GetCounter().GetValue()
					}
				}
			}
		case nodesName:
			for _, m := range mf.GetMetric() {
				out["nodes"] = m.GetGauge().GetValue()
			}
		}
	}
	return out, nil
}
