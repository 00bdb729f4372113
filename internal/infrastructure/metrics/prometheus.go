package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"p2p-credit-origination/internal/domain/origination"
)

const namespace = "credit_origination"

// Prometheus counts engine events.
type Prometheus struct {
	transitions    *prometheus.CounterVec
	decisions      *prometheus.CounterVec
	conflicts      prometheus.Counter
	relists        prometheus.Counter
	ledgerFailures prometheus.Counter
}

func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Stage transitions by from and to stage.",
		}, []string{"from", "to"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Terminal decisions by stage and reason.",
		}, []string{"stage", "reason"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_allocation_conflicts_total",
			Help:      "Pool commits lost to a concurrent allocation.",
		}),
		relists: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "marketplace_relists_total",
			Help:      "Expired listings published again.",
		}),
		ledgerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_failures_total",
			Help:      "Borrower credits the ledger refused after approval.",
		}),
	}
	reg.MustRegister(p.transitions, p.decisions, p.conflicts, p.relists, p.ledgerFailures)
	return p
}

func (p *Prometheus) Transition(from, to origination.Stage) {
	p.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (p *Prometheus) Decision(stage origination.Stage, reason origination.Reason) {
	p.decisions.WithLabelValues(string(stage), string(reason)).Inc()
}

func (p *Prometheus) AllocationConflict() { p.conflicts.Inc() }
func (p *Prometheus) Relisted()           { p.relists.Inc() }
func (p *Prometheus) LedgerFailure()      { p.ledgerFailures.Inc() }

// Handler serves reg on /metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
