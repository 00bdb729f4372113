package origination

import domain "p2p-credit-origination/internal/domain/origination"

// Metrics receives engine events. infrastructure/metrics provides the
// prometheus implementation.
type Metrics interface {
	Transition(from, to domain.Stage)
	Decision(stage domain.Stage, reason domain.Reason)
	AllocationConflict()
	Relisted()
	LedgerFailure()
}

type NopMetrics struct{}

func (NopMetrics) Transition(domain.Stage, domain.Stage) {}
func (NopMetrics) Decision(domain.Stage, domain.Reason) {}
func (NopMetrics) AllocationConflict() {}
func (NopMetrics) Relisted() {}
func (NopMetrics) LedgerFailure() {}
