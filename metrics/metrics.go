// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"

	"github.com/luxfi/metric"

	"github.com/luxfi/govern/utils/wrappers"
)

const (
	outcomeLabel = "outcome"
	actionLabel  = "action"
	scopeLabel   = "scope"
)

var (
	_ Metrics = (*metricsImpl)(nil)

	outcomeLabels = []string{outcomeLabel}
	actionLabels  = []string{actionLabel}
	scopeLabels   = []string{scopeLabel}
)

type Metrics interface {
	metric.APIInterceptor

	MarkProposalCreated()
	MarkProposalResolved(outcome string)
	MarkProposalReworked()
	MarkDissent(action string)
	MarkRedemption(full bool)
	MarkDeposit()
	MarkStakeSlashed()
	MarkDisbursement()
}

type metricsImpl struct {
	numProposals, numReworks, numDeposits, numSlashes, numDisbursements metric.Counter

	numResolved    metric.CounterVec
	numDissent     metric.CounterVec
	numRedemptions metric.CounterVec

	metric.APIInterceptor
}

func (m *metricsImpl) MarkProposalCreated() {
	m.numProposals.Inc()
}

func (m *metricsImpl) MarkProposalResolved(outcome string) {
	m.numResolved.With(metric.Labels{outcomeLabel: outcome}).Inc()
}

func (m *metricsImpl) MarkProposalReworked() {
	m.numReworks.Inc()
}

func (m *metricsImpl) MarkDissent(action string) {
	m.numDissent.With(metric.Labels{actionLabel: action}).Inc()
}

func (m *metricsImpl) MarkRedemption(full bool) {
	scope := "partial"
	if full {
		scope = "full"
	}
	m.numRedemptions.With(metric.Labels{scopeLabel: scope}).Inc()
}

func (m *metricsImpl) MarkDeposit() {
	m.numDeposits.Inc()
}

func (m *metricsImpl) MarkStakeSlashed() {
	m.numSlashes.Inc()
}

func (m *metricsImpl) MarkDisbursement() {
	m.numDisbursements.Inc()
}

func New(registerer metric.Registerer) (Metrics, error) {
	registry, ok := registerer.(metric.Registry)
	if !ok {
		return nil, errors.New("registerer must implement metric.Registry")
	}

	m := &metricsImpl{}
	m.numProposals = metric.NewCounter(metric.CounterOpts{
		Name: "proposals_created",
		Help: "Number of proposals created",
	})
	m.numReworks = metric.NewCounter(metric.CounterOpts{
		Name: "proposals_reworked",
		Help: "Number of rework resubmissions",
	})
	m.numDeposits = metric.NewCounter(metric.CounterOpts{
		Name: "reserve_deposits",
		Help: "Number of reserve deposits",
	})
	m.numSlashes = metric.NewCounter(metric.CounterOpts{
		Name: "stakes_slashed",
		Help: "Number of proposer stakes burned",
	})
	m.numDisbursements = metric.NewCounter(metric.CounterOpts{
		Name: "reserve_disbursements",
		Help: "Number of treasury disbursements",
	})
	m.numResolved = metric.NewCounterVec(
		metric.CounterOpts{
			Name: "proposals_resolved",
			Help: "Number of proposals resolved, by outcome",
		},
		outcomeLabels,
	)
	m.numDissent = metric.NewCounterVec(
		metric.CounterOpts{
			Name: "dissent_actions",
			Help: "Number of dissent actions recorded, by action",
		},
		actionLabels,
	)
	m.numRedemptions = metric.NewCounterVec(
		metric.CounterOpts{
			Name: "redemptions",
			Help: "Number of redemptions, full or partial",
		},
		scopeLabels,
	)

	apiRequestMetric, err := metric.NewAPIInterceptor(registry)
	errs := wrappers.Errs{Err: err}
	m.APIInterceptor = apiRequestMetric
	// Metrics are self-registering when created with NewCounter etc.
	return m, errs.Err
}
