// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package events defines the observability events the protocol publishes
// and adapts them to the pubsub filter model, so subscribers can filter the
// feed by the addresses they care about.
package events

import (
	"github.com/luxfi/ids"
	"github.com/luxfi/pubsub"
)

// Event is any protocol occurrence worth publishing.
type Event interface {
	// Kind is a stable, dot-separated event name.
	Kind() string
	// Addresses are the accounts a subscriber may filter this event by.
	Addresses() []ids.ShortID
}

type ProposalCreated struct {
	ProposalID  uint64      `json:"proposalID"`
	Proposer    ids.ShortID `json:"proposer"`
	ImpactBps   uint64      `json:"impactBps"`
	Recipient   ids.ShortID `json:"recipient"`
	Description string      `json:"description"`
}

func (*ProposalCreated) Kind() string { return "proposal.created" }

func (e *ProposalCreated) Addresses() []ids.ShortID {
	return []ids.ShortID{e.Proposer, e.Recipient}
}

type DissentRecorded struct {
	ProposalID uint64      `json:"proposalID"`
	Account    ids.ShortID `json:"account"`
	Action     string      `json:"action"`
	WeightBps  uint64      `json:"weightBps"`
}

func (*DissentRecorded) Kind() string { return "proposal.dissent" }

func (e *DissentRecorded) Addresses() []ids.ShortID {
	return []ids.ShortID{e.Account}
}

type ProposalResolved struct {
	ProposalID     uint64 `json:"proposalID"`
	Outcome        string `json:"outcome"`
	FailDissentBps uint64 `json:"failDissentBps"`
	ThresholdBps   uint64 `json:"thresholdBps"`
}

func (*ProposalResolved) Kind() string { return "proposal.resolved" }

func (*ProposalResolved) Addresses() []ids.ShortID { return nil }

type ProposerSlashed struct {
	ProposalID uint64      `json:"proposalID"`
	Proposer   ids.ShortID `json:"proposer"`
	// Amount is a decimal 256-bit integer.
	Amount string `json:"amount"`
}

func (*ProposerSlashed) Kind() string { return "proposal.slashed" }

func (e *ProposerSlashed) Addresses() []ids.ShortID {
	return []ids.ShortID{e.Proposer}
}

type ProposalReworked struct {
	ProposalID  uint64 `json:"proposalID"`
	ImpactBps   uint64 `json:"impactBps"`
	Description string `json:"description"`
}

func (*ProposalReworked) Kind() string { return "proposal.reworked" }

func (*ProposalReworked) Addresses() []ids.ShortID { return nil }

type Deposit struct {
	From   ids.ShortID `json:"from"`
	Amount string      `json:"amount"`
}

func (*Deposit) Kind() string { return "reserve.deposit" }

func (e *Deposit) Addresses() []ids.ShortID {
	return []ids.ShortID{e.From}
}

type Redemption struct {
	Holder ids.ShortID `json:"holder"`
	Amount string      `json:"amount"`
	Payout string      `json:"payout"`
	Full   bool        `json:"full"`
}

func (*Redemption) Kind() string { return "reserve.redemption" }

func (e *Redemption) Addresses() []ids.ShortID {
	return []ids.ShortID{e.Holder}
}

type Disbursement struct {
	ProposalID uint64      `json:"proposalID"`
	Recipient  ids.ShortID `json:"recipient"`
	Amount     string      `json:"amount"`
}

func (*Disbursement) Kind() string { return "reserve.disbursement" }

func (e *Disbursement) Addresses() []ids.ShortID {
	return []ids.ShortID{e.Recipient}
}

// envelope is what subscribers receive.
type envelope struct {
	Kind  string `json:"kind"`
	Event Event  `json:"event"`
}

type filterer struct {
	event Event
}

// NewFilterer wraps [event] for publication.
func NewFilterer(event Event) pubsub.Filterer {
	return &filterer{event: event}
}

// Filter marks the event as matching for every filter that checks true for
// at least one of the event's addresses. Events without addresses match
// every subscriber.
func (f *filterer) Filter(filters []pubsub.Filter) ([]bool, interface{}) {
	addresses := f.event.Addresses()
	resp := make([]bool, len(filters))
	for i, filter := range filters {
		if len(addresses) == 0 {
			resp[i] = true
			continue
		}
		for _, addr := range addresses {
			if filter.Check(addr[:]) {
				resp[i] = true
				break
			}
		}
	}
	return resp, &envelope{Kind: f.event.Kind(), Event: f.event}
}
