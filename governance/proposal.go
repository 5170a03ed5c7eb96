// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"

	safemath "github.com/luxfi/govern/utils/math"
)

// Status is a proposal's lifecycle state. ACTIVE may move to PASSED, FAILED,
// or REWORK; REWORK may return to ACTIVE at most once. PASSED and FAILED are
// terminal.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusActive
	StatusRework
	StatusPassed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusRework:
		return "rework"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusPassed || s == StatusFailed
}

// DissentKind is the action an account took against a proposal. An account
// records at most one kind per proposal, however it acts.
type DissentKind uint8

const (
	KindNone DissentKind = iota
	KindVeto
	KindRework
	KindPartialRedeem
	KindFullRedeem
)

func (k DissentKind) String() string {
	switch k {
	case KindVeto:
		return "veto"
	case KindRework:
		return "rework"
	case KindPartialRedeem:
		return "partial-redeem"
	case KindFullRedeem:
		return "full-redeem"
	default:
		return "none"
	}
}

// Proposal is a single requested treasury disbursement moving through the
// dissent window. Weight totals are basis-point scaled against the supply
// snapshot.
type Proposal struct {
	ID          uint64
	Proposer    ids.ShortID
	Recipient   ids.ShortID
	ImpactBps   uint64
	Description string
	Stake       *uint256.Int

	StartTime time.Time
	EndTime   time.Time

	Status      Status
	ReworkCount uint8

	VetoWeightBps          uint64
	ReworkWeightBps        uint64
	PartialRedeemWeightBps uint64
	FullRedeemWeightBps    uint64

	// SupplySnapshot is the claim supply dissent weights are measured
	// against. It is re-snapshotted on rework; ConcentrationBps is not.
	SupplySnapshot   *uint256.Int
	ConcentrationBps uint64

	// snapshots pins the balance used to weight each account's dissent:
	// watch-listed holders at proposal creation, everyone else at first
	// action. Once set, a snapshot never changes for this proposal.
	snapshots map[ids.ShortID]*uint256.Int
	// acted is the single-use flag enforcing one action per account. It
	// survives rework even though the weight totals are zeroed.
	acted map[ids.ShortID]DissentKind
}

// ActionOf returns the dissent action [account] has recorded, if any.
func (p *Proposal) ActionOf(account ids.ShortID) (DissentKind, bool) {
	kind, ok := p.acted[account]
	return kind, ok
}

// SnapshotOf returns the balance snapshot pinned for [account], if any.
func (p *Proposal) SnapshotOf(account ids.ShortID) (*uint256.Int, bool) {
	snap, ok := p.snapshots[account]
	if !ok {
		return nil, false
	}
	return snap.Clone(), true
}

// FailDissentBps is the weight counted toward outright failure: vetoes plus
// both redemption kinds.
func (p *Proposal) FailDissentBps() uint64 {
	total := safemath.SaturatingAdd(p.VetoWeightBps, p.PartialRedeemWeightBps)
	return safemath.SaturatingAdd(total, p.FullRedeemWeightBps)
}

// ReworkSignalBps counts rework requests at full strength and vetoes at half
// strength.
func (p *Proposal) ReworkSignalBps() uint64 {
	return safemath.SaturatingAdd(p.ReworkWeightBps, p.VetoWeightBps/2)
}
