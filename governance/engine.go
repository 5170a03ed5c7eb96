// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package governance owns the proposal lifecycle: stake custody, balance and
// concentration snapshots, dissent aggregation, the adaptive failure
// threshold, and resolution. At most one proposal is in a non-terminal state
// at any time.
package governance

import (
	"errors"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"

	"github.com/luxfi/govern/config"
	"github.com/luxfi/govern/ledger"
	safemath "github.com/luxfi/govern/utils/math"
	"github.com/luxfi/govern/utils/timer/mockable"
)

var (
	ErrProposalActive    = errors.New("another proposal is still in flight")
	ErrNoSuchProposal    = errors.New("no such proposal")
	ErrNotActive         = errors.New("proposal is not active")
	ErrNotRework         = errors.New("proposal is not awaiting rework")
	ErrVotingOpen        = errors.New("voting window has not elapsed")
	ErrAlreadyActed      = errors.New("account already acted on this proposal")
	ErrInvalidImpact     = errors.New("impact must be positive and within the cap")
	ErrImpactIncreased   = errors.New("rework must not increase the requested impact")
	ErrEmptyRecipient    = errors.New("recipient must be set")
	ErrCooldownActive    = errors.New("proposer cooldown has not elapsed")
	ErrNotProposer       = errors.New("caller is not the original proposer")
	ErrPaused            = errors.New("dissent actions are paused")
	ErrNoDelegators      = errors.New("caller has no delegators")
	ErrTooManyTopHolders = errors.New("watch list exceeds its size cap")
)

// Disburser is the engine's narrow handle on the reserve manager. The
// reverse edge of this mutual coupling is the treasury's dissent sink.
type Disburser interface {
	Disburse(to ids.ShortID, amount *uint256.Int) error
	Reserve() *uint256.Int
}

// ActionNotifier consumes (delegate, proposal, action) notifications for
// reputation bookkeeping. It has no read or write effect on outcomes.
type ActionNotifier interface {
	RecordAction(delegate ids.ShortID, proposalID uint64, kind DissentKind)
}

// DissentEntry is one recorded action with the weight it contributed.
type DissentEntry struct {
	Account   ids.ShortID
	Kind      DissentKind
	WeightBps uint64
}

// Outcome describes a resolution.
type Outcome struct {
	ProposalID     uint64
	Status         Status
	ThresholdBps   uint64
	FailDissentBps uint64
	// Disbursed is set when the proposal passed.
	Disbursed *uint256.Int
	// Slashed is set when the proposal failed and the stake was burned.
	Slashed *uint256.Int
}

// Engine is not safe for concurrent use; callers provide mutual exclusion.
type Engine struct {
	log   log.Logger
	cfg   *config.Config
	clock *mockable.Clock

	ledger  *ledger.Ledger
	reserve Disburser
	// notifier may be nil; notification failure cannot exist by design.
	notifier ActionNotifier

	// custody is the engine's own ledger account holding locked stakes.
	custody ids.ShortID

	paused bool

	// activeID is the global single-flight slot: the one proposal in a
	// non-terminal state, or zero. It is set in Propose and cleared at
	// terminal resolution only.
	activeID  uint64
	nextID    uint64
	proposals map[uint64]*Proposal

	lastProposal map[ids.ShortID]time.Time

	// topHolders is the bounded watch list snapshotted at proposal
	// creation, the flash-loan defense for large known holders.
	topHolders []ids.ShortID
}

func New(
	logger log.Logger,
	cfg *config.Config,
	clock *mockable.Clock,
	claims *ledger.Ledger,
	reserve Disburser,
	custody ids.ShortID,
) *Engine {
	return &Engine{
		log:          logger,
		cfg:          cfg,
		clock:        clock,
		ledger:       claims,
		reserve:      reserve,
		custody:      custody,
		nextID:       1,
		proposals:    make(map[uint64]*Proposal),
		lastProposal: make(map[ids.ShortID]time.Time),
	}
}

// SetNotifier attaches the delegate directory.
func (e *Engine) SetNotifier(notifier ActionNotifier) {
	e.notifier = notifier
}

// Propose locks the caller's stake and opens a new proposal. The total
// supply, the concentration index, and every watch-listed holder's balance
// are snapshotted here, before any dissent can be cast.
func (e *Engine) Propose(
	caller ids.ShortID,
	impactBps uint64,
	recipient ids.ShortID,
	description string,
) (*Proposal, error) {
	switch {
	case e.activeID != 0:
		return nil, ErrProposalActive
	case impactBps == 0 || impactBps > e.cfg.MaxImpactBps:
		return nil, ErrInvalidImpact
	case recipient == ids.ShortEmpty:
		return nil, ErrEmptyRecipient
	}
	now := e.clock.Time()
	if last, ok := e.lastProposal[caller]; ok {
		if now.Before(last.Add(e.cfg.ProposerCooldown)) {
			return nil, ErrCooldownActive
		}
	}

	supply := e.ledger.TotalSupply()
	stake := e.requiredStake(supply, impactBps)
	if err := e.ledger.Transfer(caller, e.custody, stake); err != nil {
		return nil, err
	}

	p := &Proposal{
		ID:             e.nextID,
		Proposer:       caller,
		Recipient:      recipient,
		ImpactBps:      impactBps,
		Description:    description,
		Stake:          stake,
		StartTime:      now,
		EndTime:        now.Add(e.cfg.VotingWindow),
		Status:         StatusActive,
		SupplySnapshot: supply,
		snapshots:      make(map[ids.ShortID]*uint256.Int),
		acted:          make(map[ids.ShortID]DissentKind),
	}

	shares := make([]uint64, 0, len(e.topHolders))
	for _, holder := range e.topHolders {
		balance := e.ledger.BalanceOf(holder)
		p.snapshots[holder] = balance
		shares = append(shares, shareBps(balance, supply))
	}
	p.ConcentrationBps = concentrationIndexBps(shares)

	e.proposals[p.ID] = p
	e.activeID = p.ID
	e.nextID++
	e.lastProposal[caller] = now

	e.log.Info("proposal created",
		log.Uint64("proposalID", p.ID),
		log.Stringer("proposer", caller),
		log.Uint64("impactBps", impactBps),
		log.Stringer("recipient", recipient),
		log.String("stake", stake.Dec()),
		log.Uint64("concentrationBps", p.ConcentrationBps),
	)
	return p, nil
}

// Veto records full-strength dissent by the caller.
func (e *Engine) Veto(caller ids.ShortID, proposalID uint64) (*DissentEntry, error) {
	return e.recordDirect(caller, proposalID, KindVeto)
}

// RequestRework records half-strength dissent asking for a smaller resubmission.
func (e *Engine) RequestRework(caller ids.ShortID, proposalID uint64) (*DissentEntry, error) {
	return e.recordDirect(caller, proposalID, KindRework)
}

// DelegateVeto casts a veto for every delegator of the caller that has not
// yet acted. First mover wins: a delegator who acted directly is skipped,
// and one swept here is locked out of acting directly afterward.
func (e *Engine) DelegateVeto(caller ids.ShortID, proposalID uint64) ([]DissentEntry, error) {
	return e.recordDelegated(caller, proposalID, KindVeto)
}

// DelegateRework casts a rework request for every delegator of the caller
// that has not yet acted.
func (e *Engine) DelegateRework(caller ids.ShortID, proposalID uint64) ([]DissentEntry, error) {
	return e.recordDelegated(caller, proposalID, KindRework)
}

// RecordRedemptionDissent turns a redemption under an active proposal into
// dissent, weighted by the redeemed amount rather than a balance snapshot.
// An account that already acted is skipped silently; the redemption itself
// must not fail on dissent bookkeeping.
func (e *Engine) RecordRedemptionDissent(
	holder ids.ShortID,
	amount *uint256.Int,
	full bool,
) (uint64, *DissentEntry) {
	p, ok := e.proposals[e.activeID]
	if !ok || p.Status != StatusActive {
		return 0, nil
	}
	if e.paused {
		e.log.Debug("redemption dissent dropped while paused",
			log.Stringer("holder", holder),
		)
		return 0, nil
	}
	if _, acted := p.acted[holder]; acted {
		e.log.Debug("redemption by account that already acted",
			log.Uint64("proposalID", p.ID),
			log.Stringer("holder", holder),
		)
		return 0, nil
	}

	kind := KindPartialRedeem
	if full {
		kind = KindFullRedeem
	}
	weight := actionWeightBps(shareBps(amount, p.SupplySnapshot), e.weightMultiplierBps(kind))
	e.accumulate(p, holder, kind, weight)
	return p.ID, &DissentEntry{Account: holder, Kind: kind, WeightBps: weight}
}

// Resolve closes the voting window and decides the proposal. The decision is
// a pure function of the accumulated weight totals and the threshold; call
// order among dissenters cannot change it.
func (e *Engine) Resolve(proposalID uint64) (*Outcome, error) {
	p, ok := e.proposals[proposalID]
	if !ok {
		return nil, ErrNoSuchProposal
	}
	if p.Status != StatusActive {
		return nil, ErrNotActive
	}
	if e.clock.Time().Before(p.EndTime) {
		return nil, ErrVotingOpen
	}

	threshold := failThresholdBps(e.cfg, p.ImpactBps, p.ConcentrationBps)
	failDissent := p.FailDissentBps()
	outcome := &Outcome{
		ProposalID:     p.ID,
		ThresholdBps:   threshold,
		FailDissentBps: failDissent,
	}

	switch {
	case failDissent >= threshold:
		// Unconditional slashing; the stake is burned, not redistributed.
		if err := e.ledger.Burn(e.custody, p.Stake); err != nil {
			return nil, err
		}
		p.Status = StatusFailed
		e.activeID = 0
		outcome.Slashed = p.Stake.Clone()

	case e.shouldRework(p, threshold):
		// Stays non-terminal: the single-flight slot is not released and
		// the stake remains locked until the resubmission resolves.
		p.Status = StatusRework

	default:
		amount, overflow := new(uint256.Int).MulDivOverflow(
			e.reserve.Reserve(),
			uint256.NewInt(p.ImpactBps),
			bpsScale,
		)
		if overflow {
			return nil, ErrInvalidImpact
		}
		if err := e.reserve.Disburse(p.Recipient, amount); err != nil {
			return nil, err
		}
		if err := e.ledger.Transfer(e.custody, p.Proposer, p.Stake); err != nil {
			return nil, err
		}
		p.Status = StatusPassed
		e.activeID = 0
		outcome.Disbursed = amount
	}

	outcome.Status = p.Status
	e.log.Info("proposal resolved",
		log.Uint64("proposalID", p.ID),
		log.Stringer("outcome", p.Status),
		log.Uint64("thresholdBps", threshold),
		log.Uint64("failDissentBps", failDissent),
	)
	return outcome, nil
}

// SubmitRework returns a REWORK proposal to ACTIVE with a reduced ask and a
// fresh voting window. Weight totals reset; the per-account acted flags and
// balance snapshots from the original round do not, so early actors stay
// locked out of the reworked round.
func (e *Engine) SubmitRework(
	caller ids.ShortID,
	proposalID uint64,
	newImpactBps uint64,
	newDescription string,
) (*Proposal, error) {
	p, ok := e.proposals[proposalID]
	if !ok {
		return nil, ErrNoSuchProposal
	}
	if p.Status != StatusRework {
		return nil, ErrNotRework
	}
	if caller != p.Proposer {
		return nil, ErrNotProposer
	}
	if newImpactBps == 0 {
		return nil, ErrInvalidImpact
	}
	if newImpactBps > p.ImpactBps {
		return nil, ErrImpactIncreased
	}

	now := e.clock.Time()
	p.ImpactBps = newImpactBps
	p.Description = newDescription
	p.VetoWeightBps = 0
	p.ReworkWeightBps = 0
	p.PartialRedeemWeightBps = 0
	p.FullRedeemWeightBps = 0
	p.SupplySnapshot = e.ledger.TotalSupply()
	p.ReworkCount++
	p.StartTime = now
	p.EndTime = now.Add(e.cfg.VotingWindow)
	p.Status = StatusActive

	e.log.Info("proposal reworked",
		log.Uint64("proposalID", p.ID),
		log.Uint64("newImpactBps", newImpactBps),
	)
	return p, nil
}

// HasActiveProposal implements the treasury's proposal gate.
func (e *Engine) HasActiveProposal() bool {
	p, ok := e.proposals[e.activeID]
	return ok && p.Status == StatusActive
}

// Pause suspends the dissent entry points. Proposal creation and resolution
// stay available.
func (e *Engine) Pause() {
	e.paused = true
	e.log.Warn("dissent actions paused")
}

func (e *Engine) Unpause() {
	e.paused = false
	e.log.Info("dissent actions unpaused")
}

func (e *Engine) Paused() bool {
	return e.paused
}

// SetTopHolders replaces the bounded watch list used for early snapshots and
// the concentration index.
func (e *Engine) SetTopHolders(holders []ids.ShortID) error {
	if len(holders) > e.cfg.MaxTopHolders {
		return ErrTooManyTopHolders
	}
	seen := set.NewSet[ids.ShortID](len(holders))
	e.topHolders = make([]ids.ShortID, 0, len(holders))
	for _, holder := range holders {
		// preserve caller order, drop duplicates
		if seen.Contains(holder) {
			continue
		}
		seen.Add(holder)
		e.topHolders = append(e.topHolders, holder)
	}
	return nil
}

func (e *Engine) TopHolders() []ids.ShortID {
	out := make([]ids.ShortID, len(e.topHolders))
	copy(out, e.topHolders)
	return out
}

// GetProposal returns the proposal with [proposalID], if known.
func (e *Engine) GetProposal(proposalID uint64) (*Proposal, bool) {
	p, ok := e.proposals[proposalID]
	return p, ok
}

// ActiveProposal returns the proposal currently occupying the single-flight
// slot, whether ACTIVE or awaiting rework.
func (e *Engine) ActiveProposal() (*Proposal, bool) {
	p, ok := e.proposals[e.activeID]
	return p, ok
}

func (e *Engine) recordDirect(
	caller ids.ShortID,
	proposalID uint64,
	kind DissentKind,
) (*DissentEntry, error) {
	p, err := e.dissentTarget(proposalID)
	if err != nil {
		return nil, err
	}
	if _, acted := p.acted[caller]; acted {
		return nil, ErrAlreadyActed
	}

	weight := actionWeightBps(
		shareBps(e.snapshotOf(p, caller), p.SupplySnapshot),
		e.weightMultiplierBps(kind),
	)
	e.accumulate(p, caller, kind, weight)
	return &DissentEntry{Account: caller, Kind: kind, WeightBps: weight}, nil
}

func (e *Engine) recordDelegated(
	caller ids.ShortID,
	proposalID uint64,
	kind DissentKind,
) ([]DissentEntry, error) {
	p, err := e.dissentTarget(proposalID)
	if err != nil {
		return nil, err
	}
	delegators := e.ledger.DelegatorsOf(caller)
	if len(delegators) == 0 {
		return nil, ErrNoDelegators
	}

	// The delegator set is bounded at the ledger, so this sweep is too.
	entries := make([]DissentEntry, 0, len(delegators))
	for _, delegator := range delegators {
		if _, acted := p.acted[delegator]; acted {
			continue
		}
		weight := actionWeightBps(
			shareBps(e.snapshotOf(p, delegator), p.SupplySnapshot),
			e.weightMultiplierBps(kind),
		)
		e.accumulate(p, delegator, kind, weight)
		entries = append(entries, DissentEntry{Account: delegator, Kind: kind, WeightBps: weight})
	}

	if e.notifier != nil {
		e.notifier.RecordAction(caller, p.ID, kind)
	}
	return entries, nil
}

func (e *Engine) dissentTarget(proposalID uint64) (*Proposal, error) {
	p, ok := e.proposals[proposalID]
	if !ok {
		return nil, ErrNoSuchProposal
	}
	if p.Status != StatusActive {
		return nil, ErrNotActive
	}
	if e.paused {
		return nil, ErrPaused
	}
	return p, nil
}

// snapshotOf returns the balance pinned for weighting [account]'s dissent,
// pinning the current balance on first use. Watch-listed holders were pinned
// at proposal creation; this fallback still exposes other holders to
// same-window acquire-then-act inflation.
func (e *Engine) snapshotOf(p *Proposal, account ids.ShortID) *uint256.Int {
	if snap, ok := p.snapshots[account]; ok {
		return snap
	}
	snap := e.ledger.BalanceOf(account)
	p.snapshots[account] = snap
	return snap
}

func (e *Engine) accumulate(p *Proposal, account ids.ShortID, kind DissentKind, weightBps uint64) {
	p.acted[account] = kind
	switch kind {
	case KindVeto:
		p.VetoWeightBps = safemath.SaturatingAdd(p.VetoWeightBps, weightBps)
	case KindRework:
		p.ReworkWeightBps = safemath.SaturatingAdd(p.ReworkWeightBps, weightBps)
	case KindPartialRedeem:
		p.PartialRedeemWeightBps = safemath.SaturatingAdd(p.PartialRedeemWeightBps, weightBps)
	case KindFullRedeem:
		p.FullRedeemWeightBps = safemath.SaturatingAdd(p.FullRedeemWeightBps, weightBps)
	}
	e.log.Debug("dissent recorded",
		log.Uint64("proposalID", p.ID),
		log.Stringer("account", account),
		log.Stringer("kind", kind),
		log.Uint64("weightBps", weightBps),
	)
}

func (e *Engine) weightMultiplierBps(kind DissentKind) uint64 {
	switch kind {
	case KindVeto:
		return e.cfg.VetoWeightBps
	case KindRework:
		return e.cfg.ReworkWeightBps
	case KindPartialRedeem:
		return e.cfg.PartialRedeemWeightBps
	case KindFullRedeem:
		return e.cfg.FullRedeemWeightBps
	default:
		return 0
	}
}

// shouldRework requires the rework signal to clear its fraction of the fail
// threshold, the rework weight to dominate half the veto weight, and no
// prior rework attempt.
func (e *Engine) shouldRework(p *Proposal, thresholdBps uint64) bool {
	if p.ReworkCount > 0 {
		return false
	}
	reworkThreshold := thresholdBps * e.cfg.ReworkThresholdRatioBps / config.PercentDenominator
	return p.ReworkSignalBps() >= reworkThreshold && p.ReworkWeightBps > p.VetoWeightBps/2
}

// requiredStake is the larger of the flat minimum and the impact-scaled
// stake, both fractions of the current total supply.
func (e *Engine) requiredStake(supply *uint256.Int, impactBps uint64) *uint256.Int {
	minStake := new(uint256.Int).Mul(supply, uint256.NewInt(e.cfg.MinStakeBps))
	minStake.Div(minStake, bpsScale)

	scaled := new(uint256.Int).Mul(supply, uint256.NewInt(e.cfg.StakeMultiplierBps))
	scaled.Mul(scaled, uint256.NewInt(impactBps))
	scaled.Div(scaled, new(uint256.Int).Mul(bpsScale, bpsScale))

	if scaled.Gt(minStake) {
		return scaled
	}
	return minStake
}
