// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package treasury owns the reserve balance, prices exits at net asset
// value, and reports every redemption that happens under an active proposal
// to the governance engine as a dissent signal.
package treasury

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/govern/ledger"
)

// NAVScale is the fixed-point scale of net asset value: reserve units per
// claim, scaled to 18 decimal places.
const NAVScale = 1_000_000_000_000_000_000

const percentDenominator = 10_000

var (
	ErrZeroAmount       = errors.New("amount must be positive")
	ErrReserveShortfall = errors.New("reserve cannot cover the payout")
	ErrValueOverflow    = errors.New("value does not fit the amount domain")
	ErrHaircutTooLarge  = errors.New("haircut must be less than 10000 bps")

	navScale = uint256.NewInt(NAVScale)
	bpsScale = uint256.NewInt(percentDenominator)
)

// DissentSink receives redemption dissent while a proposal is active. It is
// the single narrow capability the treasury holds on the governance engine;
// notification cannot fail a redemption.
type DissentSink interface {
	RecordRedemptionDissent(holder ids.ShortID, amount *uint256.Int, full bool)
}

// ProposalGate reports whether a proposal is currently active. The haircut
// and the dissent notification apply only while it returns true.
type ProposalGate interface {
	HasActiveProposal() bool
}

// Redemption describes a priced exit.
type Redemption struct {
	Holder ids.ShortID
	// Amount is the claim amount burned.
	Amount *uint256.Int
	// Payout is the reserve value paid out after any haircut.
	Payout *uint256.Int
	Full   bool
}

// Treasury is not safe for concurrent use; callers provide mutual exclusion.
type Treasury struct {
	log log.Logger

	ledger *ledger.Ledger
	// account is the treasury's privileged identity on the ledger; burns
	// through it never consume an allowance.
	account ids.ShortID

	haircutBps uint64

	reserve    *uint256.Int
	feeRevenue *uint256.Int
	// payouts tracks reserve value owed to each account from redemptions
	// and disbursements. Custody of the reserve asset itself is external.
	payouts map[ids.ShortID]*uint256.Int

	sink DissentSink
	gate ProposalGate
}

func New(logger log.Logger, claims *ledger.Ledger, account ids.ShortID, haircutBps uint64) *Treasury {
	return &Treasury{
		log:        logger,
		ledger:     claims,
		account:    account,
		haircutBps: haircutBps,
		reserve:    new(uint256.Int),
		feeRevenue: new(uint256.Int),
		payouts:    make(map[ids.ShortID]*uint256.Int),
	}
}

// Bind attaches the governance engine's callbacks. The treasury and the
// engine reference each other only through these two narrow interfaces.
// Before Bind is called, redemptions price at full NAV and report no dissent.
func (t *Treasury) Bind(sink DissentSink, gate ProposalGate) {
	t.sink = sink
	t.gate = gate
}

// Deposit adds reserve value.
func (t *Treasury) Deposit(from ids.ShortID, amount *uint256.Int) error {
	if amount.IsZero() {
		return ErrZeroAmount
	}
	reserve, overflow := new(uint256.Int).AddOverflow(t.reserve, amount)
	if overflow {
		return ErrValueOverflow
	}
	t.reserve = reserve
	t.log.Debug("reserve deposit",
		log.Stringer("from", from),
		log.String("amount", amount.Dec()),
	)
	return nil
}

// NAV is the reserve value per claim, scaled to 18 decimal places. When no
// claims are outstanding it defaults to one unit of value per claim.
func (t *Treasury) NAV() *uint256.Int {
	supply := t.ledger.TotalSupply()
	if supply.IsZero() {
		return navScale.Clone()
	}
	nav := new(uint256.Int).Mul(t.reserve, navScale)
	return nav.Div(nav, supply)
}

// Redeem burns [amount] of the holder's claims and pays out their net asset
// value, minus the haircut while a proposal is active. The sequencing is
// fixed: price, burn, pay out, then notify. Burning before paying out means
// a reentrant observer can never see a stale claim balance.
func (t *Treasury) Redeem(holder ids.ShortID, amount *uint256.Int) (*Redemption, error) {
	if amount.IsZero() {
		return nil, ErrZeroAmount
	}
	balance := t.ledger.BalanceOf(holder)
	if balance.Lt(amount) {
		return nil, ledger.ErrInsufficientBalance
	}
	full := amount.Eq(balance)
	active := t.gate != nil && t.gate.HasActiveProposal()

	undiscounted, overflow := new(uint256.Int).MulDivOverflow(amount, t.NAV(), navScale)
	if overflow {
		return nil, ErrValueOverflow
	}
	haircut := uint64(0)
	if active {
		haircut = t.haircutBps
	}
	payout, overflow := new(uint256.Int).MulDivOverflow(
		undiscounted,
		uint256.NewInt(percentDenominator-haircut),
		bpsScale,
	)
	if overflow {
		return nil, ErrValueOverflow
	}
	if t.reserve.Lt(payout) {
		return nil, ErrReserveShortfall
	}

	if err := t.ledger.BurnFrom(t.account, holder, amount); err != nil {
		return nil, err
	}
	t.reserve = new(uint256.Int).Sub(t.reserve, payout)
	t.credit(holder, payout)
	t.feeRevenue = new(uint256.Int).Add(
		t.feeRevenue,
		new(uint256.Int).Sub(undiscounted, payout),
	)

	if active {
		t.sink.RecordRedemptionDissent(holder, amount, full)
	}

	t.log.Info("redemption",
		log.Stringer("holder", holder),
		log.String("amount", amount.Dec()),
		log.String("payout", payout.Dec()),
		log.Bool("full", full),
	)
	return &Redemption{
		Holder: holder,
		Amount: amount.Clone(),
		Payout: payout,
		Full:   full,
	}, nil
}

// RedeemAll redeems the holder's entire claim balance.
func (t *Treasury) RedeemAll(holder ids.ShortID) (*Redemption, error) {
	return t.Redeem(holder, t.ledger.BalanceOf(holder))
}

// Disburse moves reserve value to [to] unconditionally. It is reachable only
// through the governance engine's handle; the engine is solely responsible
// for proving the transfer is authorized by a passed proposal.
func (t *Treasury) Disburse(to ids.ShortID, amount *uint256.Int) error {
	if t.reserve.Lt(amount) {
		return ErrReserveShortfall
	}
	t.reserve = new(uint256.Int).Sub(t.reserve, amount)
	t.credit(to, amount)
	t.log.Info("disbursement",
		log.Stringer("to", to),
		log.String("amount", amount.Dec()),
	)
	return nil
}

// SetHaircut updates the redemption haircut applied during active proposals.
func (t *Treasury) SetHaircut(bps uint64) error {
	if bps >= percentDenominator {
		return ErrHaircutTooLarge
	}
	t.haircutBps = bps
	return nil
}

func (t *Treasury) HaircutBps() uint64 {
	return t.haircutBps
}

func (t *Treasury) Reserve() *uint256.Int {
	return t.reserve.Clone()
}

// FeeRevenue is the cumulative value retained by the protocol from haircuts.
// The value itself remains part of the reserve.
func (t *Treasury) FeeRevenue() *uint256.Int {
	return t.feeRevenue.Clone()
}

// PayoutBalance is the reserve value owed to [account] from redemptions and
// disbursements.
func (t *Treasury) PayoutBalance(account ids.ShortID) *uint256.Int {
	if p, ok := t.payouts[account]; ok {
		return p.Clone()
	}
	return new(uint256.Int)
}

func (t *Treasury) credit(account ids.ShortID, amount *uint256.Int) {
	current, ok := t.payouts[account]
	if !ok {
		current = new(uint256.Int)
	}
	t.payouts[account] = new(uint256.Int).Add(current, amount)
}
