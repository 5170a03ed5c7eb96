// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ledger owns claim balances, total supply, and the soft-delegation
// relation. A delegate may cast dissent for its delegators' balances but can
// never move their funds.
//
// Invariant: the sum of all balances equals the total supply at every point
// observable from outside a mutating call, and the aggregate delegated power
// of every delegate equals the sum of its delegators' current balances. Both
// are maintained incrementally inside each balance mutation, never
// recomputed.
package ledger

import (
	"errors"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrNotMinter             = errors.New("caller is not the minter")
	ErrSelfDelegation        = errors.New("cannot delegate to self")
	ErrAlreadyDelegated      = errors.New("already delegated to this delegate")
	ErrNotDelegating         = errors.New("account has no delegate")
	ErrDelegatorLimit        = errors.New("delegate has reached its delegator limit")
	ErrSupplyOverflow        = errors.New("total supply overflow")
)

// Ledger is not safe for concurrent use; callers provide mutual exclusion.
type Ledger struct {
	log log.Logger

	// minter is the only account allowed to mint new claims.
	minter ids.ShortID
	// burner may burn any account's balance without a prior allowance. It
	// is the reserve manager's account.
	burner ids.ShortID

	maxDelegators int

	supply     *uint256.Int
	balances   map[ids.ShortID]*uint256.Int
	allowances map[ids.ShortID]map[ids.ShortID]*uint256.Int

	// Soft delegation. delegateOf maps a delegator to its delegate;
	// delegators holds each delegate's delegator set in insertion order;
	// delegatedPower holds each delegate's aggregate delegated balance.
	delegateOf     map[ids.ShortID]ids.ShortID
	delegators     map[ids.ShortID][]ids.ShortID
	delegatorSets  map[ids.ShortID]set.Set[ids.ShortID]
	delegatedPower map[ids.ShortID]*uint256.Int
}

func New(logger log.Logger, minter, burner ids.ShortID, maxDelegators int) *Ledger {
	return &Ledger{
		log:            logger,
		minter:         minter,
		burner:         burner,
		maxDelegators:  maxDelegators,
		supply:         new(uint256.Int),
		balances:       make(map[ids.ShortID]*uint256.Int),
		allowances:     make(map[ids.ShortID]map[ids.ShortID]*uint256.Int),
		delegateOf:     make(map[ids.ShortID]ids.ShortID),
		delegators:     make(map[ids.ShortID][]ids.ShortID),
		delegatorSets:  make(map[ids.ShortID]set.Set[ids.ShortID]),
		delegatedPower: make(map[ids.ShortID]*uint256.Int),
	}
}

// Mint creates new claims for [to]. Only the configured minter may call it.
func (l *Ledger) Mint(caller, to ids.ShortID, amount *uint256.Int) error {
	if caller != l.minter {
		return ErrNotMinter
	}
	newSupply, overflow := new(uint256.Int).AddOverflow(l.supply, amount)
	if overflow {
		return ErrSupplyOverflow
	}
	l.supply = newSupply
	l.credit(to, amount)
	l.log.Debug("minted claims",
		log.Stringer("to", to),
		log.String("amount", amount.Dec()),
	)
	return nil
}

// Transfer moves [amount] from [from] to [to], keeping both sides' delegate
// aggregates consistent in the same step.
func (l *Ledger) Transfer(from, to ids.ShortID, amount *uint256.Int) error {
	if l.balance(from).Lt(amount) {
		return ErrInsufficientBalance
	}
	l.debit(from, amount)
	l.credit(to, amount)
	return nil
}

// Burn destroys [amount] of [from]'s own balance.
func (l *Ledger) Burn(from ids.ShortID, amount *uint256.Int) error {
	if l.balance(from).Lt(amount) {
		return ErrInsufficientBalance
	}
	l.debit(from, amount)
	l.supply = new(uint256.Int).Sub(l.supply, amount)
	return nil
}

// BurnFrom destroys [amount] of [from]'s balance on behalf of [caller]. The
// privileged burner (the reserve manager) never consumes an allowance; any
// other caller debits an explicit allowance first.
func (l *Ledger) BurnFrom(caller, from ids.ShortID, amount *uint256.Int) error {
	if caller != l.burner && caller != from {
		allowance := l.allowance(from, caller)
		if allowance.Lt(amount) {
			return ErrInsufficientAllowance
		}
		if l.balance(from).Lt(amount) {
			return ErrInsufficientBalance
		}
		l.allowances[from][caller] = new(uint256.Int).Sub(allowance, amount)
	}
	return l.Burn(from, amount)
}

// Approve lets [spender] burn up to [amount] of [owner]'s balance.
func (l *Ledger) Approve(owner, spender ids.ShortID, amount *uint256.Int) {
	spenders, ok := l.allowances[owner]
	if !ok {
		spenders = make(map[ids.ShortID]*uint256.Int)
		l.allowances[owner] = spenders
	}
	spenders[spender] = amount.Clone()
}

// Delegate points the caller's dissent rights at [to]. Re-delegating to a
// third party atomically moves the caller between delegator sets.
func (l *Ledger) Delegate(caller, to ids.ShortID) error {
	if to == caller {
		return ErrSelfDelegation
	}
	current, delegating := l.delegateOf[caller]
	if delegating && current == to {
		return ErrAlreadyDelegated
	}
	if l.delegatorSets[to].Len() >= l.maxDelegators {
		return ErrDelegatorLimit
	}
	if delegating {
		l.removeDelegator(current, caller)
	}
	l.delegateOf[caller] = to
	l.delegators[to] = append(l.delegators[to], caller)
	delegatorSet := l.delegatorSets[to]
	delegatorSet.Add(caller)
	l.delegatorSets[to] = delegatorSet
	l.delegatedPower[to] = new(uint256.Int).Add(l.delegatedTo(to), l.balance(caller))
	l.log.Debug("delegated",
		log.Stringer("delegator", caller),
		log.Stringer("delegate", to),
	)
	return nil
}

// Undelegate clears the caller's delegation.
func (l *Ledger) Undelegate(caller ids.ShortID) error {
	current, delegating := l.delegateOf[caller]
	if !delegating {
		return ErrNotDelegating
	}
	l.removeDelegator(current, caller)
	delete(l.delegateOf, caller)
	return nil
}

// EffectiveVotingPower is the weight an account could bring to bear directly.
// An account that has delegated away keeps only the power delegated TO it;
// a non-delegating account keeps its own balance plus delegated-to power.
func (l *Ledger) EffectiveVotingPower(account ids.ShortID) *uint256.Int {
	power := l.delegatedTo(account).Clone()
	if _, delegating := l.delegateOf[account]; delegating {
		return power
	}
	return power.Add(power, l.balance(account))
}

func (l *Ledger) BalanceOf(account ids.ShortID) *uint256.Int {
	return l.balance(account).Clone()
}

func (l *Ledger) TotalSupply() *uint256.Int {
	return l.supply.Clone()
}

func (l *Ledger) Allowance(owner, spender ids.ShortID) *uint256.Int {
	return l.allowance(owner, spender).Clone()
}

// DelegateOf returns the account's delegate, if any.
func (l *Ledger) DelegateOf(account ids.ShortID) (ids.ShortID, bool) {
	delegate, ok := l.delegateOf[account]
	return delegate, ok
}

// DelegatorsOf returns the delegate's delegators in insertion order.
func (l *Ledger) DelegatorsOf(delegate ids.ShortID) []ids.ShortID {
	delegators := l.delegators[delegate]
	out := make([]ids.ShortID, len(delegators))
	copy(out, delegators)
	return out
}

// DelegatedPower returns the delegate's aggregate delegated balance.
func (l *Ledger) DelegatedPower(delegate ids.ShortID) *uint256.Int {
	return l.delegatedTo(delegate).Clone()
}

func (l *Ledger) balance(account ids.ShortID) *uint256.Int {
	if b, ok := l.balances[account]; ok {
		return b
	}
	return new(uint256.Int)
}

func (l *Ledger) allowance(owner, spender ids.ShortID) *uint256.Int {
	if a, ok := l.allowances[owner][spender]; ok {
		return a
	}
	return new(uint256.Int)
}

// delegatedTo never inserts into the map, so pure reads leave it untouched.
// Write paths assign their result back to the map entry themselves.
func (l *Ledger) delegatedTo(delegate ids.ShortID) *uint256.Int {
	if p, ok := l.delegatedPower[delegate]; ok {
		return p
	}
	return new(uint256.Int)
}

// credit adds to an account's balance and to its delegate's aggregate.
func (l *Ledger) credit(account ids.ShortID, amount *uint256.Int) {
	l.balances[account] = new(uint256.Int).Add(l.balance(account), amount)
	if delegate, ok := l.delegateOf[account]; ok {
		l.delegatedPower[delegate] = new(uint256.Int).Add(l.delegatedTo(delegate), amount)
	}
}

// debit subtracts from an account's balance and from its delegate's
// aggregate. The caller has already checked the balance.
func (l *Ledger) debit(account ids.ShortID, amount *uint256.Int) {
	l.balances[account] = new(uint256.Int).Sub(l.balance(account), amount)
	if delegate, ok := l.delegateOf[account]; ok {
		l.delegatedPower[delegate] = new(uint256.Int).Sub(l.delegatedTo(delegate), amount)
	}
}

func (l *Ledger) removeDelegator(delegate, delegator ids.ShortID) {
	delegators := l.delegators[delegate]
	for i, d := range delegators {
		if d == delegator {
			l.delegators[delegate] = append(delegators[:i], delegators[i+1:]...)
			break
		}
	}
	delegatorSet := l.delegatorSets[delegate]
	delegatorSet.Remove(delegator)
	l.delegatorSets[delegate] = delegatorSet
	l.delegatedPower[delegate] = new(uint256.Int).Sub(l.delegatedTo(delegate), l.balance(delegator))
}
