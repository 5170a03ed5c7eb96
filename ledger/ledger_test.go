// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ledger

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

var (
	minter = ids.ShortID{'m', 'i', 'n', 't'}
	burner = ids.ShortID{'b', 'u', 'r', 'n'}
	alice  = ids.ShortID{1}
	bob    = ids.ShortID{2}
	carol  = ids.ShortID{3}
)

const maxDelegators = 4

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l := New(log.NoLog{}, minter, burner, maxDelegators)
	require.NoError(t, l.Mint(minter, alice, uint256.NewInt(1000)))
	require.NoError(t, l.Mint(minter, bob, uint256.NewInt(500)))
	return l
}

func TestMint(t *testing.T) {
	require := require.New(t)
	l := newTestLedger(t)

	require.ErrorIs(l.Mint(alice, alice, uint256.NewInt(1)), ErrNotMinter)

	require.NoError(l.Mint(minter, carol, uint256.NewInt(250)))
	require.Equal(uint256.NewInt(250), l.BalanceOf(carol))
	require.Equal(uint256.NewInt(1750), l.TotalSupply())
}

func TestTransfer(t *testing.T) {
	require := require.New(t)
	l := newTestLedger(t)

	require.ErrorIs(l.Transfer(bob, alice, uint256.NewInt(501)), ErrInsufficientBalance)

	require.NoError(l.Transfer(alice, bob, uint256.NewInt(300)))
	require.Equal(uint256.NewInt(700), l.BalanceOf(alice))
	require.Equal(uint256.NewInt(800), l.BalanceOf(bob))
	require.Equal(uint256.NewInt(1500), l.TotalSupply())
}

func TestBurn(t *testing.T) {
	require := require.New(t)
	l := newTestLedger(t)

	require.ErrorIs(l.Burn(bob, uint256.NewInt(501)), ErrInsufficientBalance)

	require.NoError(l.Burn(alice, uint256.NewInt(400)))
	require.Equal(uint256.NewInt(600), l.BalanceOf(alice))
	require.Equal(uint256.NewInt(1100), l.TotalSupply())
}

func TestBurnFrom(t *testing.T) {
	require := require.New(t)
	l := newTestLedger(t)

	// The privileged burner never needs an allowance.
	require.NoError(l.BurnFrom(burner, alice, uint256.NewInt(100)))
	require.Equal(uint256.NewInt(900), l.BalanceOf(alice))

	// An account may burn its own balance.
	require.NoError(l.BurnFrom(bob, bob, uint256.NewInt(100)))
	require.Equal(uint256.NewInt(400), l.BalanceOf(bob))

	// Anyone else needs an allowance, which is debited.
	require.ErrorIs(l.BurnFrom(carol, alice, uint256.NewInt(100)), ErrInsufficientAllowance)
	l.Approve(alice, carol, uint256.NewInt(150))
	require.NoError(l.BurnFrom(carol, alice, uint256.NewInt(100)))
	require.Equal(uint256.NewInt(50), l.Allowance(alice, carol))
	require.ErrorIs(l.BurnFrom(carol, alice, uint256.NewInt(100)), ErrInsufficientAllowance)

	require.Equal(uint256.NewInt(1200), l.TotalSupply())
}

func TestDelegate(t *testing.T) {
	require := require.New(t)
	l := newTestLedger(t)

	require.ErrorIs(l.Delegate(alice, alice), ErrSelfDelegation)

	require.NoError(l.Delegate(alice, carol))
	require.ErrorIs(l.Delegate(alice, carol), ErrAlreadyDelegated)

	delegate, ok := l.DelegateOf(alice)
	require.True(ok)
	require.Equal(carol, delegate)
	require.Equal([]ids.ShortID{alice}, l.DelegatorsOf(carol))
	require.Equal(uint256.NewInt(1000), l.DelegatedPower(carol))
}

func TestDelegatedPowerTracksBalances(t *testing.T) {
	require := require.New(t)
	l := newTestLedger(t)

	require.NoError(l.Delegate(alice, carol))
	require.NoError(l.Delegate(bob, carol))
	require.Equal(uint256.NewInt(1500), l.DelegatedPower(carol))

	// Balance changes flow through to the aggregate in the same step.
	require.NoError(l.Transfer(alice, bob, uint256.NewInt(200)))
	require.Equal(uint256.NewInt(1500), l.DelegatedPower(carol))
	require.NoError(l.Transfer(alice, ids.ShortID{9}, uint256.NewInt(100)))
	require.Equal(uint256.NewInt(1400), l.DelegatedPower(carol))
	require.NoError(l.Mint(minter, bob, uint256.NewInt(50)))
	require.Equal(uint256.NewInt(1450), l.DelegatedPower(carol))
}

func TestRedelegate(t *testing.T) {
	require := require.New(t)
	l := newTestLedger(t)

	require.NoError(l.Delegate(alice, bob))
	require.NoError(l.Delegate(alice, carol))

	require.Empty(l.DelegatorsOf(bob))
	require.True(l.DelegatedPower(bob).IsZero())
	require.Equal([]ids.ShortID{alice}, l.DelegatorsOf(carol))
	require.Equal(uint256.NewInt(1000), l.DelegatedPower(carol))
}

func TestUndelegate(t *testing.T) {
	require := require.New(t)
	l := newTestLedger(t)

	require.ErrorIs(l.Undelegate(alice), ErrNotDelegating)

	require.NoError(l.Delegate(alice, carol))
	require.NoError(l.Undelegate(alice))
	require.Empty(l.DelegatorsOf(carol))
	require.True(l.DelegatedPower(carol).IsZero())
	_, ok := l.DelegateOf(alice)
	require.False(ok)
}

func TestDelegatorLimit(t *testing.T) {
	require := require.New(t)
	l := newTestLedger(t)

	for i := 0; i < maxDelegators; i++ {
		require.NoError(l.Delegate(ids.ShortID{byte(10 + i)}, carol))
	}
	require.ErrorIs(l.Delegate(ids.ShortID{99}, carol), ErrDelegatorLimit)
}

func TestEffectiveVotingPower(t *testing.T) {
	require := require.New(t)
	l := newTestLedger(t)

	// Non-delegating account: own balance.
	require.Equal(uint256.NewInt(1000), l.EffectiveVotingPower(alice))

	require.NoError(l.Delegate(alice, carol))

	// Delegating away strips the delegator's own balance.
	require.True(l.EffectiveVotingPower(alice).IsZero())
	// The delegate gains it on top of its own balance.
	require.Equal(uint256.NewInt(1000), l.EffectiveVotingPower(carol))

	require.NoError(l.Mint(minter, carol, uint256.NewInt(100)))
	require.Equal(uint256.NewInt(1100), l.EffectiveVotingPower(carol))
}

func TestReadsDoNotInsertDelegateState(t *testing.T) {
	require := require.New(t)
	l := newTestLedger(t)

	// Queries against accounts nothing delegates to must not grow the
	// aggregate map.
	require.True(l.DelegatedPower(carol).IsZero())
	require.Equal(uint256.NewInt(1000), l.EffectiveVotingPower(alice))
	require.NotContains(l.delegatedPower, carol)
	require.NotContains(l.delegatedPower, alice)
}

func TestSupplyConservation(t *testing.T) {
	require := require.New(t)
	l := newTestLedger(t)

	require.NoError(l.Mint(minter, carol, uint256.NewInt(700)))
	require.NoError(l.Transfer(alice, bob, uint256.NewInt(450)))
	require.NoError(l.Burn(carol, uint256.NewInt(200)))
	require.NoError(l.BurnFrom(burner, bob, uint256.NewInt(300)))

	total := new(uint256.Int)
	for _, account := range []ids.ShortID{alice, bob, carol} {
		total.Add(total, l.BalanceOf(account))
	}
	require.Equal(l.TotalSupply(), total)
}
