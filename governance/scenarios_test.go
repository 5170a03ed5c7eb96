// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
)

// End-to-end lifecycle checks with concrete numbers, exercising each
// resolution outcome against a 10000-claim supply and a 20000 reserve.

func TestLifecycleSmallDissentPasses(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	// 10% ask: stake is the 1% minimum, threshold 1300.
	p := env.propose(t, 1000)
	require.Equal(uint256.NewInt(100), p.Stake)

	// A single 5% holder vetoing contributes 500 bps, below the bar.
	small := ids.ShortID{70}
	require.NoError(env.ledger.Transfer(holder, small, uint256.NewInt(500)))
	entry, err := env.engine.Veto(small, p.ID)
	require.NoError(err)
	require.Equal(uint64(500), entry.WeightBps)

	env.closeWindow(p)
	outcome, err := env.engine.Resolve(p.ID)
	require.NoError(err)
	require.Equal(StatusPassed, outcome.Status)
	require.Equal(uint64(1300), outcome.ThresholdBps)
	require.Equal(uint64(500), outcome.FailDissentBps)
	// 10% of the 20000 reserve.
	require.Equal(uint256.NewInt(2000), env.reserve.disbursed[recipient])
	require.Equal(uint256.NewInt(1000), env.ledger.BalanceOf(proposer))
}

func TestLifecycleHeavyDissentFails(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	// 30% ask: threshold 1700, stake 300.
	p := env.propose(t, 3000)
	require.Equal(uint256.NewInt(300), p.Stake)

	// Vetoes totaling 25% plus a 20% full exit at 4x.
	a := ids.ShortID{71}
	b := ids.ShortID{72}
	exiter := ids.ShortID{73}
	require.NoError(env.ledger.Transfer(whale, a, uint256.NewInt(1500)))
	require.NoError(env.ledger.Transfer(whale, b, uint256.NewInt(1000)))
	require.NoError(env.ledger.Transfer(holder, exiter, uint256.NewInt(2000)))

	_, err := env.engine.Veto(a, p.ID)
	require.NoError(err)
	_, err = env.engine.Veto(b, p.ID)
	require.NoError(err)
	_, entry := env.engine.RecordRedemptionDissent(exiter, uint256.NewInt(2000), true)
	require.Equal(uint64(8000), entry.WeightBps)

	env.closeWindow(p)
	outcome, err := env.engine.Resolve(p.ID)
	require.NoError(err)
	require.Equal(StatusFailed, outcome.Status)
	require.Equal(uint64(1700), outcome.ThresholdBps)
	require.Equal(uint64(10_500), outcome.FailDissentBps)
	require.Equal(uint256.NewInt(300), outcome.Slashed)
	// Nothing was disbursed.
	require.Empty(env.reserve.disbursed)
	require.Equal(uint256.NewInt(20_000), env.reserve.Reserve())
}

func TestLifecycleReworkThenPass(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	// 20% ask: threshold 1500, rework threshold 900.
	p := env.propose(t, 2000)

	// Two holders totaling 30% request rework: signal 1500 with no vetoes.
	a := ids.ShortID{74}
	b := ids.ShortID{75}
	require.NoError(env.ledger.Transfer(whale, a, uint256.NewInt(2000)))
	require.NoError(env.ledger.Transfer(holder, b, uint256.NewInt(1000)))
	_, err := env.engine.RequestRework(a, p.ID)
	require.NoError(err)
	_, err = env.engine.RequestRework(b, p.ID)
	require.NoError(err)
	require.Equal(uint64(1500), p.ReworkSignalBps())

	env.closeWindow(p)
	outcome, err := env.engine.Resolve(p.ID)
	require.NoError(err)
	require.Equal(StatusRework, outcome.Status)

	// Resubmission at half the ask sails through a fresh window.
	p, err = env.engine.SubmitRework(proposer, p.ID, 1000, "halved ask")
	require.NoError(err)
	env.closeWindow(p)
	outcome, err = env.engine.Resolve(p.ID)
	require.NoError(err)
	require.Equal(StatusPassed, outcome.Status)
	require.Equal(uint256.NewInt(2000), env.reserve.disbursed[recipient])
}

func TestLifecycleFullExitAloneFails(t *testing.T) {
	require := require.New(t)
	env := newTestEnv(t)

	p := env.propose(t, 1000)

	// A 45% holder exiting in full contributes 18000 bps at 4x, past any
	// reachable threshold, with zero explicit votes.
	_, entry := env.engine.RecordRedemptionDissent(whale, uint256.NewInt(4500), true)
	require.Equal(uint64(18_000), entry.WeightBps)

	env.closeWindow(p)
	outcome, err := env.engine.Resolve(p.ID)
	require.NoError(err)
	require.Equal(StatusFailed, outcome.Status)
	require.Zero(p.VetoWeightBps)
	require.Equal(uint64(18_000), outcome.FailDissentBps)
}
