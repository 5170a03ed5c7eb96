// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"

	"github.com/luxfi/govern/governance"
)

func TestProposalArchive(t *testing.T) {
	require := require.New(t)
	s := New(memdb.New())

	has, err := s.HasProposal(1)
	require.NoError(err)
	require.False(has)
	_, err = s.GetProposal(1)
	require.ErrorIs(err, database.ErrNotFound)

	start := time.Unix(1_700_000_000, 0)
	p := &governance.Proposal{
		ID:          1,
		Proposer:    ids.ShortID{1},
		Recipient:   ids.ShortID{2},
		ImpactBps:   1000,
		Description: "fund integration work",
		Stake:       uint256.NewInt(100),
		StartTime:   start,
		EndTime:     start.Add(7 * 24 * time.Hour),
		Status:      governance.StatusFailed,
		ReworkCount: 1,

		VetoWeightBps:          4500,
		ReworkWeightBps:        300,
		PartialRedeemWeightBps: 2000,
		FullRedeemWeightBps:    0,

		SupplySnapshot:   uint256.NewInt(10_000),
		ConcentrationBps: 4050,
	}
	require.NoError(s.PutProposal(p))

	has, err = s.HasProposal(1)
	require.NoError(err)
	require.True(has)

	record, err := s.GetProposal(1)
	require.NoError(err)
	require.Equal(p.ID, record.ID)
	require.Equal(p.Proposer, record.Proposer)
	require.Equal(p.Recipient, record.Recipient)
	require.Equal(p.ImpactBps, record.ImpactBps)
	require.Equal(p.Description, record.Description)
	require.Equal(p.Stake, new(uint256.Int).SetBytes(record.Stake))
	require.Equal(p.StartTime.Unix(), record.StartTime)
	require.Equal(p.EndTime.Unix(), record.EndTime)
	require.Equal(uint8(governance.StatusFailed), record.Status)
	require.Equal(p.ReworkCount, record.ReworkCount)
	require.Equal(p.VetoWeightBps, record.VetoWeightBps)
	require.Equal(p.ReworkWeightBps, record.ReworkWeightBps)
	require.Equal(p.PartialRedeemWeightBps, record.PartialRedeemWeightBps)
	require.Equal(p.SupplySnapshot, new(uint256.Int).SetBytes(record.SupplySnapshot))
	require.Equal(p.ConcentrationBps, record.ConcentrationBps)
}
