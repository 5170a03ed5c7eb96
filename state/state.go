// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state archives resolved proposals. In-flight proposal state lives
// in the governance engine; the archive exists so terminal outcomes survive
// restarts and can be served to external consumers.
package state

import (
	"encoding/binary"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"

	"github.com/luxfi/govern/governance"
)

// ProposalRecord is the serialized form of a terminal proposal.
type ProposalRecord struct {
	ID          uint64      `serialize:"true" json:"id"`
	Proposer    ids.ShortID `serialize:"true" json:"proposer"`
	Recipient   ids.ShortID `serialize:"true" json:"recipient"`
	ImpactBps   uint64      `serialize:"true" json:"impactBps"`
	Description string      `serialize:"true" json:"description"`

	// Stake is a big-endian 256-bit amount.
	Stake []byte `serialize:"true" json:"stake"`

	StartTime int64 `serialize:"true" json:"startTime"`
	EndTime   int64 `serialize:"true" json:"endTime"`

	Status      uint8 `serialize:"true" json:"status"`
	ReworkCount uint8 `serialize:"true" json:"reworkCount"`

	VetoWeightBps          uint64 `serialize:"true" json:"vetoWeightBps"`
	ReworkWeightBps        uint64 `serialize:"true" json:"reworkWeightBps"`
	PartialRedeemWeightBps uint64 `serialize:"true" json:"partialRedeemWeightBps"`
	FullRedeemWeightBps    uint64 `serialize:"true" json:"fullRedeemWeightBps"`

	SupplySnapshot   []byte `serialize:"true" json:"supplySnapshot"`
	ConcentrationBps uint64 `serialize:"true" json:"concentrationBps"`
}

// State is the proposal archive. It is not safe for concurrent use; callers
// provide mutual exclusion.
type State struct {
	db database.Database
}

func New(db database.Database) *State {
	return &State{db: db}
}

// PutProposal archives [p].
func (s *State) PutProposal(p *governance.Proposal) error {
	record := &ProposalRecord{
		ID:          p.ID,
		Proposer:    p.Proposer,
		Recipient:   p.Recipient,
		ImpactBps:   p.ImpactBps,
		Description: p.Description,
		Stake:       p.Stake.Bytes(),
		StartTime:   p.StartTime.Unix(),
		EndTime:     p.EndTime.Unix(),
		Status:      uint8(p.Status),
		ReworkCount: p.ReworkCount,

		VetoWeightBps:          p.VetoWeightBps,
		ReworkWeightBps:        p.ReworkWeightBps,
		PartialRedeemWeightBps: p.PartialRedeemWeightBps,
		FullRedeemWeightBps:    p.FullRedeemWeightBps,

		SupplySnapshot:   p.SupplySnapshot.Bytes(),
		ConcentrationBps: p.ConcentrationBps,
	}
	bytes, err := Codec.Marshal(codecVersion, record)
	if err != nil {
		return fmt.Errorf("serializing proposal %d: %w", p.ID, err)
	}
	return s.db.Put(proposalKey(p.ID), bytes)
}

// GetProposal returns the archived record for [proposalID].
func (s *State) GetProposal(proposalID uint64) (*ProposalRecord, error) {
	bytes, err := s.db.Get(proposalKey(proposalID))
	if err != nil {
		return nil, err
	}
	record := &ProposalRecord{}
	if _, err := Codec.Unmarshal(bytes, record); err != nil {
		return nil, fmt.Errorf("parsing proposal %d: %w", proposalID, err)
	}
	return record, nil
}

// HasProposal reports whether [proposalID] has been archived.
func (s *State) HasProposal(proposalID uint64) (bool, error) {
	return s.db.Has(proposalKey(proposalID))
}

func proposalKey(proposalID uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, proposalID)
	return key
}
