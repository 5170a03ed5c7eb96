// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/luxfi/ids"
)

// PercentDenominator is the denominator of all basis-point scaled parameters.
// 10_000 basis points represent 100%.
const PercentDenominator = 10_000

var (
	errImpactCapTooLarge  = errors.New("max-impact-bps must not exceed 10000")
	errHaircutTooLarge    = errors.New("redemption-haircut-bps must be less than 10000")
	errReworkRatioTooBig  = errors.New("rework-threshold-ratio-bps must not exceed 10000")
	errNoTopHolderSlots   = errors.New("max-top-holders must be positive")
	errNoDelegatorSlots   = errors.New("max-delegators-per-delegate must be positive")
	errZeroVotingWindow   = errors.New("voting-window must be positive")
	errEmptyAdminAddress  = errors.New("admin address must be set")
	errEmptyAllocation    = errors.New("allocation address must be set")
	errZeroWeightVeto     = errors.New("veto-weight-bps must be positive")
	errZeroMinStake       = errors.New("min-stake-bps must be positive")
	errInvalidAllocAmount = errors.New("allocation balance must be a positive decimal integer")
)

// Default contains the protocol parameters a fresh deployment starts from.
var Default = Config{
	BaseThresholdBps:         1200,   // 12%
	ImpactMultiplierBps:      2000,   // 20% of the requested impact
	ReworkThresholdRatioBps:  6000,   // 60% of the fail threshold
	ConcentrationScalarBps:   500000, // 50x
	ConcentrationCapBps:      1000,   // 10%
	BaselineConcentrationBps: 2000,
	NoiseBaselineBps:         100, // 1%

	VotingWindow:       7 * 24 * time.Hour,
	ProposerCooldown:   14 * 24 * time.Hour,
	MinStakeBps:        100,  // 1% of supply
	StakeMultiplierBps: 1000, // 10% of the requested impact
	MaxImpactBps:       5000, // 50%

	VetoWeightBps:          10000, // 1x
	ReworkWeightBps:        5000,  // 0.5x
	PartialRedeemWeightBps: 20000, // 2x
	FullRedeemWeightBps:    40000, // 4x

	RedemptionHaircutBps: 200, // 2%

	MaxTopHolders:            20,
	MaxDelegatorsPerDelegate: 256,
}

// Allocation is a genesis balance minted at node initialization.
type Allocation struct {
	Address ids.ShortID `json:"address"`
	// Balance is a decimal integer. Amounts are 256-bit, so they travel as
	// strings rather than JSON numbers.
	Balance string `json:"balance"`
}

// Config contains all of the user-configurable parameters of the governance
// protocol.
type Config struct {
	// Adaptive threshold parameters, all basis-point scaled.
	BaseThresholdBps         uint64 `json:"base-threshold-bps"`
	ImpactMultiplierBps      uint64 `json:"impact-multiplier-bps"`
	ReworkThresholdRatioBps  uint64 `json:"rework-threshold-ratio-bps"`
	ConcentrationScalarBps   uint64 `json:"concentration-scalar-bps"`
	ConcentrationCapBps      uint64 `json:"concentration-cap-bps"`
	BaselineConcentrationBps uint64 `json:"baseline-concentration-bps"`
	NoiseBaselineBps         uint64 `json:"noise-baseline-bps"`

	// Proposal lifecycle parameters.
	VotingWindow       time.Duration `json:"voting-window"`
	ProposerCooldown   time.Duration `json:"proposer-cooldown"`
	MinStakeBps        uint64        `json:"min-stake-bps"`
	StakeMultiplierBps uint64        `json:"stake-multiplier-bps"`
	MaxImpactBps       uint64        `json:"max-impact-bps"`

	// Dissent action weight multipliers, basis-point scaled (10000 = 1x).
	VetoWeightBps          uint64 `json:"veto-weight-bps"`
	ReworkWeightBps        uint64 `json:"rework-weight-bps"`
	PartialRedeemWeightBps uint64 `json:"partial-redeem-weight-bps"`
	FullRedeemWeightBps    uint64 `json:"full-redeem-weight-bps"`

	// Reserve parameters.
	RedemptionHaircutBps uint64 `json:"redemption-haircut-bps"`

	// Bounds on adversarial fan-out.
	MaxTopHolders            int `json:"max-top-holders"`
	MaxDelegatorsPerDelegate int `json:"max-delegators-per-delegate"`

	// Admin is the single owner of the operational surface: minting,
	// haircut changes, watch-list maintenance, and pausing dissent.
	Admin ids.ShortID `json:"admin"`

	// Allocations are the genesis claim balances.
	Allocations []Allocation `json:"allocations"`
}

// GetConfig returns a Config from the provided json encoded bytes. Any
// parameter not provided in the bytes keeps its default value. If empty
// bytes are provided, the default config is returned.
func GetConfig(b []byte) (*Config, error) {
	c := Default

	// An empty slice is invalid json, so handle that as a special case.
	if len(b) == 0 {
		return &c, nil
	}

	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &c, c.Validate()
}

// Validate rejects parameter combinations the protocol cannot operate under.
func (c *Config) Validate() error {
	switch {
	case c.MaxImpactBps == 0 || c.MaxImpactBps > PercentDenominator:
		return errImpactCapTooLarge
	case c.RedemptionHaircutBps >= PercentDenominator:
		return errHaircutTooLarge
	case c.ReworkThresholdRatioBps > PercentDenominator:
		return errReworkRatioTooBig
	case c.MaxTopHolders <= 0:
		return errNoTopHolderSlots
	case c.MaxDelegatorsPerDelegate <= 0:
		return errNoDelegatorSlots
	case c.VotingWindow <= 0:
		return errZeroVotingWindow
	case c.VetoWeightBps == 0:
		return errZeroWeightVeto
	case c.MinStakeBps == 0:
		return errZeroMinStake
	case c.Admin == ids.ShortEmpty:
		return errEmptyAdminAddress
	}
	for _, alloc := range c.Allocations {
		if alloc.Address == ids.ShortEmpty {
			return errEmptyAllocation
		}
		if alloc.Balance == "" {
			return errInvalidAllocAmount
		}
	}
	return nil
}
