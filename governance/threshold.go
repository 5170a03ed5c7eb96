// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/luxfi/govern/config"
	safemath "github.com/luxfi/govern/utils/math"
)

var bpsScale = uint256.NewInt(config.PercentDenominator)

// failThresholdBps computes the dissent weight required to fail a proposal:
//
//	base + impact*impactMultiplier/10000 + concentrationAdjustment - noise
//
// floored at zero. Larger asks and more concentrated ownership both raise
// the bar; the noise baseline discounts dissent that any proposal attracts.
func failThresholdBps(cfg *config.Config, impactBps, concentrationBps uint64) uint64 {
	impact, err := safemath.Mul(impactBps, cfg.ImpactMultiplierBps)
	if err != nil {
		impact = math.MaxUint64
	}
	threshold := safemath.SaturatingAdd(cfg.BaseThresholdBps, impact/config.PercentDenominator)
	threshold = safemath.SaturatingAdd(threshold, concentrationAdjustmentBps(cfg, concentrationBps))
	if threshold <= cfg.NoiseBaselineBps {
		return 0
	}
	return threshold - cfg.NoiseBaselineBps
}

// concentrationAdjustmentBps scales the excess of the concentration index
// over its baseline, capped so a cornered market cannot make proposals
// unpassable outright.
func concentrationAdjustmentBps(cfg *config.Config, concentrationBps uint64) uint64 {
	if concentrationBps <= cfg.BaselineConcentrationBps {
		return 0
	}
	excess := concentrationBps - cfg.BaselineConcentrationBps
	adjustment, err := safemath.Mul(excess, cfg.ConcentrationScalarBps)
	if err != nil {
		return cfg.ConcentrationCapBps
	}
	return min(adjustment/config.PercentDenominator, cfg.ConcentrationCapBps)
}

// concentrationIndexBps is the sum of squared holder shares (HHI), basis
// point scaled and capped at 10000.
func concentrationIndexBps(sharesBps []uint64) uint64 {
	var index uint64
	for _, share := range sharesBps {
		squared, err := safemath.Mul(share, share)
		if err != nil {
			return config.PercentDenominator
		}
		index = safemath.SaturatingAdd(index, squared/config.PercentDenominator)
	}
	return min(index, config.PercentDenominator)
}

// shareBps is [amount]'s share of [supply] in basis points.
func shareBps(amount, supply *uint256.Int) uint64 {
	if supply.IsZero() {
		return 0
	}
	share, overflow := new(uint256.Int).MulDivOverflow(amount, bpsScale, supply)
	if overflow || !share.IsUint64() {
		return math.MaxUint64
	}
	return share.Uint64()
}

// actionWeightBps applies a basis-point multiplier (10000 = 1x) to a share.
func actionWeightBps(sharebps, multiplierBps uint64) uint64 {
	weight, err := safemath.Mul(sharebps, multiplierBps)
	if err != nil {
		return math.MaxUint64
	}
	return weight / config.PercentDenominator
}
