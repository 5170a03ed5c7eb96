// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"math"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/govern/config"
)

func TestFailThresholdBps(t *testing.T) {
	cfg := config.Default

	tests := []struct {
		name             string
		impactBps        uint64
		concentrationBps uint64
		want             uint64
	}{
		{
			name:             "small ask, dispersed ownership",
			impactBps:        1000,
			concentrationBps: 1500,
			want:             1300, // 1200 + 200 - 100
		},
		{
			name:             "larger ask",
			impactBps:        3000,
			concentrationBps: 1500,
			want:             1700, // 1200 + 600 - 100
		},
		{
			name:             "concentration at the baseline adds nothing",
			impactBps:        1000,
			concentrationBps: cfg.BaselineConcentrationBps,
			want:             1300,
		},
		{
			name:             "concentration above the baseline is capped",
			impactBps:        1000,
			concentrationBps: 4000,
			want:             2300, // adjustment saturates at 1000
		},
		{
			name:             "concentration just above the baseline",
			impactBps:        1000,
			concentrationBps: 2010,
			want:             1800, // 10 * 50 = 500
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, failThresholdBps(&cfg, tt.impactBps, tt.concentrationBps))
		})
	}
}

func TestFailThresholdSaturatesOnOverflow(t *testing.T) {
	cfg := config.Default
	cfg.ImpactMultiplierBps = 1 << 32

	// The raw product would wrap to zero; the threshold must saturate instead
	// of collapsing to the base.
	want := uint64(1200) + math.MaxUint64/10000 - 100
	require.Equal(t, want, failThresholdBps(&cfg, 1<<32, 0))
}

func TestFailThresholdFloorsAtZero(t *testing.T) {
	cfg := config.Default
	cfg.BaseThresholdBps = 50
	cfg.NoiseBaselineBps = 100

	require.Zero(t, failThresholdBps(&cfg, 0, 0))
}

func TestConcentrationIndexBps(t *testing.T) {
	tests := []struct {
		name      string
		sharesBps []uint64
		want      uint64
	}{
		{
			name:      "empty watch list",
			sharesBps: nil,
			want:      0,
		},
		{
			name:      "two equal halves",
			sharesBps: []uint64{5000, 5000},
			want:      5000,
		},
		{
			name:      "single full owner",
			sharesBps: []uint64{10000},
			want:      10000,
		},
		{
			name:      "dispersed holders",
			sharesBps: []uint64{1000, 1000, 1000},
			want:      300,
		},
		{
			name:      "index is capped",
			sharesBps: []uint64{10000, 10000},
			want:      10000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, concentrationIndexBps(tt.sharesBps))
		})
	}
}

func TestShareBps(t *testing.T) {
	supply := uint256.NewInt(10_000)

	require.Equal(t, uint64(1000), shareBps(uint256.NewInt(1000), supply))
	require.Equal(t, uint64(10000), shareBps(supply, supply))
	require.Zero(t, shareBps(uint256.NewInt(1000), new(uint256.Int)))
}

func TestActionWeightBps(t *testing.T) {
	// 10000 bps is a 1x multiplier.
	require.Equal(t, uint64(450), actionWeightBps(450, 10000))
	require.Equal(t, uint64(225), actionWeightBps(450, 5000))
	require.Equal(t, uint64(900), actionWeightBps(450, 20000))
	require.Equal(t, uint64(1800), actionWeightBps(450, 40000))
}
