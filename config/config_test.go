// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/ids"
)

func TestGetConfigDefaults(t *testing.T) {
	require := require.New(t)

	cfg, err := GetConfig(nil)
	require.NoError(err)
	require.Equal(Default, *cfg)
	require.Equal(uint64(1200), cfg.BaseThresholdBps)
	require.Equal(7*24*time.Hour, cfg.VotingWindow)
	require.Equal(uint64(40000), cfg.FullRedeemWeightBps)
}

func TestGetConfigOverlay(t *testing.T) {
	require := require.New(t)

	overlay := Default
	overlay.Admin = ids.ShortID{1}
	overlay.BaseThresholdBps = 1500
	overlay.Allocations = []Allocation{
		{Address: ids.ShortID{2}, Balance: "1000000"},
	}
	bytes, err := json.Marshal(overlay)
	require.NoError(err)

	cfg, err := GetConfig(bytes)
	require.NoError(err)
	require.Equal(uint64(1500), cfg.BaseThresholdBps)
	// Untouched parameters keep their defaults.
	require.Equal(Default.VotingWindow, cfg.VotingWindow)
	require.Equal(Default.MaxTopHolders, cfg.MaxTopHolders)
	require.Len(cfg.Allocations, 1)
}

func TestGetConfigInvalidJSON(t *testing.T) {
	_, err := GetConfig([]byte("{not json"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Default
	valid.Admin = ids.ShortID{1}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "missing admin",
			mutate: func(c *Config) { c.Admin = ids.ShortEmpty },
		},
		{
			name:   "impact cap above 100%",
			mutate: func(c *Config) { c.MaxImpactBps = 10_001 },
		},
		{
			name:   "zero impact cap",
			mutate: func(c *Config) { c.MaxImpactBps = 0 },
		},
		{
			name:   "haircut at 100%",
			mutate: func(c *Config) { c.RedemptionHaircutBps = 10_000 },
		},
		{
			name:   "rework ratio above 100%",
			mutate: func(c *Config) { c.ReworkThresholdRatioBps = 10_001 },
		},
		{
			name:   "no top holder slots",
			mutate: func(c *Config) { c.MaxTopHolders = 0 },
		},
		{
			name:   "no delegator slots",
			mutate: func(c *Config) { c.MaxDelegatorsPerDelegate = 0 },
		},
		{
			name:   "zero voting window",
			mutate: func(c *Config) { c.VotingWindow = 0 },
		},
		{
			name:   "zero veto weight",
			mutate: func(c *Config) { c.VetoWeightBps = 0 },
		},
		{
			name:   "zero min stake",
			mutate: func(c *Config) { c.MinStakeBps = 0 },
		},
		{
			name: "allocation without address",
			mutate: func(c *Config) {
				c.Allocations = []Allocation{{Balance: "100"}}
			},
		},
		{
			name: "allocation without balance",
			mutate: func(c *Config) {
				c.Allocations = []Allocation{{Address: ids.ShortID{2}}}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
