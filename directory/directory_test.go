// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package directory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/govern/governance"
	"github.com/luxfi/govern/utils/timer/mockable"
)

var (
	alice = ids.ShortID{1}
	bob   = ids.ShortID{2}
)

func newTestDirectory(t *testing.T) (*Directory, *mockable.Clock) {
	t.Helper()
	clock := &mockable.Clock{}
	clock.Set(time.Unix(1_700_000_000, 0))
	return New(log.NoLog{}, memdb.New(), clock), clock
}

func TestRegister(t *testing.T) {
	require := require.New(t)
	d, clock := newTestDirectory(t)

	_, err := d.Register(alice, "", "a@example.com", "")
	require.ErrorIs(err, ErrEmptyName)

	profile, err := d.Register(alice, "Alice", "a@example.com", "governance watcher")
	require.NoError(err)
	require.Equal(clock.Time().Unix(), profile.RegisteredAt)

	_, err = d.Register(alice, "Alice", "", "")
	require.ErrorIs(err, ErrAlreadyRegistered)

	stored, err := d.Get(alice)
	require.NoError(err)
	require.Equal("Alice", stored.Name)
	require.Equal("a@example.com", stored.Contact)
}

func TestUpdateKeepsReputation(t *testing.T) {
	require := require.New(t)
	d, _ := newTestDirectory(t)

	_, err := d.Update(alice, "Alice", "", "")
	require.ErrorIs(err, ErrNotRegistered)

	_, err = d.Register(alice, "Alice", "", "")
	require.NoError(err)
	d.RecordAction(alice, 1, governance.KindVeto)

	_, err = d.Update(alice, "Alice II", "new@example.com", "")
	require.NoError(err)

	stored, err := d.Get(alice)
	require.NoError(err)
	require.Equal("Alice II", stored.Name)
	require.Equal(uint64(1), stored.VetoBatches)
}

func TestGetUnknown(t *testing.T) {
	_, err := newTestDirectoryOnly(t).Get(bob)
	require.ErrorIs(t, err, ErrNotRegistered)
}

func newTestDirectoryOnly(t *testing.T) *Directory {
	d, _ := newTestDirectory(t)
	return d
}

func TestList(t *testing.T) {
	require := require.New(t)
	d, _ := newTestDirectory(t)

	_, err := d.Register(bob, "Bob", "", "")
	require.NoError(err)
	_, err = d.Register(alice, "Alice", "", "")
	require.NoError(err)

	delegates, profiles, err := d.List()
	require.NoError(err)
	require.Len(profiles, 2)
	// Key order.
	require.Equal([]ids.ShortID{alice, bob}, delegates)
	require.Equal("Alice", profiles[0].Name)
	require.Equal("Bob", profiles[1].Name)
}

func TestRecordAction(t *testing.T) {
	require := require.New(t)
	d, _ := newTestDirectory(t)

	// An unregistered delegate is tracked under an empty profile.
	d.RecordAction(alice, 7, governance.KindVeto)
	d.RecordAction(alice, 8, governance.KindRework)
	d.RecordAction(alice, 9, governance.KindRework)

	profile, err := d.Get(alice)
	require.NoError(err)
	require.Empty(profile.Name)
	require.Equal(uint64(1), profile.VetoBatches)
	require.Equal(uint64(2), profile.ReworkBatches)
	require.Equal(uint64(9), profile.LastProposalID)
}
