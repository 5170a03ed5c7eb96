// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package directory is the delegate-profile directory: metadata CRUD plus
// reputation bookkeeping fed by governance notifications. It has no read or
// write effect on governance outcomes.
package directory

import (
	"errors"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/govern/governance"
	"github.com/luxfi/govern/utils/timer/mockable"
)

var (
	ErrNotRegistered     = errors.New("delegate is not registered")
	ErrAlreadyRegistered = errors.New("delegate is already registered")
	ErrEmptyName         = errors.New("profile name must be set")
)

// Profile is a delegate's public metadata and reputation counters.
type Profile struct {
	Name    string `serialize:"true" json:"name"`
	Contact string `serialize:"true" json:"contact"`
	Bio     string `serialize:"true" json:"bio"`

	// RegisteredAt is a unix timestamp in seconds.
	RegisteredAt int64 `serialize:"true" json:"registeredAt"`

	// Reputation counters, bumped by governance notifications.
	VetoBatches    uint64 `serialize:"true" json:"vetoBatches"`
	ReworkBatches  uint64 `serialize:"true" json:"reworkBatches"`
	LastProposalID uint64 `serialize:"true" json:"lastProposalID"`
}

// Directory persists profiles keyed by delegate address. It is not safe for
// concurrent use; callers provide mutual exclusion.
type Directory struct {
	log   log.Logger
	db    database.Database
	clock *mockable.Clock
}

func New(logger log.Logger, db database.Database, clock *mockable.Clock) *Directory {
	return &Directory{
		log:   logger,
		db:    db,
		clock: clock,
	}
}

// Register creates a profile for [delegate].
func (d *Directory) Register(delegate ids.ShortID, name, contact, bio string) (*Profile, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	switch _, err := d.db.Get(delegate[:]); err {
	case nil:
		return nil, ErrAlreadyRegistered
	case database.ErrNotFound:
	default:
		return nil, err
	}
	profile := &Profile{
		Name:         name,
		Contact:      contact,
		Bio:          bio,
		RegisteredAt: d.clock.Time().Unix(),
	}
	return profile, d.put(delegate, profile)
}

// Update replaces the metadata of an existing profile. Reputation counters
// are kept.
func (d *Directory) Update(delegate ids.ShortID, name, contact, bio string) (*Profile, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	profile, err := d.Get(delegate)
	if err != nil {
		return nil, err
	}
	profile.Name = name
	profile.Contact = contact
	profile.Bio = bio
	return profile, d.put(delegate, profile)
}

// Get returns the profile registered for [delegate].
func (d *Directory) Get(delegate ids.ShortID) (*Profile, error) {
	bytes, err := d.db.Get(delegate[:])
	if err == database.ErrNotFound {
		return nil, ErrNotRegistered
	}
	if err != nil {
		return nil, err
	}
	profile := &Profile{}
	if _, err := Codec.Unmarshal(bytes, profile); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	return profile, nil
}

// List returns every registered delegate and its profile, in key order.
func (d *Directory) List() ([]ids.ShortID, []*Profile, error) {
	iter := d.db.NewIterator()
	defer iter.Release()

	var (
		delegates []ids.ShortID
		profiles  []*Profile
	)
	for iter.Next() {
		delegate, err := ids.ToShortID(iter.Key())
		if err != nil {
			return nil, nil, err
		}
		profile := &Profile{}
		if _, err := Codec.Unmarshal(iter.Value(), profile); err != nil {
			return nil, nil, err
		}
		delegates = append(delegates, delegate)
		profiles = append(profiles, profile)
	}
	return delegates, profiles, iter.Error()
}

// RecordAction implements governance.ActionNotifier. Unregistered delegates
// are tracked under an empty profile so reputation is never lost.
func (d *Directory) RecordAction(delegate ids.ShortID, proposalID uint64, kind governance.DissentKind) {
	profile, err := d.Get(delegate)
	if err == ErrNotRegistered {
		profile = &Profile{RegisteredAt: d.clock.Time().Unix()}
	} else if err != nil {
		d.log.Error("failed to load delegate profile",
			log.Stringer("delegate", delegate),
			log.String("error", err.Error()),
		)
		return
	}
	switch kind {
	case governance.KindVeto:
		profile.VetoBatches++
	case governance.KindRework:
		profile.ReworkBatches++
	}
	profile.LastProposalID = proposalID
	if err := d.put(delegate, profile); err != nil {
		d.log.Error("failed to store delegate profile",
			log.Stringer("delegate", delegate),
			log.String("error", err.Error()),
		)
	}
}

func (d *Directory) put(delegate ids.ShortID, profile *Profile) error {
	bytes, err := Codec.Marshal(codecVersion, profile)
	if err != nil {
		return fmt.Errorf("serializing profile: %w", err)
	}
	return d.db.Put(delegate[:], bytes)
}
