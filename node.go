// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package govern wires the claim ledger, the reserve treasury, the governance
// engine, the delegate directory, and the proposal archive into one node and
// exposes them over JSON-RPC. Every operation runs under a single lock, so
// each call observes and produces a consistent protocol state.
package govern

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/luxfi/pubsub"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/govern/config"
	"github.com/luxfi/govern/directory"
	"github.com/luxfi/govern/events"
	"github.com/luxfi/govern/governance"
	"github.com/luxfi/govern/ledger"
	"github.com/luxfi/govern/metrics"
	"github.com/luxfi/govern/state"
	"github.com/luxfi/govern/treasury"
	"github.com/luxfi/govern/utils/timer/mockable"
)

var (
	// ReserveAccount is the treasury's privileged identity on the ledger.
	ReserveAccount = ids.ShortID{'r', 'e', 's', 'e', 'r', 'v', 'e'}
	// StakeCustodyAccount holds proposer stakes while a proposal is in flight.
	StakeCustodyAccount = ids.ShortID{'s', 't', 'a', 'k', 'e'}

	directoryPrefix = []byte("directory")
	proposalPrefix  = []byte("proposal")

	ErrNotAdmin      = errors.New("caller is not the admin")
	ErrBadAllocation = errors.New("genesis allocation balance is not a decimal integer")
)

// Node is the top-level protocol instance.
type Node struct {
	log   log.Logger
	lock  sync.Mutex
	clock mockable.Clock

	cfg *config.Config

	ledger    *ledger.Ledger
	treasury  *treasury.Treasury
	engine    *governance.Engine
	directory *directory.Directory
	archive   *state.State

	registry metric.Registry
	metrics  metrics.Metrics
	pubsub   *pubsub.Server
}

// New builds a node from [cfg], mints the genesis allocations, and binds the
// treasury and the governance engine to each other.
func New(cfg *config.Config, db database.Database, logger log.Logger) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := &Node{
		log: logger,
		cfg: cfg,
	}
	n.ledger = ledger.New(logger, cfg.Admin, ReserveAccount, cfg.MaxDelegatorsPerDelegate)
	n.treasury = treasury.New(logger, n.ledger, ReserveAccount, cfg.RedemptionHaircutBps)
	n.engine = governance.New(logger, cfg, &n.clock, n.ledger, n.treasury, StakeCustodyAccount)
	n.treasury.Bind(&dissentRelay{node: n}, n.engine)

	n.directory = directory.New(logger, prefixdb.New(directoryPrefix, db), &n.clock)
	n.engine.SetNotifier(n.directory)
	n.archive = state.New(prefixdb.New(proposalPrefix, db))

	n.registry = metric.NewRegistry()
	m, err := metrics.New(n.registry)
	if err != nil {
		return nil, err
	}
	n.metrics = m
	n.pubsub = pubsub.New(logger)

	for _, alloc := range cfg.Allocations {
		amount, err := uint256.FromDecimal(alloc.Balance)
		if err != nil {
			return nil, ErrBadAllocation
		}
		if err := n.ledger.Mint(cfg.Admin, alloc.Address, amount); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Clock returns the node's clock. Tests fake it; production leaves it synced.
func (n *Node) Clock() *mockable.Clock {
	return &n.clock
}

// Handlers returns the node's HTTP surface: the JSON-RPC service at the root
// and the event feed at /events.
func (n *Node) Handlers() (map[string]http.Handler, error) {
	codec := json2.NewCodec()

	rpcServer := rpc.NewServer()
	rpcServer.RegisterCodec(codec, "application/json")
	rpcServer.RegisterCodec(codec, "application/json;charset=UTF-8")
	rpcServer.RegisterInterceptFunc(n.metrics.InterceptRequest)
	rpcServer.RegisterAfterFunc(n.metrics.AfterRequest)
	if err := rpcServer.RegisterService(&Service{node: n}, "govern"); err != nil {
		return nil, err
	}

	return map[string]http.Handler{
		"":        rpcServer,
		"/events": n.pubsub,
	}, nil
}

// MetricsGatherer exposes the registry every node metric is registered in,
// including the JSON-RPC request metrics, for serving over HTTP.
func (n *Node) MetricsGatherer() prometheus.Gatherer {
	return n.registry
}

/*
 ******************************************************************************
 *********************************** Ledger ***********************************
 ******************************************************************************
 */

// Mint creates new claims. Only the admin may call it.
func (n *Node) Mint(caller, to ids.ShortID, amount *uint256.Int) error {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.ledger.Mint(caller, to, amount)
}

func (n *Node) Transfer(from, to ids.ShortID, amount *uint256.Int) error {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.ledger.Transfer(from, to, amount)
}

func (n *Node) Approve(owner, spender ids.ShortID, amount *uint256.Int) {
	n.lock.Lock()
	defer n.lock.Unlock()

	n.ledger.Approve(owner, spender, amount)
}

func (n *Node) Delegate(caller, to ids.ShortID) error {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.ledger.Delegate(caller, to)
}

func (n *Node) Undelegate(caller ids.ShortID) error {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.ledger.Undelegate(caller)
}

func (n *Node) BalanceOf(account ids.ShortID) *uint256.Int {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.ledger.BalanceOf(account)
}

func (n *Node) TotalSupply() *uint256.Int {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.ledger.TotalSupply()
}

func (n *Node) Allowance(owner, spender ids.ShortID) *uint256.Int {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.ledger.Allowance(owner, spender)
}

func (n *Node) DelegateOf(account ids.ShortID) (ids.ShortID, bool) {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.ledger.DelegateOf(account)
}

func (n *Node) DelegatorsOf(delegate ids.ShortID) []ids.ShortID {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.ledger.DelegatorsOf(delegate)
}

func (n *Node) EffectiveVotingPower(account ids.ShortID) *uint256.Int {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.ledger.EffectiveVotingPower(account)
}

/*
 ******************************************************************************
 ********************************** Treasury **********************************
 ******************************************************************************
 */

func (n *Node) Deposit(from ids.ShortID, amount *uint256.Int) error {
	n.lock.Lock()
	defer n.lock.Unlock()

	if err := n.treasury.Deposit(from, amount); err != nil {
		return err
	}
	n.metrics.MarkDeposit()
	n.pubsub.Publish(events.NewFilterer(&events.Deposit{
		From:   from,
		Amount: amount.Dec(),
	}))
	return nil
}

func (n *Node) Redeem(holder ids.ShortID, amount *uint256.Int) (*treasury.Redemption, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.redeem(holder, amount)
}

func (n *Node) RedeemAll(holder ids.ShortID) (*treasury.Redemption, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.redeem(holder, n.ledger.BalanceOf(holder))
}

func (n *Node) redeem(holder ids.ShortID, amount *uint256.Int) (*treasury.Redemption, error) {
	redemption, err := n.treasury.Redeem(holder, amount)
	if err != nil {
		return nil, err
	}
	n.metrics.MarkRedemption(redemption.Full)
	n.pubsub.Publish(events.NewFilterer(&events.Redemption{
		Holder: redemption.Holder,
		Amount: redemption.Amount.Dec(),
		Payout: redemption.Payout.Dec(),
		Full:   redemption.Full,
	}))
	return redemption, nil
}

func (n *Node) NAV() *uint256.Int {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.treasury.NAV()
}

func (n *Node) Reserve() *uint256.Int {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.treasury.Reserve()
}

func (n *Node) FeeRevenue() *uint256.Int {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.treasury.FeeRevenue()
}

func (n *Node) PayoutBalance(account ids.ShortID) *uint256.Int {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.treasury.PayoutBalance(account)
}

func (n *Node) HaircutBps() uint64 {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.treasury.HaircutBps()
}

/*
 ******************************************************************************
 ********************************* Governance *********************************
 ******************************************************************************
 */

func (n *Node) Propose(
	caller ids.ShortID,
	impactBps uint64,
	recipient ids.ShortID,
	description string,
) (*governance.Proposal, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	p, err := n.engine.Propose(caller, impactBps, recipient, description)
	if err != nil {
		return nil, err
	}
	n.metrics.MarkProposalCreated()
	n.pubsub.Publish(events.NewFilterer(&events.ProposalCreated{
		ProposalID:  p.ID,
		Proposer:    p.Proposer,
		ImpactBps:   p.ImpactBps,
		Recipient:   p.Recipient,
		Description: p.Description,
	}))
	return p, nil
}

func (n *Node) Veto(caller ids.ShortID, proposalID uint64) (*governance.DissentEntry, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	entry, err := n.engine.Veto(caller, proposalID)
	if err != nil {
		return nil, err
	}
	n.publishDissent(proposalID, entry)
	return entry, nil
}

func (n *Node) RequestRework(caller ids.ShortID, proposalID uint64) (*governance.DissentEntry, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	entry, err := n.engine.RequestRework(caller, proposalID)
	if err != nil {
		return nil, err
	}
	n.publishDissent(proposalID, entry)
	return entry, nil
}

func (n *Node) DelegateVeto(caller ids.ShortID, proposalID uint64) ([]governance.DissentEntry, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	entries, err := n.engine.DelegateVeto(caller, proposalID)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		n.publishDissent(proposalID, &entries[i])
	}
	return entries, nil
}

func (n *Node) DelegateRework(caller ids.ShortID, proposalID uint64) ([]governance.DissentEntry, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	entries, err := n.engine.DelegateRework(caller, proposalID)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		n.publishDissent(proposalID, &entries[i])
	}
	return entries, nil
}

// Resolve closes the voting window, decides the proposal, and archives it if
// the decision is terminal.
func (n *Node) Resolve(proposalID uint64) (*governance.Outcome, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	outcome, err := n.engine.Resolve(proposalID)
	if err != nil {
		return nil, err
	}
	n.metrics.MarkProposalResolved(outcome.Status.String())
	n.pubsub.Publish(events.NewFilterer(&events.ProposalResolved{
		ProposalID:     outcome.ProposalID,
		Outcome:        outcome.Status.String(),
		FailDissentBps: outcome.FailDissentBps,
		ThresholdBps:   outcome.ThresholdBps,
	}))

	p, _ := n.engine.GetProposal(proposalID)
	switch {
	case outcome.Slashed != nil:
		n.metrics.MarkStakeSlashed()
		n.pubsub.Publish(events.NewFilterer(&events.ProposerSlashed{
			ProposalID: outcome.ProposalID,
			Proposer:   p.Proposer,
			Amount:     outcome.Slashed.Dec(),
		}))
	case outcome.Disbursed != nil:
		n.metrics.MarkDisbursement()
		n.pubsub.Publish(events.NewFilterer(&events.Disbursement{
			ProposalID: outcome.ProposalID,
			Recipient:  p.Recipient,
			Amount:     outcome.Disbursed.Dec(),
		}))
	}

	if outcome.Status.Terminal() {
		if err := n.archive.PutProposal(p); err != nil {
			// Archiving is best effort; the decision itself already took
			// effect on the ledger and the reserve.
			n.log.Error("failed to archive proposal",
				log.Uint64("proposalID", proposalID),
				log.String("error", err.Error()),
			)
		}
	}
	return outcome, nil
}

func (n *Node) SubmitRework(
	caller ids.ShortID,
	proposalID uint64,
	newImpactBps uint64,
	newDescription string,
) (*governance.Proposal, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	p, err := n.engine.SubmitRework(caller, proposalID, newImpactBps, newDescription)
	if err != nil {
		return nil, err
	}
	n.metrics.MarkProposalReworked()
	n.pubsub.Publish(events.NewFilterer(&events.ProposalReworked{
		ProposalID:  p.ID,
		ImpactBps:   p.ImpactBps,
		Description: p.Description,
	}))
	return p, nil
}

func (n *Node) GetProposal(proposalID uint64) (*governance.Proposal, bool) {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.engine.GetProposal(proposalID)
}

// ArchivedProposal reads a terminal proposal from the archive.
func (n *Node) ArchivedProposal(proposalID uint64) (*state.ProposalRecord, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.archive.GetProposal(proposalID)
}

func (n *Node) ActiveProposal() (*governance.Proposal, bool) {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.engine.ActiveProposal()
}

func (n *Node) publishDissent(proposalID uint64, entry *governance.DissentEntry) {
	n.metrics.MarkDissent(entry.Kind.String())
	n.pubsub.Publish(events.NewFilterer(&events.DissentRecorded{
		ProposalID: proposalID,
		Account:    entry.Account,
		Action:     entry.Kind.String(),
		WeightBps:  entry.WeightBps,
	}))
}

/*
 ******************************************************************************
 *********************************** Admin ************************************
 ******************************************************************************
 */

func (n *Node) SetHaircut(caller ids.ShortID, bps uint64) error {
	n.lock.Lock()
	defer n.lock.Unlock()

	if caller != n.cfg.Admin {
		return ErrNotAdmin
	}
	return n.treasury.SetHaircut(bps)
}

func (n *Node) SetTopHolders(caller ids.ShortID, holders []ids.ShortID) error {
	n.lock.Lock()
	defer n.lock.Unlock()

	if caller != n.cfg.Admin {
		return ErrNotAdmin
	}
	return n.engine.SetTopHolders(holders)
}

func (n *Node) TopHolders() []ids.ShortID {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.engine.TopHolders()
}

func (n *Node) Pause(caller ids.ShortID) error {
	n.lock.Lock()
	defer n.lock.Unlock()

	if caller != n.cfg.Admin {
		return ErrNotAdmin
	}
	n.engine.Pause()
	return nil
}

func (n *Node) Unpause(caller ids.ShortID) error {
	n.lock.Lock()
	defer n.lock.Unlock()

	if caller != n.cfg.Admin {
		return ErrNotAdmin
	}
	n.engine.Unpause()
	return nil
}

func (n *Node) Paused() bool {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.engine.Paused()
}

/*
 ******************************************************************************
 ********************************* Directory **********************************
 ******************************************************************************
 */

func (n *Node) RegisterDelegate(delegate ids.ShortID, name, contact, bio string) (*directory.Profile, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.directory.Register(delegate, name, contact, bio)
}

func (n *Node) UpdateDelegate(delegate ids.ShortID, name, contact, bio string) (*directory.Profile, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.directory.Update(delegate, name, contact, bio)
}

func (n *Node) GetDelegate(delegate ids.ShortID) (*directory.Profile, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.directory.Get(delegate)
}

func (n *Node) ListDelegates() ([]ids.ShortID, []*directory.Profile, error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.directory.List()
}

// dissentRelay adapts the engine's redemption-dissent entry point to the
// treasury's sink interface and publishes the resulting observability. It is
// invoked from inside Redeem, under the node lock already.
type dissentRelay struct {
	node *Node
}

func (r *dissentRelay) RecordRedemptionDissent(holder ids.ShortID, amount *uint256.Int, full bool) {
	proposalID, entry := r.node.engine.RecordRedemptionDissent(holder, amount, full)
	if entry == nil {
		return
	}
	r.node.publishDissent(proposalID, entry)
}
