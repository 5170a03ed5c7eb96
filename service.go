// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package govern

import (
	"fmt"
	"net/http"

	"github.com/holiman/uint256"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/luxfi/govern/governance"
	"github.com/luxfi/govern/utils/json"
)

// Service is the JSON-RPC surface of the node. Addresses travel as strings;
// amounts are decimal 256-bit integers and travel as strings too.
type Service struct {
	node *Node
}

func parseAddress(addr string) (ids.ShortID, error) {
	id, err := ids.ShortFromString(addr)
	if err != nil {
		return ids.ShortEmpty, fmt.Errorf("parsing address %q: %w", addr, err)
	}
	return id, nil
}

func parseAmount(amount string) (*uint256.Int, error) {
	value, err := uint256.FromDecimal(amount)
	if err != nil {
		return nil, fmt.Errorf("parsing amount %q: %w", amount, err)
	}
	return value, nil
}

/*
 ******************************************************************************
 *********************************** Ledger ***********************************
 ******************************************************************************
 */

type MintArgs struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Service) Mint(_ *http.Request, args *MintArgs, _ *struct{}) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "mint"),
	)
	caller, err := parseAddress(args.Caller)
	if err != nil {
		return err
	}
	to, err := parseAddress(args.To)
	if err != nil {
		return err
	}
	amount, err := parseAmount(args.Amount)
	if err != nil {
		return err
	}
	return s.node.Mint(caller, to, amount)
}

type TransferArgs struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Service) Transfer(_ *http.Request, args *TransferArgs, _ *struct{}) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "transfer"),
	)
	from, err := parseAddress(args.From)
	if err != nil {
		return err
	}
	to, err := parseAddress(args.To)
	if err != nil {
		return err
	}
	amount, err := parseAmount(args.Amount)
	if err != nil {
		return err
	}
	return s.node.Transfer(from, to, amount)
}

type ApproveArgs struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

func (s *Service) Approve(_ *http.Request, args *ApproveArgs, _ *struct{}) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "approve"),
	)
	owner, err := parseAddress(args.Owner)
	if err != nil {
		return err
	}
	spender, err := parseAddress(args.Spender)
	if err != nil {
		return err
	}
	amount, err := parseAmount(args.Amount)
	if err != nil {
		return err
	}
	s.node.Approve(owner, spender, amount)
	return nil
}

type DelegateArgs struct {
	Caller string `json:"caller"`
	To     string `json:"to"`
}

func (s *Service) Delegate(_ *http.Request, args *DelegateArgs, _ *struct{}) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "delegate"),
	)
	caller, err := parseAddress(args.Caller)
	if err != nil {
		return err
	}
	to, err := parseAddress(args.To)
	if err != nil {
		return err
	}
	return s.node.Delegate(caller, to)
}

type UndelegateArgs struct {
	Caller string `json:"caller"`
}

func (s *Service) Undelegate(_ *http.Request, args *UndelegateArgs, _ *struct{}) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "undelegate"),
	)
	caller, err := parseAddress(args.Caller)
	if err != nil {
		return err
	}
	return s.node.Undelegate(caller)
}

type GetAccountArgs struct {
	Address string `json:"address"`
}

type GetAccountReply struct {
	Balance        string `json:"balance"`
	Delegate       string `json:"delegate,omitempty"`
	DelegatorCount int    `json:"delegatorCount"`
	EffectivePower string `json:"effectivePower"`
}

// GetAccount returns an account's balance and delegation view.
func (s *Service) GetAccount(_ *http.Request, args *GetAccountArgs, reply *GetAccountReply) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "getAccount"),
	)
	address, err := parseAddress(args.Address)
	if err != nil {
		return err
	}
	reply.Balance = s.node.BalanceOf(address).Dec()
	if delegate, ok := s.node.DelegateOf(address); ok {
		reply.Delegate = delegate.String()
	}
	reply.DelegatorCount = len(s.node.DelegatorsOf(address))
	reply.EffectivePower = s.node.EffectiveVotingPower(address).Dec()
	return nil
}

type GetSupplyReply struct {
	Supply string `json:"supply"`
}

func (s *Service) GetSupply(_ *http.Request, _ *struct{}, reply *GetSupplyReply) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "getSupply"),
	)
	reply.Supply = s.node.TotalSupply().Dec()
	return nil
}

/*
 ******************************************************************************
 ********************************** Treasury **********************************
 ******************************************************************************
 */

type DepositArgs struct {
	From   string `json:"from"`
	Amount string `json:"amount"`
}

func (s *Service) Deposit(_ *http.Request, args *DepositArgs, _ *struct{}) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "deposit"),
	)
	from, err := parseAddress(args.From)
	if err != nil {
		return err
	}
	amount, err := parseAmount(args.Amount)
	if err != nil {
		return err
	}
	return s.node.Deposit(from, amount)
}

type RedeemArgs struct {
	Holder string `json:"holder"`
	// Amount is optional; omitting it redeems the full balance.
	Amount string `json:"amount,omitempty"`
}

type RedeemReply struct {
	Amount string `json:"amount"`
	Payout string `json:"payout"`
	Full   bool   `json:"full"`
}

func (s *Service) Redeem(_ *http.Request, args *RedeemArgs, reply *RedeemReply) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "redeem"),
	)
	holder, err := parseAddress(args.Holder)
	if err != nil {
		return err
	}
	if args.Amount == "" {
		redemption, err := s.node.RedeemAll(holder)
		if err != nil {
			return err
		}
		reply.Amount = redemption.Amount.Dec()
		reply.Payout = redemption.Payout.Dec()
		reply.Full = redemption.Full
		return nil
	}
	amount, err := parseAmount(args.Amount)
	if err != nil {
		return err
	}
	redemption, err := s.node.Redeem(holder, amount)
	if err != nil {
		return err
	}
	reply.Amount = redemption.Amount.Dec()
	reply.Payout = redemption.Payout.Dec()
	reply.Full = redemption.Full
	return nil
}

type GetReserveReply struct {
	Reserve    string      `json:"reserve"`
	NAV        string      `json:"nav"`
	FeeRevenue string      `json:"feeRevenue"`
	HaircutBps json.Uint64 `json:"haircutBps"`
}

func (s *Service) GetReserve(_ *http.Request, _ *struct{}, reply *GetReserveReply) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "getReserve"),
	)
	reply.Reserve = s.node.Reserve().Dec()
	reply.NAV = s.node.NAV().Dec()
	reply.FeeRevenue = s.node.FeeRevenue().Dec()
	reply.HaircutBps = json.Uint64(s.node.HaircutBps())
	return nil
}

type GetPayoutArgs struct {
	Address string `json:"address"`
}

type GetPayoutReply struct {
	Payout string `json:"payout"`
}

func (s *Service) GetPayout(_ *http.Request, args *GetPayoutArgs, reply *GetPayoutReply) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "getPayout"),
	)
	address, err := parseAddress(args.Address)
	if err != nil {
		return err
	}
	reply.Payout = s.node.PayoutBalance(address).Dec()
	return nil
}

/*
 ******************************************************************************
 ********************************* Governance *********************************
 ******************************************************************************
 */

type ProposeArgs struct {
	Proposer    string      `json:"proposer"`
	ImpactBps   json.Uint64 `json:"impactBps"`
	Recipient   string      `json:"recipient"`
	Description string      `json:"description"`
}

type ProposeReply struct {
	ProposalID json.Uint64 `json:"proposalID"`
	Stake      string      `json:"stake"`
	EndTime    int64       `json:"endTime"`
}

func (s *Service) Propose(_ *http.Request, args *ProposeArgs, reply *ProposeReply) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "propose"),
	)
	proposer, err := parseAddress(args.Proposer)
	if err != nil {
		return err
	}
	recipient, err := parseAddress(args.Recipient)
	if err != nil {
		return err
	}
	p, err := s.node.Propose(proposer, uint64(args.ImpactBps), recipient, args.Description)
	if err != nil {
		return err
	}
	reply.ProposalID = json.Uint64(p.ID)
	reply.Stake = p.Stake.Dec()
	reply.EndTime = p.EndTime.Unix()
	return nil
}

type DissentArgs struct {
	Caller     string      `json:"caller"`
	ProposalID json.Uint64 `json:"proposalID"`
}

type DissentReply struct {
	WeightBps json.Uint64 `json:"weightBps"`
}

func (s *Service) Veto(_ *http.Request, args *DissentArgs, reply *DissentReply) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "veto"),
	)
	caller, err := parseAddress(args.Caller)
	if err != nil {
		return err
	}
	entry, err := s.node.Veto(caller, uint64(args.ProposalID))
	if err != nil {
		return err
	}
	reply.WeightBps = json.Uint64(entry.WeightBps)
	return nil
}

func (s *Service) RequestRework(_ *http.Request, args *DissentArgs, reply *DissentReply) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "requestRework"),
	)
	caller, err := parseAddress(args.Caller)
	if err != nil {
		return err
	}
	entry, err := s.node.RequestRework(caller, uint64(args.ProposalID))
	if err != nil {
		return err
	}
	reply.WeightBps = json.Uint64(entry.WeightBps)
	return nil
}

type DelegateDissentReply struct {
	Delegators     int         `json:"delegators"`
	TotalWeightBps json.Uint64 `json:"totalWeightBps"`
}

func (s *Service) DelegateVeto(_ *http.Request, args *DissentArgs, reply *DelegateDissentReply) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "delegateVeto"),
	)
	caller, err := parseAddress(args.Caller)
	if err != nil {
		return err
	}
	entries, err := s.node.DelegateVeto(caller, uint64(args.ProposalID))
	if err != nil {
		return err
	}
	reply.Delegators = len(entries)
	for _, entry := range entries {
		reply.TotalWeightBps += json.Uint64(entry.WeightBps)
	}
	return nil
}

func (s *Service) DelegateRework(_ *http.Request, args *DissentArgs, reply *DelegateDissentReply) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "delegateRework"),
	)
	caller, err := parseAddress(args.Caller)
	if err != nil {
		return err
	}
	entries, err := s.node.DelegateRework(caller, uint64(args.ProposalID))
	if err != nil {
		return err
	}
	reply.Delegators = len(entries)
	for _, entry := range entries {
		reply.TotalWeightBps += json.Uint64(entry.WeightBps)
	}
	return nil
}

type ResolveArgs struct {
	ProposalID json.Uint64 `json:"proposalID"`
}

type ResolveReply struct {
	Outcome        string      `json:"outcome"`
	ThresholdBps   json.Uint64 `json:"thresholdBps"`
	FailDissentBps json.Uint64 `json:"failDissentBps"`
	Disbursed      string      `json:"disbursed,omitempty"`
	Slashed        string      `json:"slashed,omitempty"`
}

func (s *Service) Resolve(_ *http.Request, args *ResolveArgs, reply *ResolveReply) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "resolve"),
	)
	outcome, err := s.node.Resolve(uint64(args.ProposalID))
	if err != nil {
		return err
	}
	reply.Outcome = outcome.Status.String()
	reply.ThresholdBps = json.Uint64(outcome.ThresholdBps)
	reply.FailDissentBps = json.Uint64(outcome.FailDissentBps)
	if outcome.Disbursed != nil {
		reply.Disbursed = outcome.Disbursed.Dec()
	}
	if outcome.Slashed != nil {
		reply.Slashed = outcome.Slashed.Dec()
	}
	return nil
}

type SubmitReworkArgs struct {
	Caller      string      `json:"caller"`
	ProposalID  json.Uint64 `json:"proposalID"`
	ImpactBps   json.Uint64 `json:"impactBps"`
	Description string      `json:"description"`
}

func (s *Service) SubmitRework(_ *http.Request, args *SubmitReworkArgs, reply *ProposeReply) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "submitRework"),
	)
	caller, err := parseAddress(args.Caller)
	if err != nil {
		return err
	}
	p, err := s.node.SubmitRework(caller, uint64(args.ProposalID), uint64(args.ImpactBps), args.Description)
	if err != nil {
		return err
	}
	reply.ProposalID = json.Uint64(p.ID)
	reply.Stake = p.Stake.Dec()
	reply.EndTime = p.EndTime.Unix()
	return nil
}

type GetProposalArgs struct {
	// ProposalID is optional; omitting it returns the proposal currently
	// occupying the single-flight slot.
	ProposalID json.Uint64 `json:"proposalID,omitempty"`
}

type GetProposalReply struct {
	ProposalID  json.Uint64 `json:"proposalID"`
	Proposer    string      `json:"proposer"`
	Recipient   string      `json:"recipient"`
	ImpactBps   json.Uint64 `json:"impactBps"`
	Description string      `json:"description"`
	Stake       string      `json:"stake"`

	StartTime int64 `json:"startTime"`
	EndTime   int64 `json:"endTime"`

	Status      string `json:"status"`
	ReworkCount uint8  `json:"reworkCount"`

	VetoWeightBps          json.Uint64 `json:"vetoWeightBps"`
	ReworkWeightBps        json.Uint64 `json:"reworkWeightBps"`
	PartialRedeemWeightBps json.Uint64 `json:"partialRedeemWeightBps"`
	FullRedeemWeightBps    json.Uint64 `json:"fullRedeemWeightBps"`

	SupplySnapshot   string      `json:"supplySnapshot"`
	ConcentrationBps json.Uint64 `json:"concentrationBps"`
}

func (s *Service) GetProposal(_ *http.Request, args *GetProposalArgs, reply *GetProposalReply) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "getProposal"),
	)
	var (
		p  *governance.Proposal
		ok bool
	)
	if args.ProposalID == 0 {
		p, ok = s.node.ActiveProposal()
	} else {
		p, ok = s.node.GetProposal(uint64(args.ProposalID))
	}
	if !ok {
		return governance.ErrNoSuchProposal
	}

	reply.ProposalID = json.Uint64(p.ID)
	reply.Proposer = p.Proposer.String()
	reply.Recipient = p.Recipient.String()
	reply.ImpactBps = json.Uint64(p.ImpactBps)
	reply.Description = p.Description
	reply.Stake = p.Stake.Dec()
	reply.StartTime = p.StartTime.Unix()
	reply.EndTime = p.EndTime.Unix()
	reply.Status = p.Status.String()
	reply.ReworkCount = p.ReworkCount
	reply.VetoWeightBps = json.Uint64(p.VetoWeightBps)
	reply.ReworkWeightBps = json.Uint64(p.ReworkWeightBps)
	reply.PartialRedeemWeightBps = json.Uint64(p.PartialRedeemWeightBps)
	reply.FullRedeemWeightBps = json.Uint64(p.FullRedeemWeightBps)
	reply.SupplySnapshot = p.SupplySnapshot.Dec()
	reply.ConcentrationBps = json.Uint64(p.ConcentrationBps)
	return nil
}

/*
 ******************************************************************************
 *********************************** Admin ************************************
 ******************************************************************************
 */

type SetHaircutArgs struct {
	Caller     string      `json:"caller"`
	HaircutBps json.Uint64 `json:"haircutBps"`
}

func (s *Service) SetHaircut(_ *http.Request, args *SetHaircutArgs, _ *struct{}) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "setHaircut"),
	)
	caller, err := parseAddress(args.Caller)
	if err != nil {
		return err
	}
	return s.node.SetHaircut(caller, uint64(args.HaircutBps))
}

type SetTopHoldersArgs struct {
	Caller  string   `json:"caller"`
	Holders []string `json:"holders"`
}

func (s *Service) SetTopHolders(_ *http.Request, args *SetTopHoldersArgs, _ *struct{}) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "setTopHolders"),
	)
	caller, err := parseAddress(args.Caller)
	if err != nil {
		return err
	}
	holders := make([]ids.ShortID, 0, len(args.Holders))
	for _, holder := range args.Holders {
		id, err := parseAddress(holder)
		if err != nil {
			return err
		}
		holders = append(holders, id)
	}
	return s.node.SetTopHolders(caller, holders)
}

type GetTopHoldersReply struct {
	Holders []string `json:"holders"`
}

func (s *Service) GetTopHolders(_ *http.Request, _ *struct{}, reply *GetTopHoldersReply) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "getTopHolders"),
	)
	holders := s.node.TopHolders()
	reply.Holders = make([]string, len(holders))
	for i, holder := range holders {
		reply.Holders[i] = holder.String()
	}
	return nil
}

type PauseArgs struct {
	Caller string `json:"caller"`
}

func (s *Service) Pause(_ *http.Request, args *PauseArgs, _ *struct{}) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "pause"),
	)
	caller, err := parseAddress(args.Caller)
	if err != nil {
		return err
	}
	return s.node.Pause(caller)
}

func (s *Service) Unpause(_ *http.Request, args *PauseArgs, _ *struct{}) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "unpause"),
	)
	caller, err := parseAddress(args.Caller)
	if err != nil {
		return err
	}
	return s.node.Unpause(caller)
}

/*
 ******************************************************************************
 ********************************* Directory **********************************
 ******************************************************************************
 */

type DelegateProfileArgs struct {
	Delegate string `json:"delegate"`
	Name     string `json:"name"`
	Contact  string `json:"contact"`
	Bio      string `json:"bio"`
}

func (s *Service) RegisterDelegate(_ *http.Request, args *DelegateProfileArgs, _ *struct{}) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "registerDelegate"),
	)
	delegate, err := parseAddress(args.Delegate)
	if err != nil {
		return err
	}
	_, err = s.node.RegisterDelegate(delegate, args.Name, args.Contact, args.Bio)
	return err
}

func (s *Service) UpdateDelegate(_ *http.Request, args *DelegateProfileArgs, _ *struct{}) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "updateDelegate"),
	)
	delegate, err := parseAddress(args.Delegate)
	if err != nil {
		return err
	}
	_, err = s.node.UpdateDelegate(delegate, args.Name, args.Contact, args.Bio)
	return err
}

type GetDelegateArgs struct {
	Delegate string `json:"delegate"`
}

type DelegateReply struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Bio     string `json:"bio"`

	RegisteredAt   int64       `json:"registeredAt"`
	VetoBatches    json.Uint64 `json:"vetoBatches"`
	ReworkBatches  json.Uint64 `json:"reworkBatches"`
	LastProposalID json.Uint64 `json:"lastProposalID"`
}

func (s *Service) GetDelegate(_ *http.Request, args *GetDelegateArgs, reply *DelegateReply) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "getDelegate"),
	)
	delegate, err := parseAddress(args.Delegate)
	if err != nil {
		return err
	}
	profile, err := s.node.GetDelegate(delegate)
	if err != nil {
		return err
	}
	reply.Name = profile.Name
	reply.Contact = profile.Contact
	reply.Bio = profile.Bio
	reply.RegisteredAt = profile.RegisteredAt
	reply.VetoBatches = json.Uint64(profile.VetoBatches)
	reply.ReworkBatches = json.Uint64(profile.ReworkBatches)
	reply.LastProposalID = json.Uint64(profile.LastProposalID)
	return nil
}

type ListDelegatesReply struct {
	Delegates []string `json:"delegates"`
}

func (s *Service) ListDelegates(_ *http.Request, _ *struct{}, reply *ListDelegatesReply) error {
	s.node.log.Debug("API called",
		log.String("service", "govern"),
		log.String("method", "listDelegates"),
	)
	delegates, _, err := s.node.ListDelegates()
	if err != nil {
		return err
	}
	reply.Delegates = make([]string, len(delegates))
	for i, delegate := range delegates {
		reply.Delegates[i] = delegate.String()
	}
	return nil
}
