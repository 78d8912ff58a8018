// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package consensus assembles the proof-of-contribution core: the validator
// registry, the contribution tracker, proposer selection, the proposal/vote
// ledger, the finality gadget, slashing and the epoch manager, behind one
// engine facade. The engine owns the cross-table sequencing (verify, then
// record, then evaluate); each table keeps its own lock.
package consensus

import (
	"bytes"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/merklith/merklith/bft"
	"github.com/merklith/merklith/cache"
	"github.com/merklith/merklith/epoch"
	"github.com/merklith/merklith/log"
	"github.com/merklith/merklith/merklith"
	"github.com/merklith/merklith/poc"
	"github.com/merklith/merklith/proposal"
	"github.com/merklith/merklith/sched"
	"github.com/merklith/merklith/slashing"
	"github.com/merklith/merklith/validator"
)

var logger = log.WithContext("pkg", "consensus")

const sigCacheSize = 1024

// RewardFunc is notified exactly once per finalized block, after the reward
// has been accrued to the proposer's registry record.
type RewardFunc func(proposer merklith.Address, blockNumber uint64, amount *big.Int)

// Stats is a point-in-time summary of the consensus state.
type Stats struct {
	Epoch              uint64
	ActiveValidators   int
	TotalValidators    int
	TotalStake         *big.Int
	TotalVotingPower   *big.Int
	LastFinalized      uint64
	TotalContributions uint64
	SlashingEvents     int

	// configured finality fraction
	SafetyThresholdNum   uint64
	SafetyThresholdDenom uint64
}

// Engine is the consensus facade. Every inbound message passes signature
// verification against the sender's registered key before touching any
// table. Safe for concurrent use.
type Engine struct {
	reg      *validator.Registry
	tracker  *poc.Tracker
	pool     *proposal.Pool
	finality *bft.Engine
	slasher  *slashing.Slasher
	epoch    *epoch.Manager

	sigCache *cache.LRU[merklith.Bytes32, []byte]

	rewardFn    RewardFunc
	blockReward *big.Int

	// credited guards the once-per-block finalization side effects
	// (proposer credit, reward accrual). bft.CheckFinality itself is
	// idempotent and may report true repeatedly.
	creditedLock sync.Mutex
	credited     map[uint64]bool
}

// New creates an engine with an empty validator set.
func New() *Engine {
	reg := validator.NewRegistry()
	tracker := poc.NewTracker()
	sigCache, _ := cache.NewLRU[merklith.Bytes32, []byte](sigCacheSize)

	en := &Engine{
		reg:         reg,
		tracker:     tracker,
		pool:        proposal.NewPool(),
		slasher:     slashing.NewSlasher(reg),
		epoch:       epoch.NewManager(reg, tracker),
		sigCache:    sigCache,
		blockReward: merklith.BlockReward,
		credited:    make(map[uint64]bool),
	}
	en.finality = bft.NewEngine(en.TotalVotingPower)
	return en
}

// OnReward installs the finalization reward callback. Must be set before the
// engine starts processing votes.
func (en *Engine) OnReward(fn RewardFunc) {
	en.rewardFn = fn
}

// Registry returns the underlying validator registry.
func (en *Engine) Registry() *validator.Registry { return en.reg }

// Tracker returns the underlying contribution tracker.
func (en *Engine) Tracker() *poc.Tracker { return en.tracker }

// Validator returns a copy of one validator record.
func (en *Engine) Validator(addr merklith.Address) (*validator.Validator, error) {
	return en.reg.Get(addr)
}

// ValidatorSet returns copies of every registered validator in
// registration order.
func (en *Engine) ValidatorSet() []*validator.Validator {
	return en.reg.All()
}

// RegisterValidator admits a new validator with the given stake and
// secp256k1 public key.
func (en *Engine) RegisterValidator(addr merklith.Address, stake *big.Int, pubKey []byte, now uint64) error {
	return en.reg.Register(addr, stake, pubKey, now)
}

// BeginUnbond starts the unbonding countdown for an active validator.
func (en *Engine) BeginUnbond(addr merklith.Address, now uint64) error {
	return en.reg.BeginUnbond(addr, now)
}

// CompleteUnbond releases an unbonding validator once the period elapsed.
func (en *Engine) CompleteUnbond(addr merklith.Address, now uint64) error {
	return en.reg.CompleteUnbond(addr, now)
}

// SelectProposer returns the proposer of record for the block number,
// computed over a consistent snapshot of the registry and the tracker.
func (en *Engine) SelectProposer(blockNumber uint64) (merklith.Address, error) {
	vals := en.reg.All()
	candidates := make([]sched.Candidate, 0, len(vals))
	for _, val := range vals {
		candidates = append(candidates, sched.Candidate{
			Address:      val.Address,
			Active:       val.IsActive(),
			Contribution: en.tracker.Total(val.Address),
		})
	}
	return sched.Select(candidates, blockNumber)
}

// SubmitProposal admits a signed block proposal into the ledger. A second,
// conflicting proposal for the same number slashes the proposer and is
// rejected with ErrDoubleProposal.
func (en *Engine) SubmitProposal(prop *proposal.Proposal, now uint64) error {
	val, err := en.reg.Get(prop.Proposer)
	if err != nil {
		return ErrUnknownValidator
	}
	if !val.IsActive() {
		return ErrNotActive
	}
	if !en.verifySig(prop.SigningHash(), prop.Signature, val.PublicKey) {
		return ErrInvalidSignature
	}
	if en.finality.IsFinal(prop.Number) {
		return ErrStale
	}

	if en.slasher.CheckProposal(prop.Proposer, prop.Number, prop.Hash) {
		if _, err := en.slasher.Slash(prop.Proposer, slashing.DoubleProposal, prop.Number, now); err != nil {
			logger.Error("slash failed", "addr", prop.Proposer, "err", err)
		}
		return ErrDoubleProposal
	}

	if displaced := en.pool.Add(prop); displaced {
		logger.Debug("proposal displaced", "number", prop.Number, "hash", prop.Hash)
	}
	metricProposals().Add(1)
	return nil
}

// SubmitVote records a signed ledger vote on a pending proposal, weighted by
// the voter's current voting power. Returns the proposal status after the
// vote is applied.
func (en *Engine) SubmitVote(vote *proposal.Vote, now uint64) (proposal.Status, error) {
	val, err := en.reg.Get(vote.Voter)
	if err != nil {
		return 0, ErrUnknownValidator
	}
	if !val.IsActive() {
		return 0, ErrNotActive
	}
	if !en.verifySig(vote.SigningHash(), vote.Signature, val.PublicKey) {
		return 0, ErrInvalidSignature
	}

	power := val.VotingPower(en.tracker.Total(vote.Voter))
	status, err := en.pool.AddVote(vote, power, en.TotalVotingPower())
	if err != nil {
		if errors.Is(err, proposal.ErrNotFound) {
			return 0, ErrUnknownProposal
		}
		return status, err
	}
	metricVotes().Add(1)
	return status, nil
}

// SubmitFinalityVote folds a signed attestation into the finality round for
// its block number and evaluates finality. The attestation earns the signer
// a contribution credit; a conflicting second vote slashes the signer.
// Returns whether the block is final after this vote.
func (en *Engine) SubmitFinalityVote(vote *bft.Vote, now uint64) (bool, error) {
	val, err := en.reg.Get(vote.Signer)
	if err != nil {
		return false, ErrUnknownValidator
	}
	if !val.IsActive() {
		return false, ErrNotActive
	}
	if !en.verifySig(vote.SigningHash(), vote.Signature, val.PublicKey) {
		return false, ErrInvalidSignature
	}

	power := val.VotingPower(en.tracker.Total(vote.Signer))
	if err := en.finality.AddVote(vote, power); err != nil {
		if errors.Is(err, bft.ErrDoubleSign) {
			if _, serr := en.slasher.Slash(vote.Signer, slashing.DoubleSign, vote.BlockNumber, now); serr != nil {
				logger.Error("slash failed", "addr", vote.Signer, "err", serr)
			}
		}
		return en.finality.IsFinal(vote.BlockNumber), err
	}

	en.tracker.Record(poc.Contribution{
		Contributor: vote.Signer,
		Category:    poc.Attestation,
		Weight:      merklith.WeightAttestation,
		BlockNumber: vote.BlockNumber,
		Timestamp:   now,
	})
	metricVotes().Add(1)

	if !en.finality.CheckFinality(vote.BlockNumber, vote.BlockHash) {
		return false, nil
	}
	en.finalize(vote.BlockNumber, vote.BlockHash, now)
	return true, nil
}

// finalize applies the once-per-block finalization side effects: the ledger
// transition, the proposer production credit and the block reward.
func (en *Engine) finalize(blockNumber uint64, blockHash merklith.Bytes32, now uint64) {
	en.creditedLock.Lock()
	if en.credited[blockNumber] {
		en.creditedLock.Unlock()
		return
	}
	en.credited[blockNumber] = true
	en.creditedLock.Unlock()

	prop, err := en.pool.Current(blockNumber)
	if err != nil || prop.Hash != blockHash {
		// finalized through attestations alone, no retained proposal
		return
	}

	if err := en.pool.MarkFinalized(prop.Hash); err != nil {
		logger.Error("ledger finalize failed", "hash", prop.Hash, "err", err)
	}
	en.reg.MarkProduced(prop.Proposer, blockNumber)
	en.tracker.Record(poc.Contribution{
		Contributor: prop.Proposer,
		Category:    poc.BlockProduction,
		Weight:      merklith.WeightBlockProduction,
		BlockNumber: blockNumber,
		Timestamp:   now,
	})
	if err := en.reg.AddReward(prop.Proposer, en.blockReward); err != nil {
		logger.Error("reward accrual failed", "addr", prop.Proposer, "err", err)
		return
	}
	if en.rewardFn != nil {
		en.rewardFn(prop.Proposer, blockNumber, new(big.Int).Set(en.blockReward))
	}
}

// RecordContribution credits an observed contribution at its canonical
// weight. The contributor must be registered.
func (en *Engine) RecordContribution(addr merklith.Address, category poc.Category, blockNumber, now uint64) error {
	if !en.reg.Contains(addr) {
		return ErrUnknownValidator
	}
	en.tracker.Record(poc.Contribution{
		Contributor: addr,
		Category:    category,
		Weight:      CategoryWeight(category),
		BlockNumber: blockNumber,
		Timestamp:   now,
	})
	metricContributions().AddWithLabel(1, map[string]string{"category": category.String()})
	return nil
}

// CategoryWeight returns the canonical weight of one contribution event.
func CategoryWeight(category poc.Category) uint64 {
	switch category {
	case poc.BlockProduction:
		return merklith.WeightBlockProduction
	case poc.Attestation:
		return merklith.WeightAttestation
	case poc.TxRelay:
		return merklith.WeightTxRelay
	case poc.PeerDiscovery:
		return merklith.WeightPeerDiscovery
	case poc.DataAvailability:
		return merklith.WeightDataAvailability
	default:
		return 0
	}
}

// ReportViolation slashes the offender for the given violation.
func (en *Engine) ReportViolation(offender merklith.Address, violation slashing.Violation, blockNumber, now uint64) (*big.Int, error) {
	return en.slasher.Slash(offender, violation, blockNumber, now)
}

// AdvanceEpoch moves to the next epoch, decaying scores and reconciling the
// active set.
func (en *Engine) AdvanceEpoch(currentBlock uint64) epoch.Result {
	return en.epoch.Advance(currentBlock)
}

// Epoch returns the current epoch number.
func (en *Engine) Epoch() uint64 { return en.epoch.Number() }

// IsFinalized returns whether the block number is final.
func (en *Engine) IsFinalized(blockNumber uint64) bool {
	return en.finality.IsFinal(blockNumber)
}

// Justification returns the finality proof for the block number.
func (en *Engine) Justification(blockNumber uint64) (*bft.Justification, bool) {
	return en.finality.Justification(blockNumber)
}

// ProposalStatus returns the life-cycle status of a retained proposal.
func (en *Engine) ProposalStatus(hash merklith.Bytes32) (proposal.Status, error) {
	_, status, err := en.pool.Get(hash)
	if err != nil {
		return 0, ErrUnknownProposal
	}
	return status, nil
}

// SlashingHistory returns the retained slashing events, oldest first.
func (en *Engine) SlashingHistory() []slashing.Event {
	return en.slasher.History()
}

// TotalVotingPower sums the voting power of the active set at current
// contribution scores.
func (en *Engine) TotalVotingPower() *big.Int {
	return en.reg.TotalVotingPower(en.tracker.Total)
}

// Prune drops evidence and open rounds older than the keep window. Finalized
// state is never pruned.
func (en *Engine) Prune(currentBlock, keepBlocks uint64) {
	en.finality.Prune(currentBlock, keepBlocks)
	en.slasher.Prune(currentBlock, keepBlocks)
	en.pool.Prune(currentBlock, keepBlocks)

	en.creditedLock.Lock()
	for number := range en.credited {
		if number+keepBlocks < currentBlock {
			delete(en.credited, number)
		}
	}
	en.creditedLock.Unlock()
}

// Stats returns a point-in-time summary across all tables.
func (en *Engine) Stats() Stats {
	last, _, _ := en.finality.LatestFinalized()
	num, denom := merklith.FinalityThreshold()
	return Stats{
		Epoch:                en.epoch.Number(),
		ActiveValidators:     en.reg.ActiveCount(),
		TotalValidators:      en.reg.Len(),
		TotalStake:           en.reg.TotalStake(),
		TotalVotingPower:     en.TotalVotingPower(),
		LastFinalized:        last,
		TotalContributions:   en.tracker.TotalContributions(),
		SlashingEvents:       len(en.slasher.History()),
		SafetyThresholdNum:   num,
		SafetyThresholdDenom: denom,
	}
}

// verifySig recovers the secp256k1 public key from the 65-byte signature
// over the digest and compares it with the registered key. Recovery results
// are cached by digest and signature.
func (en *Engine) verifySig(digest merklith.Bytes32, sig, pubKey []byte) bool {
	if len(sig) != 65 {
		return false
	}

	key := merklith.Blake2b(digest.Bytes(), sig)
	recovered, err := en.sigCache.GetOrLoad(key, func() ([]byte, error) {
		pub, err := crypto.SigToPub(digest.Bytes(), sig)
		if err != nil {
			return nil, errors.WithMessage(err, "recover signer")
		}
		return crypto.FromECDSAPub(pub), nil
	})
	if err != nil {
		return false
	}
	return bytes.Equal(recovered, pubKey)
}
