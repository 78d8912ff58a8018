// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package proposal

import (
	"errors"
	"math/big"
	"sync"

	"github.com/merklith/merklith/log"
	"github.com/merklith/merklith/merklith"
)

var logger = log.WithContext("pkg", "proposal")

var (
	ErrNotFound     = errors.New("proposal not found")
	ErrAlreadyVoted = errors.New("already voted")
	ErrClosed       = errors.New("proposal no longer pending")
)

type entry struct {
	proposal *Proposal
	status   Status

	votes   map[merklith.Address]*Vote
	support *big.Int // accumulated voting power of 'for' voters
}

// Pool holds in-flight proposals and the votes cast on them. Only the most
// recent proposalWindow pending proposals are retained, evicted FIFO, to
// bound memory under adversarial proposal flooding. A later proposal for the
// same block number replaces consideration, but the replaced record is kept
// for evidence until it ages out of the window. Safe for concurrent use.
type Pool struct {
	lock sync.RWMutex

	entries map[merklith.Bytes32]*entry
	current map[uint64]merklith.Bytes32 // block number -> proposal under consideration
	fifo    []merklith.Bytes32          // pending admission order
	limit   int
}

// NewPool creates a pool retaining at most the configured pending window.
func NewPool() *Pool {
	return &Pool{
		entries: make(map[merklith.Bytes32]*entry),
		current: make(map[uint64]merklith.Bytes32),
		limit:   merklith.ProposalWindow(),
	}
}

// Add admits a proposal as pending and makes it the one under consideration
// for its block number. Returns whether an earlier proposal was displaced.
func (p *Pool) Add(prop *Proposal) (displaced bool) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if prev, ok := p.current[prop.Number]; ok && prev != prop.Hash {
		displaced = true
	}

	p.entries[prop.Hash] = &entry{
		proposal: prop,
		status:   StatusPending,
		votes:    make(map[merklith.Address]*Vote),
		support:  new(big.Int),
	}
	p.current[prop.Number] = prop.Hash
	p.fifo = append(p.fifo, prop.Hash)

	for len(p.fifo) > p.limit {
		oldest := p.fifo[0]
		p.fifo = p.fifo[1:]
		if e, ok := p.entries[oldest]; ok && e.status == StatusPending {
			delete(p.entries, oldest)
			if p.current[e.proposal.Number] == oldest {
				delete(p.current, e.proposal.Number)
			}
			logger.Debug("pending proposal evicted", "number", e.proposal.Number, "hash", oldest)
		}
	}
	return
}

// Get returns the proposal record and its status.
func (p *Pool) Get(hash merklith.Bytes32) (*Proposal, Status, error) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	e, ok := p.entries[hash]
	if !ok {
		return nil, 0, ErrNotFound
	}
	return e.proposal, e.status, nil
}

// Current returns the proposal under consideration for the block number.
func (p *Pool) Current(number uint64) (*Proposal, error) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	hash, ok := p.current[number]
	if !ok {
		return nil, ErrNotFound
	}
	return p.entries[hash].proposal, nil
}

// AddVote records a vote on a pending proposal. A second vote by the same
// voter is rejected with ErrAlreadyVoted and never changes the accumulated
// support. Each accepted 'for' vote adds the voter's power to the support
// figure; once support/totalPower reaches the finality threshold the
// proposal flips to accepted. Returns the resulting status.
func (p *Pool) AddVote(vote *Vote, power, totalPower *big.Int) (Status, error) {
	p.lock.Lock()
	defer p.lock.Unlock()

	e, ok := p.entries[vote.BlockHash]
	if !ok {
		return 0, ErrNotFound
	}
	if e.status != StatusPending {
		return e.status, ErrClosed
	}
	if _, ok := e.votes[vote.Voter]; ok {
		return e.status, ErrAlreadyVoted
	}

	e.votes[vote.Voter] = vote
	if vote.Kind == VoteFor {
		e.support.Add(e.support, power)
	}

	// support/total >= num/denom, rearranged to avoid division
	num, denom := merklith.FinalityThreshold()
	lhs := new(big.Int).Mul(e.support, new(big.Int).SetUint64(denom))
	rhs := new(big.Int).Mul(totalPower, new(big.Int).SetUint64(num))
	if totalPower.Sign() > 0 && lhs.Cmp(rhs) >= 0 {
		e.status = StatusAccepted
		logger.Debug("proposal accepted",
			"number", e.proposal.Number, "hash", vote.BlockHash, "support", e.support)
	}
	return e.status, nil
}

// Support returns the accumulated 'for' voting power and vote count.
func (p *Pool) Support(hash merklith.Bytes32) (*big.Int, int, error) {
	p.lock.RLock()
	defer p.lock.RUnlock()

	e, ok := p.entries[hash]
	if !ok {
		return nil, 0, ErrNotFound
	}
	return new(big.Int).Set(e.support), len(e.votes), nil
}

// HasVoted returns whether the voter already voted on the proposal.
func (p *Pool) HasVoted(hash merklith.Bytes32, voter merklith.Address) bool {
	p.lock.RLock()
	defer p.lock.RUnlock()

	if e, ok := p.entries[hash]; ok {
		_, voted := e.votes[voter]
		return voted
	}
	return false
}

// MarkFinalized transitions an accepted proposal to finalized.
func (p *Pool) MarkFinalized(hash merklith.Bytes32) error {
	return p.transition(hash, StatusFinalized)
}

// MarkRejected transitions a pending proposal to rejected.
func (p *Pool) MarkRejected(hash merklith.Bytes32) error {
	return p.transition(hash, StatusRejected)
}

func (p *Pool) transition(hash merklith.Bytes32, to Status) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	e, ok := p.entries[hash]
	if !ok {
		return ErrNotFound
	}
	e.status = to
	return nil
}

// Prune drops closed proposals older than the keep window. Without it every
// finalized block would leave one entry behind forever. Pending entries are
// left to the FIFO window.
func (p *Pool) Prune(currentBlock, keepBlocks uint64) {
	p.lock.Lock()
	defer p.lock.Unlock()

	for hash, e := range p.entries {
		if e.status == StatusPending {
			continue
		}
		if e.proposal.Number+keepBlocks < currentBlock {
			delete(p.entries, hash)
			if p.current[e.proposal.Number] == hash {
				delete(p.current, e.proposal.Number)
			}
		}
	}
}

// Len returns the number of retained proposals in any status.
func (p *Pool) Len() int {
	p.lock.RLock()
	defer p.lock.RUnlock()

	return len(p.entries)
}

// PendingLen returns the number of retained pending proposals.
func (p *Pool) PendingLen() int {
	p.lock.RLock()
	defer p.lock.RUnlock()

	n := 0
	for _, e := range p.entries {
		if e.status == StatusPending {
			n++
		}
	}
	return n
}
