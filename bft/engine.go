// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bft

import (
	"math/big"
	"sync"
	"time"

	"github.com/merklith/merklith/log"
	"github.com/merklith/merklith/merklith"
)

var logger = log.WithContext("pkg", "bft")

// Engine aggregates finality votes per block number and declares blocks
// final once a quorum of total voting power is reached. Safe for concurrent
// use; rounds and the finalized map are guarded by one reader-writer lock
// scoped to this table only.
type Engine struct {
	lock sync.RWMutex

	rounds    map[uint64]*justifier
	finalized map[uint64]*Justification
	latest    uint64

	// totalPower supplies the total active voting power at evaluation time.
	totalPower func() *big.Int
}

// NewEngine creates a finality engine drawing the total active voting power
// from the supplied function at every evaluation.
func NewEngine(totalPower func() *big.Int) *Engine {
	return &Engine{
		rounds:     make(map[uint64]*justifier),
		finalized:  make(map[uint64]*Justification),
		totalPower: totalPower,
	}
}

// AddVote folds a finality vote into the round for its block number.
// Votes on an already-finalized number are rejected with ErrFinalized.
// A conflicting second vote surfaces ErrDoubleSign for the caller to
// escalate.
func (e *Engine) AddVote(vote *Vote, power *big.Int) error {
	e.lock.Lock()
	defer e.lock.Unlock()

	if _, ok := e.finalized[vote.BlockNumber]; ok {
		return ErrFinalized
	}

	js, ok := e.rounds[vote.BlockNumber]
	if !ok {
		js = newJustifier(vote.BlockNumber)
		e.rounds[vote.BlockNumber] = js
	}
	return js.addVote(vote, power)
}

// threshold computes ceil(totalPower*num/denom).
func threshold(totalPower *big.Int) *big.Int {
	num, denom := merklith.FinalityThreshold()
	t := new(big.Int).Mul(totalPower, new(big.Int).SetUint64(num))
	t.Add(t, new(big.Int).SetUint64(denom-1))
	return t.Div(t, new(big.Int).SetUint64(denom))
}

// CheckFinality declares the block final iff the round's accumulated voting
// power has reached the threshold. Idempotent: once a block number is in the
// finalized map, subsequent calls return true without re-evaluating.
func (e *Engine) CheckFinality(blockNumber uint64, blockHash merklith.Bytes32) bool {
	e.lock.Lock()
	defer e.lock.Unlock()

	if _, ok := e.finalized[blockNumber]; ok {
		return true
	}

	js, ok := e.rounds[blockNumber]
	if !ok {
		return false
	}

	total := e.totalPower()
	if total.Sign() == 0 || !js.summarize(threshold(total)) {
		return false
	}

	jc := js.justification(blockHash, uint64(time.Now().Unix()))
	e.finalized[blockNumber] = jc
	delete(e.rounds, blockNumber)
	if blockNumber > e.latest {
		e.latest = blockNumber
	}
	metricBlocksFinalized().Add(1)
	logger.Info("block finalized",
		"number", blockNumber, "hash", blockHash, "power", jc.TotalPower)
	return true
}

// IsFinal returns whether the block number has been finalized.
func (e *Engine) IsFinal(blockNumber uint64) bool {
	e.lock.RLock()
	defer e.lock.RUnlock()
	_, ok := e.finalized[blockNumber]
	return ok
}

// Justification returns the immutable finality proof for the block number.
func (e *Engine) Justification(blockNumber uint64) (*Justification, bool) {
	e.lock.RLock()
	defer e.lock.RUnlock()
	jc, ok := e.finalized[blockNumber]
	return jc, ok
}

// LatestFinalized returns the highest finalized block number and its hash.
func (e *Engine) LatestFinalized() (uint64, merklith.Bytes32, bool) {
	e.lock.RLock()
	defer e.lock.RUnlock()

	jc, ok := e.finalized[e.latest]
	if !ok {
		return 0, merklith.Bytes32{}, false
	}
	return e.latest, jc.BlockHash, true
}

// VoteCount returns the number of votes in the open round for the number.
func (e *Engine) VoteCount(blockNumber uint64) int {
	e.lock.RLock()
	defer e.lock.RUnlock()

	if js, ok := e.rounds[blockNumber]; ok {
		return len(js.votes)
	}
	return 0
}

// Prune drops open rounds older than the keep window. Finalized entries are
// never pruned.
func (e *Engine) Prune(currentBlock, keepBlocks uint64) {
	e.lock.Lock()
	defer e.lock.Unlock()

	for number := range e.rounds {
		if number+keepBlocks < currentBlock {
			delete(e.rounds, number)
		}
	}
}
