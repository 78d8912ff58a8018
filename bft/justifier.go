// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bft

import (
	"math/big"

	"github.com/merklith/merklith/merklith"
)

// justifier tracks all finality votes in one round and justifies the round.
// The accumulated weight is a function of the set of votes, not their
// sequence, so finality is order independent.
type justifier struct {
	blockNumber uint64

	votes  map[merklith.Address]*Vote
	weight *big.Int
}

func newJustifier(blockNumber uint64) *justifier {
	return &justifier{
		blockNumber: blockNumber,
		votes:       make(map[merklith.Address]*Vote),
		weight:      new(big.Int),
	}
}

// addVote adds a new vote to the round.
// An exact duplicate never changes the accumulated weight. A second vote for
// a different hash is reported as double signing.
func (js *justifier) addVote(vote *Vote, power *big.Int) error {
	if prev, ok := js.votes[vote.Signer]; ok {
		if prev.BlockHash == vote.BlockHash {
			return ErrAlreadyVoted
		}
		return ErrDoubleSign
	}

	js.votes[vote.Signer] = vote
	js.weight.Add(js.weight, power)
	return nil
}

// summarize reports whether the accumulated weight has crossed the threshold
// for votes matching blockHash.
func (js *justifier) summarize(threshold *big.Int) bool {
	return js.weight.Cmp(threshold) >= 0
}

// justification snapshots the round into an immutable finality proof.
func (js *justifier) justification(blockHash merklith.Bytes32, now uint64) *Justification {
	votes := make([]Vote, 0, len(js.votes))
	for _, v := range js.votes {
		votes = append(votes, *v)
	}
	return &Justification{
		BlockNumber: js.blockNumber,
		BlockHash:   blockHash,
		Votes:       votes,
		TotalPower:  new(big.Int).Set(js.weight),
		Timestamp:   now,
	}
}
