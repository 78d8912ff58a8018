// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bft

import (
	"errors"
	"math/big"

	"github.com/merklith/merklith/merklith"
)

var (
	// ErrFinalized rejects attestations on an already-final block number.
	// Finality is a one-way transition, there is no re-finalization and no
	// rollback.
	ErrFinalized = errors.New("block number already finalized")

	// ErrAlreadyVoted rejects an exact duplicate of an earlier vote.
	ErrAlreadyVoted = errors.New("already voted")

	// ErrDoubleSign marks a second, conflicting vote from the same signer in
	// the same round. Callers escalate it to the slashing module.
	ErrDoubleSign = errors.New("double signing detected")
)

// Vote is one finality vote (attestation) on a block.
type Vote struct {
	BlockNumber uint64
	BlockHash   merklith.Bytes32
	Signer      merklith.Address
	Timestamp   uint64
	Signature   []byte
}

// SigningHash returns the digest the vote signature commits to.
func (v *Vote) SigningHash() merklith.Bytes32 {
	var num [8]byte
	for i := 0; i < 8; i++ {
		num[i] = byte(v.BlockNumber >> (56 - 8*i))
	}
	return merklith.Blake2b(num[:], v.BlockHash.Bytes(), v.Signer.Bytes())
}

// Justification is the finality proof for one block: the full vote set that
// contributed and the cumulative voting power it represents. Once stored for
// a block number the entry is immutable.
type Justification struct {
	BlockNumber uint64
	BlockHash   merklith.Bytes32
	Votes       []Vote
	TotalPower  *big.Int
	Timestamp   uint64
}
