// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package proposal

import (
	"encoding/binary"
	"io"

	"github.com/merklith/merklith/merklith"
)

// Status is the life-cycle state of a proposal.
type Status byte

const (
	StatusPending Status = iota
	StatusAccepted
	StatusRejected
	StatusFinalized
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAccepted:
		return "accepted"
	case StatusRejected:
		return "rejected"
	case StatusFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Proposal is a signed block proposal.
type Proposal struct {
	Number     uint64
	Hash       merklith.Bytes32
	ParentHash merklith.Bytes32
	Proposer   merklith.Address
	Timestamp  uint64
	Signature  []byte
}

// SigningHash returns the digest the proposal signature commits to.
func (p *Proposal) SigningHash() merklith.Bytes32 {
	return merklith.Blake2bFn(func(w io.Writer) {
		var num [8]byte
		binary.BigEndian.PutUint64(num[:], p.Number)
		w.Write(num[:])
		w.Write(p.Hash.Bytes())
		w.Write(p.ParentHash.Bytes())
		w.Write(p.Proposer.Bytes())
		binary.BigEndian.PutUint64(num[:], p.Timestamp)
		w.Write(num[:])
	})
}

// VoteKind is the stance of a ledger vote.
type VoteKind byte

const (
	VoteFor VoteKind = iota
	VoteAgainst
	VoteAbstain
)

func (k VoteKind) String() string {
	switch k {
	case VoteFor:
		return "for"
	case VoteAgainst:
		return "against"
	case VoteAbstain:
		return "abstain"
	default:
		return "unknown"
	}
}

// Vote is a signed vote on one proposal.
type Vote struct {
	BlockHash merklith.Bytes32
	Voter     merklith.Address
	Kind      VoteKind
	Timestamp uint64
	Signature []byte
}

// SigningHash returns the digest the vote signature commits to.
func (v *Vote) SigningHash() merklith.Bytes32 {
	return merklith.Blake2b(v.BlockHash.Bytes(), v.Voter.Bytes(), []byte{byte(v.Kind)})
}
