// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package consensus

import "errors"

var (
	// ErrInvalidSignature the signature does not recover to the sender's
	// registered public key.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrUnknownValidator the sender is not in the registry.
	ErrUnknownValidator = errors.New("unknown validator")

	// ErrNotActive the sender is registered but cannot participate.
	ErrNotActive = errors.New("validator not active")

	// ErrUnknownProposal the vote references no retained proposal.
	ErrUnknownProposal = errors.New("unknown proposal")

	// ErrStale the message refers to a block at or below the finalized
	// boundary.
	ErrStale = errors.New("stale message")

	// ErrDoubleProposal a second, conflicting proposal by the same
	// validator for the same block number. The offender is slashed before
	// this is returned.
	ErrDoubleProposal = errors.New("double proposal")
)
