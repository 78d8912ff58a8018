// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package sched selects the proposer of record for a block number.
//
// Both policies are pure functions of public state (the candidate snapshot
// and the block number), so every honest node computes the same proposer
// without communication.
package sched

import (
	"errors"

	"github.com/merklith/merklith/merklith"
)

// ErrNoProposer is returned when the candidate list holds no active validator.
var ErrNoProposer = errors.New("no proposer available")

// Candidate is one validator in the rotation order, paired with its
// contribution total. The slice order must be the registry insertion order.
type Candidate struct {
	Address      merklith.Address
	Active       bool
	Contribution uint64
}

// Select picks the proposer for the block number: contribution-weighted when
// any contribution data exists, deterministic rotation otherwise (bootstrap).
func Select(candidates []Candidate, blockNumber uint64) (merklith.Address, error) {
	var total uint64
	for i := range candidates {
		if candidates[i].Active {
			total += candidates[i].Contribution
		}
	}
	if total == 0 {
		return RoundRobin(candidates, blockNumber)
	}
	return Weighted(candidates, blockNumber, total)
}

// RoundRobin returns candidates[blockNumber mod len]. If the selected slot
// names an inactive validator, the rotation order is scanned forward until an
// active one is found.
func RoundRobin(candidates []Candidate, blockNumber uint64) (merklith.Address, error) {
	n := uint64(len(candidates))
	if n == 0 {
		return merklith.Address{}, ErrNoProposer
	}

	index := blockNumber % n
	for i := uint64(0); i < n; i++ {
		c := &candidates[(index+i)%n]
		if c.Active {
			return c.Address, nil
		}
	}
	return merklith.Address{}, ErrNoProposer
}

// Weighted walks the active candidates accumulating contribution totals until
// the running sum exceeds blockNumber mod total, giving higher-scoring
// validators proportionally more proposal slots.
func Weighted(candidates []Candidate, blockNumber uint64, total uint64) (merklith.Address, error) {
	if total == 0 {
		return RoundRobin(candidates, blockNumber)
	}

	target := blockNumber % total
	var cumulative uint64
	for i := range candidates {
		if !candidates[i].Active {
			continue
		}
		cumulative += candidates[i].Contribution
		if cumulative > target {
			return candidates[i].Address, nil
		}
	}
	return merklith.Address{}, ErrNoProposer
}
