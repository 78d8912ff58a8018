// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slashing

import (
	"math/big"
	"sync"

	"github.com/merklith/merklith/log"
	"github.com/merklith/merklith/merklith"
	"github.com/merklith/merklith/validator"
)

var logger = log.WithContext("pkg", "slashing")

type proposalKey struct {
	proposer merklith.Address
	number   uint64
}

// Slasher punishes misbehaving validators through the registry and keeps the
// capped slashing history. It also tracks seen proposals to detect a second,
// conflicting proposal for the same block number. Safe for concurrent use.
type Slasher struct {
	reg *validator.Registry

	lock      sync.RWMutex
	log       eventLog
	proposals map[proposalKey]merklith.Bytes32
}

// NewSlasher creates a slasher mutating the given registry.
func NewSlasher(reg *validator.Registry) *Slasher {
	return &Slasher{
		reg:       reg,
		proposals: make(map[proposalKey]merklith.Bytes32),
	}
}

// Slash burns the slash percentage of the offender's stake, records the
// event and recomputes the registry aggregates. The registry transitions the
// validator to jailed once its slash count crosses the jail threshold.
// Either the whole sequence completes or state is left untouched.
func (s *Slasher) Slash(offender merklith.Address, violation Violation, blockNumber, now uint64) (*big.Int, error) {
	burned, err := s.reg.ApplySlash(offender, violation.String())
	if err != nil {
		return nil, err
	}

	s.lock.Lock()
	s.log.append(Event{
		Timestamp:   now,
		Validator:   offender,
		Amount:      burned,
		Violation:   violation,
		BlockNumber: blockNumber,
	})
	s.lock.Unlock()

	metricSlashEvents().AddWithLabel(1, map[string]string{"violation": violation.String()})
	return burned, nil
}

// CheckProposal records a proposal and reports whether it conflicts with an
// earlier proposal by the same validator for the same block number.
func (s *Slasher) CheckProposal(proposer merklith.Address, blockNumber uint64, blockHash merklith.Bytes32) (conflict bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	key := proposalKey{proposer, blockNumber}
	if prev, ok := s.proposals[key]; ok && prev != blockHash {
		logger.Warn("double proposal detected",
			"proposer", proposer, "number", blockNumber, "prev", prev, "new", blockHash)
		return true
	}
	s.proposals[key] = blockHash
	return false
}

// History returns a copy of the retained slashing events, oldest first.
func (s *Slasher) History() []Event {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.log.history()
}

// Prune drops proposal records older than the keep window.
func (s *Slasher) Prune(currentBlock, keepBlocks uint64) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for key := range s.proposals {
		if key.number+keepBlocks < currentBlock {
			delete(s.proposals, key)
		}
	}
}
