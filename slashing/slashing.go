// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slashing

import (
	"math/big"

	"github.com/merklith/merklith/merklith"
)

// Violation is the closed set of slashable offenses. The set is fixed and
// exhaustively matched, new offenses require a new constant here.
type Violation byte

const (
	DoubleSign Violation = iota
	DoubleProposal
	InvalidProposal
	InvalidSignature
	FraudEvidence
)

func (v Violation) String() string {
	switch v {
	case DoubleSign:
		return "double signing"
	case DoubleProposal:
		return "double proposal"
	case InvalidProposal:
		return "invalid proposal"
	case InvalidSignature:
		return "invalid signature"
	case FraudEvidence:
		return "fraud evidence"
	default:
		return "unknown"
	}
}

// Event is one slashing record in the append-only log.
type Event struct {
	Timestamp   uint64
	Validator   merklith.Address
	Amount      *big.Int
	Violation   Violation
	BlockNumber uint64
}

// eventLog is the capped slashing history. Oldest events are truncated first
// so the log never grows past the retention cap.
type eventLog struct {
	events []Event
}

func (l *eventLog) append(ev Event) {
	l.events = append(l.events, ev)
	if excess := len(l.events) - merklith.SlashingLogCap; excess > 0 {
		l.events = append(l.events[:0:0], l.events[excess:]...)
	}
}

func (l *eventLog) history() []Event {
	return append([]Event(nil), l.events...)
}
