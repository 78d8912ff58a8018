// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validator

import (
	"math/big"

	"github.com/merklith/merklith/merklith"
)

// Status of a validator.
type Status uint8

const (
	StatusActive Status = iota
	StatusInactive
	StatusJailed
	StatusUnbonding
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusInactive:
		return "inactive"
	case StatusJailed:
		return "jailed"
	case StatusUnbonding:
		return "unbonding"
	default:
		return "unknown"
	}
}

// Validator is the registry record of one validator. Records are never
// physically deleted, the status reflects removal.
type Validator struct {
	Address merklith.Address
	Stake   *big.Int
	Status  Status

	JoinedAt          uint64
	LastProducedBlock uint64
	BlocksProduced    uint64
	BlocksMissed      uint64

	SlashCount uint32
	Rewards    *big.Int

	// UnbondingEnd is the unix time when an unbonding validator becomes
	// withdrawable, nil otherwise.
	UnbondingEnd *uint64

	// PublicKey is the secp256k1 public key votes and proposals are
	// verified against.
	PublicKey []byte
}

// IsActive returns whether the validator can propose and vote.
func (v *Validator) IsActive() bool {
	return v.Status == StatusActive
}

// VotingPower computes stake adjusted upward by the contribution score:
//
//	power = stake + stake*score/VotingPowerDivisor
//
// Monotonically increasing in both stake and score, so reputation tilts
// influence but never substitutes for capital at stake.
func (v *Validator) VotingPower(score uint64) *big.Int {
	return VotingPower(v.Stake, score)
}

// VotingPower computes the voting power for the given stake and score.
func VotingPower(stake *big.Int, score uint64) *big.Int {
	bonus := new(big.Int).Mul(stake, new(big.Int).SetUint64(score))
	bonus.Div(bonus, big.NewInt(merklith.VotingPowerDivisor))
	return bonus.Add(bonus, stake)
}

func (v *Validator) clone() *Validator {
	cpy := *v
	cpy.Stake = new(big.Int).Set(v.Stake)
	cpy.Rewards = new(big.Int).Set(v.Rewards)
	if v.UnbondingEnd != nil {
		end := *v.UnbondingEnd
		cpy.UnbondingEnd = &end
	}
	cpy.PublicKey = append([]byte(nil), v.PublicKey...)
	return &cpy
}
