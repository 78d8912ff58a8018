// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validator

import (
	"errors"
	"math/big"
	"sync"

	"github.com/merklith/merklith/log"
	"github.com/merklith/merklith/merklith"
)

var logger = log.WithContext("pkg", "validator")

var (
	ErrInsufficientStake = errors.New("stake below minimum")
	ErrExists            = errors.New("validator already registered")
	ErrSetFull           = errors.New("validator set full")
	ErrNotFound          = errors.New("validator not found")
	ErrNotActive         = errors.New("validator not active")
	ErrNotUnbonding      = errors.New("validator not unbonding")
	ErrUnbondingPending  = errors.New("unbonding period not elapsed")
)

// Registry owns the authoritative validator set, their stake and slashing
// counters. The total-stake aggregate is mutated in the same critical section
// as any individual stake change, so quorum arithmetic never observes a stale
// figure. All methods are safe for concurrent use.
type Registry struct {
	lock sync.RWMutex

	vals       map[merklith.Address]*Validator
	order      []merklith.Address // insertion order, consensus-relevant
	totalStake *big.Int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		vals:       make(map[merklith.Address]*Validator),
		totalStake: new(big.Int),
	}
}

// Register adds a new active validator.
// Rejects stake below the minimum, duplicate addresses, and registration once
// the maximum set size is reached.
func (r *Registry) Register(addr merklith.Address, stake *big.Int, pubKey []byte, now uint64) error {
	if stake.Cmp(merklith.MinStake) < 0 {
		return ErrInsufficientStake
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.vals[addr]; ok {
		return ErrExists
	}
	if len(r.vals) >= merklith.MaxValidators {
		return ErrSetFull
	}

	r.vals[addr] = &Validator{
		Address:   addr,
		Stake:     new(big.Int).Set(stake),
		Status:    StatusActive,
		JoinedAt:  now,
		Rewards:   new(big.Int),
		PublicKey: append([]byte(nil), pubKey...),
	}
	r.order = append(r.order, addr)
	r.totalStake.Add(r.totalStake, stake)

	logger.Info("validator registered", "addr", addr, "stake", stake)
	return nil
}

// Get returns a copy of the validator record.
func (r *Registry) Get(addr merklith.Address) (*Validator, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	val, ok := r.vals[addr]
	if !ok {
		return nil, ErrNotFound
	}
	return val.clone(), nil
}

// Contains returns whether the address is registered.
func (r *Registry) Contains(addr merklith.Address) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	_, ok := r.vals[addr]
	return ok
}

// All returns copies of every validator record in registration order.
func (r *Registry) All() []*Validator {
	r.lock.RLock()
	defer r.lock.RUnlock()

	all := make([]*Validator, 0, len(r.order))
	for _, addr := range r.order {
		all = append(all, r.vals[addr].clone())
	}
	return all
}

// Len returns the number of registered validators.
func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.vals)
}

// ActiveCount returns the number of active validators.
func (r *Registry) ActiveCount() int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	n := 0
	for _, val := range r.vals {
		if val.IsActive() {
			n++
		}
	}
	return n
}

// UpdateStatus transitions the validator to the given status.
// A jailed validator stays jailed.
func (r *Registry) UpdateStatus(addr merklith.Address, status Status) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	val, ok := r.vals[addr]
	if !ok {
		return ErrNotFound
	}
	if val.Status == StatusJailed {
		return nil
	}
	val.Status = status
	return nil
}

// ApplySlash burns stake/SlashDivisor from the validator, increments its
// slash count and jails it once the count reaches the jail threshold. The
// total-stake aggregate is decremented by the burned amount in the same
// operation. Returns the burned amount.
func (r *Registry) ApplySlash(addr merklith.Address, reason string) (*big.Int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	val, ok := r.vals[addr]
	if !ok {
		return nil, ErrNotFound
	}

	burned := new(big.Int).Div(val.Stake, big.NewInt(merklith.SlashDivisor))
	val.Stake.Sub(val.Stake, burned)
	val.SlashCount++
	r.totalStake.Sub(r.totalStake, burned)

	if val.SlashCount >= merklith.JailThreshold {
		val.Status = StatusJailed
	}

	logger.Warn("validator slashed",
		"addr", addr, "burned", burned, "count", val.SlashCount, "reason", reason)
	return burned, nil
}

// MarkProduced credits a produced block to the validator.
func (r *Registry) MarkProduced(addr merklith.Address, blockNumber uint64) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if val, ok := r.vals[addr]; ok {
		val.BlocksProduced++
		val.LastProducedBlock = blockNumber
	}
}

// MarkMissed charges a missed block slot to the validator.
func (r *Registry) MarkMissed(addr merklith.Address) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if val, ok := r.vals[addr]; ok {
		val.BlocksMissed++
	}
}

// AddReward accrues a block reward to the validator.
func (r *Registry) AddReward(addr merklith.Address, amount *big.Int) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	val, ok := r.vals[addr]
	if !ok {
		return ErrNotFound
	}
	val.Rewards.Add(val.Rewards, amount)
	return nil
}

// BeginUnbond transitions an active validator to unbonding. Its stake stops
// counting toward quorum on the next refresh; the record stays until
// CompleteUnbond.
func (r *Registry) BeginUnbond(addr merklith.Address, now uint64) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	val, ok := r.vals[addr]
	if !ok {
		return ErrNotFound
	}
	if val.Status != StatusActive {
		return ErrNotActive
	}

	end := now + merklith.UnbondingPeriod()
	val.Status = StatusUnbonding
	val.UnbondingEnd = &end
	return nil
}

// CompleteUnbond transitions an unbonding validator to inactive once the
// unbonding period has elapsed.
func (r *Registry) CompleteUnbond(addr merklith.Address, now uint64) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	val, ok := r.vals[addr]
	if !ok {
		return ErrNotFound
	}
	if val.Status != StatusUnbonding || val.UnbondingEnd == nil {
		return ErrNotUnbonding
	}
	if now < *val.UnbondingEnd {
		return ErrUnbondingPending
	}

	val.Status = StatusInactive
	val.UnbondingEnd = nil
	return nil
}

// TotalStake returns the aggregate stake of all registered validators.
func (r *Registry) TotalStake() *big.Int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return new(big.Int).Set(r.totalStake)
}

// VotingPower returns the validator's voting power for the given
// contribution score, zero if the validator is not active.
func (r *Registry) VotingPower(addr merklith.Address, score uint64) *big.Int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	val, ok := r.vals[addr]
	if !ok || !val.IsActive() {
		return new(big.Int)
	}
	return val.VotingPower(score)
}

// TotalVotingPower sums voting power over the active set, looking up each
// validator's contribution score through scoreOf.
func (r *Registry) TotalVotingPower(scoreOf func(merklith.Address) uint64) *big.Int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	total := new(big.Int)
	for _, addr := range r.order {
		val := r.vals[addr]
		if val.IsActive() {
			total.Add(total, val.VotingPower(scoreOf(addr)))
		}
	}
	return total
}
