// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package epoch

import (
	"sync"

	"github.com/merklith/merklith/log"
	"github.com/merklith/merklith/merklith"
	"github.com/merklith/merklith/poc"
	"github.com/merklith/merklith/validator"
)

var logger = log.WithContext("pkg", "epoch")

// Result summarizes one epoch advance.
type Result struct {
	Epoch   uint64
	Evicted []merklith.Address

	// Skipped is set when eviction would have dropped the active set below
	// the minimum validator count. The eviction is skipped and an alert
	// condition is raised instead of breaking consensus availability.
	Skipped bool
}

// Manager advances the monotonic epoch counter and reconciles the validator
// registry against the contribution tracker on every boundary. Already
// finalized blocks are never affected by an epoch advance.
type Manager struct {
	lock sync.Mutex

	reg     *validator.Registry
	tracker *poc.Tracker

	current uint64
	alert   bool
}

// NewManager creates a manager reconciling the given registry and tracker.
func NewManager(reg *validator.Registry, tracker *poc.Tracker) *Manager {
	return &Manager{reg: reg, tracker: tracker}
}

// Number returns the current epoch.
func (m *Manager) Number() uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.current
}

// AlertRaised reports whether the last advance skipped an eviction to keep
// the active set above the minimum.
func (m *Manager) AlertRaised() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.alert
}

// Advance moves to the next epoch: decays contribution scores when the decay
// interval has elapsed, then evicts active validators whose missed-block
// count exceeds the ceiling or whose contribution total has fallen below the
// floor. Voting power needs no separate recompute step, it is derived from
// stake and the freshly decayed scores on every read.
func (m *Manager) Advance(currentBlock uint64) Result {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.tracker.MaybeDecay(currentBlock)

	var evict []merklith.Address
	active := 0
	for _, val := range m.reg.All() {
		if !val.IsActive() {
			continue
		}
		active++
		if val.BlocksMissed > merklith.MaxMissedBlocks() ||
			m.tracker.Total(val.Address) < merklith.MinContributionScore() {
			evict = append(evict, val.Address)
		}
	}

	m.current++
	result := Result{Epoch: m.current}

	if len(evict) > 0 && uint64(active-len(evict)) < merklith.MinValidatorCount() {
		m.alert = true
		result.Skipped = true
		metricEvictionSkips().Add(1)
		logger.Warn("epoch eviction skipped, active set at minimum",
			"epoch", m.current, "active", active, "candidates", len(evict))
		return result
	}

	for _, addr := range evict {
		if err := m.reg.UpdateStatus(addr, validator.StatusInactive); err != nil {
			logger.Error("eviction failed", "addr", addr, "err", err)
			continue
		}
		result.Evicted = append(result.Evicted, addr)
	}
	m.alert = false

	metricActiveValidators().Set(int64(m.reg.ActiveCount()))
	if len(result.Evicted) > 0 {
		logger.Info("validators evicted", "epoch", m.current, "count", len(result.Evicted))
	}
	return result
}
