// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package epoch

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merklith/merklith/merklith"
	"github.com/merklith/merklith/poc"
	"github.com/merklith/merklith/validator"
)

func randomAddress() merklith.Address {
	var addr merklith.Address
	rand.Read(addr[:])
	return addr
}

// registers n active validators, each with a contribution total above the
// eviction floor
func newTestManager(t *testing.T, n int) (*Manager, *validator.Registry, *poc.Tracker, []merklith.Address) {
	reg := validator.NewRegistry()
	tracker := poc.NewTracker()

	addrs := make([]merklith.Address, 0, n)
	for i := 0; i < n; i++ {
		addr := randomAddress()
		require.NoError(t, reg.Register(addr, big.NewInt(1_000_000), []byte("pub"), 0))
		tracker.Record(poc.Contribution{Contributor: addr, Category: poc.BlockProduction, Weight: 100})
		addrs = append(addrs, addr)
	}
	return NewManager(reg, tracker), reg, tracker, addrs
}

func TestAdvanceIncrementsEpoch(t *testing.T) {
	merklith.ResetConfigForTest()
	defer merklith.ResetConfigForTest()

	m, _, _, _ := newTestManager(t, 4)
	assert.Equal(t, uint64(0), m.Number())

	result := m.Advance(500)
	assert.Equal(t, uint64(1), result.Epoch)
	assert.Empty(t, result.Evicted)
	assert.False(t, result.Skipped)
	assert.Equal(t, uint64(1), m.Number())
}

func TestAdvanceEvictsLowContributors(t *testing.T) {
	merklith.ResetConfigForTest()
	defer merklith.ResetConfigForTest()

	m, reg, _, addrs := newTestManager(t, 5)

	// one extra validator that never contributed
	idle := randomAddress()
	require.NoError(t, reg.Register(idle, big.NewInt(1_000_000), []byte("pub"), 0))

	result := m.Advance(500)
	assert.Equal(t, []merklith.Address{idle}, result.Evicted)
	assert.False(t, result.Skipped)
	assert.False(t, m.AlertRaised())

	val, _ := reg.Get(idle)
	assert.Equal(t, validator.StatusInactive, val.Status)
	for _, addr := range addrs {
		val, _ := reg.Get(addr)
		assert.Equal(t, validator.StatusActive, val.Status)
	}
}

func TestAdvanceEvictsMissedBlocks(t *testing.T) {
	merklith.ResetConfigForTest()
	defer merklith.ResetConfigForTest()

	m, reg, _, addrs := newTestManager(t, 5)
	for i := uint64(0); i <= merklith.MaxMissedBlocks(); i++ {
		reg.MarkMissed(addrs[0])
	}

	result := m.Advance(500)
	assert.Equal(t, []merklith.Address{addrs[0]}, result.Evicted)
}

func TestAdvanceSkipsEvictionBelowMinimum(t *testing.T) {
	merklith.ResetConfigForTest()
	defer merklith.ResetConfigForTest()

	// 3 healthy validators plus one eviction candidate: evicting it would
	// leave the active set below the minimum of 4
	m, reg, _, _ := newTestManager(t, 3)
	idle := randomAddress()
	require.NoError(t, reg.Register(idle, big.NewInt(1_000_000), []byte("pub"), 0))

	result := m.Advance(500)
	assert.True(t, result.Skipped)
	assert.Empty(t, result.Evicted)
	assert.True(t, m.AlertRaised())
	// the epoch still advances
	assert.Equal(t, uint64(1), result.Epoch)

	val, _ := reg.Get(idle)
	assert.Equal(t, validator.StatusActive, val.Status)
}

func TestAdvanceAppliesDecay(t *testing.T) {
	merklith.ResetConfigForTest()
	defer merklith.ResetConfigForTest()

	m, _, tracker, addrs := newTestManager(t, 4)
	require.Equal(t, uint64(100), tracker.Total(addrs[0]))

	m.Advance(1000)
	assert.Equal(t, uint64(90), tracker.Total(addrs[0]))
}
