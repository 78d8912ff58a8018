// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validator

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merklith/merklith/merklith"
)

func randomAddress() merklith.Address {
	var addr merklith.Address
	rand.Read(addr[:])
	return addr
}

func register(t *testing.T, reg *Registry, stake int64) merklith.Address {
	addr := randomAddress()
	require.NoError(t, reg.Register(addr, big.NewInt(stake), []byte("pub"), 100))
	return addr
}

func TestRegister(t *testing.T) {
	reg := NewRegistry()
	addr := register(t, reg, 1_000_000)

	val, err := reg.Get(addr)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, val.Status)
	assert.Equal(t, big.NewInt(1_000_000), val.Stake)
	assert.Equal(t, uint64(100), val.JoinedAt)
	assert.True(t, reg.Contains(addr))
	assert.Equal(t, 1, reg.Len())

	// duplicate
	assert.ErrorIs(t, reg.Register(addr, big.NewInt(1_000_000), nil, 100), ErrExists)
	// below minimum
	assert.ErrorIs(t, reg.Register(randomAddress(), big.NewInt(999_999), nil, 100), ErrInsufficientStake)
}

func TestRegisterSetFull(t *testing.T) {
	reg := NewRegistry()
	for i := 0; i < merklith.MaxValidators; i++ {
		register(t, reg, 1_000_000)
	}
	assert.ErrorIs(t, reg.Register(randomAddress(), big.NewInt(1_000_000), nil, 100), ErrSetFull)
}

func TestGetReturnsCopy(t *testing.T) {
	reg := NewRegistry()
	addr := register(t, reg, 1_000_000)

	val, _ := reg.Get(addr)
	val.Stake.SetInt64(1)
	val.Status = StatusJailed

	fresh, _ := reg.Get(addr)
	assert.Equal(t, big.NewInt(1_000_000), fresh.Stake)
	assert.Equal(t, StatusActive, fresh.Status)
}

func TestSlashUntilJailed(t *testing.T) {
	reg := NewRegistry()
	addr := register(t, reg, 1_000_000)

	burned, err := reg.ApplySlash(addr, "test")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100_000), burned)

	burned, _ = reg.ApplySlash(addr, "test")
	assert.Equal(t, big.NewInt(90_000), burned)

	val, _ := reg.Get(addr)
	assert.Equal(t, StatusActive, val.Status)
	assert.Equal(t, uint32(2), val.SlashCount)

	burned, _ = reg.ApplySlash(addr, "test")
	assert.Equal(t, big.NewInt(81_000), burned)

	val, _ = reg.Get(addr)
	assert.Equal(t, StatusJailed, val.Status)
	assert.Equal(t, uint32(3), val.SlashCount)
	assert.Equal(t, big.NewInt(729_000), val.Stake)
	assert.Equal(t, big.NewInt(729_000), reg.TotalStake())
}

func TestJailedStaysJailed(t *testing.T) {
	reg := NewRegistry()
	addr := register(t, reg, 1_000_000)

	for i := 0; i < 3; i++ {
		reg.ApplySlash(addr, "test")
	}
	require.NoError(t, reg.UpdateStatus(addr, StatusActive))

	val, _ := reg.Get(addr)
	assert.Equal(t, StatusJailed, val.Status)
}

func TestVotingPower(t *testing.T) {
	assert.Equal(t, big.NewInt(1_000_000), VotingPower(big.NewInt(1_000_000), 0))
	assert.Equal(t, big.NewInt(1_050_000), VotingPower(big.NewInt(1_000_000), 500))
	assert.Equal(t, big.NewInt(2_000_000), VotingPower(big.NewInt(1_000_000), 10_000))

	reg := NewRegistry()
	addr := register(t, reg, 1_000_000)
	assert.Equal(t, big.NewInt(1_050_000), reg.VotingPower(addr, 500))

	// inactive validators hold no power
	reg.UpdateStatus(addr, StatusInactive)
	assert.Equal(t, new(big.Int), reg.VotingPower(addr, 500))
	assert.Equal(t, new(big.Int), reg.VotingPower(randomAddress(), 0))
}

func TestTotalVotingPower(t *testing.T) {
	reg := NewRegistry()
	a := register(t, reg, 1_000_000)
	register(t, reg, 2_000_000)

	scores := map[merklith.Address]uint64{a: 10_000}
	total := reg.TotalVotingPower(func(addr merklith.Address) uint64 {
		return scores[addr]
	})
	assert.Equal(t, big.NewInt(4_000_000), total)
}

func TestProductionCounters(t *testing.T) {
	reg := NewRegistry()
	addr := register(t, reg, 1_000_000)

	reg.MarkProduced(addr, 7)
	reg.MarkProduced(addr, 9)
	reg.MarkMissed(addr)

	val, _ := reg.Get(addr)
	assert.Equal(t, uint64(2), val.BlocksProduced)
	assert.Equal(t, uint64(9), val.LastProducedBlock)
	assert.Equal(t, uint64(1), val.BlocksMissed)
}

func TestRewards(t *testing.T) {
	reg := NewRegistry()
	addr := register(t, reg, 1_000_000)

	require.NoError(t, reg.AddReward(addr, big.NewInt(5_000)))
	require.NoError(t, reg.AddReward(addr, big.NewInt(5_000)))
	assert.ErrorIs(t, reg.AddReward(randomAddress(), big.NewInt(1)), ErrNotFound)

	val, _ := reg.Get(addr)
	assert.Equal(t, big.NewInt(10_000), val.Rewards)
}

func TestUnbonding(t *testing.T) {
	merklith.ResetConfigForTest()
	defer merklith.ResetConfigForTest()

	reg := NewRegistry()
	addr := register(t, reg, 1_000_000)

	assert.ErrorIs(t, reg.CompleteUnbond(addr, 0), ErrNotUnbonding)
	require.NoError(t, reg.BeginUnbond(addr, 1000))

	val, _ := reg.Get(addr)
	assert.Equal(t, StatusUnbonding, val.Status)
	require.NotNil(t, val.UnbondingEnd)
	assert.Equal(t, 1000+merklith.UnbondingPeriod(), *val.UnbondingEnd)

	// unbonding validators cannot unbond again
	assert.ErrorIs(t, reg.BeginUnbond(addr, 1000), ErrNotActive)

	assert.ErrorIs(t, reg.CompleteUnbond(addr, 2000), ErrUnbondingPending)
	require.NoError(t, reg.CompleteUnbond(addr, 1000+merklith.UnbondingPeriod()))

	val, _ = reg.Get(addr)
	assert.Equal(t, StatusInactive, val.Status)
	assert.Nil(t, val.UnbondingEnd)
}
