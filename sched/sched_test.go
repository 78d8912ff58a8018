// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sched

import (
	"crypto/rand"
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

func makeCandidates(n int) []Candidate {
	candidates := make([]Candidate, n)
	for i := range candidates {
		candidates[i] = Candidate{Address: randomAddress(), Active: true}
	}
	return candidates
}

func TestRoundRobinRotates(t *testing.T) {
	candidates := makeCandidates(4)

	first, err := Select(candidates, 0)
	require.NoError(t, err)
	second, err := Select(candidates, 1)
	require.NoError(t, err)

	assert.Equal(t, candidates[0].Address, first)
	assert.Equal(t, candidates[1].Address, second)
	assert.NotEqual(t, first, second)

	// wraps around
	fifth, _ := Select(candidates, 4)
	assert.Equal(t, first, fifth)
}

func TestRoundRobinDeterministic(t *testing.T) {
	candidates := makeCandidates(7)
	for number := uint64(0); number < 20; number++ {
		a, err := Select(candidates, number)
		require.NoError(t, err)
		b, err := Select(candidates, number)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestRoundRobinSkipsInactive(t *testing.T) {
	candidates := makeCandidates(3)
	candidates[1].Active = false

	got, err := RoundRobin(candidates, 1)
	require.NoError(t, err)
	assert.Equal(t, candidates[2].Address, got)
}

func TestNoProposer(t *testing.T) {
	_, err := Select(nil, 0)
	assert.ErrorIs(t, err, ErrNoProposer)

	candidates := makeCandidates(3)
	for i := range candidates {
		candidates[i].Active = false
	}
	_, err = Select(candidates, 5)
	assert.ErrorIs(t, err, ErrNoProposer)
}

func TestWeightedProportional(t *testing.T) {
	candidates := makeCandidates(2)
	candidates[0].Contribution = 1
	candidates[1].Contribution = 3

	counts := make(map[merklith.Address]int)
	for number := uint64(0); number < 4; number++ {
		got, err := Select(candidates, number)
		require.NoError(t, err)
		counts[got]++
	}
	assert.Equal(t, 1, counts[candidates[0].Address])
	assert.Equal(t, 3, counts[candidates[1].Address])
}

func TestWeightedSkipsInactive(t *testing.T) {
	candidates := makeCandidates(2)
	candidates[0].Contribution = 100
	candidates[0].Active = false
	candidates[1].Contribution = 1

	for number := uint64(0); number < 5; number++ {
		got, err := Select(candidates, number)
		require.NoError(t, err)
		assert.Equal(t, candidates[1].Address, got)
	}
}

func TestSelectFallsBackWithoutContributions(t *testing.T) {
	candidates := makeCandidates(3)

	got, err := Select(candidates, 2)
	require.NoError(t, err)
	assert.Equal(t, candidates[2].Address, got)
}
