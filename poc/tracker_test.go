// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package poc

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/merklith/merklith/merklith"
)

func randomAddress() merklith.Address {
	var addr merklith.Address
	rand.Read(addr[:])
	return addr
}

func TestTrackerAccumulates(t *testing.T) {
	tracker := NewTracker()
	addr := randomAddress()

	tracker.Record(Contribution{Contributor: addr, Category: BlockProduction, Weight: 100, BlockNumber: 1})
	tracker.Record(Contribution{Contributor: addr, Category: BlockProduction, Weight: 100, BlockNumber: 2})
	tracker.Record(Contribution{Contributor: addr, Category: Attestation, Weight: 10, BlockNumber: 2})

	score := tracker.Score(addr)
	assert.Equal(t, uint64(200), score.BlockProduction)
	assert.Equal(t, uint64(10), score.Attestations)
	assert.Equal(t, uint64(210), score.Total)
	assert.Equal(t, uint64(210), tracker.Total(addr))
	assert.Equal(t, 3, tracker.HistoryLen())
}

func TestTrackerUnknownContributor(t *testing.T) {
	tracker := NewTracker()

	assert.Equal(t, uint64(0), tracker.Total(randomAddress()))
	assert.Equal(t, Score{}, tracker.Score(randomAddress()))
}

func TestTrackerMaybeDecay(t *testing.T) {
	merklith.ResetConfigForTest()
	defer merklith.ResetConfigForTest()

	tracker := NewTracker()
	addr := randomAddress()
	tracker.Record(Contribution{Contributor: addr, Category: BlockProduction, Weight: 100, BlockNumber: 1})

	// interval not elapsed yet
	assert.False(t, tracker.MaybeDecay(999))
	assert.Equal(t, uint64(100), tracker.Total(addr))

	assert.True(t, tracker.MaybeDecay(1000))
	assert.Equal(t, uint64(90), tracker.Total(addr))

	// not again until another interval elapsed
	assert.False(t, tracker.MaybeDecay(1999))
	assert.True(t, tracker.MaybeDecay(2000))
	assert.Equal(t, uint64(81), tracker.Total(addr))
}

func TestTrackerHistoryPruned(t *testing.T) {
	merklith.ResetConfigForTest()
	defer merklith.ResetConfigForTest()

	tracker := NewTracker()
	addr := randomAddress()
	tracker.Record(Contribution{Contributor: addr, Category: TxRelay, Weight: 1, BlockNumber: 5})
	tracker.Record(Contribution{Contributor: addr, Category: TxRelay, Weight: 1, BlockNumber: 10001})

	tracker.MaybeDecay(merklith.ContributionHistoryWindow + 5)
	assert.Equal(t, 1, tracker.HistoryLen())
}

func TestTopContributors(t *testing.T) {
	tracker := NewTracker()
	a, b, c := randomAddress(), randomAddress(), randomAddress()

	tracker.Record(Contribution{Contributor: a, Category: TxRelay, Weight: 5})
	tracker.Record(Contribution{Contributor: b, Category: TxRelay, Weight: 50})
	tracker.Record(Contribution{Contributor: c, Category: TxRelay, Weight: 5})

	top := tracker.TopContributors(2)
	assert.Len(t, top, 2)
	assert.Equal(t, b, top[0].Address)
	// tie broken by insertion order
	assert.Equal(t, a, top[1].Address)
}
