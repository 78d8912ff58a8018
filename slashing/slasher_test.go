// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slashing

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merklith/merklith/merklith"
	"github.com/merklith/merklith/validator"
)

func randomAddress() merklith.Address {
	var addr merklith.Address
	rand.Read(addr[:])
	return addr
}

func randomBytes32() merklith.Bytes32 {
	var b32 merklith.Bytes32
	rand.Read(b32[:])
	return b32
}

func newTestSlasher(t *testing.T) (*Slasher, merklith.Address) {
	reg := validator.NewRegistry()
	addr := randomAddress()
	require.NoError(t, reg.Register(addr, big.NewInt(1_000_000), []byte("pub"), 0))
	return NewSlasher(reg), addr
}

func TestSlash(t *testing.T) {
	slasher, addr := newTestSlasher(t)

	burned, err := slasher.Slash(addr, DoubleSign, 7, 100)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100_000), burned)

	history := slasher.History()
	require.Len(t, history, 1)
	assert.Equal(t, addr, history[0].Validator)
	assert.Equal(t, DoubleSign, history[0].Violation)
	assert.Equal(t, big.NewInt(100_000), history[0].Amount)
	assert.Equal(t, uint64(7), history[0].BlockNumber)
	assert.Equal(t, uint64(100), history[0].Timestamp)
}

func TestSlashUnknownValidator(t *testing.T) {
	slasher, _ := newTestSlasher(t)

	_, err := slasher.Slash(randomAddress(), FraudEvidence, 1, 1)
	assert.ErrorIs(t, err, validator.ErrNotFound)
	assert.Empty(t, slasher.History())
}

func TestCheckProposal(t *testing.T) {
	slasher, addr := newTestSlasher(t)
	hash := randomBytes32()

	assert.False(t, slasher.CheckProposal(addr, 1, hash))
	// re-announcing the same proposal is not a conflict
	assert.False(t, slasher.CheckProposal(addr, 1, hash))
	assert.True(t, slasher.CheckProposal(addr, 1, randomBytes32()))

	// other numbers and other proposers are unaffected
	assert.False(t, slasher.CheckProposal(addr, 2, randomBytes32()))
	assert.False(t, slasher.CheckProposal(randomAddress(), 1, randomBytes32()))
}

func TestCheckProposalPrune(t *testing.T) {
	slasher, addr := newTestSlasher(t)
	hash := randomBytes32()

	require.False(t, slasher.CheckProposal(addr, 1, hash))
	slasher.Prune(200, 100)

	// record dropped, a conflicting hash no longer detected
	assert.False(t, slasher.CheckProposal(addr, 1, randomBytes32()))
}

func TestEventLogCap(t *testing.T) {
	var l eventLog
	for i := 0; i < merklith.SlashingLogCap+5; i++ {
		l.append(Event{BlockNumber: uint64(i)})
	}

	events := l.history()
	require.Len(t, events, merklith.SlashingLogCap)
	// oldest events truncated first
	assert.Equal(t, uint64(5), events[0].BlockNumber)
	assert.Equal(t, uint64(merklith.SlashingLogCap+4), events[len(events)-1].BlockNumber)
}

func TestViolationString(t *testing.T) {
	assert.Equal(t, "double signing", DoubleSign.String())
	assert.Equal(t, "double proposal", DoubleProposal.String())
	assert.Equal(t, "invalid proposal", InvalidProposal.String())
	assert.Equal(t, "invalid signature", InvalidSignature.String())
	assert.Equal(t, "fraud evidence", FraudEvidence.String())
	assert.Equal(t, "unknown", Violation(99).String())
}
