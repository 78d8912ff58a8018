// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package merklith

import "math/big"

// Constants of the consensus protocol.
const (
	// MaxValidators upper bound of the registered validator set.
	MaxValidators = 100

	// SlashDivisor burn amount of one slash is stake/SlashDivisor (10%).
	SlashDivisor = 10

	// JailThreshold number of slashes after which a validator is jailed.
	JailThreshold = 3

	// VotingPowerDivisor scales the contribution score in the voting power
	// formula: power = stake + stake*score/VotingPowerDivisor.
	VotingPowerDivisor = 10000

	// DecayNumerator / DecayDenominator ratio applied to contribution
	// scores on every decay interval.
	DecayNumerator   = 9
	DecayDenominator = 10

	// SlashingLogCap max retained slashing events, oldest dropped first.
	SlashingLogCap = 10000

	// ContributionHistoryWindow blocks of raw contribution records kept
	// around for evidence before being pruned on decay.
	ContributionHistoryWindow = 10000
)

// MinStake the minimum stake to register a validator.
var MinStake = big.NewInt(1_000_000)

// BlockReward the reward credited to the proposer of a finalized block.
var BlockReward = big.NewInt(5_000)

// Canonical contribution weights per observed event.
const (
	WeightBlockProduction  uint64 = 100
	WeightAttestation      uint64 = 10
	WeightTxRelay          uint64 = 1
	WeightPeerDiscovery    uint64 = 20
	WeightDataAvailability uint64 = 50
)
