// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package merklith

// Config is the configurable parameters of the consensus core. All parameters have
// default values and get 'locked' once the node starts. For testing purposes or
// custom networks, the parameters can be updated before the config is locked.

var (
	blockInterval        uint64 = 6    // 6 seconds
	epochLength          uint64 = 1000 // blocks per epoch
	decayInterval        uint64 = 1000 // blocks between two contribution decays
	finalityNumerator    uint64 = 2    // finality threshold numerator
	finalityDenominator  uint64 = 3    // finality threshold denominator
	minValidatorCount    uint64 = 4
	maxMissedBlocks      uint64 = 50     // missed blocks before eviction
	minContributionScore uint64 = 10     // eviction floor for total score
	proposalWindow       int    = 128    // pending proposals retained, FIFO
	unbondingPeriod      uint64 = 604800 // 7 days in seconds

	locked bool
)

type Config struct {
	BlockInterval        uint64 `json:"blockInterval" yaml:"blockInterval"`               // time interval between two consecutive blocks.
	EpochLength          uint64 `json:"epochLength" yaml:"epochLength"`                   // number of blocks per epoch.
	DecayInterval        uint64 `json:"decayInterval" yaml:"decayInterval"`               // blocks between two contribution score decays.
	FinalityNumerator    uint64 `json:"finalityNumerator" yaml:"finalityNumerator"`       // finality threshold fraction, defaults to 2/3.
	FinalityDenominator  uint64 `json:"finalityDenominator" yaml:"finalityDenominator"`   //
	MinValidatorCount    uint64 `json:"minValidatorCount" yaml:"minValidatorCount"`       // evictions never shrink the active set below this.
	MaxMissedBlocks      uint64 `json:"maxMissedBlocks" yaml:"maxMissedBlocks"`           // missed block ceiling before epoch eviction.
	MinContributionScore uint64 `json:"minContributionScore" yaml:"minContributionScore"` // score floor before epoch eviction.
	ProposalWindow       int    `json:"proposalWindow" yaml:"proposalWindow"`             // pending proposal retention window.
	UnbondingPeriod      uint64 `json:"unbondingPeriod" yaml:"unbondingPeriod"`           // seconds between BeginUnbond and withdrawable.
}

// SetConfig sets the config.
// If the config is not set, the default values will be used.
// If the config is locked, will panic.
func SetConfig(cfg Config) {
	if locked {
		panic("config is locked, cannot be set")
	}

	if cfg.BlockInterval != 0 {
		blockInterval = cfg.BlockInterval
	}
	if cfg.EpochLength != 0 {
		epochLength = cfg.EpochLength
	}
	if cfg.DecayInterval != 0 {
		decayInterval = cfg.DecayInterval
	}
	if cfg.FinalityNumerator != 0 && cfg.FinalityDenominator != 0 {
		finalityNumerator = cfg.FinalityNumerator
		finalityDenominator = cfg.FinalityDenominator
	}
	if cfg.MinValidatorCount != 0 {
		minValidatorCount = cfg.MinValidatorCount
	}
	if cfg.MaxMissedBlocks != 0 {
		maxMissedBlocks = cfg.MaxMissedBlocks
	}
	if cfg.MinContributionScore != 0 {
		minContributionScore = cfg.MinContributionScore
	}
	if cfg.ProposalWindow != 0 {
		proposalWindow = cfg.ProposalWindow
	}
	if cfg.UnbondingPeriod != 0 {
		unbondingPeriod = cfg.UnbondingPeriod
	}
}

// LockConfig locks the config, so it cannot be set anymore.
func LockConfig() {
	locked = true
}

// ResetConfigForTest resets parameters to defaults and unlocks them.
// Only meant to be called from tests.
func ResetConfigForTest() {
	blockInterval = 6
	epochLength = 1000
	decayInterval = 1000
	finalityNumerator = 2
	finalityDenominator = 3
	minValidatorCount = 4
	maxMissedBlocks = 50
	minContributionScore = 10
	proposalWindow = 128
	unbondingPeriod = 604800
	locked = false
}

// BlockInterval returns the time interval between two consecutive blocks.
func BlockInterval() uint64 {
	return blockInterval
}

// EpochLength returns the number of blocks per epoch.
func EpochLength() uint64 {
	return epochLength
}

// DecayInterval returns the number of blocks between two contribution decays.
func DecayInterval() uint64 {
	return decayInterval
}

// FinalityThreshold returns the finality threshold fraction.
func FinalityThreshold() (numerator, denominator uint64) {
	return finalityNumerator, finalityDenominator
}

// MinValidatorCount returns the minimum size of the active validator set.
func MinValidatorCount() uint64 {
	return minValidatorCount
}

// MaxMissedBlocks returns the missed block ceiling before epoch eviction.
func MaxMissedBlocks() uint64 {
	return maxMissedBlocks
}

// MinContributionScore returns the contribution floor before epoch eviction.
func MinContributionScore() uint64 {
	return minContributionScore
}

// ProposalWindow returns the pending proposal retention window.
func ProposalWindow() int {
	return proposalWindow
}

// UnbondingPeriod returns the unbonding duration in seconds.
func UnbondingPeriod() uint64 {
	return unbondingPeriod
}
