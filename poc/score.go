// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package poc

import "math"

// Category of a network contribution.
type Category byte

const (
	BlockProduction Category = iota
	Attestation
	TxRelay
	PeerDiscovery
	DataAvailability
)

func (c Category) String() string {
	switch c {
	case BlockProduction:
		return "block-production"
	case Attestation:
		return "attestation"
	case TxRelay:
		return "tx-relay"
	case PeerDiscovery:
		return "peer-discovery"
	case DataAvailability:
		return "data-availability"
	default:
		return "unknown"
	}
}

// Score is the multi-category contribution score of one validator.
// Total always equals the accumulated sum of category additions, subject to
// the same decay ratio as every category, so relative weights are preserved.
type Score struct {
	Total            uint64
	BlockProduction  uint64
	Attestations     uint64
	RelayedTxs       uint64
	DiscoveredPeers  uint64
	DataAvailability uint64
}

// Add records weight into the category sub-score and total.
// Additions saturate at the numeric ceiling instead of overflowing.
func (s *Score) Add(category Category, weight uint64) {
	s.Total = saturatingAdd(s.Total, weight)
	switch category {
	case BlockProduction:
		s.BlockProduction = saturatingAdd(s.BlockProduction, weight)
	case Attestation:
		s.Attestations = saturatingAdd(s.Attestations, weight)
	case TxRelay:
		s.RelayedTxs = saturatingAdd(s.RelayedTxs, weight)
	case PeerDiscovery:
		s.DiscoveredPeers = saturatingAdd(s.DiscoveredPeers, weight)
	case DataAvailability:
		s.DataAvailability = saturatingAdd(s.DataAvailability, weight)
	}
}

// Decay multiplies every field by numerator/denominator with integer
// truncation. A zero denominator is a no-op rather than a fault.
func (s *Score) Decay(numerator, denominator uint64) {
	if denominator == 0 {
		return
	}
	s.Total = s.Total / denominator * numerator
	s.BlockProduction = s.BlockProduction / denominator * numerator
	s.Attestations = s.Attestations / denominator * numerator
	s.RelayedTxs = s.RelayedTxs / denominator * numerator
	s.DiscoveredPeers = s.DiscoveredPeers / denominator * numerator
	s.DataAvailability = s.DataAvailability / denominator * numerator
}

// Percentages is the relative share of each category in the total.
type Percentages struct {
	BlockProduction  float64
	Attestations     float64
	RelayedTxs       float64
	DiscoveredPeers  float64
	DataAvailability float64
}

// Percentages returns the per-category share, or nil when the total is zero.
func (s *Score) Percentages() *Percentages {
	if s.Total == 0 {
		return nil
	}
	total := float64(s.Total)
	return &Percentages{
		BlockProduction:  float64(s.BlockProduction) / total * 100,
		Attestations:     float64(s.Attestations) / total * 100,
		RelayedTxs:       float64(s.RelayedTxs) / total * 100,
		DiscoveredPeers:  float64(s.DiscoveredPeers) / total * 100,
		DataAvailability: float64(s.DataAvailability) / total * 100,
	}
}

func saturatingAdd(a, b uint64) uint64 {
	if sum := a + b; sum >= a {
		return sum
	}
	return math.MaxUint64
}
