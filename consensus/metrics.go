// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package consensus

import "github.com/merklith/merklith/metrics"

var (
	metricProposals     = metrics.LazyLoadCounter("consensus_proposal_count")
	metricVotes         = metrics.LazyLoadCounter("consensus_vote_count")
	metricContributions = metrics.LazyLoadCounterVec("consensus_contribution_count", []string{"category"})
)
