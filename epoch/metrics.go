// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package epoch

import (
	"github.com/merklith/merklith/metrics"
)

var (
	metricActiveValidators = metrics.LazyLoadGauge("epoch_active_validators")
	metricEvictionSkips    = metrics.LazyLoadCounter("epoch_eviction_skips_count")
)
