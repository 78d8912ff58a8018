// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package poc

import (
	"sort"
	"sync"

	"github.com/merklith/merklith/merklith"
)

// Contribution is a single observed contribution record, retained as evidence
// until it ages out of the history window.
type Contribution struct {
	Contributor merklith.Address
	Category    Category
	Weight      uint64
	BlockNumber uint64
	Timestamp   uint64
}

// Tracker accumulates decaying contribution scores per validator.
// A validator entry is created lazily on its first contribution and is never
// deleted afterwards. All methods are safe for concurrent use.
type Tracker struct {
	lock sync.RWMutex

	scores  map[merklith.Address]*Score
	order   []merklith.Address // insertion order, the deterministic tie break
	history []Contribution

	lastDecayBlock uint64
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		scores: make(map[merklith.Address]*Score),
	}
}

// Record adds weight to the contributor's category sub-score and total.
func (t *Tracker) Record(c Contribution) {
	t.lock.Lock()
	defer t.lock.Unlock()

	score, ok := t.scores[c.Contributor]
	if !ok {
		score = &Score{}
		t.scores[c.Contributor] = score
		t.order = append(t.order, c.Contributor)
	}
	score.Add(c.Category, c.Weight)
	t.history = append(t.history, c)
}

// Score returns a copy of the contributor's score, zero if never seen.
func (t *Tracker) Score(addr merklith.Address) Score {
	t.lock.RLock()
	defer t.lock.RUnlock()

	if score, ok := t.scores[addr]; ok {
		return *score
	}
	return Score{}
}

// Total returns the contributor's total score, zero if never seen.
func (t *Tracker) Total(addr merklith.Address) uint64 {
	t.lock.RLock()
	defer t.lock.RUnlock()

	if score, ok := t.scores[addr]; ok {
		return score.Total
	}
	return 0
}

// TotalContributions sums the total score over all contributors.
func (t *Tracker) TotalContributions() uint64 {
	t.lock.RLock()
	defer t.lock.RUnlock()

	var sum uint64
	for _, score := range t.scores {
		sum = saturatingAdd(sum, score.Total)
	}
	return sum
}

// MaybeDecay applies the configured decay ratio once the decay interval has
// elapsed since the previous decay, and prunes contribution history that has
// aged out of the evidence window. Returns whether a decay was applied.
func (t *Tracker) MaybeDecay(currentBlock uint64) bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	if currentBlock < t.lastDecayBlock+merklith.DecayInterval() {
		return false
	}

	for _, score := range t.scores {
		score.Decay(merklith.DecayNumerator, merklith.DecayDenominator)
	}
	t.lastDecayBlock = currentBlock

	var cutoff uint64
	if currentBlock > merklith.ContributionHistoryWindow {
		cutoff = currentBlock - merklith.ContributionHistoryWindow
	}
	retained := t.history[:0]
	for _, c := range t.history {
		if c.BlockNumber > cutoff {
			retained = append(retained, c)
		}
	}
	t.history = retained

	return true
}

// Decay applies an explicit ratio to every score at once.
func (t *Tracker) Decay(numerator, denominator uint64) {
	t.lock.Lock()
	defer t.lock.Unlock()

	for _, score := range t.scores {
		score.Decay(numerator, denominator)
	}
}

// Contributor pairs an address with its total score.
type Contributor struct {
	Address merklith.Address
	Total   uint64
}

// TopContributors returns up to n contributors sorted by descending total
// score, ties broken by insertion order so the result is reproducible
// across nodes.
func (t *Tracker) TopContributors(n int) []Contributor {
	t.lock.RLock()
	defer t.lock.RUnlock()

	all := make([]Contributor, 0, len(t.order))
	for _, addr := range t.order {
		all = append(all, Contributor{Address: addr, Total: t.scores[addr].Total})
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Total > all[j].Total
	})

	if n < len(all) {
		all = all[:n]
	}
	return all
}

// HistoryLen returns the number of retained contribution records.
func (t *Tracker) HistoryLen() int {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return len(t.history)
}
