// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merklith/merklith/merklith"
)

func TestMemLedger(t *testing.T) {
	genesis := merklith.Blake2b([]byte("genesis"))
	ledger := NewMemLedger(genesis)

	number, hash := ledger.Head()
	assert.Equal(t, uint64(0), number)
	assert.Equal(t, genesis, hash)

	built, err := ledger.BuildBlock(1, genesis, 6)
	require.NoError(t, err)

	// hash derivation is a pure function of number and parent
	again, err := ledger.BuildBlock(1, genesis, 99)
	require.NoError(t, err)
	assert.Equal(t, built, again)

	require.NoError(t, ledger.Commit(1, built))
	number, hash = ledger.Head()
	assert.Equal(t, uint64(1), number)
	assert.Equal(t, built, hash)

	got, ok := ledger.Hash(1)
	assert.True(t, ok)
	assert.Equal(t, built, got)
}

func TestMemLedgerRejectsForks(t *testing.T) {
	genesis := merklith.Blake2b([]byte("genesis"))
	ledger := NewMemLedger(genesis)

	_, err := ledger.BuildBlock(2, genesis, 6)
	assert.Error(t, err)
	_, err = ledger.BuildBlock(1, merklith.Blake2b([]byte("other")), 6)
	assert.Error(t, err)

	built, _ := ledger.BuildBlock(1, genesis, 6)
	assert.Error(t, ledger.Commit(3, built))

	require.NoError(t, ledger.Commit(1, built))
	// committing the same block again is a no-op
	assert.NoError(t, ledger.Commit(1, built))
}
