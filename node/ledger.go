// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/pkg/errors"

	"github.com/merklith/merklith/merklith"
)

// MemLedger is an in-memory ledger for solo networks and tests. Block hashes
// are derived from the parent hash and number, so every node building the
// same height on the same parent derives the same hash.
type MemLedger struct {
	lock sync.RWMutex

	headNumber uint64
	headHash   merklith.Bytes32
	blocks     map[uint64]merklith.Bytes32
	built      map[uint64]merklith.Bytes32
}

// NewMemLedger creates a ledger holding only the genesis block.
func NewMemLedger(genesis merklith.Bytes32) *MemLedger {
	return &MemLedger{
		headHash: genesis,
		blocks:   map[uint64]merklith.Bytes32{0: genesis},
		built:    make(map[uint64]merklith.Bytes32),
	}
}

// Head returns the number and hash of the latest committed block.
func (l *MemLedger) Head() (uint64, merklith.Bytes32) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.headNumber, l.headHash
}

// BuildBlock derives the hash of the block at number on the parent.
func (l *MemLedger) BuildBlock(number uint64, parent merklith.Bytes32, now uint64) (merklith.Bytes32, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if number != l.headNumber+1 || parent != l.headHash {
		return merklith.Bytes32{}, errors.New("not extending head")
	}

	hash := merklith.Blake2bFn(func(w io.Writer) {
		var num [8]byte
		binary.BigEndian.PutUint64(num[:], number)
		w.Write(num[:])
		w.Write(parent.Bytes())
	})
	l.built[number] = hash
	return hash, nil
}

// Commit appends the finalized block as the new head.
func (l *MemLedger) Commit(number uint64, hash merklith.Bytes32) error {
	l.lock.Lock()
	defer l.lock.Unlock()

	if number != l.headNumber+1 {
		if committed, ok := l.blocks[number]; ok && committed == hash {
			return nil
		}
		return errors.Errorf("commit out of order: head %d, got %d", l.headNumber, number)
	}

	l.headNumber = number
	l.headHash = hash
	l.blocks[number] = hash
	delete(l.built, number)
	return nil
}

// Hash returns the hash of the committed block at number.
func (l *MemLedger) Hash(number uint64) (merklith.Bytes32, bool) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	hash, ok := l.blocks[number]
	return hash, ok
}
