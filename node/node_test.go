// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merklith/merklith/consensus"
	"github.com/merklith/merklith/merklith"
	"github.com/merklith/merklith/proposal"
)

// builds a network of n nodes over one hub, every validator registered in
// every engine
func newTestNetwork(t *testing.T, n int) ([]*Node, *Hub) {
	merklith.ResetConfigForTest()
	t.Cleanup(merklith.ResetConfigForTest)

	keys := make([]*ecdsa.PrivateKey, 0, n)
	for i := 0; i < n; i++ {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		keys = append(keys, key)
	}

	genesis := merklith.Blake2b([]byte("test genesis"))
	now := uint64(time.Now().Unix())
	hub := NewHub()

	nodes := make([]*Node, 0, n)
	for _, key := range keys {
		engine := consensus.New()
		for _, peerKey := range keys {
			require.NoError(t, engine.RegisterValidator(
				merklith.PubkeyToAddress(&peerKey.PublicKey),
				big.NewInt(1_000_000),
				crypto.FromECDSAPub(&peerKey.PublicKey),
				now))
		}
		node := New(&Master{PrivateKey: key}, engine, NewMemLedger(genesis), nil)
		hub.Join(node)
		nodes = append(nodes, node)
	}
	return nodes, hub
}

func proposerNode(t *testing.T, nodes []*Node, number uint64) *Node {
	addr, err := nodes[0].Engine().SelectProposer(number)
	require.NoError(t, err)
	for _, n := range nodes {
		if n.master.Address() == addr {
			return n
		}
	}
	t.Fatalf("proposer %v not hosted by any node", addr)
	return nil
}

func TestNetworkFinalizesBlock(t *testing.T) {
	nodes, hub := newTestNetwork(t, 3)
	proposer := proposerNode(t, nodes, 1)

	_, parent := proposer.ledger.Head()
	now := uint64(time.Now().Unix())
	hash, err := proposer.ledger.BuildBlock(1, parent, now)
	require.NoError(t, err)

	prop := &proposal.Proposal{
		Number:     1,
		Hash:       hash,
		ParentHash: parent,
		Proposer:   proposer.master.Address(),
		Timestamp:  now,
	}
	prop.Signature, err = proposer.master.Sign(prop.SigningHash())
	require.NoError(t, err)

	for _, n := range nodes {
		require.NoError(t, n.HandleProposal(prop, now))
	}
	hub.Wait()

	for _, n := range nodes {
		assert.True(t, n.Engine().IsFinalized(1))
		number, head := n.ledger.Head()
		assert.Equal(t, uint64(1), number)
		assert.Equal(t, hash, head)
	}
}

func TestHandleProposalRejectsBadSignature(t *testing.T) {
	nodes, _ := newTestNetwork(t, 2)

	prop := &proposal.Proposal{
		Number:     1,
		Hash:       merklith.Blake2b([]byte("block")),
		ParentHash: merklith.Blake2b([]byte("parent")),
		Proposer:   nodes[0].master.Address(),
		Timestamp:  6,
	}
	var err error
	prop.Signature, err = nodes[1].master.Sign(prop.SigningHash())
	require.NoError(t, err)

	assert.ErrorIs(t, nodes[0].HandleProposal(prop, 6), consensus.ErrInvalidSignature)
}

func TestFinalizedWaiter(t *testing.T) {
	nodes, hub := newTestNetwork(t, 3)
	proposer := proposerNode(t, nodes, 1)
	waiter := nodes[0].FinalizedWaiter()

	_, parent := proposer.ledger.Head()
	now := uint64(time.Now().Unix())
	hash, err := proposer.ledger.BuildBlock(1, parent, now)
	require.NoError(t, err)

	prop := &proposal.Proposal{
		Number:     1,
		Hash:       hash,
		ParentHash: parent,
		Proposer:   proposer.master.Address(),
		Timestamp:  now,
	}
	prop.Signature, err = proposer.master.Sign(prop.SigningHash())
	require.NoError(t, err)

	for _, n := range nodes {
		require.NoError(t, n.HandleProposal(prop, now))
	}
	hub.Wait()

	select {
	case <-waiter.C():
	case <-time.After(time.Second):
		t.Fatal("expected finality notification")
	}
}
