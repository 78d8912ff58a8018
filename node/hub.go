// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"sync"
	"time"

	"github.com/merklith/merklith/bft"
	"github.com/merklith/merklith/co"
	"github.com/merklith/merklith/proposal"
)

// Hub is an in-process broadcast fabric wiring several nodes together, used
// by solo networks and tests in place of a P2P transport. Delivery is
// asynchronous and at-most-once, matching the guarantees consensus assumes
// from a real network.
type Hub struct {
	lock  sync.RWMutex
	peers []*Node
	goes  co.Goes
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{}
}

// Join connects the node to the hub and installs a Broadcaster scoped to it,
// so a node never receives its own messages back.
func (h *Hub) Join(n *Node) {
	h.lock.Lock()
	h.peers = append(h.peers, n)
	h.lock.Unlock()
	n.bc = &hubPort{hub: h, self: n}
}

// Wait blocks until all in-flight deliveries are handled.
func (h *Hub) Wait() {
	h.goes.Wait()
}

func (h *Hub) others(self *Node) []*Node {
	h.lock.RLock()
	defer h.lock.RUnlock()

	others := make([]*Node, 0, len(h.peers))
	for _, peer := range h.peers {
		if peer != self {
			others = append(others, peer)
		}
	}
	return others
}

type hubPort struct {
	hub  *Hub
	self *Node
}

func (p *hubPort) BroadcastProposal(prop *proposal.Proposal) {
	for _, peer := range p.hub.others(p.self) {
		peer := peer
		p.hub.goes.Go(func() {
			if err := peer.HandleProposal(prop, uint64(time.Now().Unix())); err != nil {
				logger.Debug("proposal dropped by peer", "number", prop.Number, "err", err)
			}
		})
	}
}

func (p *hubPort) BroadcastVote(vote *proposal.Vote) {
	for _, peer := range p.hub.others(p.self) {
		peer := peer
		p.hub.goes.Go(func() {
			if err := peer.HandleVote(vote, uint64(time.Now().Unix())); err != nil {
				logger.Debug("vote dropped by peer", "hash", vote.BlockHash, "err", err)
			}
		})
	}
}

func (p *hubPort) BroadcastFinalityVote(vote *bft.Vote) {
	for _, peer := range p.hub.others(p.self) {
		peer := peer
		p.hub.goes.Go(func() {
			if err := peer.HandleFinalityVote(vote, uint64(time.Now().Unix())); err != nil {
				logger.Debug("attestation dropped by peer", "number", vote.BlockNumber, "err", err)
			}
		})
	}
}
