// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package node runs the consensus engine of one validator: the proposer
// loop, the epoch loop and housekeeping, plus the inbound message surface
// the network layer delivers into.
package node

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/merklith/merklith/bft"
	"github.com/merklith/merklith/co"
	"github.com/merklith/merklith/consensus"
	"github.com/merklith/merklith/log"
	"github.com/merklith/merklith/merklith"
	"github.com/merklith/merklith/proposal"
)

var logger = log.WithContext("pkg", "node")

// evidenceKeepBlocks how long open rounds and proposal evidence are retained
// before housekeeping drops them.
const evidenceKeepBlocks = merklith.ContributionHistoryWindow

// Ledger is the block store the consensus engine decides over. Execution and
// storage live behind it.
type Ledger interface {
	// Head returns the number and hash of the latest block.
	Head() (uint64, merklith.Bytes32)
	// BuildBlock assembles the block for the number on the parent and
	// returns its hash.
	BuildBlock(number uint64, parent merklith.Bytes32, now uint64) (merklith.Bytes32, error)
	// Commit appends the finalized block to the ledger head.
	Commit(number uint64, hash merklith.Bytes32) error
}

// Broadcaster delivers consensus messages to the rest of the validator set.
type Broadcaster interface {
	BroadcastProposal(*proposal.Proposal)
	BroadcastVote(*proposal.Vote)
	BroadcastFinalityVote(*bft.Vote)
}

// Node drives one validator's participation in consensus.
type Node struct {
	master *Master
	engine *consensus.Engine
	ledger Ledger
	bc     Broadcaster

	finalizedSignal co.Signal
}

// New creates a node for the master key, deciding over the given ledger and
// broadcasting through bc. A nil bc keeps messages local until the node joins
// a Hub or another transport.
func New(master *Master, engine *consensus.Engine, ledger Ledger, bc Broadcaster) *Node {
	if bc == nil {
		bc = noopBroadcaster{}
	}
	return &Node{
		master: master,
		engine: engine,
		ledger: ledger,
		bc:     bc,
	}
}

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastProposal(*proposal.Proposal) {}
func (noopBroadcaster) BroadcastVote(*proposal.Vote)         {}
func (noopBroadcaster) BroadcastFinalityVote(*bft.Vote)      {}

// Engine returns the node's consensus engine.
func (n *Node) Engine() *consensus.Engine { return n.engine }

// Run blocks until the context is canceled, driving the proposer, epoch and
// housekeeping loops.
func (n *Node) Run(ctx context.Context) error {
	logger.Info("starting node", "addr", n.master.Address())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.proposerLoop(ctx) })
	g.Go(func() error { return n.epochLoop(ctx) })
	g.Go(func() error { return n.housekeepLoop(ctx) })
	return g.Wait()
}

// proposerLoop wakes every block interval, charges the previous slot's
// proposer when its proposal never arrived, and proposes when the local
// master is the proposer of record.
func (n *Node) proposerLoop(ctx context.Context) error {
	logger.Debug("enter proposer loop")
	defer logger.Debug("leave proposer loop")

	ticker := time.NewTicker(time.Duration(merklith.BlockInterval()) * time.Second)
	defer ticker.Stop()

	var (
		lastSlot     uint64
		lastProposer merklith.Address
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		head, parent := n.ledger.Head()
		next := head + 1

		if lastSlot == next && !lastProposer.IsZero() {
			// slot expired without a proposal for it
			if _, err := n.engine.Registry().Get(lastProposer); err == nil {
				n.engine.Registry().MarkMissed(lastProposer)
				logger.Debug("proposer missed slot", "number", next, "addr", lastProposer)
			}
		}

		proposer, err := n.engine.SelectProposer(next)
		if err != nil {
			logger.Warn("no proposer available", "number", next, "err", err)
			continue
		}
		lastSlot, lastProposer = next, proposer

		if proposer != n.master.Address() {
			continue
		}

		now := uint64(time.Now().Unix())
		hash, err := n.ledger.BuildBlock(next, parent, now)
		if err != nil {
			logger.Error("failed to build block", "number", next, "err", err)
			continue
		}

		prop := &proposal.Proposal{
			Number:     next,
			Hash:       hash,
			ParentHash: parent,
			Proposer:   n.master.Address(),
			Timestamp:  now,
		}
		if prop.Signature, err = n.master.Sign(prop.SigningHash()); err != nil {
			logger.Error("failed to sign proposal", "err", err)
			continue
		}
		if err := n.engine.SubmitProposal(prop, now); err != nil {
			logger.Error("failed to submit own proposal", "number", next, "err", err)
			continue
		}
		logger.Info("proposed block", "number", next, "hash", hash)
		n.bc.BroadcastProposal(prop)
		n.castVotes(prop, now)
	}
}

// epochLoop advances the epoch on every epoch-length boundary of the ledger
// head.
func (n *Node) epochLoop(ctx context.Context) error {
	logger.Debug("enter epoch loop")
	defer logger.Debug("leave epoch loop")

	ticker := time.NewTicker(time.Duration(merklith.BlockInterval()) * time.Second)
	defer ticker.Stop()

	epochLength := merklith.EpochLength()
	var lastBoundary uint64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		head, _ := n.ledger.Head()
		boundary := head / epochLength
		if head == 0 || boundary == lastBoundary {
			continue
		}
		lastBoundary = boundary

		result := n.engine.AdvanceEpoch(head)
		logger.Info("epoch advanced",
			"epoch", result.Epoch, "evicted", len(result.Evicted), "skipped", result.Skipped)
	}
}

// housekeepLoop periodically drops aged-out evidence and open rounds.
func (n *Node) housekeepLoop(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Duration(merklith.BlockInterval()) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		head, _ := n.ledger.Head()
		n.engine.Prune(head, evidenceKeepBlocks)
	}
}

// HandleProposal processes a proposal received from the network and, when it
// verifies, casts the local votes on it.
func (n *Node) HandleProposal(prop *proposal.Proposal, now uint64) error {
	if err := n.engine.SubmitProposal(prop, now); err != nil {
		return err
	}
	n.castVotes(prop, now)
	return nil
}

// HandleVote processes a ledger vote received from the network.
func (n *Node) HandleVote(vote *proposal.Vote, now uint64) error {
	_, err := n.engine.SubmitVote(vote, now)
	return err
}

// HandleFinalityVote processes an attestation received from the network and
// commits the block locally when it crosses the finality threshold.
func (n *Node) HandleFinalityVote(vote *bft.Vote, now uint64) error {
	final, err := n.engine.SubmitFinalityVote(vote, now)
	if err != nil {
		return err
	}
	if final {
		n.commitFinalized(vote.BlockNumber, vote.BlockHash)
	}
	return nil
}

// castVotes signs and submits the local ledger vote and attestation for the
// proposal, broadcasting both.
func (n *Node) castVotes(prop *proposal.Proposal, now uint64) {
	vote := &proposal.Vote{
		BlockHash: prop.Hash,
		Voter:     n.master.Address(),
		Kind:      proposal.VoteFor,
		Timestamp: now,
	}
	sig, err := n.master.Sign(vote.SigningHash())
	if err != nil {
		logger.Error("failed to sign vote", "err", err)
		return
	}
	vote.Signature = sig
	if _, err := n.engine.SubmitVote(vote, now); err != nil {
		logger.Debug("own vote rejected", "number", prop.Number, "err", err)
	} else {
		n.bc.BroadcastVote(vote)
	}

	attestation := &bft.Vote{
		BlockNumber: prop.Number,
		BlockHash:   prop.Hash,
		Signer:      n.master.Address(),
		Timestamp:   now,
	}
	if attestation.Signature, err = n.master.Sign(attestation.SigningHash()); err != nil {
		logger.Error("failed to sign attestation", "err", err)
		return
	}
	final, err := n.engine.SubmitFinalityVote(attestation, now)
	if err != nil {
		logger.Debug("own attestation rejected", "number", prop.Number, "err", err)
		return
	}
	n.bc.BroadcastFinalityVote(attestation)
	if final {
		n.commitFinalized(prop.Number, prop.Hash)
	}
}

// commitFinalized appends the finalized block to the ledger and wakes
// finality waiters.
func (n *Node) commitFinalized(number uint64, hash merklith.Bytes32) {
	if err := n.ledger.Commit(number, hash); err != nil {
		logger.Error("ledger commit failed", "number", number, "err", err)
		return
	}
	n.finalizedSignal.Broadcast()
}

// FinalizedWaiter returns a waiter woken whenever a block is finalized and
// committed locally.
func (n *Node) FinalizedWaiter() *co.Waiter {
	return n.finalizedSignal.NewWaiter()
}
