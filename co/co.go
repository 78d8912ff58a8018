// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package co provides small concurrency helpers shared by the node and the
// http servers.
package co

import "sync"

// Goes tracks goroutines started through Go so a caller can drain them all
// before shutting down. The zero value is ready to use.
type Goes struct {
	wg sync.WaitGroup
}

// Go starts f on a new goroutine tracked by the group. Goroutines may start
// further goroutines through the same group; Wait observes those too.
func (g *Goes) Go(f func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		f()
	}()
}

// Wait blocks until every tracked goroutine has returned.
func (g *Goes) Wait() {
	g.wg.Wait()
}

// Signal is a broadcast point: goroutines park on a Waiter and Broadcast
// wakes all of them at once. Unlike sync.Cond the wait side is a channel,
// so waiters can select on it together with a context or ticker.
// The zero value is ready to use.
type Signal struct {
	mu sync.Mutex
	ch chan struct{}
}

// pending returns the channel the next Broadcast will close.
func (s *Signal) pending() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch == nil {
		s.ch = make(chan struct{})
	}
	return s.ch
}

// Broadcast wakes every goroutine parked on the signal and re-arms it.
func (s *Signal) Broadcast() {
	s.mu.Lock()
	if s.ch != nil {
		close(s.ch)
	}
	s.ch = make(chan struct{})
	s.mu.Unlock()
}

// NewWaiter returns a waiter armed for the next broadcast. A broadcast
// between two C calls is never missed.
func (s *Signal) NewWaiter() *Waiter {
	return &Waiter{sig: s, ch: s.pending()}
}

// Waiter waits for broadcasts on its signal. Not safe for concurrent use
// by multiple goroutines.
type Waiter struct {
	sig *Signal
	ch  chan struct{}
}

// C returns the channel closed by the next broadcast, re-arming the waiter
// for the one after.
func (w *Waiter) C() <-chan struct{} {
	ch := w.ch
	w.ch = w.sig.pending()
	return ch
}
