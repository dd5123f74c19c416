package graph

import (
	"context"
	"sync"

	"github.com/atharv3903/fedigraph/internal/model"
)

// Node is the caller-facing handle for one account. Nodes are interned in
// the graph's index, so any two handles for the same key are the same
// pointer and never diverge in neighbor state.
type Node struct {
	acct model.Account
	g    *Graph

	mu        sync.Mutex
	loaded    bool
	neighbors []*Node
}

// Key returns the stable internal key.
func (n *Node) Key() string { return n.acct.Key() }

// Acct returns the human-facing handle.
func (n *Node) Acct() string { return n.acct.Acct }

// Neighbors returns the node's complete outgoing neighbor set, loading it on
// first access via the in-memory cache, then the store, then the remote
// source. After the first successful call it is a pure read.
func (n *Node) Neighbors(ctx context.Context) ([]*Node, error) {
	return n.g.neighbors(ctx, n)
}

func (n *Node) cached() ([]*Node, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.neighbors, n.loaded
}

func (n *Node) setNeighbors(ns []*Node) {
	n.mu.Lock()
	n.neighbors = ns
	n.loaded = true
	n.mu.Unlock()
}
