package graph

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/atharv3903/fedigraph/internal/cache"
	"github.com/atharv3903/fedigraph/internal/model"
)

// Fetcher returns the complete outgoing neighbor set of an account, in the
// order the remote server reports it. It paginates sequentially and honors
// the server rate limit internally; the graph neither retries nor backs off.
type Fetcher interface {
	FetchNeighbors(ctx context.Context, id string) ([]model.Account, error)
}

// IdentitySource resolves a handle against the remote server.
type IdentitySource interface {
	LookupByHandle(ctx context.Context, acct string) (model.Account, bool, error)
}

// Store is the durable adjacency store the graph writes through to. It is
// the single source of truth across process restarts.
type Store interface {
	UpsertAccount(ctx context.Context, a model.Account) error
	LookupByHandle(ctx context.Context, acct string) (model.Account, bool, error)
	LookupByKey(ctx context.Context, key string) (model.Account, bool, error)
	HasCompleteNeighbors(ctx context.Context, key string) (bool, error)
	ReadNeighbors(ctx context.Context, key string) ([]model.Account, error)
	WriteNeighborSet(ctx context.Context, src model.Account, neighbors []model.Account) error
}

// Graph mediates all access to nodes and edges: an in-memory node index,
// read-through to the store, and at-most-once remote expansion per node per
// process lifetime.
type Graph struct {
	store   Store
	fetcher Fetcher
	ident   IdentitySource
	index   *cache.Index[*Node]
	flight  singleflight.Group
	log     *zap.Logger
}

func New(store Store, fetcher Fetcher, ident IdentitySource, log *zap.Logger) *Graph {
	if log == nil {
		log = zap.NewNop()
	}
	return &Graph{
		store:   store,
		fetcher: fetcher,
		ident:   ident,
		index:   cache.NewIndex[*Node](),
		log:     log,
	}
}

// GetNode resolves a handle to its node, creating the node with an unloaded
// neighbor set if this is the first reference. It never fetches neighbors.
// Resolution order: index, store, remote identity source.
func (g *Graph) GetNode(ctx context.Context, handle string) (*Node, error) {
	handle = normalizeHandle(handle)
	if handle == "" {
		return nil, ErrIdentityNotFound
	}

	if key, ok := g.index.KeyForHandle(handle); ok {
		if n, ok := g.index.Get(key); ok {
			return n, nil
		}
	}

	a, ok, err := g.store.LookupByHandle(ctx, handle)
	if err != nil {
		return nil, &StorageError{Op: "lookup", Key: handle, Err: err}
	}
	if ok {
		return g.intern(a), nil
	}

	a, ok, err = g.ident.LookupByHandle(ctx, handle)
	if err != nil {
		return nil, &RemoteError{Key: handle, Err: err}
	}
	if !ok {
		return nil, ErrIdentityNotFound
	}
	if err := g.store.UpsertAccount(ctx, a); err != nil {
		return nil, &StorageError{Op: "upsert", Key: a.Key(), Err: err}
	}
	return g.intern(a), nil
}

// NodeByKey returns the node for an internal key, consulting the index and
// then the store. Keys never seen by this store are ErrIdentityNotFound.
func (g *Graph) NodeByKey(ctx context.Context, key string) (*Node, error) {
	if n, ok := g.index.Get(key); ok {
		return n, nil
	}
	a, ok, err := g.store.LookupByKey(ctx, key)
	if err != nil {
		return nil, &StorageError{Op: "lookup", Key: key, Err: err}
	}
	if !ok {
		return nil, ErrIdentityNotFound
	}
	return g.intern(a), nil
}

// Neighbors returns the complete outgoing neighbor set for key, loading it
// through the cache/store/remote chain on first access.
func (g *Graph) Neighbors(ctx context.Context, key string) ([]*Node, error) {
	n, err := g.NodeByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return g.neighbors(ctx, n)
}

// IndexStats exposes the node index counters.
func (g *Graph) IndexStats() (gets, hits, puts int) {
	return g.index.Stats()
}

func (g *Graph) neighbors(ctx context.Context, n *Node) ([]*Node, error) {
	if ns, ok := n.cached(); ok {
		return ns, nil
	}

	// Collapse concurrent loads for the same key into one. Completed calls
	// leave the flight group, so a failed load is retried from scratch by
	// the next caller. The flight is shared by every waiter, so it must
	// not die with whichever caller happened to start it.
	v, err, _ := g.flight.Do(n.Key(), func() (any, error) {
		if ns, ok := n.cached(); ok {
			return ns, nil
		}
		return g.loadNeighbors(context.WithoutCancel(ctx), n)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*Node), nil
}

// loadNeighbors runs steps 2 and 3 of the expansion chain: store read-through,
// then a single remote fetch persisted atomically. The in-memory loaded flag
// flips only after the store accepted the full set.
func (g *Graph) loadNeighbors(ctx context.Context, n *Node) ([]*Node, error) {
	key := n.Key()

	complete, err := g.store.HasCompleteNeighbors(ctx, key)
	if err != nil {
		return nil, &StorageError{Op: "completeness", Key: key, Err: err}
	}
	if complete {
		accounts, err := g.store.ReadNeighbors(ctx, key)
		if err != nil {
			return nil, &StorageError{Op: "read", Key: key, Err: err}
		}
		ns := g.internAll(accounts)
		n.setNeighbors(ns)
		g.log.Debug("neighbors loaded from store",
			zap.String("key", key), zap.Int("count", len(ns)))
		return ns, nil
	}

	// Accounts on other instances are never expanded remotely; their
	// tracked neighbor set is empty and final.
	if model.Remote(key) {
		n.setNeighbors([]*Node{})
		return []*Node{}, nil
	}

	accounts, err := g.fetcher.FetchNeighbors(ctx, n.acct.ID)
	if err != nil {
		return nil, &RemoteError{Key: key, Err: err}
	}
	accounts = dedupe(key, accounts)

	if err := g.store.WriteNeighborSet(ctx, n.acct, accounts); err != nil {
		return nil, &StorageError{Op: "write", Key: key, Err: err}
	}

	ns := g.internAll(accounts)
	n.setNeighbors(ns)
	g.log.Info("neighbors fetched",
		zap.String("key", key), zap.String("acct", n.acct.Acct), zap.Int("count", len(ns)))
	return ns, nil
}

func (g *Graph) intern(a model.Account) *Node {
	n, _ := g.index.Intern(a.Key(), a.Acct, &Node{acct: a, g: g})
	return n
}

func (g *Graph) internAll(accounts []model.Account) []*Node {
	ns := make([]*Node, 0, len(accounts))
	for _, a := range accounts {
		ns = append(ns, g.intern(a))
	}
	return ns
}

// dedupe drops repeated keys (an account can show up in both directions of a
// fetch) and self-edges, preserving first-seen order.
func dedupe(self string, accounts []model.Account) []model.Account {
	seen := make(map[string]struct{}, len(accounts))
	out := accounts[:0]
	for _, a := range accounts {
		k := a.Key()
		if k == self {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out
}

func normalizeHandle(h string) string {
	h = strings.TrimSpace(h)
	return strings.TrimPrefix(h, "@")
}
