package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atharv3903/fedigraph/internal/graph"
	"github.com/atharv3903/fedigraph/internal/model"
)

type memStore struct {
	mu         sync.Mutex
	accounts   map[string]model.Account
	byHandle   map[string]string
	neighbors  map[string][]model.Account
	complete   map[string]bool
	failLookup error
}

func newMemStore() *memStore {
	return &memStore{
		accounts:  make(map[string]model.Account),
		byHandle:  make(map[string]string),
		neighbors: make(map[string][]model.Account),
		complete:  make(map[string]bool),
	}
}

func (s *memStore) UpsertAccount(_ context.Context, a model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.Key()] = a
	s.byHandle[a.Acct] = a.Key()
	return nil
}

func (s *memStore) LookupByHandle(_ context.Context, acct string) (model.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLookup != nil {
		return model.Account{}, false, s.failLookup
	}
	key, ok := s.byHandle[acct]
	if !ok {
		return model.Account{}, false, nil
	}
	return s.accounts[key], true, nil
}

func (s *memStore) LookupByKey(_ context.Context, key string) (model.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[key]
	return a, ok, nil
}

func (s *memStore) HasCompleteNeighbors(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete[key], nil
}

func (s *memStore) ReadNeighbors(_ context.Context, key string) ([]model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.neighbors[key], nil
}

func (s *memStore) WriteNeighborSet(_ context.Context, src model.Account, neighbors []model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[src.Key()] = src
	for _, n := range neighbors {
		s.accounts[n.Key()] = n
		s.byHandle[n.Acct] = n.Key()
	}
	s.neighbors[src.Key()] = neighbors
	s.complete[src.Key()] = true
	return nil
}

type stubFetcher struct {
	result map[string][]model.Account
	err    error
}

func (f *stubFetcher) FetchNeighbors(_ context.Context, id string) ([]model.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result[id], nil
}

type stubIdentity struct{ accounts map[string]model.Account }

func (s *stubIdentity) LookupByHandle(_ context.Context, acct string) (model.Account, bool, error) {
	a, ok := s.accounts[acct]
	return a, ok, nil
}

func testServer(t *testing.T, fetcher graph.Fetcher) *Server {
	t.Helper()
	ident := &stubIdentity{accounts: map[string]model.Account{
		"alice": {ID: "1", Acct: "alice"},
	}}
	g := graph.New(newMemStore(), fetcher, ident, nil)
	return New(g, nil)
}

func TestHealthz(t *testing.T) {
	s := testServer(t, &stubFetcher{})
	rec := httptest.NewRecorder()
	s.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestNodeLookup(t *testing.T) {
	s := testServer(t, &stubFetcher{})

	rec := httptest.NewRecorder()
	s.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/node?acct=alice", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp nodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1", resp.Key)
	assert.Equal(t, "alice", resp.Acct)
}

func TestNodeNotFound(t *testing.T) {
	s := testServer(t, &stubFetcher{})
	rec := httptest.NewRecorder()
	s.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/node?acct=nobody", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNodeMissingParam(t *testing.T) {
	s := testServer(t, &stubFetcher{})
	rec := httptest.NewRecorder()
	s.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/node", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNeighborsExpansion(t *testing.T) {
	fetcher := &stubFetcher{result: map[string][]model.Account{
		"1": {{ID: "2", Acct: "bob"}},
	}}
	s := testServer(t, fetcher)

	rec := httptest.NewRecorder()
	s.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/neighbors?acct=alice", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp neighborsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.Acct)
	require.Len(t, resp.Neighbors, 1)
	assert.Equal(t, "bob", resp.Neighbors[0].Acct)
}

func TestNeighborsRemoteError(t *testing.T) {
	s := testServer(t, &stubFetcher{err: errors.New("connection reset by 203.0.113.7")})
	rec := httptest.NewRecorder()
	s.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/neighbors?acct=alice", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "remote fetch failed\n", rec.Body.String())
}

func TestStorageErrorBodyIsGeneric(t *testing.T) {
	st := newMemStore()
	st.failLookup = errors.New("dial tcp 10.0.0.5:3306: connect: connection refused")
	ident := &stubIdentity{accounts: map[string]model.Account{}}
	g := graph.New(st, &stubFetcher{}, ident, nil)
	s := New(g, nil)

	rec := httptest.NewRecorder()
	s.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/node?acct=alice", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error\n", rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestIndexStats(t *testing.T) {
	s := testServer(t, &stubFetcher{})
	rec := httptest.NewRecorder()
	s.Mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/index_stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Contains(t, stats, "gets")
	assert.Contains(t, stats, "puts")
}
