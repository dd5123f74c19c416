package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atharv3903/fedigraph/internal/graph"
)

type Server struct {
	Mux   *http.ServeMux
	Graph *graph.Graph
	Log   *zap.Logger
}

type nodeResponse struct {
	Key  string `json:"key"`
	Acct string `json:"acct"`
}

type neighborsResponse struct {
	Key       string         `json:"key"`
	Acct      string         `json:"acct"`
	Neighbors []nodeResponse `json:"neighbors"`
}

func New(g *graph.Graph, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		Mux:   http.NewServeMux(),
		Graph: g,
		Log:   log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})

	s.Mux.HandleFunc("/node", s.handleNode)
	s.Mux.HandleFunc("/neighbors", s.handleNeighbors)

	s.Mux.HandleFunc("/debug/index_stats", func(w http.ResponseWriter, _ *http.Request) {
		gets, hits, puts := s.Graph.IndexStats()
		stats := map[string]int{
			"gets": gets,
			"hits": hits,
			"puts": puts,
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	})
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	acct := r.URL.Query().Get("acct")
	if acct == "" {
		http.Error(w, "missing acct parameter", http.StatusBadRequest)
		return
	}

	n, err := s.Graph.GetNode(r.Context(), acct)
	if err != nil {
		s.fail(w, acct, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(nodeResponse{Key: n.Key(), Acct: n.Acct()})
}

// handleNeighbors may block for the duration of a rate-limited remote fetch.
func (s *Server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	acct := r.URL.Query().Get("acct")
	if acct == "" {
		http.Error(w, "missing acct parameter", http.StatusBadRequest)
		return
	}

	n, err := s.Graph.GetNode(r.Context(), acct)
	if err != nil {
		s.fail(w, acct, err)
		return
	}
	neighbors, err := n.Neighbors(r.Context())
	if err != nil {
		s.fail(w, acct, err)
		return
	}

	resp := neighborsResponse{
		Key:       n.Key(),
		Acct:      n.Acct(),
		Neighbors: make([]nodeResponse, 0, len(neighbors)),
	}
	for _, nb := range neighbors {
		resp.Neighbors = append(resp.Neighbors, nodeResponse{Key: nb.Key(), Acct: nb.Acct()})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// fail logs the full error and answers with a generic message; storage and
// remote detail stays out of response bodies.
func (s *Server) fail(w http.ResponseWriter, acct string, err error) {
	s.Log.Warn("request failed", zap.String("acct", acct), zap.Error(err))
	code, msg := status(err)
	http.Error(w, msg, code)
}

func status(err error) (int, string) {
	var re *graph.RemoteError
	switch {
	case errors.Is(err, graph.ErrIdentityNotFound):
		return http.StatusNotFound, "account not found"
	case errors.As(err, &re):
		return http.StatusBadGateway, "remote fetch failed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
