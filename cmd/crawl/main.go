package main

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/atharv3903/fedigraph/internal/config"
	"github.com/atharv3903/fedigraph/internal/graph"
	"github.com/atharv3903/fedigraph/internal/mastodon"
	"github.com/atharv3903/fedigraph/internal/store"
)

// crawl expands the follow graph breadth-first around a seed account.
// Already-expanded nodes are served from the database, so re-running with a
// larger depth only fetches the new frontier.
func main() {
	cfg, cc := config.FromFlagsCrawl()

	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cc.Seed == "" {
		log.Fatal("missing -seed handle")
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	ctx := context.Background()

	st := store.New(db, cfg.Driver)
	if err := st.Init(ctx); err != nil {
		log.Fatal("init schema", zap.Error(err))
	}

	mc := mastodon.New(mastodon.Config{
		Server:      cfg.Server,
		AccessToken: cfg.AccessToken,
		Followers:   cfg.Followers,
		Following:   cfg.Following,
		RatePerSec:  cfg.RatePerSec,
	}, log)

	g := graph.New(st, mc, mc, log)

	seed, err := g.GetNode(ctx, cc.Seed)
	if err != nil {
		log.Fatal("resolve seed", zap.String("seed", cc.Seed), zap.Error(err))
	}

	frontier := []*graph.Node{seed}
	visited := map[string]bool{seed.Key(): true}
	edges := 0

	for depth := 0; depth < cc.Depth; depth++ {
		var next []*graph.Node
		for _, n := range frontier {
			neighbors, err := n.Neighbors(ctx)
			if err != nil {
				log.Fatal("expand node",
					zap.String("acct", n.Acct()), zap.Int("depth", depth), zap.Error(err))
			}
			edges += len(neighbors)
			for _, nb := range neighbors {
				if !visited[nb.Key()] {
					visited[nb.Key()] = true
					next = append(next, nb)
				}
			}
		}
		log.Info("depth complete",
			zap.Int("depth", depth+1),
			zap.Int("expanded", len(frontier)),
			zap.Int("frontier", len(next)))
		frontier = next
	}

	total, err := st.CountEdges(ctx)
	if err != nil {
		log.Fatal("count edges", zap.Error(err))
	}
	log.Info("crawl finished",
		zap.Int("nodes_seen", len(visited)),
		zap.Int("edges_walked", edges),
		zap.Int("edges_stored", total))
}
