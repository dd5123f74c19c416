package main

import (
	"context"
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/atharv3903/fedigraph/internal/api"
	"github.com/atharv3903/fedigraph/internal/config"
	"github.com/atharv3903/fedigraph/internal/graph"
	"github.com/atharv3903/fedigraph/internal/mastodon"
	"github.com/atharv3903/fedigraph/internal/store"
)

func main() {
	cfg := config.FromFlagsServer()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	st := store.New(db, cfg.Driver)
	if err := st.Init(context.Background()); err != nil {
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
	srv := api.New(g, log)

	log.Info("fedigraph listening", zap.String("addr", cfg.Addr))
	log.Fatal("server exited", zap.Error(http.ListenAndServe(cfg.Addr, srv.Mux)))
}
