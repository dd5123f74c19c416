package config

import (
	"flag"
	"os"
)

type Config struct {
	Driver      string // "sqlite3" or "mysql"
	DSN         string
	Server      string // Mastodon instance base URL
	AccessToken string
	Followers   bool
	Following   bool
	RatePerSec  float64
	Addr        string // HTTP bind address (server only)
}

func registerCommon(cfg *Config) {
	flag.StringVar(&cfg.Driver, "driver", envOr("DB_DRIVER", "sqlite3"), "database driver (sqlite3|mysql)")
	flag.StringVar(&cfg.DSN, "dsn", envOr("DB_DSN", "fedigraph.db"), "database DSN (file path for sqlite3)")
	flag.StringVar(&cfg.Server, "server", os.Getenv("MASTODON_SERVER"), "Mastodon instance URL")
	flag.StringVar(&cfg.AccessToken, "token", os.Getenv("MASTODON_ACCESS_TOKEN"), "Mastodon access token")
	flag.BoolVar(&cfg.Followers, "followers", false, "treat followers as neighbors (expensive under rate limiting)")
	flag.BoolVar(&cfg.Following, "following", true, "treat followed accounts as neighbors")
	flag.Float64Var(&cfg.RatePerSec, "rate", 1, "max API requests per second")
}

func FromFlagsServer() Config {
	var cfg Config
	registerCommon(&cfg)
	flag.StringVar(&cfg.Addr, "addr", ":8080", "HTTP bind address")
	flag.Parse()
	return cfg
}

type CrawlConfig struct {
	Seed  string
	Depth int
}

func FromFlagsCrawl() (Config, CrawlConfig) {
	var cfg Config
	var cc CrawlConfig
	registerCommon(&cfg)
	flag.StringVar(&cc.Seed, "seed", "", "handle of the account to expand from")
	flag.IntVar(&cc.Depth, "depth", 1, "how many hops out from the seed to expand")
	flag.Parse()
	return cfg, cc
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
