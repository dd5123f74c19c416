package mastodon

import (
	"context"
	"strings"

	madon "github.com/mattn/go-mastodon"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/atharv3903/fedigraph/internal/model"
)

// pageLimit is the per-page account cap the Mastodon API allows.
const pageLimit = 80

// Client adapts the Mastodon API to the graph's Fetcher and IdentitySource
// contracts. It pages through follow lists one request at a time and paces
// itself against the server rate limit; callers see either the complete set
// or an error, never a partial page sequence.
type Client struct {
	api       *madon.Client
	limiter   *rate.Limiter
	followers bool
	following bool
	log       *zap.Logger
}

type Config struct {
	Server      string
	AccessToken string
	// Which follow directions count as neighbors. Following defaults on;
	// followers can be large and is off unless asked for.
	Followers bool
	Following bool
	// Requests per second against the API. Mastodon allows 300 requests
	// per 5 minutes, i.e. 1/s sustained.
	RatePerSec float64
}

func New(cfg Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	return &Client{
		api: madon.NewClient(&madon.Config{
			Server:      cfg.Server,
			AccessToken: cfg.AccessToken,
		}),
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		followers: cfg.Followers,
		following: cfg.Following,
		log:       log,
	}
}

// FetchNeighbors returns the account's complete neighbor set: the accounts
// it follows, plus its followers when enabled.
func (c *Client) FetchNeighbors(ctx context.Context, id string) ([]model.Account, error) {
	var out []model.Account
	if c.following {
		accs, err := c.fetchAll(ctx, id, c.api.GetAccountFollowing)
		if err != nil {
			return nil, err
		}
		out = append(out, accs...)
	}
	if c.followers {
		accs, err := c.fetchAll(ctx, id, c.api.GetAccountFollowers)
		if err != nil {
			return nil, err
		}
		out = append(out, accs...)
	}
	return out, nil
}

type pagedCall func(ctx context.Context, id madon.ID, pg *madon.Pagination) ([]*madon.Account, error)

func (c *Client) fetchAll(ctx context.Context, id string, call pagedCall) ([]model.Account, error) {
	var out []model.Account
	var pg madon.Pagination
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		pg.Limit = pageLimit
		accs, err := call(ctx, madon.ID(id), &pg)
		if err != nil {
			return nil, err
		}
		for _, a := range accs {
			out = append(out, model.Account{ID: string(a.ID), Acct: a.Acct})
		}
		c.log.Debug("fetched page",
			zap.String("id", id), zap.Int("page_size", len(accs)), zap.Int("total", len(out)))
		if pg.MaxID == "" {
			break
		}
		pg.SinceID = ""
		pg.MinID = ""
	}
	return out, nil
}

// LookupByHandle searches the server for the account a handle names.
// A single search hit wins; with several hits an exact acct match is
// required, tried case-sensitively and then case-insensitively.
func (c *Client) LookupByHandle(ctx context.Context, acct string) (model.Account, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.Account{}, false, err
	}
	results, err := c.api.AccountsSearch(ctx, acct, pageLimit)
	if err != nil {
		return model.Account{}, false, err
	}
	hit, ok := pickAccount(results, acct)
	if !ok {
		return model.Account{}, false, nil
	}
	return model.Account{ID: string(hit.ID), Acct: hit.Acct}, true, nil
}

func pickAccount(results []*madon.Account, acct string) (*madon.Account, bool) {
	if len(results) == 1 {
		return results[0], true
	}

	var exact []*madon.Account
	for _, a := range results {
		if a.Acct == acct {
			exact = append(exact, a)
		}
	}
	if len(exact) == 1 {
		return exact[0], true
	}

	lower := strings.ToLower(acct)
	exact = exact[:0]
	for _, a := range results {
		if strings.ToLower(a.Acct) == lower {
			exact = append(exact, a)
		}
	}
	if len(exact) == 1 {
		return exact[0], true
	}
	return nil, false
}
