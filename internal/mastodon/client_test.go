package mastodon

import (
	"testing"

	madon "github.com/mattn/go-mastodon"
	"github.com/stretchr/testify/assert"
)

func ma(id, acct string) *madon.Account {
	return &madon.Account{ID: madon.ID(id), Acct: acct}
}

func TestPickAccount(t *testing.T) {
	tests := []struct {
		name    string
		results []*madon.Account
		query   string
		wantID  string
		wantOK  bool
	}{
		{
			name:    "single hit wins even without exact match",
			results: []*madon.Account{ma("1", "alice_art")},
			query:   "alice",
			wantID:  "1",
			wantOK:  true,
		},
		{
			name:    "exact match among several",
			results: []*madon.Account{ma("1", "alice_art"), ma("2", "alice")},
			query:   "alice",
			wantID:  "2",
			wantOK:  true,
		},
		{
			name:    "case-insensitive fallback",
			results: []*madon.Account{ma("1", "Alice"), ma("2", "alicornia")},
			query:   "alice",
			wantID:  "1",
			wantOK:  true,
		},
		{
			name:    "ambiguous case-insensitive matches",
			results: []*madon.Account{ma("1", "Alice"), ma("2", "ALICE")},
			query:   "alice",
			wantOK:  false,
		},
		{
			name:   "no results",
			query:  "alice",
			wantOK: false,
		},
		{
			name:    "several unrelated hits",
			results: []*madon.Account{ma("1", "alice_art"), ma("2", "alice_dev")},
			query:   "alice",
			wantOK:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit, ok := pickAccount(tt.results, tt.query)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, madon.ID(tt.wantID), hit.ID)
			}
		})
	}
}

func TestNewDefaults(t *testing.T) {
	c := New(Config{Server: "https://example.social", Following: true}, nil)
	assert.NotNil(t, c.api)
	assert.NotNil(t, c.log)
	// Sustained Mastodon limit is 1 req/s; zero config must not mean unlimited.
	assert.Equal(t, float64(1), float64(c.limiter.Limit()))
}
