package model

import "strings"

// Account is one fediverse account as reported by the remote server.
type Account struct {
	ID   string // server-assigned database ID
	Acct string // handle, e.g. "gargron" or "user@other.example"
}

// Key returns the stable internal key used for storage and cache indexing.
// Accounts on another instance get the instance domain appended so their
// server-local IDs never collide with IDs from the home instance.
func (a Account) Key() string {
	id := strings.TrimSpace(a.ID)
	if at := strings.Index(a.Acct, "@"); at != -1 {
		return id + a.Acct[at:]
	}
	return id
}

// Remote reports whether the key belongs to an account on another instance.
// Remote accounts are representable as nodes and edge targets, but their own
// neighbor sets are never fetched.
func Remote(key string) bool {
	return strings.Contains(key, "@")
}

// Edge is a directed follow relation between two internal keys.
type Edge struct {
	Src string
	Dst string
}
