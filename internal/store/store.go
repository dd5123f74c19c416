package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/atharv3903/fedigraph/internal/model"
)

// Store persists accounts and follow edges over database/sql.
// Supported drivers: "sqlite3" (default, local file) and "mysql".
type Store struct {
	DB     *sql.DB
	Driver string
}

func New(db *sql.DB, driver string) Store {
	return Store{DB: db, Driver: driver}
}

// Init creates the schema if it does not exist yet.
func (s Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id               VARCHAR(128) PRIMARY KEY,
			acct             VARCHAR(255) NOT NULL,
			neighbors_loaded BOOLEAN      NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS follows (
			src VARCHAR(128) NOT NULL,
			dst VARCHAR(128) NOT NULL,
			PRIMARY KEY (src, dst)
		)`,
	}
	for _, q := range stmts {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	// MySQL has no IF NOT EXISTS for CREATE INDEX; re-runs report the
	// index as a duplicate key name instead.
	if _, err := s.DB.ExecContext(ctx, s.createIndexSQL()); err != nil && !isDuplicateIndex(err) {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s Store) createIndexSQL() string {
	if s.Driver == "mysql" {
		return `CREATE INDEX idx_accounts_acct ON accounts (acct)`
	}
	return `CREATE INDEX IF NOT EXISTS idx_accounts_acct ON accounts (acct)`
}

// errDupKeyName is MySQL's ER_DUP_KEYNAME.
const errDupKeyName = 1061

func isDuplicateIndex(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == errDupKeyName
}

// upsertAccountSQL keeps the handle current without touching neighbors_loaded.
func (s Store) upsertAccountSQL() string {
	if s.Driver == "mysql" {
		return `INSERT INTO accounts (id, acct) VALUES (?, ?)
			ON DUPLICATE KEY UPDATE acct = VALUES(acct)`
	}
	return `INSERT INTO accounts (id, acct) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET acct = excluded.acct`
}

func (s Store) insertEdgeSQL() string {
	if s.Driver == "mysql" {
		return `INSERT IGNORE INTO follows (src, dst) VALUES (?, ?)`
	}
	return `INSERT OR IGNORE INTO follows (src, dst) VALUES (?, ?)`
}

// UpsertAccount records an account's identity mapping.
func (s Store) UpsertAccount(ctx context.Context, a model.Account) error {
	_, err := s.DB.ExecContext(ctx, s.upsertAccountSQL(), a.Key(), a.Acct)
	return err
}

// LookupByHandle resolves a handle to the account it identifies.
func (s Store) LookupByHandle(ctx context.Context, acct string) (model.Account, bool, error) {
	return s.lookup(ctx, `SELECT id, acct FROM accounts WHERE acct = ?`, acct)
}

// LookupByKey resolves an internal key back to the account it identifies.
func (s Store) LookupByKey(ctx context.Context, key string) (model.Account, bool, error) {
	return s.lookup(ctx, `SELECT id, acct FROM accounts WHERE id = ?`, key)
}

func (s Store) lookup(ctx context.Context, query, arg string) (model.Account, bool, error) {
	var key, acct string
	err := s.DB.QueryRowContext(ctx, query, arg).Scan(&key, &acct)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, false, nil
	}
	if err != nil {
		return model.Account{}, false, err
	}
	// The stored id is the internal key; strip any instance postfix to get
	// back the server-local ID.
	id := key
	if at := strings.IndexByte(key, '@'); at != -1 {
		id = key[:at]
	}
	return model.Account{ID: id, Acct: acct}, true, nil
}

// HasCompleteNeighbors reports whether key's full outgoing neighbor set has
// been persisted (the completeness marker).
func (s Store) HasCompleteNeighbors(ctx context.Context, key string) (bool, error) {
	var loaded bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT neighbors_loaded FROM accounts WHERE id = ?`, key).Scan(&loaded)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return loaded, nil
}

// ReadNeighbors returns the persisted neighbor accounts of key.
func (s Store) ReadNeighbors(ctx context.Context, key string) ([]model.Account, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT a.id, a.acct
		FROM follows f
		JOIN accounts a ON a.id = f.dst
		WHERE f.src = ?
		ORDER BY a.acct
	`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Account, 0, 8)
	for rows.Next() {
		var k, acct string
		if err := rows.Scan(&k, &acct); err != nil {
			return nil, err
		}
		id := k
		if at := strings.IndexByte(k, '@'); at != -1 {
			id = k[:at]
		}
		out = append(out, model.Account{ID: id, Acct: acct})
	}
	return out, rows.Err()
}

// WriteNeighborSet persists src's complete outgoing neighbor set in one
// transaction: neighbor account rows, follow edges, and the completeness
// marker all commit together or not at all. Re-writing the same set is a
// no-op for existing rows, so partial prior runs merge cleanly.
func (s Store) WriteNeighborSet(ctx context.Context, src model.Account, neighbors []model.Account) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.upsertAccountSQL(), src.Key(), src.Acct); err != nil {
		return err
	}
	for _, n := range neighbors {
		if _, err := tx.ExecContext(ctx, s.upsertAccountSQL(), n.Key(), n.Acct); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.insertEdgeSQL(), src.Key(), n.Key()); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET neighbors_loaded = 1 WHERE id = ?`, src.Key()); err != nil {
		return err
	}
	return tx.Commit()
}

// CountEdges returns the number of persisted follow edges.
func (s Store) CountEdges(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM follows`).Scan(&n)
	return n, err
}
