package sqlite

import (
	"context"
	"database/sql"

	"github.com/ariaauth/aria/internal/auth/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // nothing to close; outer DB stays open

// Ping is a no-op for transactions, the connection already exists.
func (t *txStore) Ping(ctx context.Context) error {
	return nil
}

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return sql.ErrTxDone
}

func (t *txStore) Users() store.Users           { return &usersRepo{db: t.tx} }
func (t *txStore) Apps() store.Apps             { return &appsRepo{db: t.tx} }
func (t *txStore) Orgs() store.Orgs             { return &orgsRepo{db: t.tx} }
func (t *txStore) Consents() store.Consents     { return &consentsRepo{db: t.tx} }
func (t *txStore) SignInLogs() store.SignInLogs { return &signInLogsRepo{db: t.tx} }
func (t *txStore) Passkeys() store.Passkeys     { return &passkeysRepo{db: t.tx} }

func (t *txStore) ApplyMigrations() error { return nil } // no-op; migrations run before any tx
