package sqlite

import (
	"context"
)

type consentsRepo struct {
	db dbtx
}

func (r *consentsRepo) HasConsent(ctx context.Context, authID, clientID string) (bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM consents WHERE user_auth_id = ? AND client_id = ?`,
		authID, clientID)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *consentsRepo) RecordConsent(ctx context.Context, authID, clientID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO consents (user_auth_id, client_id, created_at) VALUES (?, ?, ?)`,
		authID, clientID, formatTime(now()))
	return err
}

func (r *consentsRepo) RevokeConsent(ctx context.Context, authID, clientID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM consents WHERE user_auth_id = ? AND client_id = ?`,
		authID, clientID)
	return err
}
