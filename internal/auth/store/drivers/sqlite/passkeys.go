package sqlite

import (
	"context"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/store"
)

type passkeysRepo struct {
	db dbtx
}

func (r *passkeysRepo) CreatePasskey(ctx context.Context, p domain.Passkey) error {
	ts := formatTime(now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO passkeys (id, user_auth_id, credential_id, public_key, counter, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserAuthID, p.CredentialID, p.PublicKey, p.Counter, ts, ts)
	if err != nil && isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *passkeysRepo) GetPasskeyByCredentialID(ctx context.Context, credentialID string) (domain.Passkey, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_auth_id, credential_id, public_key, counter, created_at, updated_at
		FROM passkeys WHERE credential_id = ?`, credentialID)
	return scanPasskey(row.Scan)
}

func (r *passkeysRepo) ListPasskeysForUser(ctx context.Context, authID string) ([]domain.Passkey, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_auth_id, credential_id, public_key, counter, created_at, updated_at
		FROM passkeys WHERE user_auth_id = ? ORDER BY created_at`, authID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []domain.Passkey
	for rows.Next() {
		p, err := scanPasskey(rows.Scan)
		if err != nil {
			return nil, err
		}
		keys = append(keys, p)
	}
	return keys, rows.Err()
}

func (r *passkeysRepo) UpdatePasskeyCounter(ctx context.Context, id string, counter uint32) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE passkeys SET counter = ?, updated_at = ? WHERE id = ?`,
		counter, formatTime(now()), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *passkeysRepo) DeletePasskey(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM passkeys WHERE id = ?`, id)
	return err
}

func scanPasskey(scan func(dest ...any) error) (domain.Passkey, error) {
	var (
		p                    domain.Passkey
		createdAt, updatedAt string
	)
	err := scan(&p.ID, &p.UserAuthID, &p.CredentialID, &p.PublicKey, &p.Counter, &createdAt, &updatedAt)
	if err != nil {
		return domain.Passkey{}, mapNotFound(err)
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}
