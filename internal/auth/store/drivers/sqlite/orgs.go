package sqlite

import (
	"context"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/store"
)

type orgsRepo struct {
	db dbtx
}

func (r *orgsRepo) GetOrgBySlug(ctx context.Context, slug string) (domain.Org, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, slug, name, is_active, created_at FROM orgs WHERE slug = ?`, slug)

	var (
		o         domain.Org
		createdAt string
	)
	if err := row.Scan(&o.ID, &o.Slug, &o.Name, &o.IsActive, &createdAt); err != nil {
		return domain.Org{}, mapNotFound(err)
	}
	o.CreatedAt = parseTime(createdAt)
	return o, nil
}

func (r *orgsRepo) ListOrgSlugsForUser(ctx context.Context, authID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT org_slug FROM org_members WHERE user_auth_id = ? ORDER BY org_slug`, authID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		slugs = append(slugs, s)
	}
	return slugs, rows.Err()
}

func (r *orgsRepo) CreateOrg(ctx context.Context, o domain.Org) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO orgs (id, slug, name, is_active, created_at) VALUES (?, ?, ?, ?, ?)`,
		o.ID, o.Slug, o.Name, boolToInt(o.IsActive), formatTime(now()))
	if err != nil && isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *orgsRepo) AddMember(ctx context.Context, orgSlug, authID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO org_members (org_slug, user_auth_id) VALUES (?, ?)`,
		orgSlug, authID)
	return err
}
