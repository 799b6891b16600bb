package sqlite

import (
	"context"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/store"
)

type appsRepo struct {
	db dbtx
}

func (r *appsRepo) GetAppByClientID(ctx context.Context, clientID string) (domain.App, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT client_id, name, secret_hash, type, redirect_uris, scopes, is_active,
			use_system_mfa_config, require_email_mfa, require_otp_mfa, require_sms_mfa,
			allow_email_mfa_as_backup, created_at, updated_at
		FROM apps WHERE client_id = ?`, clientID)

	var (
		a                    domain.App
		appType              string
		redirectURIs, scopes string
		createdAt, updatedAt string
	)
	err := row.Scan(
		&a.ClientID, &a.Name, &a.SecretHash, &appType, &redirectURIs, &scopes, &a.IsActive,
		&a.UseSystemMfaConfig, &a.RequireEmailMfa, &a.RequireOtpMfa, &a.RequireSmsMfa,
		&a.AllowEmailMfaAsBackup, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.App{}, mapNotFound(err)
	}
	a.Type = domain.AppType(appType)
	a.RedirectURIs = splitList(redirectURIs)
	a.Scopes = splitList(scopes)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return a, nil
}

func (r *appsRepo) CreateApp(ctx context.Context, a domain.App) error {
	ts := formatTime(now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO apps (
			client_id, name, secret_hash, type, redirect_uris, scopes, is_active,
			use_system_mfa_config, require_email_mfa, require_otp_mfa, require_sms_mfa,
			allow_email_mfa_as_backup, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ClientID, a.Name, a.SecretHash, string(a.Type), joinList(a.RedirectURIs),
		joinList(a.Scopes), boolToInt(a.IsActive), boolToInt(a.UseSystemMfaConfig),
		boolToInt(a.RequireEmailMfa), boolToInt(a.RequireOtpMfa), boolToInt(a.RequireSmsMfa),
		boolToInt(a.AllowEmailMfaAsBackup), ts, ts,
	)
	if err != nil && isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}
