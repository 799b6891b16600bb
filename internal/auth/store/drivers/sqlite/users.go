package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `auth_id, email, password_hash, first_name, last_name, locale, roles,
	mfa_types, otp_secret, otp_verified, sms_phone_number, sms_phone_number_verified,
	email_verified, skip_passkey_enroll, recovery_code_hash, org_slug, is_active,
	linked_auth_id, created_at, updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u                    domain.User
		roles, mfaTypes      string
		createdAt, updatedAt string
	)
	err := row.Scan(
		&u.AuthID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Locale, &roles,
		&mfaTypes, &u.OtpSecret, &u.OtpVerified, &u.SmsPhoneNumber, &u.SmsPhoneNumberVerified,
		&u.EmailVerified, &u.SkipPasskeyEnroll, &u.RecoveryCodeHash, &u.OrgSlug, &u.IsActive,
		&u.LinkedAuthID, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Roles = splitList(roles)
	u.MfaTypes = splitMfaTypes(mfaTypes)
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return u, nil
}

func (r *usersRepo) GetUserByAuthID(ctx context.Context, authID string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE auth_id = ?`, authID)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	ts := formatTime(now())
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			auth_id, email, password_hash, first_name, last_name, locale, roles,
			mfa_types, otp_secret, otp_verified, sms_phone_number, sms_phone_number_verified,
			email_verified, skip_passkey_enroll, recovery_code_hash, org_slug, is_active,
			linked_auth_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.AuthID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Locale, joinList(u.Roles),
		joinMfaTypes(u.MfaTypes), u.OtpSecret, boolToInt(u.OtpVerified),
		u.SmsPhoneNumber, boolToInt(u.SmsPhoneNumberVerified),
		boolToInt(u.EmailVerified), boolToInt(u.SkipPasskeyEnroll), u.RecoveryCodeHash,
		u.OrgSlug, boolToInt(u.IsActive), u.LinkedAuthID, ts, ts,
	)
	if err != nil && isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, authID, newHash string) error {
	return r.exec(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE auth_id = ?`,
		newHash, formatTime(now()), authID)
}

func (r *usersRepo) UpdateEmail(ctx context.Context, authID, email string) error {
	return r.exec(ctx,
		`UPDATE users SET email = ?, email_verified = 0, updated_at = ? WHERE auth_id = ?`,
		email, formatTime(now()), authID)
}

func (r *usersRepo) UpdateInfo(ctx context.Context, authID, firstName, lastName, locale string) error {
	return r.exec(ctx,
		`UPDATE users SET first_name = ?, last_name = ?, locale = ?, updated_at = ? WHERE auth_id = ?`,
		firstName, lastName, locale, formatTime(now()), authID)
}

func (r *usersRepo) UpdateMfaEnrollment(ctx context.Context, authID string, types []domain.MfaType) error {
	return r.exec(ctx,
		`UPDATE users SET mfa_types = ?, updated_at = ? WHERE auth_id = ?`,
		joinMfaTypes(types), formatTime(now()), authID)
}

func (r *usersRepo) UpdateOtpSecret(ctx context.Context, authID, secret string, verified bool) error {
	return r.exec(ctx,
		`UPDATE users SET otp_secret = ?, otp_verified = ?, updated_at = ? WHERE auth_id = ?`,
		secret, boolToInt(verified), formatTime(now()), authID)
}

func (r *usersRepo) UpdateSmsPhoneNumber(ctx context.Context, authID, number string, verified bool) error {
	return r.exec(ctx,
		`UPDATE users SET sms_phone_number = ?, sms_phone_number_verified = ?, updated_at = ? WHERE auth_id = ?`,
		number, boolToInt(verified), formatTime(now()), authID)
}

func (r *usersRepo) UpdateRecoveryCodeHash(ctx context.Context, authID, hash string) error {
	return r.exec(ctx,
		`UPDATE users SET recovery_code_hash = ?, updated_at = ? WHERE auth_id = ?`,
		hash, formatTime(now()), authID)
}

func (r *usersRepo) UpdateSkipPasskeyEnroll(ctx context.Context, authID string, skip bool) error {
	return r.exec(ctx,
		`UPDATE users SET skip_passkey_enroll = ?, updated_at = ? WHERE auth_id = ?`,
		boolToInt(skip), formatTime(now()), authID)
}

func (r *usersRepo) UpdateOrgSlug(ctx context.Context, authID, orgSlug string) error {
	return r.exec(ctx,
		`UPDATE users SET org_slug = ?, updated_at = ? WHERE auth_id = ?`,
		orgSlug, formatTime(now()), authID)
}

// LinkUsers sets both sides of the link in one statement per side; callers
// wrap the pair in WithTx together with the pre-checks.
func (r *usersRepo) LinkUsers(ctx context.Context, authID, targetAuthID string) error {
	if err := r.exec(ctx,
		`UPDATE users SET linked_auth_id = ?, updated_at = ? WHERE auth_id = ?`,
		targetAuthID, formatTime(now()), authID); err != nil {
		return err
	}
	return r.exec(ctx,
		`UPDATE users SET linked_auth_id = ?, updated_at = ? WHERE auth_id = ?`,
		authID, formatTime(now()), targetAuthID)
}

func (r *usersRepo) UnlinkUsers(ctx context.Context, authID, targetAuthID string) error {
	if err := r.exec(ctx,
		`UPDATE users SET linked_auth_id = '', updated_at = ? WHERE auth_id = ?`,
		formatTime(now()), authID); err != nil {
		return err
	}
	return r.exec(ctx,
		`UPDATE users SET linked_auth_id = '', updated_at = ? WHERE auth_id = ?`,
		formatTime(now()), targetAuthID)
}

func (r *usersRepo) SetActive(ctx context.Context, authID string, active bool) error {
	return r.exec(ctx,
		`UPDATE users SET is_active = ?, updated_at = ? WHERE auth_id = ?`,
		boolToInt(active), formatTime(now()), authID)
}

// exec runs an update that must touch exactly one row.
func (r *usersRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
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

// modernc.org/sqlite surfaces constraint failures as plain error strings.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
