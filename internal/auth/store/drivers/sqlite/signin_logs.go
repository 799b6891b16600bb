package sqlite

import (
	"context"
	"time"

	"github.com/ariaauth/aria/internal/auth/domain"
)

type signInLogsRepo struct {
	db dbtx
}

func (r *signInLogsRepo) AppendSignInLog(ctx context.Context, l domain.SignInLog) error {
	createdAt := l.CreatedAt
	if createdAt.IsZero() {
		createdAt = now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sign_in_logs (id, user_auth_id, client_id, ip, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.UserAuthID, l.ClientID, l.IP, l.UserAgent, formatTime(createdAt))
	return err
}

func (r *signInLogsRepo) DeleteSignInLogsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sign_in_logs WHERE created_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
