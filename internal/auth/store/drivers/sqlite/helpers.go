package sqlite

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/store"
)

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// List columns are stored as space-joined text, matching the scope encoding
// on the wire.
func joinList(vals []string) string {
	return strings.Join(vals, " ")
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Fields(s)
}

func joinMfaTypes(types []domain.MfaType) string {
	vals := make([]string, len(types))
	for i, t := range types {
		vals[i] = string(t)
	}
	return joinList(vals)
}

func splitMfaTypes(s string) []domain.MfaType {
	fields := splitList(s)
	if len(fields) == 0 {
		return nil
	}
	types := make([]domain.MfaType, len(fields))
	for i, f := range fields {
		types[i] = domain.MfaType(f)
	}
	return types
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func now() time.Time { return time.Now().UTC() }
