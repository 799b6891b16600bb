package service

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ariaauth/aria/internal/auth/domain"
)

func TestHousekeepingPrunesOldSignInLogs(t *testing.T) {
	st := newFakeStore()
	st.logs = []domain.SignInLog{
		{ID: "old", CreatedAt: time.Now().Add(-100 * 24 * time.Hour)},
		{ID: "recent", CreatedAt: time.Now().Add(-time.Hour)},
	}

	svc := NewHousekeepingService(st, slog.Default(), time.Hour, 90*24*time.Hour)
	svc.cleanup()

	require.Len(t, st.logs, 1)
	require.Equal(t, "recent", st.logs[0].ID)
}

func TestHousekeepingStartStop(t *testing.T) {
	st := newFakeStore()
	svc := NewHousekeepingService(st, slog.Default(), time.Hour, 0)

	svc.Start()
	svc.Stop()
}

func TestHousekeepingDefaults(t *testing.T) {
	svc := NewHousekeepingService(newFakeStore(), slog.Default(), 0, 0)
	require.Equal(t, time.Hour, svc.Interval)
	require.Equal(t, 90*24*time.Hour, svc.Retention)
}
