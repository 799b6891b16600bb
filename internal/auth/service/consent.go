package service

import (
	"context"

	"github.com/ariaauth/aria/internal/auth/store"
)

// ConsentGate checks and records per-user-per-app consent. It is only
// consulted when the consent feature flag is on.
type ConsentGate struct {
	Store store.Store
}

func (g *ConsentGate) Check(ctx context.Context, authID, clientID string) (bool, error) {
	return g.Store.Consents().HasConsent(ctx, authID, clientID)
}

func (g *ConsentGate) Record(ctx context.Context, authID, clientID string) error {
	return g.Store.Consents().RecordConsent(ctx, authID, clientID)
}

func (g *ConsentGate) Revoke(ctx context.Context, authID, clientID string) error {
	return g.Store.Consents().RevokeConsent(ctx, authID, clientID)
}
