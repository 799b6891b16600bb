package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/store"
	"github.com/ariaauth/aria/pkg/cryptox"
	"github.com/ariaauth/aria/pkg/slogx"
)

// SeedApp describes an app registration provisioned at startup.
type SeedApp struct {
	ClientID     string
	Name         string
	ClientSecret string // empty for SPA apps
	Type         domain.AppType
	RedirectURIs []string
	Scopes       []string
}

// BootstrapService provisions app registrations on first start so the
// server is usable without an admin surface. Existing registrations are
// left untouched.
type BootstrapService struct {
	Store store.Store
	Apps  []SeedApp
}

func (s *BootstrapService) Run(ctx context.Context) error {
	l := slogx.FromContext(ctx)

	for _, seed := range s.Apps {
		_, err := s.Store.Apps().GetAppByClientID(ctx, seed.ClientID)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		app := domain.App{
			ClientID:           seed.ClientID,
			Name:               seed.Name,
			Type:               seed.Type,
			RedirectURIs:       seed.RedirectURIs,
			Scopes:             seed.Scopes,
			IsActive:           true,
			UseSystemMfaConfig: true,
			CreatedAt:          time.Now().UTC(),
			UpdatedAt:          time.Now().UTC(),
		}
		if seed.ClientSecret != "" {
			hash, err := cryptox.HashPassword(seed.ClientSecret)
			if err != nil {
				return err
			}
			app.SecretHash = hash
		}

		if err := s.Store.Apps().CreateApp(ctx, app); err != nil {
			l.Error("failed to provision app",
				slog.String("client_id", seed.ClientID),
				slog.Any("error", err),
			)
			return err
		}
		l.Info("provisioned app",
			slog.String("client_id", seed.ClientID),
			slog.String("type", string(seed.Type)),
		)
	}
	return nil
}
