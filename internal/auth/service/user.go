package service

import (
	"context"
	"errors"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/store"
)

// UserService serves the userinfo projection and account linking.
type UserService struct {
	Store store.Store
	Cfg   Config
}

// Userinfo is the profile projection returned by the userinfo endpoint.
// LinkedAccount is included only when the user has one.
type Userinfo struct {
	AuthID        string         `json:"authId"`
	Email         string         `json:"email"`
	EmailVerified bool           `json:"emailVerified"`
	FirstName     string         `json:"firstName,omitempty"`
	LastName      string         `json:"lastName,omitempty"`
	Locale        string         `json:"locale,omitempty"`
	Roles         []string       `json:"roles,omitempty"`
	Org           string         `json:"org,omitempty"`
	MfaTypes      []string       `json:"mfaTypes"`
	LinkedAccount *LinkedAccount `json:"linkedAccount,omitempty"`
}

type LinkedAccount struct {
	AuthID string `json:"authId"`
	Email  string `json:"email"`
}

// GetUserinfo builds the projection for a verified access-token subject.
func (s *UserService) GetUserinfo(ctx context.Context, authID string) (*Userinfo, error) {
	user, err := s.Store.Users().GetUserByAuthID(ctx, authID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.ErrNoUser
	}
	if err != nil {
		return nil, err
	}

	info := &Userinfo{
		AuthID:        user.AuthID,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		Locale:        user.Locale,
		Roles:         user.Roles,
		MfaTypes:      mfaTypeStrings(user.MfaTypes),
	}
	if s.Cfg.EnableNames {
		info.FirstName = user.FirstName
		info.LastName = user.LastName
	}
	if s.Cfg.EnableOrg {
		info.Org = user.OrgSlug
	}

	if user.LinkedAuthID != "" {
		linked, err := s.Store.Users().GetUserByAuthID(ctx, user.LinkedAuthID)
		if err == nil {
			info.LinkedAccount = &LinkedAccount{AuthID: linked.AuthID, Email: linked.Email}
		}
	}

	return info, nil
}

// LinkAccounts creates the symmetric link between two users. Linking is
// exclusive: either side already linked fails with its own error.
func (s *UserService) LinkAccounts(ctx context.Context, authID, targetAuthID string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		user, err := tx.Users().GetUserByAuthID(ctx, authID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrNoUser
		}
		if err != nil {
			return err
		}
		if user.LinkedAuthID != "" {
			return domain.ErrUserAlreadyLinked
		}

		target, err := tx.Users().GetUserByAuthID(ctx, targetAuthID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrNoUser
		}
		if err != nil {
			return err
		}
		if target.LinkedAuthID != "" {
			return domain.ErrTargetUserAlreadyLinked
		}

		return tx.Users().LinkUsers(ctx, authID, targetAuthID)
	})
}

// UnlinkAccounts removes the link on both sides.
func (s *UserService) UnlinkAccounts(ctx context.Context, authID string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		user, err := tx.Users().GetUserByAuthID(ctx, authID)
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrNoUser
		}
		if err != nil {
			return err
		}
		if user.LinkedAuthID == "" {
			return nil
		}
		return tx.Users().UnlinkUsers(ctx, authID, user.LinkedAuthID)
	})
}

func mfaTypeStrings(types []domain.MfaType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
