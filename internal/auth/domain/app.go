package domain

import "time"

type AppType string

const (
	AppTypeSPA AppType = "spa"
	AppTypeS2S AppType = "s2s"
)

// App is a registered OAuth client. Read-only collaborator data during a
// request; MFA override flags apply only when UseSystemMfaConfig is false.
type App struct {
	ClientID           string
	Name               string
	SecretHash         string // argon2 encoded, s2s apps only
	Type               AppType
	RedirectURIs       []string
	Scopes             []string
	IsActive           bool
	UseSystemMfaConfig bool

	RequireEmailMfa       bool
	RequireOtpMfa         bool
	RequireSmsMfa         bool
	AllowEmailMfaAsBackup bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AllowsRedirectURI reports whether uri is one of the registered redirect
// URIs. Comparison is exact; registration is the place for normalization.
func (a *App) AllowsRedirectURI(uri string) bool {
	for _, u := range a.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}
