package service

import (
	"time"

	"github.com/ariaauth/aria/internal/auth/domain"
)

// Config is the immutable feature-flag set threaded through every service.
// It is loaded once at startup; nothing in this package reads the
// environment directly.
type Config struct {
	EnableSignUp  bool
	EnableNames   bool
	NamesRequired bool

	EnableUserAppConsent bool

	EnforceOneMfaEnrollment []domain.MfaType
	EmailMfaRequired        bool
	OtpMfaRequired          bool
	SmsMfaRequired          bool
	AllowEmailMfaAsBackup   bool
	AllowPasskeyEnrollment  bool
	EnableRecoveryCode      bool

	EnablePasswordlessSignIn bool

	EnableOrg                  bool
	AllowUserSwitchOrgOnSignIn bool

	EnableAppBanner bool
	EnableSignInLog bool

	EnableEmbeddedAuth  bool
	EmbeddedAuthOrigins []string

	AuthCodeExpiresIn      time.Duration
	ServerSessionExpiresIn time.Duration
	MfaCodeExpiresIn       time.Duration

	LockoutThreshold int64
	LockoutWindow    time.Duration
}

// Defaults returns the documented default tuning. Feature flags default off.
func Defaults() Config {
	return Config{
		AuthCodeExpiresIn:      5 * time.Minute,
		ServerSessionExpiresIn: 30 * time.Minute,
		MfaCodeExpiresIn:       5 * time.Minute,
		LockoutThreshold:       5,
		LockoutWindow:          30 * time.Minute,
	}
}
