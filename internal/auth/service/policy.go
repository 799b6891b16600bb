package service

import (
	"github.com/ariaauth/aria/internal/auth/domain"
)

// Step is one state of the authentication flow. The resolver below is the
// single source of truth for "what does the user still have to do"; both the
// redirect and the embedded flow drive it.
type Step string

const (
	StepConsent        Step = "consent"
	StepMfaEnroll      Step = "mfa_enroll"
	StepOtpMfa         Step = "otp_mfa"
	StepSmsMfa         Step = "sms_mfa"
	StepEmailMfa       Step = "email_mfa"
	StepPasskeyEnroll  Step = "passkey_enroll"
	StepChangePassword Step = "change_password"
	StepChangeEmail    Step = "change_email"
	StepResetMfa       Step = "reset_mfa"
	StepUpdateInfo     Step = "update_info"
	StepManagePasskey  Step = "manage_passkey"
	StepComplete       Step = "complete"
)

// CompletionFlags is the progress snapshot of one authorization attempt,
// extracted from an AuthCodeBody or an EmbeddedSession.
type CompletionFlags struct {
	CredentialVerified bool
	MfaVerified        []domain.MfaType
	Consented          bool
}

func (f CompletionFlags) hasVerified(t domain.MfaType) bool {
	for _, v := range f.MfaVerified {
		if v == t {
			return true
		}
	}
	return false
}

// FlagsFromAuthCode snapshots an auth-code body for the resolver.
func FlagsFromAuthCode(b *domain.AuthCodeBody) CompletionFlags {
	return CompletionFlags{
		CredentialVerified: b.CredentialVerified(),
		MfaVerified:        b.MfaVerifiedTypes,
		Consented:          b.IsConsented,
	}
}

// FlagsFromSession snapshots an embedded session for the resolver.
func FlagsFromSession(s *domain.EmbeddedSession) CompletionFlags {
	return CompletionFlags{
		CredentialVerified: s.CredentialVerified(),
		MfaVerified:        s.MfaVerifiedTypes,
		Consented:          s.IsConsented,
	}
}

// mfaRequirement is the effective MFA configuration for one app and attempt.
type mfaRequirement struct {
	enforceOne       []domain.MfaType
	required         []domain.MfaType
	allowEmailBackup bool
}

// effectiveMfaConfig applies the app override when the app opts out of the
// system config, otherwise the system flags.
func effectiveMfaConfig(cfg Config, app *domain.App) mfaRequirement {
	if !app.UseSystemMfaConfig {
		var req []domain.MfaType
		if app.RequireOtpMfa {
			req = append(req, domain.MfaTypeOtp)
		}
		if app.RequireSmsMfa {
			req = append(req, domain.MfaTypeSms)
		}
		if app.RequireEmailMfa {
			req = append(req, domain.MfaTypeEmail)
		}
		return mfaRequirement{required: req, allowEmailBackup: app.AllowEmailMfaAsBackup}
	}

	var req []domain.MfaType
	if cfg.OtpMfaRequired {
		req = append(req, domain.MfaTypeOtp)
	}
	if cfg.SmsMfaRequired {
		req = append(req, domain.MfaTypeSms)
	}
	if cfg.EmailMfaRequired {
		req = append(req, domain.MfaTypeEmail)
	}
	return mfaRequirement{
		enforceOne:       cfg.EnforceOneMfaEnrollment,
		required:         req,
		allowEmailBackup: cfg.AllowEmailMfaAsBackup,
	}
}

// allowFallbackToEmailMfa reports whether a pending SMS/TOTP verification may
// be satisfied by an email code instead: the backup must be enabled, email
// MFA must not itself be mandatory, and the user must not have enrolled a
// different required channel.
func allowFallbackToEmailMfa(req mfaRequirement, user *domain.User) bool {
	if !req.allowEmailBackup {
		return false
	}
	for _, t := range req.required {
		if t == domain.MfaTypeEmail {
			return false
		}
	}
	for _, t := range req.required {
		if t != domain.MfaTypeEmail && user.HasMfaType(t) {
			return false
		}
	}
	return true
}

// channelSatisfied reports whether the named required channel is verified in
// this attempt, directly or through the email fallback.
func channelSatisfied(t domain.MfaType, flags CompletionFlags, fallback bool) bool {
	if flags.hasVerified(t) {
		return true
	}
	if t != domain.MfaTypeEmail && fallback && flags.hasVerified(domain.MfaTypeEmail) {
		return true
	}
	return false
}

func stepForChannel(t domain.MfaType) Step {
	switch t {
	case domain.MfaTypeOtp:
		return StepOtpMfa
	case domain.MfaTypeSms:
		return StepSmsMfa
	default:
		return StepEmailMfa
	}
}

// ResolveNextStep computes the next required step for an attempt. It is a
// pure function of the flags and configuration; no HTTP or store access.
func ResolveNextStep(cfg Config, app *domain.App, user *domain.User, flags CompletionFlags, policy domain.Policy) Step {
	req := effectiveMfaConfig(cfg, app)
	fallback := allowFallbackToEmailMfa(req, user)

	mfaStep, mfaDone := resolveMfaStep(req, user, flags, fallback)

	// Policy overrides branch to their terminal view from an authenticated
	// session. reset_mfa chains through a fresh MFA verification first.
	switch policy {
	case domain.PolicyChangePassword:
		return StepChangePassword
	case domain.PolicyChangeEmail:
		return StepChangeEmail
	case domain.PolicyUpdateInfo:
		return StepUpdateInfo
	case domain.PolicyManagePasskey:
		return StepManagePasskey
	case domain.PolicyResetMfa:
		if !mfaDone {
			return mfaStep
		}
		return StepResetMfa
	}

	if cfg.EnableUserAppConsent && !flags.Consented {
		return StepConsent
	}

	if !mfaDone {
		return mfaStep
	}

	if cfg.AllowPasskeyEnrollment && !user.SkipPasskeyEnroll && !user.HasMfaType(domain.MfaTypePasskey) {
		return StepPasskeyEnroll
	}

	return StepComplete
}

// resolveMfaStep returns the next pending MFA step, or done=true when every
// requirement is satisfied.
func resolveMfaStep(req mfaRequirement, user *domain.User, flags CompletionFlags, fallback bool) (Step, bool) {
	// A passkey sign-in counts as full MFA.
	if flags.hasVerified(domain.MfaTypePasskey) {
		return "", true
	}

	// "Enforce one of": any enrolled channel from the set satisfies the
	// enrollment demand; it still has to be verified in this attempt.
	if len(req.enforceOne) > 0 {
		var enrolled domain.MfaType
		for _, t := range req.enforceOne {
			if t == domain.MfaTypeEmail || user.HasMfaType(t) {
				enrolled = t
				break
			}
		}
		if enrolled == "" {
			return StepMfaEnroll, false
		}
		if !channelSatisfied(enrolled, flags, fallback) {
			return stepForChannel(enrolled), false
		}
	}

	for _, t := range req.required {
		if !channelSatisfied(t, flags, fallback) {
			return stepForChannel(t), false
		}
	}

	return "", true
}
