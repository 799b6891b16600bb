package domain

import "net/http"

// ErrorCode is the stable wire identifier for a failure. Clients match on the
// code, never on message text, so the set below is a closed contract.
type ErrorCode string

const (
	CodeInvalidRequest ErrorCode = "InvalidRequest"

	CodeWrongAuthCode      ErrorCode = "WrongAuthCode"
	CodeWrongCodeVerifier  ErrorCode = "WrongCodeVerifier"
	CodeWrongRefreshToken  ErrorCode = "WrongRefreshToken"
	CodeWrongSessionID     ErrorCode = "WrongSessionId"
	CodeWrongMfaCode       ErrorCode = "WrongMfaCode"
	CodeWrongGrantType     ErrorCode = "WrongGrantType"
	CodeWrongTokenTypeHint ErrorCode = "WrongTokenTypeHint"
	CodeWrongAccessToken   ErrorCode = "WrongAccessToken"
	CodeWrongRedirectURI   ErrorCode = "WrongRedirectUri"
	CodeWrongOrigin        ErrorCode = "WrongOrigin"

	CodeNoSpaAppFound        ErrorCode = "NoSpaAppFound"
	CodeNotSpaTypeApp        ErrorCode = "NotSpaTypeApp"
	CodeSpaAppDisabled       ErrorCode = "SpaAppDisabled"
	CodeNoS2sAppFound        ErrorCode = "NoS2sAppFound"
	CodeNotS2sTypeApp        ErrorCode = "NotS2sTypeApp"
	CodeS2sAppDisabled       ErrorCode = "S2sAppDisabled"
	CodeWrongS2sClientSecret ErrorCode = "WrongS2sClientSecret"

	CodeNoUser                  ErrorCode = "NoUser"
	CodeNoOrg                   ErrorCode = "NoOrg"
	CodeNoConsent               ErrorCode = "NoConsent"
	CodeMfaNotVerified          ErrorCode = "MfaNotVerified"
	CodePasswordlessNotVerified ErrorCode = "PasswordlessNotVerified"
	CodeUserDisabled            ErrorCode = "UserDisabled"

	CodeAccountLocked       ErrorCode = "AccountLocked"
	CodeOtpMfaLocked        ErrorCode = "OtpMfaLocked"
	CodeSmsMfaLocked        ErrorCode = "SmsMfaLocked"
	CodeEmailMfaLocked      ErrorCode = "EmailMfaLocked"
	CodePasswordResetLocked ErrorCode = "PasswordResetLocked"
	CodeChangeEmailLocked   ErrorCode = "ChangeEmailLocked"

	CodeRecoveryCodeAlreadySet      ErrorCode = "RecoveryCodeAlreadySet"
	CodeInvalidPasskeyEnrollRequest ErrorCode = "InvalidPasskeyEnrollRequest"
	CodeInvalidPasskeyVerifyRequest ErrorCode = "InvalidPasskeyVerifyRequest"
	CodeUserAlreadyLinked           ErrorCode = "UserAlreadyLinked"
	CodeTargetUserAlreadyLinked     ErrorCode = "TargetUserAlreadyLinked"

	CodeNoJwtPrivateSecret            ErrorCode = "NoJwtPrivateSecret"
	CodeOrgNotEnabled                 ErrorCode = "OrgNotEnabled"
	CodeSignUpNotEnabled              ErrorCode = "SignUpNotEnabled"
	CodePasswordlessSignInNotEnabled  ErrorCode = "PasswordlessSignInNotEnabled"
	CodePasskeyEnrollmentNotEnabled   ErrorCode = "PasskeyEnrollmentNotEnabled"
	CodeRecoveryCodeNotEnabled        ErrorCode = "RecoveryCodeNotEnabled"
	CodeConsentNotEnabled             ErrorCode = "ConsentNotEnabled"
	CodeEmbeddedAuthFeatureNotEnabled ErrorCode = "EmbeddedAuthFeatureNotEnabled"
)

// Class partitions errors by where they are caught: malformed requests at the
// parse boundary, misconfigured or disabled features, and business-rule
// failures that reached the core.
type Class int

const (
	ClassValidation Class = iota
	ClassConfig
	ClassRequest
)

// Error is the only error type that crosses the service boundary. Status is
// the HTTP status the handler writes; Error() returns the bare code so the
// response body is exactly the wire contract.
type Error struct {
	Code   ErrorCode
	Class  Class
	Status int
}

func (e *Error) Error() string { return string(e.Code) }

// Is matches by code so errors.Is works across distinct instances carrying
// the same wire code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func requestErr(code ErrorCode, status int) *Error {
	return &Error{Code: code, Class: ClassRequest, Status: status}
}

func configErr(code ErrorCode) *Error {
	return &Error{Code: code, Class: ClassConfig, Status: http.StatusBadRequest}
}

// NewValidationError reports a malformed or missing request field. These are
// raised before any store access.
func NewValidationError() *Error {
	return &Error{Code: CodeInvalidRequest, Class: ClassValidation, Status: http.StatusBadRequest}
}

var (
	ErrWrongAuthCode      = requestErr(CodeWrongAuthCode, http.StatusBadRequest)
	ErrWrongCodeVerifier  = requestErr(CodeWrongCodeVerifier, http.StatusBadRequest)
	ErrWrongRefreshToken  = requestErr(CodeWrongRefreshToken, http.StatusBadRequest)
	ErrWrongSessionID     = requestErr(CodeWrongSessionID, http.StatusNotFound)
	ErrWrongMfaCode       = requestErr(CodeWrongMfaCode, http.StatusUnauthorized)
	ErrWrongGrantType     = requestErr(CodeWrongGrantType, http.StatusBadRequest)
	ErrWrongTokenTypeHint = requestErr(CodeWrongTokenTypeHint, http.StatusBadRequest)
	ErrWrongAccessToken   = requestErr(CodeWrongAccessToken, http.StatusUnauthorized)
	ErrWrongRedirectURI   = requestErr(CodeWrongRedirectURI, http.StatusUnauthorized)
	ErrWrongOrigin        = requestErr(CodeWrongOrigin, http.StatusForbidden)

	ErrNoSpaAppFound        = requestErr(CodeNoSpaAppFound, http.StatusNotFound)
	ErrNotSpaTypeApp        = requestErr(CodeNotSpaTypeApp, http.StatusUnauthorized)
	ErrSpaAppDisabled       = requestErr(CodeSpaAppDisabled, http.StatusBadRequest)
	ErrNoS2sAppFound        = requestErr(CodeNoS2sAppFound, http.StatusNotFound)
	ErrNotS2sTypeApp        = requestErr(CodeNotS2sTypeApp, http.StatusUnauthorized)
	ErrS2sAppDisabled       = requestErr(CodeS2sAppDisabled, http.StatusBadRequest)
	ErrWrongS2sClientSecret = requestErr(CodeWrongS2sClientSecret, http.StatusUnauthorized)

	ErrNoUser                  = requestErr(CodeNoUser, http.StatusNotFound)
	ErrNoOrg                   = requestErr(CodeNoOrg, http.StatusNotFound)
	ErrNoConsent               = requestErr(CodeNoConsent, http.StatusUnauthorized)
	ErrMfaNotVerified          = requestErr(CodeMfaNotVerified, http.StatusUnauthorized)
	ErrPasswordlessNotVerified = requestErr(CodePasswordlessNotVerified, http.StatusUnauthorized)
	ErrUserDisabled            = requestErr(CodeUserDisabled, http.StatusBadRequest)

	ErrAccountLocked       = requestErr(CodeAccountLocked, http.StatusBadRequest)
	ErrOtpMfaLocked        = requestErr(CodeOtpMfaLocked, http.StatusBadRequest)
	ErrSmsMfaLocked        = requestErr(CodeSmsMfaLocked, http.StatusBadRequest)
	ErrEmailMfaLocked      = requestErr(CodeEmailMfaLocked, http.StatusBadRequest)
	ErrPasswordResetLocked = requestErr(CodePasswordResetLocked, http.StatusBadRequest)
	ErrChangeEmailLocked   = requestErr(CodeChangeEmailLocked, http.StatusBadRequest)

	ErrRecoveryCodeAlreadySet      = requestErr(CodeRecoveryCodeAlreadySet, http.StatusBadRequest)
	ErrInvalidPasskeyEnrollRequest = requestErr(CodeInvalidPasskeyEnrollRequest, http.StatusUnauthorized)
	ErrInvalidPasskeyVerifyRequest = requestErr(CodeInvalidPasskeyVerifyRequest, http.StatusUnauthorized)
	ErrUserAlreadyLinked           = requestErr(CodeUserAlreadyLinked, http.StatusBadRequest)
	ErrTargetUserAlreadyLinked     = requestErr(CodeTargetUserAlreadyLinked, http.StatusBadRequest)

	ErrNoJwtPrivateSecret            = configErr(CodeNoJwtPrivateSecret)
	ErrOrgNotEnabled                 = configErr(CodeOrgNotEnabled)
	ErrSignUpNotEnabled              = configErr(CodeSignUpNotEnabled)
	ErrPasswordlessSignInNotEnabled  = configErr(CodePasswordlessSignInNotEnabled)
	ErrPasskeyEnrollmentNotEnabled   = configErr(CodePasskeyEnrollmentNotEnabled)
	ErrRecoveryCodeNotEnabled        = configErr(CodeRecoveryCodeNotEnabled)
	ErrConsentNotEnabled             = configErr(CodeConsentNotEnabled)
	ErrEmbeddedAuthFeatureNotEnabled = configErr(CodeEmbeddedAuthFeatureNotEnabled)
)
