package domain

// MfaType names one second-factor channel.
type MfaType string

const (
	MfaTypeEmail   MfaType = "email"
	MfaTypeSms     MfaType = "sms"
	MfaTypeOtp     MfaType = "otp"
	MfaTypePasskey MfaType = "passkey"
)

// ParseMfaType returns the typed channel for a wire value, false if unknown.
func ParseMfaType(s string) (MfaType, bool) {
	switch MfaType(s) {
	case MfaTypeEmail, MfaTypeSms, MfaTypeOtp, MfaTypePasskey:
		return MfaType(s), true
	}
	return "", false
}
