package app

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ariaauth/aria/internal/auth/domain"
	"github.com/ariaauth/aria/internal/auth/service"
)

// Config collects every environment read once at startup. Nothing below the
// app layer touches process-wide state; the flag set is threaded through as
// an immutable service.Config.
type Config struct {
	Issuer string

	Env       string
	LogLevel  string
	LogFormat string

	Port                int
	ShutdownGracePeriod time.Duration

	DatabaseFile string

	// RedisAddr selects the redis ephemeral driver; empty falls back to the
	// in-process driver, which is only suitable for a single instance.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SmtpHost     string
	SmtpPort     int
	SmtpUser     string
	SmtpPassword string
	SmtpFrom     string

	SmsWebhookURL      string
	PasskeyVerifierURL string

	HousekeepingInterval time.Duration
	SignInLogRetention   time.Duration

	SeedApps []service.SeedApp

	Service service.Config
}

func LoadConfig() Config {
	cfg := Config{
		Issuer: getEnvOrDefault("AUTH_ISSUER", "aria-auth"),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),

		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),

		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("REDIS_DB", 0),

		SmtpHost:     os.Getenv("SMTP_HOST"),
		SmtpPort:     getEnvIntOrDefault("SMTP_PORT", 587),
		SmtpUser:     os.Getenv("SMTP_USER"),
		SmtpPassword: os.Getenv("SMTP_PASSWORD"),
		SmtpFrom:     getEnvOrDefault("SMTP_FROM", "no-reply@localhost"),

		SmsWebhookURL:      os.Getenv("SMS_WEBHOOK_URL"),
		PasskeyVerifierURL: os.Getenv("PASSKEY_VERIFIER_URL"),

		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
		SignInLogRetention:   getEnvDurationOrDefault("SIGN_IN_LOG_RETENTION", 90*24*time.Hour),

		Service: loadServiceConfig(),
	}

	if raw := os.Getenv("AUTH_SEED_APPS"); raw != "" {
		// Malformed seed JSON is a deployment error; surface it at Run.
		_ = json.Unmarshal([]byte(raw), &cfg.SeedApps)
	}

	return cfg
}

func loadServiceConfig() service.Config {
	cfg := service.Defaults()

	cfg.EnableSignUp = getEnvBool("ENABLE_SIGN_UP")
	cfg.EnableNames = getEnvBool("ENABLE_NAMES")
	cfg.NamesRequired = getEnvBool("NAMES_IS_REQUIRED")
	cfg.EnableUserAppConsent = getEnvBool("ENABLE_USER_APP_CONSENT")

	cfg.EnforceOneMfaEnrollment = parseMfaTypes(os.Getenv("ENFORCE_ONE_MFA_ENROLLMENT"))
	cfg.EmailMfaRequired = getEnvBool("EMAIL_MFA_IS_REQUIRED")
	cfg.OtpMfaRequired = getEnvBool("OTP_MFA_IS_REQUIRED")
	cfg.SmsMfaRequired = getEnvBool("SMS_MFA_IS_REQUIRED")
	cfg.AllowEmailMfaAsBackup = getEnvBool("ALLOW_EMAIL_MFA_AS_BACKUP")
	cfg.AllowPasskeyEnrollment = getEnvBool("ALLOW_PASSKEY_ENROLLMENT")
	cfg.EnableRecoveryCode = getEnvBool("ENABLE_RECOVERY_CODE")

	cfg.EnablePasswordlessSignIn = getEnvBool("ENABLE_PASSWORDLESS_SIGN_IN")

	cfg.EnableOrg = getEnvBool("ENABLE_ORG")
	cfg.AllowUserSwitchOrgOnSignIn = getEnvBool("ALLOW_USER_SWITCH_ORG_ON_SIGN_IN")

	cfg.EnableAppBanner = getEnvBool("ENABLE_APP_BANNER")
	cfg.EnableSignInLog = getEnvBool("ENABLE_SIGN_IN_LOG")

	cfg.EnableEmbeddedAuth = getEnvBool("ENABLE_EMBEDDED_AUTH")
	cfg.EmbeddedAuthOrigins = parseList(os.Getenv("EMBEDDED_AUTH_ORIGINS"))

	cfg.AuthCodeExpiresIn = getEnvDurationOrDefault("AUTH_CODE_EXPIRES_IN", cfg.AuthCodeExpiresIn)
	cfg.ServerSessionExpiresIn = getEnvDurationOrDefault("SERVER_SESSION_EXPIRES_IN", cfg.ServerSessionExpiresIn)
	cfg.MfaCodeExpiresIn = getEnvDurationOrDefault("MFA_CODE_EXPIRES_IN", cfg.MfaCodeExpiresIn)

	cfg.LockoutThreshold = int64(getEnvIntOrDefault("LOCKOUT_THRESHOLD", int(cfg.LockoutThreshold)))
	cfg.LockoutWindow = getEnvDurationOrDefault("LOCKOUT_WINDOW", cfg.LockoutWindow)

	return cfg
}

func parseList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseMfaTypes(s string) []domain.MfaType {
	var out []domain.MfaType
	for _, item := range parseList(s) {
		out = append(out, domain.MfaType(strings.ToLower(item)))
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// Bare integers are read as seconds for compatibility with the
	// *_EXPIRES_IN convention.
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
