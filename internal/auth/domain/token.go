package domain

// TokenResult is one minted token plus its lifetime, expressed both as a
// duration in seconds and as an absolute unix timestamp, matching the wire
// contract of the token endpoint.
type TokenResult struct {
	Token     string
	ExpiresIn int64
	ExpiresOn int64
}

// RefreshTokenRecord is the live registry entry behind an opaque refresh
// token. Exactly one record exists per issued token; it is deleted on revoke
// and expires with the token's TTL. The refresh token itself is never stored,
// only its fingerprint keys the record.
type RefreshTokenRecord struct {
	AuthID   string   `json:"authId"`
	ClientID string   `json:"clientId"`
	Scope    string   `json:"scope"`
	Roles    []string `json:"roles,omitempty"`
}
