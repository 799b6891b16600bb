package http

import (
	"encoding/base64"
	"math/big"
	"net/http"

	"github.com/ariaauth/aria/pkg/httpx"
	"github.com/ariaauth/aria/pkg/jwtx"
)

type jwk struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksResponse struct {
	Keys []jwk `json:"keys"`
}

// JWKSHandler exposes the signing key's public half for token verification.
func JWKSHandler(keys *jwtx.KeySource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pub, err := keys.Public(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}

		b64 := base64.RawURLEncoding
		httpx.WriteJSON(w, http.StatusOK, jwksResponse{Keys: []jwk{{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: keys.KID(),
			N:   b64.EncodeToString(pub.N.Bytes()),
			E:   b64.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}}})
	}
}
