// Package ceremony adapts an external WebAuthn verification service to the
// CeremonyVerifier contract. The auth core issues and tracks challenges; the
// attestation and assertion cryptography happens on the other side of the
// webhook.
package ceremony

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ariaauth/aria/internal/auth/service"
)

// Webhook posts ceremony payloads to a verifier service and relays its
// verdict.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type registrationPayload struct {
	Challenge   string `json:"challenge"`
	Attestation string `json:"attestation"`
}

type authenticationPayload struct {
	Challenge string `json:"challenge"`
	PublicKey string `json:"publicKey"`
	Counter   uint32 `json:"counter"`
	Assertion string `json:"assertion"`
}

func (w *Webhook) VerifyRegistration(ctx context.Context, challenge string, attestation []byte) (service.RegistrationResult, error) {
	var out service.RegistrationResult
	err := w.post(ctx, "/registration", registrationPayload{
		Challenge:   challenge,
		Attestation: string(attestation),
	}, &out)
	return out, err
}

func (w *Webhook) VerifyAuthentication(ctx context.Context, challenge, publicKey string, counter uint32, assertion []byte) (service.AuthenticationResult, error) {
	var out service.AuthenticationResult
	err := w.post(ctx, "/authentication", authenticationPayload{
		Challenge: challenge,
		PublicKey: publicKey,
		Counter:   counter,
		Assertion: string(assertion),
	}, &out)
	return out, err
}

func (w *Webhook) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ceremony: verifier returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Disabled rejects every ceremony. Wired when no verifier service is
// configured so passkey endpoints fail closed.
type Disabled struct{}

func (Disabled) VerifyRegistration(ctx context.Context, challenge string, attestation []byte) (service.RegistrationResult, error) {
	return service.RegistrationResult{}, errors.New("ceremony: no verifier configured")
}

func (Disabled) VerifyAuthentication(ctx context.Context, challenge, publicKey string, counter uint32, assertion []byte) (service.AuthenticationResult, error) {
	return service.AuthenticationResult{}, errors.New("ceremony: no verifier configured")
}
