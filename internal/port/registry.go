package port

import "context"

// RegistryChallenge is a CAPTCHA challenge issued by the registry microservice.
type RegistryChallenge struct {
	SessionID string `json:"session_id"`
	Image     string `json:"image"` // base64 data URI
}

// RegistryPayload is the registry's verification response for a tax ID.
type RegistryPayload struct {
	LegalName        string
	TradeName        string
	Status           string
	RegistrationDate string // registry-native DD/MM/YYYY
	Constitution     string
	Address          string
}

// RegistryClient talks to the CAPTCHA-gated tax registry microservice.
type RegistryClient interface {
	// GetChallenge requests a new CAPTCHA challenge.
	GetChallenge(ctx context.Context) (*RegistryChallenge, error)

	// SubmitAnswer submits the CAPTCHA answer and tax ID for verification.
	// Returns domain.ErrRegistryRejected when the registry declines the
	// request (bad answer, unknown tax ID) and domain.ErrRegistryUnavailable
	// on transport failures.
	SubmitAnswer(ctx context.Context, sessionID, taxID, answer string) (*RegistryPayload, error)
}
