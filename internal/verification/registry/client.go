package registry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"ledgerlens/internal/config"
	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

// Client talks to the tax registry's CAPTCHA-gated lookup API.
type Client struct {
	http *resty.Client
}

// NewClient creates a registry client from configuration.
func NewClient(cfg *config.RegistryConfig) *Client {
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSecs) * time.Second).
		SetRetryCount(cfg.RetryCount)
	return &Client{http: rc}
}

// NewClientWithBaseURL creates a registry client for a fixed base URL (for testing).
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{http: resty.New().SetBaseURL(baseURL).SetTimeout(10 * time.Second)}
}

type challengeResponse struct {
	SessionID string `json:"sessionId"`
	Image     string `json:"image"`
}

// GetChallenge fetches a fresh CAPTCHA challenge from the registry.
func (c *Client) GetChallenge(ctx context.Context) (*port.RegistryChallenge, error) {
	var body challengeResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/api/v1/getCaptcha")
	if err != nil {
		return nil, fmt.Errorf("registryClient.GetChallenge: %w", domain.ErrRegistryUnavailable)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("registryClient.GetChallenge: status %d: %w", resp.StatusCode(), domain.ErrRegistryUnavailable)
	}
	if body.SessionID == "" || body.Image == "" {
		return nil, fmt.Errorf("registryClient.GetChallenge: incomplete challenge: %w", domain.ErrRegistryUnavailable)
	}
	return &port.RegistryChallenge{SessionID: body.SessionID, Image: body.Image}, nil
}

type detailsRequest struct {
	SessionID string `json:"sessionId"`
	GSTIN     string `json:"GSTIN"`
	Captcha   string `json:"captcha"`
}

type detailsResponse struct {
	LegalName        string `json:"lgnm"`
	TradeName        string `json:"tradeNam"`
	Status           string `json:"sts"`
	RegistrationDate string `json:"rgdt"`
	Constitution     string `json:"ctb"`
	PrincipalAddress struct {
		Address string `json:"adr"`
	} `json:"pradr"`
	Error string `json:"error"`
}

// SubmitAnswer submits a solved CAPTCHA together with the tax ID and returns
// the registry's record for it.
func (c *Client) SubmitAnswer(ctx context.Context, sessionID, taxID, answer string) (*port.RegistryPayload, error) {
	var body detailsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(detailsRequest{SessionID: sessionID, GSTIN: taxID, Captcha: answer}).
		SetResult(&body).
		Post("/api/v1/getGSTDetails")
	if err != nil {
		return nil, fmt.Errorf("registryClient.SubmitAnswer: %w", domain.ErrRegistryUnavailable)
	}
	if resp.StatusCode() == http.StatusBadRequest || resp.StatusCode() == http.StatusUnprocessableEntity {
		return nil, fmt.Errorf("registryClient.SubmitAnswer: %w", domain.ErrRegistryRejected)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("registryClient.SubmitAnswer: status %d: %w", resp.StatusCode(), domain.ErrRegistryUnavailable)
	}
	if body.Error != "" {
		return nil, fmt.Errorf("registryClient.SubmitAnswer: %s: %w", body.Error, domain.ErrRegistryRejected)
	}
	if body.LegalName == "" {
		return nil, fmt.Errorf("registryClient.SubmitAnswer: empty record: %w", domain.ErrRegistryRejected)
	}

	return &port.RegistryPayload{
		LegalName:        body.LegalName,
		TradeName:        body.TradeName,
		Status:           body.Status,
		RegistrationDate: body.RegistrationDate,
		Constitution:     body.Constitution,
		Address:          body.PrincipalAddress.Address,
	}, nil
}
