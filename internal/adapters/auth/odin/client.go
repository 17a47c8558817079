package odin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vet-clinic-records/internal/platform/httpclient"
	"vet-clinic-records/internal/ports/auth"
)

var (
	ErrOdinNotConfigured = errors.New("odin client not configured")
	ErrOdinUnauthorized  = errors.New("odin unauthorized")
	ErrOdinUpstream      = errors.New("odin upstream error")
)

const verifyPath = "/v1/tokens/verify"

// Config del cliente Odin (IAM del staff de la clínica).
type Config struct {
	BaseURL string
	APIKey  string

	// APIKeyHeader por defecto "X-Api-Key".
	APIKeyHeader string
	Timeout      time.Duration

	// Transport opcional (tests).
	Transport http.RoundTripper
}

type Client struct {
	http       *httpclient.Client
	configured bool
}

func NewClient(cfg Config) (*Client, error) {
	header := strings.TrimSpace(cfg.APIKeyHeader)
	if header == "" {
		header = "X-Api-Key"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	apiKey := strings.TrimSpace(cfg.APIKey)

	hc, err := httpclient.New(cfg.BaseURL, timeout,
		httpclient.WithHeader(header, apiKey),
		httpclient.WithTransport(cfg.Transport),
	)
	if err != nil {
		return nil, fmt.Errorf("odin: %w", err)
	}
	return &Client{
		http:       hc,
		configured: strings.TrimSpace(cfg.BaseURL) != "" && apiKey != "",
	}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.configured
}

type verifyResponse struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

// VerifyToken pide a Odin los claims del token del staff.
func (c *Client) VerifyToken(ctx context.Context, token string) (auth.Claims, error) {
	if !c.IsConfigured() {
		return auth.Claims{}, ErrOdinNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrOdinUnauthorized
	}

	var out verifyResponse
	err := c.http.DoJSON(ctx, http.MethodPost, verifyPath,
		map[string]string{"Authorization": "Bearer " + token},
		map[string]string{"token": token},
		&out,
	)
	switch status := httpclient.StatusCode(err); {
	case err == nil:
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return auth.Claims{}, ErrOdinUnauthorized
	default:
		return auth.Claims{}, fmt.Errorf("%w: %w", ErrOdinUpstream, err)
	}

	userID := strings.TrimSpace(out.UserID)
	if userID == "" {
		return auth.Claims{}, fmt.Errorf("%w: response missing user_id", ErrOdinUpstream)
	}
	return auth.Claims{
		UserID:   userID,
		Email:    strings.TrimSpace(out.Email),
		TenantID: strings.TrimSpace(out.TenantID),
		Role:     strings.ToLower(strings.TrimSpace(out.Role)),
	}, nil
}
