// Package auth authenticates chat transports connecting to the gateway.
package auth

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrInvalidToken indicates the token is definitively invalid.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrUnavailable indicates the auth service is unreachable or unavailable.
	ErrUnavailable = errors.New("auth: unavailable")
)

// Identity names an authenticated transport.
type Identity struct {
	TransportID string `json:"transport_id"`
	Name        string `json:"name"`
}

// Validator validates authentication tokens.
type Validator interface {
	// Validate checks a token. It returns (nil, nil) only when authentication
	// is disabled.
	Validate(ctx context.Context, token string) (*Identity, error)
}

// StaticValidator accepts a fixed set of shared tokens.
type StaticValidator struct {
	tokens [][]byte
}

// NewStaticValidator creates a validator for the given tokens.
func NewStaticValidator(tokens []string) *StaticValidator {
	v := &StaticValidator{tokens: make([][]byte, len(tokens))}
	for i, tok := range tokens {
		v.tokens[i] = []byte(tok)
	}
	return v
}

func (v *StaticValidator) Validate(_ context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	given := []byte(token)
	for i, tok := range v.tokens {
		if subtle.ConstantTimeCompare(given, tok) == 1 {
			return &Identity{TransportID: fmt.Sprintf("static-%d", i), Name: "static token"}, nil
		}
	}
	return nil, ErrInvalidToken
}

// HTTPValidator validates tokens via HTTP callback to external service.
type HTTPValidator struct {
	url    string
	client *http.Client
}

// NewHTTPValidator creates a validator that calls an external HTTP endpoint.
func NewHTTPValidator(url string) *HTTPValidator {
	return &HTTPValidator{
		url: url,
		client: &http.Client{
			Timeout: 2 * time.Second,
		},
	}
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid       bool   `json:"valid"`
	TransportID string `json:"transport_id,omitempty"`
	Name        string `json:"name,omitempty"`
}

func (v *HTTPValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	reqBody, err := json.Marshal(validateRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrInvalidToken
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var authResp validateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&authResp); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrUnavailable, err)
	}
	if !authResp.Valid {
		return nil, ErrInvalidToken
	}

	return &Identity{TransportID: authResp.TransportID, Name: authResp.Name}, nil
}

// NoopValidator allows all connections without validation.
type NoopValidator struct{}

// NewNoopValidator creates a validator that allows all connections.
func NewNoopValidator() *NoopValidator {
	return &NoopValidator{}
}

func (v *NoopValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	return nil, nil
}

// FromSettings picks the validator for the configured tokens and URL. Static
// tokens take precedence over the URL.
func FromSettings(tokens []string, url string) Validator {
	switch {
	case len(tokens) > 0:
		return NewStaticValidator(tokens)
	case url != "":
		return NewHTTPValidator(url)
	default:
		return NewNoopValidator()
	}
}
