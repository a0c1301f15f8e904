// services/auth_service_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"tournament-wallet/utils"

	"github.com/decred/slog"
)

// ErrIdentityDisabled is returned when no identity provider URL is configured.
var ErrIdentityDisabled = errors.New("identity provider is not configured")

// IdentityClient talks to the external identity provider: token validation
// for SSE streams and the change feed for profile sync.
type IdentityClient struct {
	BaseURL string
	SyncURL string
	Token   string
	Client  *http.Client
	Log     slog.Logger
}

type ValidateResponse struct {
	UserID   string   `json:"user_id"`
	DeviceID string   `json:"device_id"`
	Roles    []string `json:"roles"`
}

func NewIdentityClient(baseURL, syncURL, token string, log slog.Logger) *IdentityClient {
	return &IdentityClient{
		BaseURL: baseURL,
		SyncURL: syncURL,
		Token:   token,
		Client:  utils.HTTPClient,
		Log:     log,
	}
}

func (c *IdentityClient) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.Token)
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		c.Log.Warnf("[IDENTITY] %s %s returned %d: %s", req.Method, req.URL.Path, resp.StatusCode, string(body))
		return nil, fmt.Errorf("identity provider returned %d", resp.StatusCode)
	}
	return body, nil
}

// ValidateToken calls /auth/validate on the identity provider.
func (c *IdentityClient) ValidateToken(ctx context.Context, accessToken, deviceID string) (*ValidateResponse, error) {
	if c.BaseURL == "" {
		return nil, ErrIdentityDisabled
	}
	jsonData, err := json.Marshal(map[string]string{
		"access_token": accessToken,
		"device_id":    deviceID,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/auth/validate", bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("auth validation failed: %w", err)
	}
	var out ValidateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	if out.UserID == "" {
		return nil, errors.New("auth validation returned no user")
	}
	return &out, nil
}

// FetchChanges returns identities changed after since.
func (c *IdentityClient) FetchChanges(ctx context.Context, since time.Time) ([]IdentityUpdate, error) {
	if c.SyncURL == "" {
		return nil, ErrIdentityDisabled
	}
	u, err := url.Parse(c.SyncURL)
	if err != nil {
		return nil, fmt.Errorf("bad sync url: %w", err)
	}
	q := u.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("identity sync failed: %w", err)
	}
	var out struct {
		Users []IdentityUpdate `json:"users"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("bad identity sync payload: %w", err)
	}
	return out.Users, nil
}
