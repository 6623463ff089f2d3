package credential

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kiro-gateway/kiro-gateway/pkg/gwerrors"
	"github.com/kiro-gateway/kiro-gateway/pkg/gwtypes"
)

// socialDialect refreshes via the SOCIAL endpoint
// https://prod.<region>.auth.desktop.kiro.dev/refreshToken (spec.md §4.1),
// a JSON POST of {"refreshToken": "..."}.
//
// Grounded on pkg/providers/qwen/qwen.go's refreshOAuthTokenForMulti for
// the request/response shape and retry-on-transient posture.
type socialDialect struct{}

type socialRefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type socialRefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	ProfileArn   string `json:"profileArn"`
}

func (socialDialect) Refresh(ctx context.Context, client *http.Client, refresh gwtypes.RefreshCredentials) (refreshResult, error) {
	endpoint := fmt.Sprintf("https://prod.%s.auth.desktop.kiro.dev/refreshToken", refresh.Region)

	body, err := json.Marshal(socialRefreshRequest{RefreshToken: refresh.RefreshToken})
	if err != nil {
		return refreshResult{}, gwerrors.Wrap(gwerrors.ProtocolViolation, err, "encode social refresh request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return refreshResult{}, gwerrors.Wrap(gwerrors.UpstreamTransient, err, "build social refresh request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", fingerprintUserAgent())

	return doRefreshRequest(client, req, func(data []byte) (refreshResult, error) {
		var resp socialRefreshResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return refreshResult{}, gwerrors.Wrap(gwerrors.ProtocolViolation, err, "decode social refresh response")
		}
		if resp.AccessToken == "" {
			return refreshResult{}, gwerrors.New(gwerrors.ProtocolViolation, "social refresh response missing accessToken")
		}
		return refreshResult{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			ExpiresIn:    resp.ExpiresIn,
			ProfileArn:   resp.ProfileArn,
		}, nil
	})
}

// oidcDialect refreshes via https://oidc.<region>.amazonaws.com/token
// (spec.md §4.1), a JSON POST of {"clientId","clientSecret",
// "grantType":"refresh_token","refreshToken"}.
//
// Grounded on pkg/auth/oauth.go's OAuthAuthenticatorImpl.RefreshToken,
// adapted from its form-encoded body to the JSON body the real
// oidc.<region>.amazonaws.com/token endpoint expects, matching
// socialDialect's JSON-body pattern above.
type oidcDialect struct{}

type oidcRefreshRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	GrantType    string `json:"grantType"`
	RefreshToken string `json:"refreshToken"`
}

type oidcRefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func (oidcDialect) Refresh(ctx context.Context, client *http.Client, refresh gwtypes.RefreshCredentials) (refreshResult, error) {
	endpoint := fmt.Sprintf("https://oidc.%s.amazonaws.com/token", refresh.Region)

	body, err := json.Marshal(oidcRefreshRequest{
		ClientID:     refresh.ClientID,
		ClientSecret: refresh.ClientSecret,
		GrantType:    "refresh_token",
		RefreshToken: refresh.RefreshToken,
	})
	if err != nil {
		return refreshResult{}, gwerrors.Wrap(gwerrors.ProtocolViolation, err, "encode oidc refresh request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return refreshResult{}, gwerrors.Wrap(gwerrors.UpstreamTransient, err, "build oidc refresh request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", fingerprintUserAgent())

	return doRefreshRequest(client, req, func(data []byte) (refreshResult, error) {
		var resp oidcRefreshResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return refreshResult{}, gwerrors.Wrap(gwerrors.ProtocolViolation, err, "decode oidc refresh response")
		}
		if resp.AccessToken == "" {
			return refreshResult{}, gwerrors.New(gwerrors.ProtocolViolation, "oidc refresh response missing accessToken")
		}
		return refreshResult{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			ExpiresIn:    resp.ExpiresIn,
		}, nil
	})
}

// doRefreshRequest runs req and classifies the result the way
// refreshWithRetry expects: a *gwerrors.Error of kind UpstreamTransient for
// 429/5xx (retryable), AuthRejected for other non-2xx statuses (terminal).
func doRefreshRequest(client *http.Client, req *http.Request, decode func([]byte) (refreshResult, error)) (refreshResult, error) {
	resp, err := client.Do(req)
	if err != nil {
		return refreshResult{}, gwerrors.Wrap(gwerrors.UpstreamTransient, err, "refresh request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return refreshResult{}, gwerrors.Wrap(gwerrors.UpstreamTransient, err, "read refresh response body")
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return refreshResult{}, gwerrors.Newf(gwerrors.UpstreamTransient, "refresh endpoint returned %d", resp.StatusCode).WithStatus(resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return refreshResult{}, gwerrors.Newf(gwerrors.AuthRejected, "refresh endpoint returned %d: %s", resp.StatusCode, string(data)).WithStatus(resp.StatusCode)
	}

	return decode(data)
}
