package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
)

const maxResponseBytes = 1 << 20

type apiRequest struct {
	method  string
	path    string
	query   url.Values
	headers map[string]string
	body    any
	// idempotent requests are safe to resend after an ambiguous failure.
	idempotent bool
	// lookup maps 404 to domain.ErrNotFound instead of a rejection.
	lookup bool
}

type apiResponse struct {
	status int
	body   []byte
}

// restClient is the JSON transport shared by the provider clients.
type restClient struct {
	provider string
	baseURL  string
	http     *http.Client
	retry    RetryPolicy
}

func newRESTClient(provider, baseURL string, httpClient *http.Client, retry RetryPolicy) restClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return restClient{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     httpClient,
		retry:    retry,
	}
}

func (c restClient) do(ctx context.Context, req apiRequest) (apiResponse, error) {
	var payload []byte
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return apiResponse{}, fmt.Errorf("%w: encode %s request: %v", domain.ErrGatewayRejected, c.provider, err)
		}
		payload = raw
	}
	policy := c.retry
	if !req.idempotent {
		policy.Attempts = 1
	}
	var resp apiResponse
	err := policy.Do(ctx, func() error {
		var err error
		resp, err = c.once(ctx, req, payload)
		return err
	})
	return resp, err
}

func (c restClient) once(ctx context.Context, req apiRequest, payload []byte) (apiResponse, error) {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return apiResponse{}, fmt.Errorf("%w: build %s request: %v", domain.ErrGatewayRejected, c.provider, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return apiResponse{}, fmt.Errorf("%w: %s %s: %v", domain.ErrGatewayUnavailable, c.provider, req.path, err)
	}
	defer httpResp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return apiResponse{}, fmt.Errorf("%w: read %s response: %v", domain.ErrGatewayUnavailable, c.provider, err)
	}
	resp := apiResponse{status: httpResp.StatusCode, body: raw}

	switch code := httpResp.StatusCode; {
	case code == http.StatusTooManyRequests || code >= 500:
		return resp, fmt.Errorf("%w: %s %s returned %d: %s", domain.ErrGatewayUnavailable, c.provider, req.path, code, snippet(raw))
	case code == http.StatusNotFound && req.lookup:
		return resp, fmt.Errorf("%w: %s %s", domain.ErrNotFound, c.provider, req.path)
	case code >= 400:
		return resp, fmt.Errorf("%w: %s %s returned %d: %s", domain.ErrGatewayRejected, c.provider, req.path, code, snippet(raw))
	}
	return resp, nil
}

func snippet(raw []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(raw))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

// normalizeStatus maps provider status vocabularies onto the three gateway statuses.
func normalizeStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "successful", "success", "succeeded", "completed", "ts":
		return ports.GatewayStatusSuccessful
	case "failed", "failure", "cancelled", "canceled", "error", "rejected", "expired", "timeout", "tf":
		return ports.GatewayStatusFailed
	default:
		return ports.GatewayStatusPending
	}
}

// tokenSource caches provider OAuth tokens until shortly before they expire.
type tokenSource struct {
	cache ports.TokenCache
	key   string
	fetch func(ctx context.Context) (token string, expiresIn int, err error)
}

func (s tokenSource) token(ctx context.Context) (string, error) {
	if s.cache != nil {
		if token, ok, err := s.cache.Get(ctx, s.key); err == nil && ok {
			return token, nil
		}
	}
	token, expiresIn, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}
	if s.cache != nil {
		if ttl := time.Duration(expiresIn)*time.Second - time.Minute; ttl > 0 {
			_ = s.cache.Set(ctx, s.key, token, ttl)
		}
	}
	return token, nil
}

// oauthToken accepts expires_in as a number (MoMo) or a quoted number (Airtel).
type oauthToken struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   json.Number `json:"expires_in"`
}

func decodeToken(provider string, raw []byte) (string, int, error) {
	var tok oauthToken
	if err := json.Unmarshal(raw, &tok); err != nil || tok.AccessToken == "" {
		return "", 0, fmt.Errorf("%w: %s token response", domain.ErrGatewayUnavailable, provider)
	}
	expiresIn, _ := tok.ExpiresIn.Int64()
	return tok.AccessToken, int(expiresIn), nil
}

func amountString(amount int64) string {
	return strconv.FormatInt(amount, 10)
}

// parseAmount reads provider string amounts such as "41000" or "41000.00".
func parseAmount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	return int64(math.Round(v)), nil
}
