package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
)

const ProviderAirtel = "airtel"

type AirtelConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Country      string
	Currency     string
	// EncryptedPIN is the disbursement PIN already encrypted with the Airtel public key.
	EncryptedPIN string
}

// AirtelClient calls Airtel Money collections and disbursements directly.
type AirtelClient struct {
	rest  restClient
	cfg   AirtelConfig
	oauth tokenSource
}

func NewAirtelClient(cfg AirtelConfig, cache ports.TokenCache, httpClient *http.Client, retry RetryPolicy) *AirtelClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openapiuat.airtel.africa"
	}
	if cfg.Country == "" {
		cfg.Country = "UG"
	}
	if cfg.Currency == "" {
		cfg.Currency = "UGX"
	}
	c := &AirtelClient{rest: newRESTClient(ProviderAirtel, cfg.BaseURL, httpClient, retry), cfg: cfg}
	c.oauth = tokenSource{cache: cache, key: "airtel:oauth", fetch: c.fetchToken}
	return c
}

func (c *AirtelClient) Name() string { return ProviderAirtel }

func (c *AirtelClient) fetchToken(ctx context.Context) (string, int, error) {
	resp, err := c.rest.do(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/auth/oauth2/token",
		body: map[string]string{
			"client_id":     c.cfg.ClientID,
			"client_secret": c.cfg.ClientSecret,
			"grant_type":    "client_credentials",
		},
		idempotent: true,
	})
	if err != nil {
		return "", 0, err
	}
	return decodeToken(ProviderAirtel, resp.body)
}

type airtelEnvelope struct {
	Data struct {
		Transaction struct {
			ID            string `json:"id"`
			AirtelMoneyID string `json:"airtel_money_id"`
			ReferenceID   string `json:"reference_id"`
			Status        string `json:"status"`
			Message       string `json:"message"`
		} `json:"transaction"`
	} `json:"data"`
	Status struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		ResultCode string `json:"result_code"`
		Success    bool   `json:"success"`
	} `json:"status"`
}

func (c *AirtelClient) call(ctx context.Context, req apiRequest) (airtelEnvelope, []byte, error) {
	token, err := c.oauth.token(ctx)
	if err != nil {
		return airtelEnvelope{}, nil, err
	}
	req.headers = map[string]string{
		"Authorization": "Bearer " + token,
		"X-Country":     c.cfg.Country,
		"X-Currency":    c.cfg.Currency,
	}
	resp, err := c.rest.do(ctx, req)
	if err != nil {
		return airtelEnvelope{}, resp.body, err
	}
	var env airtelEnvelope
	if err := json.Unmarshal(resp.body, &env); err != nil {
		return airtelEnvelope{}, resp.body, fmt.Errorf("%w: airtel response: %v", domain.ErrGatewayUnavailable, err)
	}
	return env, resp.body, nil
}

func (c *AirtelClient) Charge(ctx context.Context, req ports.ChargeRequest) (ports.ChargeResult, error) {
	env, raw, err := c.call(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/merchant/v1/payments/",
		body: map[string]any{
			"reference": req.Reference,
			"subscriber": map[string]string{
				"country":  c.cfg.Country,
				"currency": req.Currency,
				"msisdn":   localMSISDN(req.Phone),
			},
			"transaction": map[string]string{
				"amount":   amountString(req.Amount),
				"country":  c.cfg.Country,
				"currency": req.Currency,
				"id":       req.Reference,
			},
		},
	})
	if err != nil {
		return ports.ChargeResult{Provider: ProviderAirtel, Raw: raw}, err
	}
	if !env.Status.Success {
		return ports.ChargeResult{Provider: ProviderAirtel, Raw: raw}, fmt.Errorf("%w: airtel: %s", domain.ErrGatewayRejected, env.Status.Message)
	}
	return ports.ChargeResult{
		Provider:         ProviderAirtel,
		GatewayReference: req.Reference,
		Status:           airtelStatus(env.Data.Transaction.Status),
		Raw:              raw,
	}, nil
}

func (c *AirtelClient) VerifyCharge(ctx context.Context, reference string) (ports.ChargeStatus, error) {
	env, raw, err := c.call(ctx, apiRequest{
		method:     http.MethodGet,
		path:       "/standard/v1/payments/" + url.PathEscape(reference),
		idempotent: true,
		lookup:     true,
	})
	if err != nil {
		return ports.ChargeStatus{Raw: raw}, err
	}
	return ports.ChargeStatus{
		Reference:        reference,
		GatewayReference: env.Data.Transaction.AirtelMoneyID,
		GatewayID:        env.Data.Transaction.AirtelMoneyID,
		Status:           airtelStatus(env.Data.Transaction.Status),
		Currency:         c.cfg.Currency,
		Raw:              raw,
	}, nil
}

func (c *AirtelClient) Transfer(ctx context.Context, req ports.TransferRequest) (ports.TransferResult, error) {
	env, raw, err := c.call(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/standard/v1/disbursements/",
		body: map[string]any{
			"payee":     map[string]string{"msisdn": localMSISDN(req.Phone)},
			"reference": req.Reference,
			"pin":       c.cfg.EncryptedPIN,
			"transaction": map[string]string{
				"amount": amountString(req.Amount),
				"id":     req.Reference,
			},
		},
		idempotent: true,
	})
	if err != nil {
		return ports.TransferResult{Provider: ProviderAirtel, Reference: req.Reference, Raw: raw}, err
	}
	if !env.Status.Success {
		return ports.TransferResult{Provider: ProviderAirtel, Reference: req.Reference, Raw: raw}, fmt.Errorf("%w: airtel: %s", domain.ErrGatewayRejected, env.Status.Message)
	}
	return ports.TransferResult{
		Provider:   ProviderAirtel,
		TransferID: req.Reference,
		Reference:  req.Reference,
		Status:     airtelStatus(env.Data.Transaction.Status),
		Raw:        raw,
	}, nil
}

func (c *AirtelClient) TransferStatus(ctx context.Context, transferID string) (ports.TransferResult, error) {
	env, raw, err := c.call(ctx, apiRequest{
		method:     http.MethodGet,
		path:       "/standard/v1/disbursements/" + url.PathEscape(transferID),
		idempotent: true,
		lookup:     true,
	})
	if err != nil {
		return ports.TransferResult{Provider: ProviderAirtel, TransferID: transferID, Raw: raw}, err
	}
	return ports.TransferResult{
		Provider:   ProviderAirtel,
		TransferID: transferID,
		Reference:  transferID,
		Status:     airtelStatus(env.Data.Transaction.Status),
		Raw:        raw,
	}, nil
}

// airtelStatus maps TS/TF/TIP/TA transaction codes.
func airtelStatus(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "TS":
		return ports.GatewayStatusSuccessful
	case "TF":
		return ports.GatewayStatusFailed
	case "":
		return ports.GatewayStatusPending
	default:
		return normalizeStatus(code)
	}
}

// localMSISDN drops the country prefix; Airtel takes the subscriber number alone.
func localMSISDN(phone string) string {
	n := msisdn(phone)
	if strings.HasPrefix(n, "256") && len(n) == 12 {
		return n[3:]
	}
	return n
}
