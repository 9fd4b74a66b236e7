package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
)

const ProviderFlutterwave = "flutterwave"

type FlutterwaveConfig struct {
	BaseURL     string
	SecretKey   string
	RedirectURL string
}

// FlutterwaveClient talks to the Flutterwave v3 API with the merchant secret key.
type FlutterwaveClient struct {
	rest        restClient
	secretKey   string
	redirectURL string
}

func NewFlutterwaveClient(cfg FlutterwaveConfig, httpClient *http.Client, retry RetryPolicy) *FlutterwaveClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.flutterwave.com"
	}
	return &FlutterwaveClient{
		rest:        newRESTClient(ProviderFlutterwave, baseURL, httpClient, retry),
		secretKey:   cfg.SecretKey,
		redirectURL: cfg.RedirectURL,
	}
}

func (c *FlutterwaveClient) Name() string { return ProviderFlutterwave }

type flwEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    struct {
		Authorization struct {
			Redirect string `json:"redirect"`
			Mode     string `json:"mode"`
		} `json:"authorization"`
	} `json:"meta"`
}

type flwTransaction struct {
	ID        any     `json:"id"`
	TxRef     string  `json:"tx_ref"`
	FlwRef    string  `json:"flw_ref"`
	Reference string  `json:"reference"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Status    string  `json:"status"`
}

func (c *FlutterwaveClient) call(ctx context.Context, req apiRequest) (flwEnvelope, []byte, error) {
	if req.headers == nil {
		req.headers = map[string]string{}
	}
	req.headers["Authorization"] = "Bearer " + c.secretKey
	resp, err := c.rest.do(ctx, req)
	var env flwEnvelope
	if err != nil {
		_ = json.Unmarshal(resp.body, &env)
		return env, resp.body, err
	}
	if err := json.Unmarshal(resp.body, &env); err != nil {
		return flwEnvelope{}, resp.body, fmt.Errorf("%w: flutterwave response: %v", domain.ErrGatewayUnavailable, err)
	}
	if !strings.EqualFold(env.Status, "success") {
		return env, resp.body, fmt.Errorf("%w: flutterwave: %s", domain.ErrGatewayRejected, env.Message)
	}
	return env, resp.body, nil
}

func (c *FlutterwaveClient) Charge(ctx context.Context, req ports.ChargeRequest) (ports.ChargeResult, error) {
	body := map[string]any{
		"tx_ref":       req.Reference,
		"amount":       req.Amount,
		"currency":     req.Currency,
		"phone_number": req.Phone,
		"network":      req.PaymentMethod,
		"email":        req.Email,
		"fullname":     req.FullName,
	}
	if c.redirectURL != "" {
		body["redirect_url"] = c.redirectURL
	}
	env, raw, err := c.call(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/v3/charges",
		query:  url.Values{"type": []string{"mobile_money_uganda"}},
		body:   body,
	})
	if err != nil {
		return ports.ChargeResult{Provider: ProviderFlutterwave, Raw: raw}, err
	}
	out := ports.ChargeResult{
		Provider:         ProviderFlutterwave,
		GatewayReference: req.Reference,
		Status:           ports.GatewayStatusPending,
		RedirectURL:      env.Meta.Authorization.Redirect,
		Raw:              raw,
	}
	var data flwTransaction
	if len(env.Data) > 0 && json.Unmarshal(env.Data, &data) == nil {
		if data.FlwRef != "" {
			out.GatewayReference = data.FlwRef
		} else if id := idString(data.ID); id != "" {
			out.GatewayReference = id
		}
		if data.Status != "" {
			out.Status = normalizeStatus(data.Status)
		}
	}
	return out, nil
}

func (c *FlutterwaveClient) VerifyCharge(ctx context.Context, reference string) (ports.ChargeStatus, error) {
	env, raw, err := c.call(ctx, apiRequest{
		method:     http.MethodGet,
		path:       "/v3/transactions/verify_by_reference",
		query:      url.Values{"tx_ref": []string{reference}},
		idempotent: true,
		lookup:     true,
	})
	if err != nil {
		if errors.Is(err, domain.ErrGatewayRejected) && strings.Contains(strings.ToLower(env.Message), "no transaction") {
			return ports.ChargeStatus{Raw: raw}, fmt.Errorf("%w: flutterwave charge %s", domain.ErrNotFound, reference)
		}
		return ports.ChargeStatus{Raw: raw}, err
	}
	var data flwTransaction
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return ports.ChargeStatus{Raw: raw}, fmt.Errorf("%w: flutterwave verify payload: %v", domain.ErrGatewayUnavailable, err)
	}
	return ports.ChargeStatus{
		Reference:        data.TxRef,
		GatewayReference: data.FlwRef,
		GatewayID:        idString(data.ID),
		Status:           normalizeStatus(data.Status),
		Amount:           int64(math.Round(data.Amount)),
		Currency:         data.Currency,
		Raw:              raw,
	}, nil
}

func (c *FlutterwaveClient) Transfer(ctx context.Context, req ports.TransferRequest) (ports.TransferResult, error) {
	env, raw, err := c.call(ctx, apiRequest{
		method: http.MethodPost,
		path:   "/v3/transfers",
		body: map[string]any{
			"account_bank":     "MPS",
			"account_number":   req.Phone,
			"amount":           req.Amount,
			"currency":         req.Currency,
			"debit_currency":   req.Currency,
			"narration":        req.Narration,
			"reference":        req.Reference,
			"beneficiary_name": req.BeneficiaryName,
		},
		idempotent: true,
	})
	if err != nil {
		// A resend of an accepted reference is refused as a duplicate; the original transfer stands.
		if errors.Is(err, domain.ErrGatewayRejected) && isDuplicateReference(env.Message, raw) {
			return ports.TransferResult{Provider: ProviderFlutterwave, Reference: req.Reference, Status: ports.GatewayStatusPending, Raw: raw}, nil
		}
		return ports.TransferResult{Provider: ProviderFlutterwave, Reference: req.Reference, Raw: raw}, err
	}
	return flwTransferResult(env, raw, req.Reference)
}

func (c *FlutterwaveClient) TransferStatus(ctx context.Context, transferID string) (ports.TransferResult, error) {
	env, raw, err := c.call(ctx, apiRequest{
		method:     http.MethodGet,
		path:       "/v3/transfers/" + url.PathEscape(transferID),
		idempotent: true,
		lookup:     true,
	})
	if err != nil {
		return ports.TransferResult{Provider: ProviderFlutterwave, TransferID: transferID, Raw: raw}, err
	}
	return flwTransferResult(env, raw, "")
}

func flwTransferResult(env flwEnvelope, raw []byte, reference string) (ports.TransferResult, error) {
	var data flwTransaction
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return ports.TransferResult{Provider: ProviderFlutterwave, Raw: raw}, fmt.Errorf("%w: flutterwave transfer payload: %v", domain.ErrGatewayUnavailable, err)
	}
	if data.Reference != "" {
		reference = data.Reference
	}
	return ports.TransferResult{
		Provider:   ProviderFlutterwave,
		TransferID: idString(data.ID),
		Reference:  reference,
		Status:     normalizeStatus(data.Status),
		Raw:        raw,
	}, nil
}

func isDuplicateReference(message string, raw []byte) bool {
	text := strings.ToLower(message + " " + string(raw))
	return strings.Contains(text, "duplicate") || strings.Contains(text, "already exists")
}

// idString renders provider ids that arrive as JSON numbers or strings.
func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}
