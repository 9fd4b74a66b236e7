package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
	"github.com/google/uuid"
)

const ProviderMTN = "mtn"

// mtnReferenceSpace namespaces the reference ids derived for disbursements.
var mtnReferenceSpace = uuid.MustParse("3f0c8a52-6d1e-4b7a-9c55-1f2a0e6b9d41")

type MTNConfig struct {
	BaseURL                  string
	TargetEnvironment        string
	CallbackURL              string
	CollectionUserID         string
	CollectionAPIKey         string
	CollectionSubscription   string
	DisbursementUserID       string
	DisbursementAPIKey       string
	DisbursementSubscription string
}

// MTNClient calls the MTN MoMo collection and disbursement products directly.
type MTNClient struct {
	rest         restClient
	cfg          MTNConfig
	collection   tokenSource
	disbursement tokenSource
}

func NewMTNClient(cfg MTNConfig, cache ports.TokenCache, httpClient *http.Client, retry RetryPolicy) *MTNClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://sandbox.momodeveloper.mtn.com"
	}
	if cfg.TargetEnvironment == "" {
		cfg.TargetEnvironment = "sandbox"
	}
	c := &MTNClient{
		rest: newRESTClient(ProviderMTN, cfg.BaseURL, httpClient, retry),
		cfg:  cfg,
	}
	c.collection = tokenSource{cache: cache, key: "mtn:collection", fetch: func(ctx context.Context) (string, int, error) {
		return c.fetchToken(ctx, "/collection/token/", cfg.CollectionUserID, cfg.CollectionAPIKey, cfg.CollectionSubscription)
	}}
	c.disbursement = tokenSource{cache: cache, key: "mtn:disbursement", fetch: func(ctx context.Context) (string, int, error) {
		return c.fetchToken(ctx, "/disbursement/token/", cfg.DisbursementUserID, cfg.DisbursementAPIKey, cfg.DisbursementSubscription)
	}}
	return c
}

func (c *MTNClient) Name() string { return ProviderMTN }

func (c *MTNClient) fetchToken(ctx context.Context, path, user, key, subscription string) (string, int, error) {
	basic := base64.StdEncoding.EncodeToString([]byte(user + ":" + key))
	resp, err := c.rest.do(ctx, apiRequest{
		method: http.MethodPost,
		path:   path,
		headers: map[string]string{
			"Authorization":             "Basic " + basic,
			"Ocp-Apim-Subscription-Key": subscription,
		},
		idempotent: true,
	})
	if err != nil {
		return "", 0, err
	}
	return decodeToken(ProviderMTN, resp.body)
}

func (c *MTNClient) headers(ctx context.Context, src tokenSource, subscription string) (map[string]string, error) {
	token, err := src.token(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"Authorization":             "Bearer " + token,
		"X-Target-Environment":      c.cfg.TargetEnvironment,
		"Ocp-Apim-Subscription-Key": subscription,
	}, nil
}

type mtnParty struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

type mtnStatus struct {
	Amount                 string `json:"amount"`
	Currency               string `json:"currency"`
	FinancialTransactionID string `json:"financialTransactionId"`
	ExternalID             string `json:"externalId"`
	Status                 string `json:"status"`
	Reason                 any    `json:"reason"`
}

func (c *MTNClient) Charge(ctx context.Context, req ports.ChargeRequest) (ports.ChargeResult, error) {
	headers, err := c.headers(ctx, c.collection, c.cfg.CollectionSubscription)
	if err != nil {
		return ports.ChargeResult{Provider: ProviderMTN}, err
	}
	headers["X-Reference-Id"] = req.Reference
	if c.cfg.CallbackURL != "" {
		headers["X-Callback-Url"] = c.cfg.CallbackURL
	}
	resp, err := c.rest.do(ctx, apiRequest{
		method:  http.MethodPost,
		path:    "/collection/v1_0/requesttopay",
		headers: headers,
		body: map[string]any{
			"amount":       amountString(req.Amount),
			"currency":     req.Currency,
			"externalId":   req.Reference,
			"payer":        mtnParty{PartyIDType: "MSISDN", PartyID: msisdn(req.Phone)},
			"payerMessage": req.Narration,
			"payeeNote":    req.Narration,
		},
		// The X-Reference-Id makes a resend a no-op on the provider side.
		idempotent: true,
	})
	if err != nil {
		if resp.status == http.StatusConflict {
			return ports.ChargeResult{Provider: ProviderMTN, GatewayReference: req.Reference, Status: ports.GatewayStatusPending, Raw: resp.body}, nil
		}
		return ports.ChargeResult{Provider: ProviderMTN, Raw: resp.body}, err
	}
	return ports.ChargeResult{
		Provider:         ProviderMTN,
		GatewayReference: req.Reference,
		Status:           ports.GatewayStatusPending,
		Raw:              rawOrNil(resp.body),
	}, nil
}

func (c *MTNClient) VerifyCharge(ctx context.Context, reference string) (ports.ChargeStatus, error) {
	headers, err := c.headers(ctx, c.collection, c.cfg.CollectionSubscription)
	if err != nil {
		return ports.ChargeStatus{}, err
	}
	status, raw, err := c.status(ctx, "/collection/v1_0/requesttopay/"+url.PathEscape(reference), headers)
	if err != nil {
		return ports.ChargeStatus{Raw: raw}, err
	}
	amount, _ := parseAmount(status.Amount)
	return ports.ChargeStatus{
		Reference:        reference,
		GatewayReference: status.FinancialTransactionID,
		GatewayID:        status.FinancialTransactionID,
		Status:           normalizeStatus(status.Status),
		Amount:           amount,
		Currency:         status.Currency,
		Raw:              raw,
	}, nil
}

// Transfer disburses to a wallet. The provider wants a UUID reference id, so one is
// derived from the escrow reference and resends of the same payout collapse to one.
func (c *MTNClient) Transfer(ctx context.Context, req ports.TransferRequest) (ports.TransferResult, error) {
	headers, err := c.headers(ctx, c.disbursement, c.cfg.DisbursementSubscription)
	if err != nil {
		return ports.TransferResult{Provider: ProviderMTN, Reference: req.Reference}, err
	}
	referenceID := MTNTransferID(req.Reference)
	headers["X-Reference-Id"] = referenceID
	if c.cfg.CallbackURL != "" {
		headers["X-Callback-Url"] = c.cfg.CallbackURL
	}
	resp, err := c.rest.do(ctx, apiRequest{
		method:  http.MethodPost,
		path:    "/disbursement/v1_0/transfer",
		headers: headers,
		body: map[string]any{
			"amount":       amountString(req.Amount),
			"currency":     req.Currency,
			"externalId":   req.Reference,
			"payee":        mtnParty{PartyIDType: "MSISDN", PartyID: msisdn(req.Phone)},
			"payerMessage": req.Narration,
			"payeeNote":    req.Narration,
		},
		idempotent: true,
	})
	result := ports.TransferResult{
		Provider:   ProviderMTN,
		TransferID: referenceID,
		Reference:  req.Reference,
		Status:     ports.GatewayStatusPending,
		Raw:        rawOrNil(resp.body),
	}
	if err != nil && resp.status != http.StatusConflict {
		result.TransferID = ""
		result.Status = ""
		return result, err
	}
	return result, nil
}

func (c *MTNClient) TransferStatus(ctx context.Context, transferID string) (ports.TransferResult, error) {
	headers, err := c.headers(ctx, c.disbursement, c.cfg.DisbursementSubscription)
	if err != nil {
		return ports.TransferResult{Provider: ProviderMTN, TransferID: transferID}, err
	}
	status, raw, err := c.status(ctx, "/disbursement/v1_0/transfer/"+url.PathEscape(transferID), headers)
	if err != nil {
		return ports.TransferResult{Provider: ProviderMTN, TransferID: transferID, Raw: raw}, err
	}
	return ports.TransferResult{
		Provider:   ProviderMTN,
		TransferID: transferID,
		Reference:  status.ExternalID,
		Status:     normalizeStatus(status.Status),
		Raw:        raw,
	}, nil
}

func (c *MTNClient) status(ctx context.Context, path string, headers map[string]string) (mtnStatus, []byte, error) {
	resp, err := c.rest.do(ctx, apiRequest{
		method:     http.MethodGet,
		path:       path,
		headers:    headers,
		idempotent: true,
		lookup:     true,
	})
	if err != nil {
		return mtnStatus{}, resp.body, err
	}
	var status mtnStatus
	if err := json.Unmarshal(resp.body, &status); err != nil {
		return mtnStatus{}, resp.body, fmt.Errorf("%w: mtn status payload: %v", domain.ErrGatewayUnavailable, err)
	}
	return status, resp.body, nil
}

// MTNTransferID is the X-Reference-Id used for a disbursement reference.
func MTNTransferID(reference string) string {
	return uuid.NewSHA1(mtnReferenceSpace, []byte(reference)).String()
}

// msisdn strips the leading plus that MoMo and Airtel reject.
func msisdn(phone string) string {
	return strings.TrimPrefix(strings.TrimSpace(phone), "+")
}

func rawOrNil(body []byte) json.RawMessage {
	if len(body) == 0 || !json.Valid(body) {
		return nil
	}
	return body
}
