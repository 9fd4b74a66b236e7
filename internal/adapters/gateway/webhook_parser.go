package gateway

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
)

// FlutterwaveWebhookParser normalizes Flutterwave callbacks. It accepts the v3
// {event, data} shape and the older flat payload.
type FlutterwaveWebhookParser struct{}

type flwWebhookData struct {
	ID        json.RawMessage `json:"id"`
	TxRef     string          `json:"tx_ref"`
	FlwRef    string          `json:"flw_ref"`
	Reference string          `json:"reference"`
	Amount    float64         `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
}

type flwWebhook struct {
	Event string          `json:"event"`
	Data  *flwWebhookData `json:"data"`

	// legacy flat fields
	ID         json.RawMessage `json:"id"`
	TxRef      string          `json:"txRef"`
	TxRefSnake string          `json:"tx_ref"`
	FlwRef     string          `json:"flwRef"`
	Amount     float64         `json:"amount"`
	Currency   string          `json:"currency"`
	Reference  string          `json:"reference"`
	Status     string          `json:"status"`
	EventType  string          `json:"event.type"`
	Transfer   *flwWebhookData `json:"transfer"`
}

func (FlutterwaveWebhookParser) Parse(body []byte) (ports.GatewayEvent, error) {
	var hook flwWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return ports.GatewayEvent{}, fmt.Errorf("%w: webhook body: %v", domain.ErrInvalidInput, err)
	}

	event := hook.Event
	kindHint := strings.ToLower(hook.Event)
	var data flwWebhookData
	switch {
	case hook.Data != nil:
		data = *hook.Data
	case hook.Transfer != nil:
		// legacy transfer callbacks nest the transfer under "transfer"
		event = hook.EventType
		kindHint = "transfer"
		data = *hook.Transfer
	default:
		event = hook.EventType
		kindHint = strings.ToLower(hook.EventType)
		data = flwWebhookData{
			ID:        hook.ID,
			TxRef:     firstNonEmpty(hook.TxRef, hook.TxRefSnake),
			FlwRef:    hook.FlwRef,
			Reference: hook.Reference,
			Amount:    hook.Amount,
			Currency:  hook.Currency,
			Status:    hook.Status,
		}
	}

	gatewayID := rawID(data.ID)
	kind := ports.GatewayEventCharge
	reference := data.TxRef
	if strings.Contains(kindHint, "transfer") {
		kind = ports.GatewayEventTransfer
		reference = data.Reference
	}
	if reference == "" {
		return ports.GatewayEvent{}, fmt.Errorf("%w: webhook carries no reference", domain.ErrInvalidInput)
	}
	if gatewayID == "" {
		gatewayID = firstNonEmpty(data.FlwRef, reference)
	}
	if event == "" {
		event = kind
	}
	status := normalizeStatus(data.Status)
	return ports.GatewayEvent{
		EventID:          event + ":" + gatewayID + ":" + status,
		Kind:             kind,
		GatewayID:        gatewayID,
		Reference:        reference,
		GatewayReference: data.FlwRef,
		Status:           status,
		Amount:           int64(math.Round(data.Amount)),
		Currency:         data.Currency,
		Raw:              append(json.RawMessage(nil), body...),
	}, nil
}

func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ ports.WebhookParser = FlutterwaveWebhookParser{}
