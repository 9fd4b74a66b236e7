package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/craftsmart/escrow-service/internal/domain"
	"github.com/craftsmart/escrow-service/internal/ports"
)

const (
	ModeFlutterwave = "flutterwave"
	ModeDirect      = "direct"
)

// Provider is one mobile-money API behind the router.
type Provider interface {
	Name() string
	Charge(ctx context.Context, req ports.ChargeRequest) (ports.ChargeResult, error)
	VerifyCharge(ctx context.Context, reference string) (ports.ChargeStatus, error)
	Transfer(ctx context.Context, req ports.TransferRequest) (ports.TransferResult, error)
	TransferStatus(ctx context.Context, transferID string) (ports.TransferResult, error)
}

// Router picks a provider per payment method. In flutterwave mode every method goes
// through the aggregator; in direct mode MTN and AIRTEL hit their own APIs.
type Router struct {
	mode        string
	flutterwave Provider
	mtn         Provider
	airtel      Provider
}

func NewRouter(mode string, flutterwave, mtn, airtel Provider) (*Router, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = ModeFlutterwave
	}
	switch mode {
	case ModeFlutterwave:
		if flutterwave == nil {
			return nil, fmt.Errorf("gateway mode %q requires a flutterwave client", mode)
		}
	case ModeDirect:
		if mtn == nil || airtel == nil {
			return nil, fmt.Errorf("gateway mode %q requires mtn and airtel clients", mode)
		}
	default:
		return nil, fmt.Errorf("unknown gateway mode %q", mode)
	}
	return &Router{mode: mode, flutterwave: flutterwave, mtn: mtn, airtel: airtel}, nil
}

func (r *Router) Mode() string { return r.mode }

func (r *Router) provider(paymentMethod string) (Provider, error) {
	if r.mode == ModeFlutterwave {
		return r.flutterwave, nil
	}
	switch strings.ToUpper(strings.TrimSpace(paymentMethod)) {
	case domain.PaymentMethodMTN:
		return r.mtn, nil
	case domain.PaymentMethodAirtel:
		return r.airtel, nil
	default:
		return nil, fmt.Errorf("%w: unsupported payment method %q", domain.ErrInvalidInput, paymentMethod)
	}
}

func (r *Router) ProviderFor(paymentMethod string) string {
	p, err := r.provider(paymentMethod)
	if err != nil {
		return ""
	}
	return p.Name()
}

func (r *Router) Charge(ctx context.Context, req ports.ChargeRequest) (ports.ChargeResult, error) {
	p, err := r.provider(req.PaymentMethod)
	if err != nil {
		return ports.ChargeResult{}, err
	}
	return p.Charge(ctx, req)
}

func (r *Router) VerifyCharge(ctx context.Context, paymentMethod, reference string) (ports.ChargeStatus, error) {
	p, err := r.provider(paymentMethod)
	if err != nil {
		return ports.ChargeStatus{}, err
	}
	return p.VerifyCharge(ctx, reference)
}

func (r *Router) Transfer(ctx context.Context, req ports.TransferRequest) (ports.TransferResult, error) {
	p, err := r.provider(req.PaymentMethod)
	if err != nil {
		return ports.TransferResult{}, err
	}
	return p.Transfer(ctx, req)
}

func (r *Router) TransferStatus(ctx context.Context, paymentMethod, transferID string) (ports.TransferResult, error) {
	p, err := r.provider(paymentMethod)
	if err != nil {
		return ports.TransferResult{}, err
	}
	return p.TransferStatus(ctx, transferID)
}

var _ ports.PaymentGateway = (*Router)(nil)
