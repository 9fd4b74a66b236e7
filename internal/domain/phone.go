package domain

import (
	"fmt"
	"strings"
)

const ugandaCountryCode = "256"

// NormalizeMSISDN converts local or +-prefixed Ugandan numbers to 256XXXXXXXXX.
func NormalizeMSISDN(raw string) (string, error) {
	phone := strings.TrimSpace(raw)
	phone = strings.NewReplacer(" ", "", "-", "").Replace(phone)
	phone = strings.TrimPrefix(phone, "+")
	if strings.HasPrefix(phone, "0") {
		phone = ugandaCountryCode + phone[1:]
	}
	if len(phone) < 10 || len(phone) > 15 {
		return "", fmt.Errorf("%w: phone number %q", ErrInvalidInput, raw)
	}
	for _, c := range phone {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("%w: phone number %q", ErrInvalidInput, raw)
		}
	}
	return phone, nil
}

const (
	PaymentMethodMTN    = "MTN"
	PaymentMethodAirtel = "AIRTEL"
)

func NormalizePaymentMethod(raw string) (string, error) {
	switch m := strings.ToUpper(strings.TrimSpace(raw)); m {
	case PaymentMethodMTN, PaymentMethodAirtel:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unsupported payment method %q", ErrInvalidInput, raw)
	}
}

var networkPrefixes = map[string]string{
	"25676": PaymentMethodMTN,
	"25677": PaymentMethodMTN,
	"25678": PaymentMethodMTN,
	"25639": PaymentMethodMTN,
	"25670": PaymentMethodAirtel,
	"25674": PaymentMethodAirtel,
	"25675": PaymentMethodAirtel,
	"25620": PaymentMethodAirtel,
}

// PaymentMethodForMSISDN infers the mobile-money network from a normalized number, falling back when unknown.
func PaymentMethodForMSISDN(msisdn, fallback string) string {
	if len(msisdn) >= 5 {
		if method, ok := networkPrefixes[msisdn[:5]]; ok {
			return method
		}
	}
	return fallback
}
