package payments

import "github.com/shopspring/decimal"

// ChargeResult is the gateway's answer to a charge request.
type ChargeResult struct {
	ChargeRef string
	Status    string
}

// RefundResult is the gateway's answer to a refund request.
type RefundResult struct {
	RefundRef string
	Status    string
}

// TransferResult is the gateway's answer to a payout transfer.
type TransferResult struct {
	TransferRef string
	Status      string
}

// Gateway is the external payment processor. All calls are remote and may
// time out or fail; callers record FAILED state rather than retrying.
type Gateway interface {
	Charge(amount decimal.Decimal, currency, paymentMethodToken string, metadata map[string]string) (*ChargeResult, error)
	Refund(chargeRef string, amount decimal.Decimal, reason string) (*RefundResult, error)
	Transfer(destination string, amount decimal.Decimal, currency string) (*TransferResult, error)
}
