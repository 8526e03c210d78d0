package payments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	config "github.com/edupay/payment_service/configs"
	"github.com/shopspring/decimal"
)

// PayPalGateway implements Gateway against the PayPal REST API.
type PayPalGateway struct{}

func NewPayPalGateway() *PayPalGateway {
	return &PayPalGateway{}
}

type paypalOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type paypalRefund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type paypalPayoutBatch struct {
	BatchHeader struct {
		PayoutBatchID string `json:"payout_batch_id"`
		BatchStatus   string `json:"batch_status"`
	} `json:"batch_header"`
}

func (g *PayPalGateway) post(path string, payload interface{}, wantStatus int, out interface{}) error {
	accessToken, err := GetPayPalAccessToken()
	if err != nil {
		return err
	}

	apiBase := config.Config("PAYPAL_API_BASE_URL")

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequest("POST", apiBase+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("paypal %s failed: %s", path, string(respBody))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (g *PayPalGateway) Charge(amount decimal.Decimal, currency, paymentMethodToken string, metadata map[string]string) (*ChargeResult, error) {
	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"amount": map[string]string{
					"currency_code": currency,
					"value":         amount.StringFixed(2),
				},
			},
		},
		"payment_source": map[string]interface{}{
			"token": map[string]string{"id": paymentMethodToken, "type": "BILLING_AGREEMENT"},
		},
	}

	var order paypalOrder
	if err := g.post("/v2/checkout/orders", payload, http.StatusCreated, &order); err != nil {
		return nil, err
	}

	var captured paypalOrder
	if err := g.post(fmt.Sprintf("/v2/checkout/orders/%s/capture", order.ID), nil, http.StatusCreated, &captured); err != nil {
		return nil, err
	}
	if captured.Status != "COMPLETED" {
		return nil, fmt.Errorf("paypal order %s not completed: %s", order.ID, captured.Status)
	}

	return &ChargeResult{ChargeRef: captured.ID, Status: captured.Status}, nil
}

func (g *PayPalGateway) Refund(chargeRef string, amount decimal.Decimal, reason string) (*RefundResult, error) {
	payload := map[string]interface{}{
		"amount": map[string]string{
			"currency_code": "USD",
			"value":         amount.StringFixed(2),
		},
		"note_to_payer": reason,
	}

	var refund paypalRefund
	if err := g.post(fmt.Sprintf("/v2/payments/captures/%s/refund", chargeRef), payload, http.StatusCreated, &refund); err != nil {
		return nil, err
	}

	return &RefundResult{RefundRef: refund.ID, Status: refund.Status}, nil
}

func (g *PayPalGateway) Transfer(destination string, amount decimal.Decimal, currency string) (*TransferResult, error) {
	payload := map[string]interface{}{
		"sender_batch_header": map[string]string{
			"email_subject": "You have a payout from EduPay",
		},
		"items": []map[string]interface{}{
			{
				"recipient_type": "EMAIL",
				"receiver":       destination,
				"amount": map[string]string{
					"currency": currency,
					"value":    amount.StringFixed(2),
				},
				"note": "Instructor earnings payout",
			},
		},
	}

	var batch paypalPayoutBatch
	if err := g.post("/v1/payments/payouts", payload, http.StatusCreated, &batch); err != nil {
		return nil, err
	}

	return &TransferResult{TransferRef: batch.BatchHeader.PayoutBatchID, Status: batch.BatchHeader.BatchStatus}, nil
}
