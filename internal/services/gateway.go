package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"spinbet-backend/internal/models"
)

// Invoice is a gateway deposit request the player pays externally.
type Invoice struct {
	ID     string
	PayURL string
	Status string
}

// PayoutCheck is a gateway-issued claimable payout.
type PayoutCheck struct {
	ID       string
	ClaimURL string
}

// Gateway is the opaque payment provider. Reconciliation only ever sees
// these three calls; everything else about the provider stays outside.
type Gateway interface {
	CreateInvoice(ctx context.Context, amount float64, description string) (*Invoice, error)
	GetInvoiceStatus(ctx context.Context, invoiceID string) (string, error)
	CreatePayoutCheck(ctx context.Context, uid int64, amount float64) (*PayoutCheck, error)
}

// NormalizeGatewayStatus maps the provider's vocabulary onto ours: the
// gateway calls an unpaid invoice "active".
func NormalizeGatewayStatus(status string) models.PaymentStatus {
	switch status {
	case "active", "pending":
		return models.PaymentStatusPending
	case "paid":
		return models.PaymentStatusPaid
	case "expired":
		return models.PaymentStatusExpired
	case "cancelled":
		return models.PaymentStatusCancelled
	default:
		return models.PaymentStatusPending
	}
}

// CryptoPayClient talks to a Crypto Pay compatible HTTP API.
type CryptoPayClient struct {
	baseURL string
	token   string
	asset   string
	client  *http.Client
}

func NewCryptoPayClient(baseURL, token string) *CryptoPayClient {
	return &CryptoPayClient{
		baseURL: baseURL,
		token:   token,
		asset:   "USDT",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type cryptoPayEnvelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  struct {
		Code int    `json:"code"`
		Name string `json:"name"`
	} `json:"error"`
}

func (c *CryptoPayClient) call(ctx context.Context, method string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal gateway request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrGateway, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Crypto-Pay-API-Token", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrGateway, err)
	}
	defer resp.Body.Close()

	var envelope cryptoPayEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%w: bad response: %v", models.ErrGateway, err)
	}
	if !envelope.OK {
		return fmt.Errorf("%w: %s (%d)", models.ErrGateway, envelope.Error.Name, envelope.Error.Code)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("%w: bad result: %v", models.ErrGateway, err)
		}
	}
	return nil
}

func (c *CryptoPayClient) CreateInvoice(ctx context.Context, amount float64, description string) (*Invoice, error) {
	var result struct {
		InvoiceID int64  `json:"invoice_id"`
		Status    string `json:"status"`
		PayURL    string `json:"pay_url"`
	}
	err := c.call(ctx, "createInvoice", map[string]any{
		"asset":       c.asset,
		"amount":      fmt.Sprintf("%.2f", amount),
		"description": description,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &Invoice{
		ID:     fmt.Sprintf("%d", result.InvoiceID),
		PayURL: result.PayURL,
		Status: result.Status,
	}, nil
}

func (c *CryptoPayClient) GetInvoiceStatus(ctx context.Context, invoiceID string) (string, error) {
	var result struct {
		Items []struct {
			InvoiceID int64  `json:"invoice_id"`
			Status    string `json:"status"`
		} `json:"items"`
	}
	err := c.call(ctx, "getInvoices", map[string]any{
		"invoice_ids": invoiceID,
	}, &result)
	if err != nil {
		return "", err
	}
	if len(result.Items) == 0 {
		return "", fmt.Errorf("%w: invoice %s not returned", models.ErrGateway, invoiceID)
	}
	return result.Items[0].Status, nil
}

func (c *CryptoPayClient) CreatePayoutCheck(ctx context.Context, uid int64, amount float64) (*PayoutCheck, error) {
	var result struct {
		CheckID  int64  `json:"check_id"`
		BotURL   string `json:"bot_check_url"`
		PinToUID int64  `json:"pin_to_user_id"`
	}
	err := c.call(ctx, "createCheck", map[string]any{
		"asset":          c.asset,
		"amount":         fmt.Sprintf("%.2f", amount),
		"pin_to_user_id": uid,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &PayoutCheck{
		ID:       fmt.Sprintf("%d", result.CheckID),
		ClaimURL: result.BotURL,
	}, nil
}
