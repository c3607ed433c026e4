package fonepay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hbs/src/config"
	"io"
	"log"
	"net/http"

	"github.com/tidwall/gjson"
)

var (
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected the request")
)

const DEFAULT_PRODUCT_CODE = "BOOKING"

type InitiateRequest struct {
	Amount float64
	// BookingReference is sent as the merchant transaction id.
	BookingReference string
	ProductName      string
	ProductCode      string
}

type InitiateResult struct {
	PaymentURL            string
	ProviderTransactionID string
}

type VerifyResult struct {
	Verified bool
	Raw      string
}

// Client talks to the FonePay merchant API. It holds no mutable state and is
// safe for concurrent use.
type Client struct {
	cfg    config.FonePay
	signer *Signer
	http   *http.Client
}

func NewClient(cfg config.FonePay, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		cfg:    cfg,
		signer: NewSigner(cfg.SecretKey),
		http:   httpClient,
	}
}

// Signer exposes the signer built from the same merchant secret.
func (c *Client) Signer() *Signer {
	return c.signer
}

func (c *Client) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	productCode := req.ProductCode
	if productCode == "" {
		productCode = DEFAULT_PRODUCT_CODE
	}
	// order: amount, transactionId, productName, productCode, merchantId
	signature := c.signer.Sign(Fields{
		{"amount", req.Amount},
		{"transactionId", req.BookingReference},
		{"productName", req.ProductName},
		{"productCode", productCode},
		{"merchantId", c.cfg.MerchantID},
	})
	payload := map[string]any{
		"amount":        req.Amount,
		"transactionId": req.BookingReference,
		"productName":   req.ProductName,
		"productCode":   productCode,
		"merchantId":    c.cfg.MerchantID,
		"successUrl":    c.cfg.SuccessURL,
		"failureUrl":    c.cfg.FailureURL,
		"cancelUrl":     c.cfg.CancelURL,
		"signature":     signature,
	}
	status, body, err := c.post(ctx, c.cfg.APIURL, payload)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: initiate returned %d", ErrGatewayUnavailable, status)
	}
	if status >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: initiate returned %d: %s", ErrGatewayRejected, status, gjson.GetBytes(body, "message").String())
	}
	paymentURL := gjson.GetBytes(body, "paymentUrl").String()
	if paymentURL == "" {
		return nil, fmt.Errorf("%w: no payment url for %s", ErrGatewayRejected, req.BookingReference)
	}
	return &InitiateResult{
		PaymentURL:            paymentURL,
		ProviderTransactionID: gjson.GetBytes(body, "transactionId").String(),
	}, nil
}

// Verify asks the gateway whether providerTransactionID settled for the
// booking. A definitive "no" is a result, not an error.
func (c *Client) Verify(ctx context.Context, providerTransactionID string, bookingReference string) (*VerifyResult, error) {
	// order: merchantId, transactionId, referenceId
	signature := c.signer.Sign(Fields{
		{"merchantId", c.cfg.MerchantID},
		{"transactionId", providerTransactionID},
		{"referenceId", bookingReference},
	})
	payload := map[string]any{
		"merchantId":    c.cfg.MerchantID,
		"transactionId": providerTransactionID,
		"referenceId":   bookingReference,
		"signature":     signature,
	}
	status, body, err := c.post(ctx, c.cfg.APIURL+"/verify", payload)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: verify returned %d", ErrGatewayUnavailable, status)
	}
	result := &VerifyResult{Raw: string(body)}
	if status >= http.StatusBadRequest {
		log.Printf("[FonePay] verify for %s returned %d\n", bookingReference, status)
		return result, nil
	}
	result.Verified = gjson.GetBytes(body, "success").Bool()
	return result, nil
}

func (c *Client) post(ctx context.Context, url string, payload any) (int, []byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		log.Printf("[FonePay] request to %s failed: %s\n", url, err.Error())
		return 0, nil, fmt.Errorf("%w: %s", ErrGatewayUnavailable, err.Error())
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s", ErrGatewayUnavailable, err.Error())
	}
	return res.StatusCode, body, nil
}
