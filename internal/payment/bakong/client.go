// Package bakong adapts the Bakong open API as the shop's payment
// authority: it issues KHQR payment descriptors and answers settlement
// status lookups by transaction md5.
package bakong

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	checkout "github.com/nochphanet/khqr-shopbot/internal/checkout/application"
	checkoutdomain "github.com/nochphanet/khqr-shopbot/internal/checkout/domain"
	"github.com/nochphanet/khqr-shopbot/internal/payment/khqr"
	"github.com/nochphanet/khqr-shopbot/internal/settlement"
)

const checkPath = "/v1/check_transaction_by_md5"

type Client struct {
	log      *slog.Logger
	http     *http.Client
	baseURL  string
	token    string
	merchant khqr.Merchant
}

func NewClient(log *slog.Logger, baseURL, token string, merchant khqr.Merchant) *Client {
	return &Client{
		log:      log,
		http:     &http.Client{Timeout: 15 * time.Second},
		baseURL:  baseURL,
		token:    token,
		merchant: merchant,
	}
}

// GenerateDescriptor builds the KHQR payload for the amount. This is pure
// local work; a failure means the merchant configuration is unusable, so
// it surfaces as a payment backend error and is not retried.
func (c *Client) GenerateDescriptor(ctx context.Context, amount decimal.Decimal) (checkout.Descriptor, error) {
	payload, err := khqr.Individual(c.merchant, amount)
	if err != nil {
		return checkout.Descriptor{}, fmt.Errorf("%w: %v", checkoutdomain.ErrPaymentBackend, err)
	}
	return checkout.Descriptor{
		Payload: payload,
		TxRef:   khqr.TxRef(payload),
	}, nil
}

type checkRequest struct {
	MD5 string `json:"md5"`
}

type checkResponse struct {
	// Pointer so an absent field is distinguishable from code 0: only an
	// explicit responseCode 0 may ever report a settled payment.
	ResponseCode    *int            `json:"responseCode"`
	ResponseMessage string          `json:"responseMessage"`
	Data            json.RawMessage `json:"data"`
}

// CheckStatus asks the Bakong API whether the transaction behind txRef has
// settled. An explicit responseCode 0 means settled; any other decoded 2xx
// response, including one without a responseCode, means still pending.
// Non-2xx statuses, transport and decode failures are returned as errors
// and left to the caller to treat as transient.
func (c *Client) CheckStatus(ctx context.Context, txRef string) (settlement.Status, error) {
	body, err := json.Marshal(checkRequest{MD5: txRef})
	if err != nil {
		return settlement.Status{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+checkPath, bytes.NewReader(body))
	if err != nil {
		return settlement.Status{}, err
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return settlement.Status{}, fmt.Errorf("bakong: check transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return settlement.Status{}, fmt.Errorf("bakong: check transaction: status %d", resp.StatusCode)
	}

	var out checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return settlement.Status{}, fmt.Errorf("bakong: decode response: %w", err)
	}

	settled := out.ResponseCode != nil && *out.ResponseCode == 0
	c.log.Debug("transaction status",
		"tx_ref", txRef,
		"settled", settled,
		"response_message", out.ResponseMessage,
	)
	return settlement.Status{
		Settled: settled,
		Raw:     out.Data,
	}, nil
}
