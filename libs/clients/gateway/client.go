// Package gateway is a client for the hosted payment page gateway. A payment intent is
// created through the snap api, which answers with a token and a redirect url. The
// outcome is read back later from the status api, either when polled or after the
// gateway notifies the webhook.
package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sellora/marketplace/libs/clients"
	appctx "github.com/sellora/marketplace/libs/context"
)

// ErrOrderNotFound is returned when the gateway has no record of an order code
var ErrOrderNotFound = errors.New("gateway: order not found")

// Client abstracts over the payment gateway
type Client interface {
	CreateIntent(ctx context.Context, req *IntentRequest) (*IntentResponse, error)
	GetStatus(ctx context.Context, orderCode string) (*StatusResponse, error)
}

// LineItem is one line shown on the hosted payment page. Discounts are negative.
type LineItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// Customer is shown on the hosted payment page
type Customer struct {
	Name  string `json:"first_name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// IntentRequest asks the gateway for a payment intent
type IntentRequest struct {
	OrderCode   string
	GrossAmount int64
	Items       []LineItem
	Customer    Customer
}

type transactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type snapRequest struct {
	TransactionDetails transactionDetails `json:"transaction_details"`
	ItemDetails        []LineItem         `json:"item_details,omitempty"`
	CustomerDetails    Customer           `json:"customer_details"`
}

// IntentResponse carries the token the buyer pays with
type IntentResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// StatusResponse is the gateway's view of an order
type StatusResponse struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	TransactionStatus string `json:"transaction_status"`
	GrossAmount       string `json:"gross_amount"`
	FraudStatus       string `json:"fraud_status,omitempty"`

	// Raw is the unmodified response body
	Raw json.RawMessage `json:"-"`
}

// HTTPClient talks to the gateway over http
type HTTPClient struct {
	snap    *clients.SimpleHTTPClient
	api     *clients.SimpleHTTPClient
	breaker *clients.Breaker
}

// NewWithContext returns a new Client, retrieving the servers and server key from the context
func NewWithContext(ctx context.Context) (Client, error) {
	snapURL, err := appctx.GetStringFromContext(ctx, appctx.GatewaySnapServerCTXKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get GatewaySnapServer from context: %w", err)
	}

	apiURL, err := appctx.GetStringFromContext(ctx, appctx.GatewayAPIServerCTXKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get GatewayAPIServer from context: %w", err)
	}

	serverKey, err := appctx.GetStringFromContext(ctx, appctx.GatewayServerKeyCTXKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get GatewayServerKey from context: %w", err)
	}

	snap, err := clients.NewInstrumented("gateway_snap", snapURL, "")
	if err != nil {
		return nil, err
	}

	api, err := clients.NewInstrumented("gateway_api", apiURL, "")
	if err != nil {
		return nil, err
	}

	return NewClientWithPrometheus(New(snap, api, serverKey), "gateway_client"), nil
}

// New returns an HTTPClient authenticating both transports with serverKey
func New(snap, api *clients.SimpleHTTPClient, serverKey string) *HTTPClient {
	auth := "Basic " + base64.StdEncoding.EncodeToString([]byte(serverKey+":"))
	snap.Headers.Set("authorization", auth)
	api.Headers.Set("authorization", auth)

	return &HTTPClient{
		snap:    snap,
		api:     api,
		breaker: clients.NewBreaker("gateway"),
	}
}

// CreateIntent registers an order with the gateway
func (c *HTTPClient) CreateIntent(ctx context.Context, req *IntentRequest) (*IntentResponse, error) {
	body := &snapRequest{
		TransactionDetails: transactionDetails{
			OrderID:     req.OrderCode,
			GrossAmount: req.GrossAmount,
		},
		ItemDetails:     req.Items,
		CustomerDetails: req.Customer,
	}

	return clients.Call(c.breaker, func() (*IntentResponse, error) {
		hreq, err := c.snap.NewRequest(ctx, http.MethodPost, "/snap/v1/transactions", body, nil)
		if err != nil {
			return nil, err
		}

		var resp IntentResponse
		if _, err := c.snap.Do(ctx, hreq, &resp); err != nil {
			return nil, err
		}

		if resp.Token == "" {
			return nil, errors.New("gateway: empty intent token")
		}

		return &resp, nil
	})
}

// GetStatus fetches the current status of orderCode
func (c *HTTPClient) GetStatus(ctx context.Context, orderCode string) (*StatusResponse, error) {
	return clients.Call(c.breaker, func() (*StatusResponse, error) {
		hreq, err := c.api.NewRequest(ctx, http.MethodGet, "/v2/"+orderCode+"/status", nil, nil)
		if err != nil {
			return nil, err
		}

		var raw json.RawMessage
		if _, err := c.api.Do(ctx, hreq, &raw); err != nil {
			return nil, err
		}

		resp := &StatusResponse{}
		if err := json.Unmarshal(raw, resp); err != nil {
			return nil, fmt.Errorf("gateway: failed to decode status: %w", err)
		}

		// the status api answers 200 with the error code in the body
		if resp.StatusCode == "404" {
			return nil, ErrOrderNotFound
		}

		resp.Raw = raw

		return resp, nil
	})
}

// OrderCode is the order id sent to the gateway for the paymentCount-th payment of a
// transaction. Order ids are single use at the gateway, so retries get a suffix.
func OrderCode(code string, paymentCount int) string {
	if paymentCount <= 1 {
		return code
	}

	return code + "-" + strconv.Itoa(paymentCount-1)
}

// BaseCode reverses OrderCode for codes of the form PREFIX-TIMESTAMP[-N]
func BaseCode(orderCode string) string {
	parts := strings.SplitN(orderCode, "-", 3)
	if len(parts) != 3 {
		return orderCode
	}

	if _, err := strconv.Atoi(parts[2]); err != nil {
		return orderCode
	}

	return parts[0] + "-" + parts[1]
}
