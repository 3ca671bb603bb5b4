package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"course-checkout-api/internal/apperr"
	"course-checkout-api/internal/config"
)

const (
	StageCustomer = "customer"
	StageCharge   = "charge"
)

type CustomerData struct {
	Name      string `json:"name"`
	Cellphone string `json:"cellphone"`
	TaxID     string `json:"taxId"`
	Email     string `json:"email"`
}

type CreateChargeResponse struct {
	ChargeID    string
	CheckoutURL string
}

// GatewayClient wraps the two remote calls this system makes against the
// payment gateway. It is stateless and holds no retry policy: a failed call
// is reported as a GatewayError and the registration service's resumable
// state machine makes the caller-side retry safe.
type GatewayClient interface {
	CreateCustomer(ctx context.Context, customer CustomerData) (string, error)
	CreateCharge(ctx context.Context, customerID string, customer CustomerData) (*CreateChargeResponse, error)
}

type gatewayClientImpl struct {
	httpClient *http.Client
	cfg        *config.Gateway
	product    *config.Product
}

func NewGatewayClient(gatewayCfg *config.Gateway, productCfg *config.Product) GatewayClient {
	return &gatewayClientImpl{
		httpClient: &http.Client{
			Timeout: gatewayCfg.Timeout,
		},
		cfg:     gatewayCfg,
		product: productCfg,
	}
}

type createCustomerResult struct {
	ID         string `json:"id"`
	CustomerID string `json:"customerId"`
	Data       struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (c *gatewayClientImpl) CreateCustomer(ctx context.Context, customer CustomerData) (string, error) {
	payload := map[string]interface{}{
		"name":      customer.Name,
		"cellphone": customer.Cellphone,
		"taxId":     customer.TaxID,
		"email":     customer.Email,
		"metadata":  map[string]string{"email": customer.Email},
	}

	var result createCustomerResult
	if err := c.post(ctx, "/customer/create", payload, &result); err != nil {
		return "", &apperr.GatewayError{Stage: StageCustomer, Err: err}
	}

	// the gateway is inconsistent about where the id lives
	customerID := result.CustomerID
	if customerID == "" {
		customerID = result.Data.ID
	}
	if customerID == "" {
		customerID = result.ID
	}
	if customerID == "" {
		return "", &apperr.GatewayError{Stage: StageCustomer, Err: fmt.Errorf("no customer id in response")}
	}

	return customerID, nil
}

type createChargeResult struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Data struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"data"`
}

func (c *gatewayClientImpl) CreateCharge(ctx context.Context, customerID string, customer CustomerData) (*CreateChargeResponse, error) {
	payload := map[string]interface{}{
		"frequency": "ONE_TIME",
		"methods":   []string{"PIX"},
		"products": []map[string]interface{}{
			{
				"externalId":  c.product.ExternalID,
				"name":        c.product.Name,
				"description": c.product.Description,
				"quantity":    1,
				"price":       c.product.PriceCents,
			},
		},
		"returnUrl":     c.cfg.ReturnURL,
		"completionUrl": c.cfg.CompletionURL,
		"customerId":    customerID,
		"customer":      customer,
	}

	var result createChargeResult
	if err := c.post(ctx, "/billing/create", payload, &result); err != nil {
		return nil, &apperr.GatewayError{Stage: StageCharge, Err: err}
	}

	chargeID := result.ID
	if chargeID == "" {
		chargeID = result.Data.ID
	}
	checkoutURL := result.Data.URL
	if checkoutURL == "" {
		checkoutURL = result.URL
	}
	if chargeID == "" || checkoutURL == "" {
		return nil, &apperr.GatewayError{Stage: StageCharge, Err: fmt.Errorf("incomplete billing response")}
	}

	return &CreateChargeResponse{
		ChargeID:    chargeID,
		CheckoutURL: checkoutURL,
	}, nil
}

func (c *gatewayClientImpl) post(ctx context.Context, endpoint string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal req payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseAPIURL+endpoint,
		bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gateway error %d: %s", resp.StatusCode, string(b))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}

	return nil
}
