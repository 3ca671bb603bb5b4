package dto

import "time"

type RegisterRequest struct {
	Name  string `json:"name"`
	Age   int    `json:"age"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	TaxID string `json:"taxId"`
}

type RegisterResponse struct {
	PaymentRequired bool   `json:"paymentRequired"`
	RegistrationID  string `json:"registrationId"`
	IdempotencyKey  string `json:"idempotencyKey"`
	CheckoutURL     string `json:"checkoutUrl"`
	Status          string `json:"status"`
}

type CheckEmailResponse struct {
	Available bool `json:"available"`
}

// WebhookEnvelope is the gateway's event body. Customer data may sit under
// data.billing.customer or data.customer depending on the event shape, and
// the email may only be present inside customer metadata.
type WebhookEnvelope struct {
	ID    string `json:"id"`
	Event string `json:"event"`
	Data  struct {
		ID      string `json:"id"`
		Billing struct {
			ID       string          `json:"id"`
			Customer WebhookCustomer `json:"customer"`
		} `json:"billing"`
		Customer WebhookCustomer `json:"customer"`
	} `json:"data"`
}

type WebhookCustomer struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Metadata struct {
		Email string `json:"email"`
	} `json:"metadata"`
}

// Email returns the customer email from whichever spot the gateway put it.
func (w *WebhookEnvelope) Email() string {
	for _, c := range []WebhookCustomer{w.Data.Billing.Customer, w.Data.Customer} {
		if c.Email != "" {
			return c.Email
		}
		if c.Metadata.Email != "" {
			return c.Metadata.Email
		}
	}
	return ""
}

// ChargeID returns the billing/charge identifier the event pertains to.
func (w *WebhookEnvelope) ChargeID() string {
	if w.Data.Billing.ID != "" {
		return w.Data.Billing.ID
	}
	return w.Data.ID
}

type RegistrationView struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	PaymentStatus      string     `json:"paymentStatus"`
	PaymentConfirmedAt *time.Time `json:"paymentConfirmedAt,omitempty"`
}

type ConfirmResponse struct {
	Registration RegistrationView `json:"registration"`
}
