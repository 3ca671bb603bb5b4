package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"course-checkout-api/internal/dto"
	"course-checkout-api/internal/service"

	"github.com/labstack/echo/v4"
)

const webhookSecretHeader = "X-Webhook-Secret"

type PaymentHandler struct {
	reconcilerService service.ReconcilerService
}

func NewPaymentHandler(reconcilerService service.ReconcilerService) *PaymentHandler {
	return &PaymentHandler{
		reconcilerService: reconcilerService,
	}
}

func (h *PaymentHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()

	secret := c.QueryParam("secret")
	if secret == "" {
		secret = c.Request().Header.Get(webhookSecretHeader)
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	var event dto.WebhookEnvelope
	if err := json.Unmarshal(body, &event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event payload")
	}

	result, err := h.reconcilerService.HandleEvent(ctx, secret, &event, body)
	if err != nil {
		return err
	}

	if result.Status == service.ReconcileNotFound {
		// surfaced as 404 so the gateway can alert and retry; the event
		// itself is already recorded as seen
		return c.JSON(http.StatusNotFound, map[string]string{"status": result.Status})
	}

	return c.JSON(http.StatusOK, map[string]string{"status": result.Status})
}

func (h *PaymentHandler) ConfirmPayment(c echo.Context) error {
	ctx := c.Request().Context()

	reg, err := h.reconcilerService.ForceConfirm(ctx, c.Param("registrationId"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, &dto.ConfirmResponse{
		Registration: dto.RegistrationView{
			ID:                 reg.ID,
			Name:               reg.Name,
			Email:              reg.Email,
			PaymentStatus:      reg.PaymentStatus,
			PaymentConfirmedAt: reg.PaymentConfirmedAt,
		},
	})
}
