package handler

import (
	"net/http"

	"course-checkout-api/internal/dto"
	"course-checkout-api/internal/service"

	"github.com/labstack/echo/v4"
)

const idempotencyKeyHeader = "Idempotency-Key"

type StudentHandler struct {
	registrationService service.RegistrationService
}

func NewStudentHandler(registrationService service.RegistrationService) *StudentHandler {
	return &StudentHandler{
		registrationService: registrationService,
	}
}

func (h *StudentHandler) CheckEmail(c echo.Context) error {
	ctx := c.Request().Context()

	available, err := h.registrationService.CheckEmail(ctx, c.QueryParam("email"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, &dto.CheckEmailResponse{Available: available})
}

func (h *StudentHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	result, err := h.registrationService.Submit(ctx, &req, c.Request().Header.Get(idempotencyKeyHeader))
	if err != nil {
		return err
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}

	return c.JSON(status, &dto.RegisterResponse{
		PaymentRequired: result.PaymentRequired,
		RegistrationID:  result.RegistrationID,
		IdempotencyKey:  result.IdempotencyKey,
		CheckoutURL:     result.CheckoutURL,
		Status:          result.Status,
	})
}
