package server

import (
	"errors"
	"net/http"

	"course-checkout-api/internal/apperr"
	"course-checkout-api/internal/handler"
	custommw "course-checkout-api/internal/middleware"
	"course-checkout-api/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Server struct {
	echo           *echo.Echo
	studentHandler *handler.StudentHandler
	paymentHandler *handler.PaymentHandler
	adminSecret    string
	logger         *zap.Logger
}

func NewServer(
	registrationService service.RegistrationService,
	reconcilerService service.ReconcilerService,
	adminJWTSecret string,
	logger *zap.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))

	s := &Server{
		echo:           e,
		studentHandler: handler.NewStudentHandler(registrationService),
		paymentHandler: handler.NewPaymentHandler(reconcilerService),
		adminSecret:    adminJWTSecret,
		logger:         logger,
	}

	e.HTTPErrorHandler = s.handleError
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// -------- students --------
	students := api.Group("/students")
	students.GET("/check-email", s.studentHandler.CheckEmail)
	students.POST("/register", s.studentHandler.Register)

	// -------- payments --------
	payments := api.Group("/payments")
	payments.POST("/webhook", s.paymentHandler.Webhook)
	payments.PUT("/confirm/:registrationId", s.paymentHandler.ConfirmPayment,
		custommw.AdminAuth(s.adminSecret))
}

// handleError is the single place where the error taxonomy becomes HTTP.
// Anything not in the taxonomy is a 500 with a generic body; the detail
// stays in the server log.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		verr *apperr.ValidationError
		gerr *apperr.GatewayError
		herr *echo.HTTPError
	)

	switch {
	case errors.As(err, &verr):
		_ = c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":  "validation_error",
			"fields": verr.Fields,
		})
	case errors.Is(err, apperr.ErrDuplicateKey):
		_ = c.JSON(http.StatusConflict, map[string]string{
			"error":   "duplicate",
			"message": "already registered",
		})
	case errors.As(err, &gerr):
		s.logger.Error("gateway call failed",
			zap.String("stage", gerr.Stage),
			zap.Error(gerr.Err))
		_ = c.JSON(http.StatusBadGateway, map[string]string{
			"error": "gateway_error",
			"stage": gerr.Stage,
		})
	case errors.Is(err, apperr.ErrUnauthorized):
		_ = c.JSON(http.StatusForbidden, map[string]string{
			"error": "unauthorized",
		})
	case errors.Is(err, apperr.ErrNotFound):
		_ = c.JSON(http.StatusNotFound, map[string]string{
			"error": "not_found",
		})
	case errors.As(err, &herr):
		_ = c.JSON(herr.Code, map[string]interface{}{
			"error": herr.Message,
		})
	default:
		s.logger.Error("internal error", zap.Error(err))
		_ = c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal_error",
		})
	}
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown() error {
	return s.echo.Close()
}

// Echo exposes the underlying router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
