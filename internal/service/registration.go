package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"course-checkout-api/internal/apperr"
	"course-checkout-api/internal/client"
	"course-checkout-api/internal/dto"
	"course-checkout-api/internal/model"
	"course-checkout-api/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	emailPattern = regexp.MustCompile(`^\w+([\.-]?\w+)*@\w+([\.-]?\w+)*(\.\w{2,})+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10,15}$`)
	taxIDPattern = regexp.MustCompile(`^[0-9]{11,14}$`)
)

type SubmitResult struct {
	Created         bool
	PaymentRequired bool
	RegistrationID  string
	IdempotencyKey  string
	CheckoutURL     string
	Status          string
}

type RegistrationService interface {
	CheckEmail(ctx context.Context, email string) (bool, error)
	Submit(ctx context.Context, input *dto.RegisterRequest, idempotencyKey string) (*SubmitResult, error)
}

type registrationServiceImpl struct {
	registrationRepo repository.RegistrationRepository
	gatewayClient    client.GatewayClient
	mailer           client.Mailer
	logger           *zap.Logger
}

func NewRegistrationService(
	registrationRepo repository.RegistrationRepository,
	gatewayClient client.GatewayClient,
	mailer client.Mailer,
	logger *zap.Logger,
) RegistrationService {
	return &registrationServiceImpl{
		registrationRepo: registrationRepo,
		gatewayClient:    gatewayClient,
		mailer:           mailer,
		logger:           logger,
	}
}

func (s *registrationServiceImpl) CheckEmail(ctx context.Context, email string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		verr := &apperr.ValidationError{}
		verr.Add("email", "email query parameter is required")
		return false, verr
	}

	_, err := s.registrationRepo.FindByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("find by email: %w", err)
	}

	return false, nil
}

// Submit runs the registration state machine: validate, converge on one
// pending record per email/idempotency key, then complete whichever
// gateway step has not been persisted yet. Each step commits its gateway
// identifier before the next starts, so a retried submission resumes from
// the first missing id instead of duplicating work at the gateway.
func (s *registrationServiceImpl) Submit(ctx context.Context, input *dto.RegisterRequest, idempotencyKey string) (*SubmitResult, error) {
	if err := validateRegisterInput(input); err != nil {
		return nil, err
	}

	email := normalizeEmail(input.Email)
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}

	reg, created, err := s.registrationRepo.UpsertPending(ctx, &model.Registration{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(input.Name),
		Age:            input.Age,
		Email:          email,
		Phone:          input.Phone,
		TaxID:          input.TaxID,
		IdempotencyKey: idempotencyKey,
		PaymentStatus:  model.PaymentStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert registration: %w", err)
	}

	if !created {
		s.logger.Info("registration replay, converging on existing record",
			zap.String("registration_id", reg.ID),
			zap.String("email", reg.Email))
	}

	// terminal or fully initiated records replay unchanged, zero gateway calls
	if reg.PaymentStatus != model.PaymentStatusPending {
		return s.resultFrom(reg, created), nil
	}

	if reg.ExternalCustomerID == "" {
		customerID, err := s.gatewayClient.CreateCustomer(ctx, customerDataFrom(reg))
		if err != nil {
			// record stays pending with no customer id, recoverable by retry
			return nil, err
		}
		if err := s.registrationRepo.SetExternalCustomerID(ctx, reg.ID, customerID); err != nil {
			return nil, fmt.Errorf("persist customer id: %w", err)
		}
		reg.ExternalCustomerID = customerID
	}

	if reg.ExternalChargeID == "" {
		charge, err := s.gatewayClient.CreateCharge(ctx, reg.ExternalCustomerID, customerDataFrom(reg))
		if err != nil {
			// customer id is persisted; retry resumes at the charge step
			return nil, err
		}
		if err := s.registrationRepo.SetExternalCharge(ctx, reg.ID, charge.ChargeID, charge.CheckoutURL); err != nil {
			return nil, fmt.Errorf("persist charge: %w", err)
		}
		reg.ExternalChargeID = charge.ChargeID
		reg.CheckoutURL = charge.CheckoutURL
		reg.PaymentStatus = model.PaymentStatusProcessing

		s.sendReceivedMail(reg)
	}

	return s.resultFrom(reg, created), nil
}

// sendReceivedMail notifies the applicant that the registration was taken
// in. Fire and forget: delivery problems are logged, never surfaced.
func (s *registrationServiceImpl) sendReceivedMail(reg *model.Registration) {
	go func() {
		body := fmt.Sprintf("Olá %s, sua inscrição %s foi recebida! Conclua o pagamento para garantir sua vaga.", reg.Name, reg.ID)
		if err := s.mailer.SendConfirmation(context.Background(), reg.Email, "Confirmação de Inscrição", body); err != nil {
			s.logger.Warn("registration mail failed",
				zap.String("registration_id", reg.ID),
				zap.Error(err))
		}
	}()
}

func (s *registrationServiceImpl) resultFrom(reg *model.Registration, created bool) *SubmitResult {
	return &SubmitResult{
		Created:         created,
		PaymentRequired: reg.PaymentStatus != model.PaymentStatusApproved,
		RegistrationID:  reg.ID,
		IdempotencyKey:  reg.IdempotencyKey,
		CheckoutURL:     reg.CheckoutURL,
		Status:          reg.PaymentStatus,
	}
}

func customerDataFrom(reg *model.Registration) client.CustomerData {
	return client.CustomerData{
		Name:      reg.Name,
		Cellphone: reg.Phone,
		TaxID:     reg.TaxID,
		Email:     reg.Email,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateRegisterInput(input *dto.RegisterRequest) error {
	verr := &apperr.ValidationError{}

	if len(strings.TrimSpace(input.Name)) < 3 {
		verr.Add("name", "name must have at least 3 characters")
	}
	if input.Age < 1 || input.Age > 120 {
		verr.Add("age", "age must be between 1 and 120")
	}
	if !emailPattern.MatchString(normalizeEmail(input.Email)) {
		verr.Add("email", "email is invalid")
	}
	if !phonePattern.MatchString(input.Phone) {
		verr.Add("phone", "phone must contain 10 to 15 digits")
	}
	if !taxIDPattern.MatchString(input.TaxID) {
		verr.Add("taxId", "taxId must contain 11 to 14 digits")
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}
