package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"course-checkout-api/internal/apperr"
	"course-checkout-api/internal/client"
	"course-checkout-api/internal/dto"
	"course-checkout-api/internal/model"
	"course-checkout-api/internal/repository"

	"go.uber.org/zap"
)

// eventTypePaid is the gateway's "payment confirmed" notification.
const eventTypePaid = "billing.paid"

const (
	ReconcileProcessed       = "processed"
	ReconcileDuplicate       = "duplicate"
	ReconcileIgnored         = "ignored"
	ReconcileNotFound        = "not_found"
	ReconcileAlreadyApproved = "already_approved"
)

type ReconcileResult struct {
	Status  string
	Handled bool
}

// ReconcilerService advances a registration's payment status from gateway
// webhook events and from the administrative override.
type ReconcilerService interface {
	HandleEvent(ctx context.Context, secret string, event *dto.WebhookEnvelope, rawPayload []byte) (*ReconcileResult, error)
	ForceConfirm(ctx context.Context, registrationID string) (*model.Registration, error)
}

type reconcilerServiceImpl struct {
	registrationRepo repository.RegistrationRepository
	webhookEventRepo repository.WebhookEventRepository
	mailer           client.Mailer
	webhookSecret    string
	logger           *zap.Logger
}

func NewReconcilerService(
	registrationRepo repository.RegistrationRepository,
	webhookEventRepo repository.WebhookEventRepository,
	mailer client.Mailer,
	webhookSecret string,
	logger *zap.Logger,
) ReconcilerService {
	return &reconcilerServiceImpl{
		registrationRepo: registrationRepo,
		webhookEventRepo: webhookEventRepo,
		mailer:           mailer,
		webhookSecret:    webhookSecret,
		logger:           logger,
	}
}

// HandleEvent reconciles one inbound gateway notification. The event
// ledger insert happens before any business handling, so replays of the
// same eventId are cut off without touching registration state. Residual
// risk: the secret check is a plain string comparison; timing-safe
// comparison was considered and left out since the secret is
// transport-level.
func (s *reconcilerServiceImpl) HandleEvent(ctx context.Context, secret string, event *dto.WebhookEnvelope, rawPayload []byte) (*ReconcileResult, error) {
	if secret != s.webhookSecret {
		return nil, apperr.ErrUnauthorized
	}

	if event.ID == "" {
		verr := &apperr.ValidationError{}
		verr.Add("id", "event id is required")
		return nil, verr
	}

	email := normalizeEmail(event.Email())
	chargeID := event.ChargeID()
	if email == "" && chargeID == "" {
		verr := &apperr.ValidationError{}
		verr.Add("data", "event carries neither customer email nor charge id")
		return nil, verr
	}

	inserted, err := s.webhookEventRepo.RecordEvent(ctx, event.ID, chargeID, event.Event, rawPayload)
	if err != nil {
		return nil, fmt.Errorf("record event: %w", err)
	}
	if !inserted {
		s.logger.Info("webhook event replayed, skipping",
			zap.String("event_id", event.ID))
		return &ReconcileResult{Status: ReconcileDuplicate, Handled: true}, nil
	}

	if event.Event != eventTypePaid {
		return &ReconcileResult{Status: ReconcileIgnored, Handled: true}, nil
	}

	reg, err := s.resolveRegistration(ctx, email, chargeID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn("no registration for webhook event",
				zap.String("event_id", event.ID),
				zap.String("email", email),
				zap.String("charge_id", chargeID))
			return &ReconcileResult{Status: ReconcileNotFound, Handled: false}, nil
		}
		return nil, fmt.Errorf("resolve registration: %w", err)
	}

	if reg.PaymentStatus == model.PaymentStatusApproved {
		// a second paid event under a fresh event id, nothing to do
		return &ReconcileResult{Status: ReconcileAlreadyApproved, Handled: true}, nil
	}

	now := time.Now()
	reg, err = s.registrationRepo.UpdatePaymentStatus(ctx, reg.ID, model.PaymentStatusApproved, &now)
	if err != nil {
		return nil, fmt.Errorf("approve registration: %w", err)
	}

	s.logger.Info("payment confirmed",
		zap.String("registration_id", reg.ID),
		zap.String("email", reg.Email),
		zap.String("event_id", event.ID))

	s.sendConfirmedMail(reg)

	return &ReconcileResult{Status: ReconcileProcessed, Handled: true}, nil
}

func (s *reconcilerServiceImpl) resolveRegistration(ctx context.Context, email, chargeID string) (*model.Registration, error) {
	if email != "" {
		reg, err := s.registrationRepo.FindByEmail(ctx, email)
		if err == nil {
			return reg, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
	}
	if chargeID != "" {
		return s.registrationRepo.FindByChargeID(ctx, chargeID)
	}
	return nil, apperr.ErrNotFound
}

// ForceConfirm is the administrative escape hatch for gateway outages.
// It operates on the registration id alone and bypasses event correlation.
func (s *reconcilerServiceImpl) ForceConfirm(ctx context.Context, registrationID string) (*model.Registration, error) {
	if _, err := s.registrationRepo.FindByID(ctx, registrationID); err != nil {
		return nil, err
	}

	now := time.Now()
	reg, err := s.registrationRepo.UpdatePaymentStatus(ctx, registrationID, model.PaymentStatusApproved, &now)
	if err != nil {
		return nil, fmt.Errorf("force confirm: %w", err)
	}

	s.logger.Info("payment confirmed manually",
		zap.String("registration_id", reg.ID))

	return reg, nil
}

func (s *reconcilerServiceImpl) sendConfirmedMail(reg *model.Registration) {
	go func() {
		body := fmt.Sprintf("Olá %s, seu pagamento foi confirmado!", reg.Name)
		if err := s.mailer.SendConfirmation(context.Background(), reg.Email, "Confirmação de Pagamento 🎉", body); err != nil {
			s.logger.Warn("confirmation mail failed",
				zap.String("registration_id", reg.ID),
				zap.Error(err))
		}
	}()
}
