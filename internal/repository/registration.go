package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"course-checkout-api/internal/apperr"
	"course-checkout-api/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RegistrationRepository interface {
	FindByID(ctx context.Context, id string) (*model.Registration, error)
	FindByEmail(ctx context.Context, email string) (*model.Registration, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*model.Registration, error)
	FindByChargeID(ctx context.Context, chargeID string) (*model.Registration, error)
	UpsertPending(ctx context.Context, reg *model.Registration) (*model.Registration, bool, error)
	SetExternalCustomerID(ctx context.Context, id, customerID string) error
	SetExternalCharge(ctx context.Context, id, chargeID, checkoutURL string) error
	UpdatePaymentStatus(ctx context.Context, id, status string, confirmedAt *time.Time) (*model.Registration, error)
}

type registrationRepoImpl struct {
	db *gorm.DB
}

func NewRegistrationRepository(db *gorm.DB) RegistrationRepository {
	return &registrationRepoImpl{
		db: db,
	}
}

func (r *registrationRepoImpl) FindByID(ctx context.Context, id string) (*model.Registration, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *registrationRepoImpl) FindByEmail(ctx context.Context, email string) (*model.Registration, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *registrationRepoImpl) FindByIdempotencyKey(ctx context.Context, key string) (*model.Registration, error) {
	return r.findOne(ctx, "idempotency_key = ?", key)
}

func (r *registrationRepoImpl) FindByChargeID(ctx context.Context, chargeID string) (*model.Registration, error) {
	return r.findOne(ctx, "external_charge_id = ?", chargeID)
}

func (r *registrationRepoImpl) findOne(ctx context.Context, query string, arg string) (*model.Registration, error) {
	var reg model.Registration
	err := r.db.WithContext(ctx).
		Where(query, arg).
		First(&reg).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	return &reg, nil
}

// UpsertPending inserts a new pending registration, or yields the existing
// record when one already holds the email or idempotency key. The insert
// rides on the unique constraints (ON CONFLICT DO NOTHING) so two
// concurrent identical submissions cannot both create a row: the loser
// sees zero affected rows and re-fetches the winner.
func (r *registrationRepoImpl) UpsertPending(ctx context.Context, reg *model.Registration) (*model.Registration, bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(reg)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return nil, false, fmt.Errorf("insert registration: %w", result.Error)
	}
	// some drivers report the conflict instead of swallowing it; both
	// cases fall through to the re-fetch of the winning record
	if result.Error == nil && result.RowsAffected > 0 {
		return reg, true, nil
	}

	existing, err := r.FindByIdempotencyKey(ctx, reg.IdempotencyKey)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}

	existing, err = r.FindByEmail(ctx, reg.Email)
	if err != nil {
		return nil, false, fmt.Errorf("refetch after conflict: %w", err)
	}

	return existing, false, nil
}

func (r *registrationRepoImpl) SetExternalCustomerID(ctx context.Context, id, customerID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Registration{}).
		Where("id = ? AND external_customer_id = ''", id).
		Update("external_customer_id", customerID)

	// zero affected rows means an earlier attempt already set the id;
	// it is never overwritten
	return result.Error
}

func (r *registrationRepoImpl) SetExternalCharge(ctx context.Context, id, chargeID, checkoutURL string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Registration{}).
		Where("id = ? AND external_charge_id = ''", id).
		Updates(map[string]interface{}{
			"external_charge_id": chargeID,
			"checkout_url":       checkoutURL,
			"payment_status":     model.PaymentStatusProcessing,
		})

	return result.Error
}

// UpdatePaymentStatus advances a registration's status. Records already in
// approved state are left untouched: a second "paid" signal is a no-op,
// and PaymentConfirmedAt is written in the same UPDATE that sets approved
// so no reader can ever observe approved without a confirmation time.
func (r *registrationRepoImpl) UpdatePaymentStatus(ctx context.Context, id, status string, confirmedAt *time.Time) (*model.Registration, error) {
	updates := map[string]interface{}{
		"payment_status": status,
		"updated_at":     time.Now(),
	}
	if confirmedAt != nil {
		updates["payment_confirmed_at"] = *confirmedAt
	}

	result := r.db.WithContext(ctx).
		Model(&model.Registration{}).
		Where("id = ? AND payment_status <> ?", id, model.PaymentStatusApproved).
		Updates(updates)

	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		// either unknown id or already approved; re-fetch to tell apart
		return r.FindByID(ctx, id)
	}

	return r.FindByID(ctx, id)
}
