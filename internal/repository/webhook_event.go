package repository

import (
	"context"
	"fmt"
	"time"

	"course-checkout-api/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookEventRepository interface {
	// RecordEvent inserts the event if its id is unseen and reports
	// whether this call was the one that inserted it.
	RecordEvent(ctx context.Context, eventID, chargeID, eventType string, payload []byte) (bool, error)
}

type webhookEventRepoImpl struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepoImpl{db: db}
}

func (r *webhookEventRepoImpl) RecordEvent(ctx context.Context, eventID, chargeID, eventType string, payload []byte) (bool, error) {
	event := &model.WebhookEvent{
		EventID:    eventID,
		ChargeID:   chargeID,
		EventType:  eventType,
		Payload:    string(payload),
		ReceivedAt: time.Now(),
	}

	// single conditional insert; concurrent replays race on the primary
	// key and exactly one of them observes RowsAffected > 0
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event)
	if result.Error != nil {
		return false, fmt.Errorf("record webhook event: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}
