package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	dbm "townsquare/internal/models/db_models"
	"townsquare/pkg/utils"
)

type OutboxRepository interface {
	WithTx(tx *gorm.DB) OutboxRepository
	Enqueue(ctx context.Context, aggregateId uuid.UUID, eventKey string, payload any) error
	RecordFault(ctx context.Context, paymentId uuid.UUID, kind dbm.FaultKind, detail map[string]any) error
	ListUnpublished(ctx context.Context, limit int) ([]dbm.OutboxMessage, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
	MarkAttemptFailed(ctx context.Context, id uuid.UUID, cause error) error
	ListOpenFaults(ctx context.Context) ([]dbm.ReconciliationFault, error)
}

type outboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) WithTx(tx *gorm.DB) OutboxRepository {
	return &outboxRepository{db: tx}
}

func (r *outboxRepository) Enqueue(ctx context.Context, aggregateId uuid.UUID, eventKey string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}
	msg := &dbm.OutboxMessage{
		AggregateID: aggregateId,
		EventKey:    eventKey,
		EnqueuedAt:  time.Now().UnixNano(),
		Payload:     datatypes.JSON(raw),
	}
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *outboxRepository) RecordFault(ctx context.Context, paymentId uuid.UUID, kind dbm.FaultKind, detail map[string]any) error {
	raw, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal fault detail: %w", err)
	}
	fault := &dbm.ReconciliationFault{
		PaymentID: paymentId,
		Kind:      kind,
		Detail:    datatypes.JSON(raw),
	}
	return r.db.WithContext(ctx).Create(fault).Error
}

func (r *outboxRepository) ListUnpublished(ctx context.Context, limit int) ([]dbm.OutboxMessage, error) {
	var msgs []dbm.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("enqueued_at ASC").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

func (r *outboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&dbm.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"published_at": utils.NowUnixSeconds(),
			"attempts":     gorm.Expr("attempts + 1"),
		}).Error
}

func (r *outboxRepository) MarkAttemptFailed(ctx context.Context, id uuid.UUID, cause error) error {
	return r.db.WithContext(ctx).
		Model(&dbm.OutboxMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause.Error(),
		}).Error
}

func (r *outboxRepository) ListOpenFaults(ctx context.Context) ([]dbm.ReconciliationFault, error) {
	var faults []dbm.ReconciliationFault
	err := r.db.WithContext(ctx).
		Where("resolved_at IS NULL").
		Order("created_at ASC").
		Find(&faults).Error
	return faults, err
}
