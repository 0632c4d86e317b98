package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// OutboxMessage is written in the same transaction as the state change it announces.
type OutboxMessage struct {
	BaseModel
	AggregateID uuid.UUID `gorm:"type:uuid;index;not null"`
	EventKey    string    `gorm:"size:64;not null"`
	// Unix nanoseconds; relay order. CreatedAt is too coarse to order by.
	EnqueuedAt  int64          `gorm:"index;not null"`
	Payload     datatypes.JSON `gorm:"type:jsonb;not null"`
	PublishedAt *int64         `gorm:"index"`
	Attempts    int            `gorm:"not null;default:0"`
	LastError   *string
}

type FaultKind string

const (
	FaultCapacityUnavailable FaultKind = "capacity_unavailable"
	FaultBookingNotPayable   FaultKind = "booking_not_payable"
	FaultTargetMissing       FaultKind = "target_missing"
	FaultAmountMismatch      FaultKind = "amount_mismatch"
)

// ReconciliationFault records a settled payment whose target could not be
// updated, for out-of-band repair.
type ReconciliationFault struct {
	BaseModel
	PaymentID  uuid.UUID      `gorm:"type:uuid;index;not null" json:"payment_id"`
	Kind       FaultKind      `gorm:"type:varchar(32);not null" json:"kind"`
	Detail     datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"detail"`
	ResolvedAt *int64         `json:"resolved_at,omitempty"`
}
