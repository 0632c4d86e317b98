package db_models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in-progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// ProgressedPastConfirmed reports whether a refund must leave the status alone.
func (s BookingStatus) ProgressedPastConfirmed() bool {
	return s == BookingStatusInProgress || s == BookingStatusCompleted
}

type BookingPaymentStatus string

const (
	BookingPaymentPending  BookingPaymentStatus = "pending"
	BookingPaymentPaid     BookingPaymentStatus = "paid"
	BookingPaymentRefunded BookingPaymentStatus = "refunded"
	BookingPaymentFailed   BookingPaymentStatus = "failed"
)

type Booking struct {
	BaseModel
	UserID        uuid.UUID            `gorm:"type:uuid;index;not null" json:"user_id"`
	ProviderID    uuid.UUID            `gorm:"type:uuid;index;not null" json:"provider_id"`
	Status        BookingStatus        `gorm:"type:varchar(16);index;not null;default:'pending'" json:"status"`
	PaymentStatus BookingPaymentStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"payment_status"`
	PaymentID     *uuid.UUID           `gorm:"type:uuid" json:"payment_id,omitempty"`
	ScheduledDate string               `gorm:"size:10" json:"scheduled_date"` // YYYY-MM-DD
	ScheduledTime string               `gorm:"size:5" json:"scheduled_time"`  // HH:MM
	Price         decimal.Decimal      `gorm:"type:numeric(18,2)" json:"price"`
}
