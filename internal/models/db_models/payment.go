package db_models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSuccess   PaymentStatus = "success"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// paymentTransitions is the whole state machine. Anything not listed is rejected.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusSuccess, PaymentStatusFailed},
	PaymentStatusSuccess: {PaymentStatusRefunded},
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s PaymentStatus) IsFinal() bool {
	return s != PaymentStatusPending
}

type PaymentType string

const (
	PaymentTypeServiceBooking PaymentType = "service-booking"
	PaymentTypeBillPayment    PaymentType = "bill-payment"
	PaymentTypeEventTicket    PaymentType = "event-ticket"
	PaymentTypeOther          PaymentType = "other"
)

func (t PaymentType) Valid() bool {
	switch t {
	case PaymentTypeServiceBooking, PaymentTypeBillPayment, PaymentTypeEventTicket, PaymentTypeOther:
		return true
	}
	return false
}

type Payment struct {
	BaseModel
	UserID            uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	Amount            decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"amount"`
	Currency          string          `gorm:"size:3;not null" json:"currency"`
	Status            PaymentStatus   `gorm:"type:varchar(16);index;not null" json:"status"`
	Type              PaymentType     `gorm:"type:varchar(32);not null" json:"type"`
	Reference         string          `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	ExternalReference *string         `gorm:"size:128;index" json:"external_reference,omitempty"`
	AccessCode        string          `gorm:"size:128" json:"-"`
	AuthorizationURL  string          `json:"authorization_url,omitempty"`
	Description       string          `json:"description,omitempty"`
	Metadata          datatypes.JSON  `gorm:"type:jsonb;default:'{}'" json:"metadata,omitempty"`

	// At most one of these is set; see Target.
	BookingID *uuid.UUID `gorm:"type:uuid;index" json:"booking_id,omitempty"`
	BillID    *uuid.UUID `gorm:"type:uuid;index" json:"bill_id,omitempty"`
	EventID   *uuid.UUID `gorm:"type:uuid;index" json:"event_id,omitempty"`

	FailureReason  *string          `json:"failure_reason,omitempty"`
	RefundedAmount *decimal.Decimal `gorm:"type:numeric(18,2)" json:"refunded_amount,omitempty"`

	// Unix seconds. PaidAt comes from the gateway, never the local clock.
	PaidAt     *int64 `json:"paid_at,omitempty"`
	RefundedAt *int64 `json:"refunded_at,omitempty"`
}

// PaymentTarget is the resource a payment pays for.
type PaymentTarget interface {
	isPaymentTarget()
}

type BookingTarget struct{ ID uuid.UUID }
type BillTarget struct{ ID uuid.UUID }
type EventTarget struct{ ID uuid.UUID }
type NoTarget struct{}

func (BookingTarget) isPaymentTarget() {}
func (BillTarget) isPaymentTarget()    {}
func (EventTarget) isPaymentTarget()   {}
func (NoTarget) isPaymentTarget()      {}

func (p *Payment) Target() PaymentTarget {
	switch {
	case p.BookingID != nil:
		return BookingTarget{ID: *p.BookingID}
	case p.EventID != nil:
		return EventTarget{ID: *p.EventID}
	case p.BillID != nil:
		return BillTarget{ID: *p.BillID}
	default:
		return NoTarget{}
	}
}

func (p *Payment) SetTarget(t PaymentTarget) {
	p.BookingID, p.BillID, p.EventID = nil, nil, nil
	switch v := t.(type) {
	case BookingTarget:
		id := v.ID
		p.BookingID = &id
	case BillTarget:
		id := v.ID
		p.BillID = &id
	case EventTarget:
		id := v.ID
		p.EventID = &id
	}
}
