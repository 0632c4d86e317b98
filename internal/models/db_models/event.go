package db_models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Event struct {
	BaseModel
	OrganizerID uuid.UUID       `gorm:"type:uuid;index" json:"organizer_id"`
	Title       string          `json:"title"`
	StartsAt    int64           `json:"starts_at"`
	Price       decimal.Decimal `gorm:"type:numeric(18,2);default:0" json:"price"`
	Currency    string          `gorm:"size:3" json:"currency"`
	// nil means unbounded.
	MaxAttendees *int `json:"max_attendees"`
	// Denormalized; always recomputed from event_attendees inside the writing transaction.
	AttendeesCount int `gorm:"not null;default:0" json:"attendees_count"`
}

func (e *Event) RequiresPayment() bool {
	return e.Price.IsPositive()
}

type RSVPStatus string

const (
	RSVPGoing    RSVPStatus = "going"
	RSVPMaybe    RSVPStatus = "maybe"
	RSVPNotGoing RSVPStatus = "not_going"
)

func (s RSVPStatus) Valid() bool {
	return s == RSVPGoing || s == RSVPMaybe || s == RSVPNotGoing
}

type EventAttendee struct {
	BaseModel
	EventID       uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_event_attendee" json:"event_id"`
	UserID        uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_event_attendee" json:"user_id"`
	RSVPStatus    RSVPStatus           `gorm:"column:rsvp_status;type:varchar(16);not null" json:"rsvp_status"`
	GuestsCount   int                  `gorm:"not null;default:0" json:"guests_count"`
	PaymentStatus BookingPaymentStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"payment_status"`
	PaymentID     *uuid.UUID           `gorm:"type:uuid" json:"payment_id,omitempty"`
}

// Seats is how much of the event's capacity this row holds.
func (a *EventAttendee) Seats() int {
	if a.RSVPStatus != RSVPGoing {
		return 0
	}
	return 1 + a.GuestsCount
}
