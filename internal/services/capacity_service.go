package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	dbm "townsquare/internal/models/db_models"
	"townsquare/internal/repositories"
	"townsquare/pkg/utils"
)

// SeatHeldError reports a paid seat that already belongs to another payment.
type SeatHeldError struct {
	EventID   uuid.UUID
	PaymentID uuid.UUID
}

func (e *SeatHeldError) Error() string {
	return fmt.Sprintf("%v: seat for event %s is held by payment %s", utils.ErrAlreadyPaid, e.EventID, e.PaymentID)
}

func (e *SeatHeldError) Unwrap() error { return utils.ErrAlreadyPaid }

type ReservationResult struct {
	EventID        uuid.UUID          `json:"event_id"`
	Attendee       *dbm.EventAttendee `json:"attendee,omitempty"`
	AttendeesCount int                `json:"attendees_count"`
	MaxAttendees   *int               `json:"max_attendees"`
}

// CapacityService guards event seats. Every mutation runs inside a transaction
// that first locks the event row, so reservations for one event are serialized
// and the committed seat count can never exceed MaxAttendees.
type CapacityService interface {
	GetEvent(ctx context.Context, eventId uuid.UUID) (*dbm.Event, error)
	// RSVP is the free path used by the HTTP surface.
	RSVP(ctx context.Context, eventId, userId uuid.UUID, status dbm.RSVPStatus, guests int) (*ReservationResult, error)
	Reserve(ctx context.Context, eventId, userId uuid.UUID, guests int) (*ReservationResult, error)
	Release(ctx context.Context, eventId, userId uuid.UUID) (*ReservationResult, error)

	// CommitPaidTx and ReleasePaidTx join the caller's transaction; the Reconciler uses them.
	CommitPaidTx(ctx context.Context, tx *gorm.DB, eventId, userId uuid.UUID, guests int, paymentId uuid.UUID) (*ReservationResult, error)
	ReleasePaidTx(ctx context.Context, tx *gorm.DB, eventId, userId, paymentId uuid.UUID) (*ReservationResult, error)
}

type capacityService struct {
	db     *gorm.DB
	events repositories.EventRepository
	log    *zap.Logger
}

func NewCapacityService(db *gorm.DB, events repositories.EventRepository, log *zap.Logger) CapacityService {
	return &capacityService{db: db, events: events, log: log.Named("capacity")}
}

func (c *capacityService) GetEvent(ctx context.Context, eventId uuid.UUID) (*dbm.Event, error) {
	event, err := c.events.FindById(ctx, eventId)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if event == nil {
		return nil, fmt.Errorf("%w: event %s", utils.ErrNotFound, eventId)
	}
	return event, nil
}

func (c *capacityService) RSVP(ctx context.Context, eventId, userId uuid.UUID, status dbm.RSVPStatus, guests int) (*ReservationResult, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: rsvp status must be going, maybe or not_going", utils.ErrValidation)
	}
	if guests < 0 {
		return nil, fmt.Errorf("%w: guests count cannot be negative", utils.ErrValidation)
	}
	if status != dbm.RSVPGoing {
		guests = 0
	}

	var result *ReservationResult
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events := c.events.WithTx(tx)
		event, existing, err := c.lockEvent(ctx, events, eventId, userId)
		if err != nil {
			return err
		}

		if status == dbm.RSVPGoing && event.RequiresPayment() {
			paidSeat := existing != nil && existing.PaymentStatus == dbm.BookingPaymentPaid && guests <= existing.GuestsCount
			if !paidSeat {
				return fmt.Errorf("%w: ticket payment required for event %s", utils.ErrValidation, eventId)
			}
		}

		attendee := existing
		if attendee == nil {
			attendee = &dbm.EventAttendee{EventID: eventId, UserID: userId, PaymentStatus: dbm.BookingPaymentPending}
		}
		attendee.RSVPStatus = status
		attendee.GuestsCount = guests

		result, err = c.place(ctx, events, event, attendee)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *capacityService) Reserve(ctx context.Context, eventId, userId uuid.UUID, guests int) (*ReservationResult, error) {
	return c.RSVP(ctx, eventId, userId, dbm.RSVPGoing, guests)
}

func (c *capacityService) Release(ctx context.Context, eventId, userId uuid.UUID) (*ReservationResult, error) {
	var result *ReservationResult
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = c.release(ctx, tx, eventId, userId, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *capacityService) CommitPaidTx(ctx context.Context, tx *gorm.DB, eventId, userId uuid.UUID, guests int, paymentId uuid.UUID) (*ReservationResult, error) {
	if guests < 0 {
		guests = 0
	}
	events := c.events.WithTx(tx)
	event, existing, err := c.lockEvent(ctx, events, eventId, userId)
	if err != nil {
		return nil, err
	}

	if existing != nil && existing.PaymentStatus == dbm.BookingPaymentPaid && existing.PaymentID != nil {
		if *existing.PaymentID != paymentId {
			return nil, &SeatHeldError{EventID: eventId, PaymentID: *existing.PaymentID}
		}
		return &ReservationResult{EventID: eventId, Attendee: existing, AttendeesCount: event.AttendeesCount, MaxAttendees: event.MaxAttendees}, nil
	}

	attendee := existing
	if attendee == nil {
		attendee = &dbm.EventAttendee{EventID: eventId, UserID: userId}
	}
	attendee.RSVPStatus = dbm.RSVPGoing
	attendee.GuestsCount = guests
	attendee.PaymentStatus = dbm.BookingPaymentPaid
	pid := paymentId
	attendee.PaymentID = &pid

	return c.place(ctx, events, event, attendee)
}

// ReleasePaidTx gives the seat back only if it is still held by paymentId.
func (c *capacityService) ReleasePaidTx(ctx context.Context, tx *gorm.DB, eventId, userId, paymentId uuid.UUID) (*ReservationResult, error) {
	return c.release(ctx, tx, eventId, userId, &paymentId)
}

// release is idempotent: releasing a seat that is not held is a no-op.
func (c *capacityService) release(ctx context.Context, tx *gorm.DB, eventId, userId uuid.UUID, paymentId *uuid.UUID) (*ReservationResult, error) {
	events := c.events.WithTx(tx)
	event, existing, err := c.lockEvent(ctx, events, eventId, userId)
	if err != nil {
		return nil, err
	}

	// A paid seat only goes back through a refund.
	if paymentId == nil && existing != nil && existing.PaymentStatus == dbm.BookingPaymentPaid {
		return nil, fmt.Errorf("%w: seat for event %s is paid, refund the ticket instead", utils.ErrInvalidState, eventId)
	}

	var removed int64
	heldByPayment := paymentId == nil || (existing != nil && existing.PaymentID != nil && *existing.PaymentID == *paymentId)
	if existing != nil && heldByPayment {
		removed, err = events.DeleteAttendee(ctx, eventId, userId)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
	}

	count, err := events.RecomputeAttendeesCount(ctx, eventId)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if removed > 0 {
		c.log.Info("reservation released",
			zap.String("event_id", eventId.String()),
			zap.String("user_id", userId.String()),
			zap.Int("attendees_count", count))
	}
	return &ReservationResult{EventID: eventId, AttendeesCount: count, MaxAttendees: event.MaxAttendees}, nil
}

func (c *capacityService) lockEvent(ctx context.Context, events repositories.EventRepository, eventId, userId uuid.UUID) (*dbm.Event, *dbm.EventAttendee, error) {
	event, err := events.FindByIdForUpdate(ctx, eventId)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if event == nil {
		return nil, nil, fmt.Errorf("%w: event %s", utils.ErrNotFound, eventId)
	}
	existing, err := events.FindAttendee(ctx, eventId, userId)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return event, existing, nil
}

// place checks capacity for the attendee's new seat count, writes the row and
// recomputes the cached count. The caller must hold the event row lock.
func (c *capacityService) place(ctx context.Context, events repositories.EventRepository, event *dbm.Event, attendee *dbm.EventAttendee) (*ReservationResult, error) {
	if seats := attendee.Seats(); seats > 0 && event.MaxAttendees != nil {
		others, err := events.CommittedSeats(ctx, event.ID, &attendee.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		if others+seats > *event.MaxAttendees {
			c.log.Info("reservation rejected at capacity",
				zap.String("event_id", event.ID.String()),
				zap.String("user_id", attendee.UserID.String()),
				zap.Int("committed", others),
				zap.Int("requested", seats),
				zap.Int("max_attendees", *event.MaxAttendees))
			return nil, fmt.Errorf("%w: event %s", utils.ErrAtCapacity, event.ID)
		}
	}

	if err := events.SaveAttendee(ctx, attendee); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: rsvp for event %s", utils.ErrDuplicate, event.ID)
		}
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	count, err := events.RecomputeAttendeesCount(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	return &ReservationResult{
		EventID:        event.ID,
		Attendee:       attendee,
		AttendeesCount: count,
		MaxAttendees:   event.MaxAttendees,
	}, nil
}
