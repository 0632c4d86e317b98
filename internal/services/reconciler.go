package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	dbm "townsquare/internal/models/db_models"
	"townsquare/internal/repositories"
	"townsquare/pkg/utils"
)

// Reconciler propagates a payment's settled outcome into the resource it pays
// for. Both hooks run inside the transaction that writes the payment status,
// so the payment and its booking or seat commit or roll back together.
//
// A target that can no longer accept the payment (event full, booking
// cancelled, row gone) does not abort the transaction: the money has moved, so
// the payment still settles and a reconciliation fault is recorded beside it.
type Reconciler interface {
	OnPaymentSettled(ctx context.Context, tx *gorm.DB, payment *dbm.Payment) error
	OnPaymentRefunded(ctx context.Context, tx *gorm.DB, payment *dbm.Payment) error
}

type reconciler struct {
	bookings repositories.BookingRepository
	capacity CapacityService
	outbox   repositories.OutboxRepository
	log      *zap.Logger
}

func NewReconciler(
	bookings repositories.BookingRepository,
	capacity CapacityService,
	outbox repositories.OutboxRepository,
	log *zap.Logger,
) Reconciler {
	return &reconciler{
		bookings: bookings,
		capacity: capacity,
		outbox:   outbox,
		log:      log.Named("reconciler"),
	}
}

func (r *reconciler) OnPaymentSettled(ctx context.Context, tx *gorm.DB, payment *dbm.Payment) error {
	switch target := payment.Target().(type) {
	case dbm.BookingTarget:
		return r.settleBooking(ctx, tx, payment, target.ID)
	case dbm.EventTarget:
		return r.settleEventSeat(ctx, tx, payment, target.ID)
	case dbm.BillTarget:
		r.log.Info("bill payment settled", zap.String("payment_id", payment.ID.String()), zap.String("bill_id", target.ID.String()))
		return nil
	case dbm.NoTarget:
		return nil
	default:
		return fmt.Errorf("unhandled payment target %T", target)
	}
}

func (r *reconciler) OnPaymentRefunded(ctx context.Context, tx *gorm.DB, payment *dbm.Payment) error {
	switch target := payment.Target().(type) {
	case dbm.BookingTarget:
		return r.refundBooking(ctx, tx, payment, target.ID)
	case dbm.EventTarget:
		_, err := r.capacity.ReleasePaidTx(ctx, tx, target.ID, payment.UserID, payment.ID)
		if errors.Is(err, utils.ErrNotFound) {
			r.log.Warn("refunded payment's event no longer exists", zap.String("payment_id", payment.ID.String()), zap.String("event_id", target.ID.String()))
			return nil
		}
		return err
	case dbm.BillTarget, dbm.NoTarget:
		return nil
	default:
		return fmt.Errorf("unhandled payment target %T", target)
	}
}

func (r *reconciler) settleBooking(ctx context.Context, tx *gorm.DB, payment *dbm.Payment, bookingId uuid.UUID) error {
	bookings := r.bookings.WithTx(tx)
	booking, err := bookings.FindByIdForUpdate(ctx, bookingId)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if booking == nil {
		return r.fault(ctx, tx, payment, dbm.FaultTargetMissing, map[string]any{"booking_id": bookingId})
	}
	if booking.PaymentStatus == dbm.BookingPaymentPaid {
		return r.fault(ctx, tx, payment, dbm.FaultBookingNotPayable, map[string]any{
			"booking_id": bookingId,
			"reason":     "already paid",
			"paid_by":    booking.PaymentID,
		})
	}
	if booking.Status == dbm.BookingStatusCancelled {
		return r.fault(ctx, tx, payment, dbm.FaultBookingNotPayable, map[string]any{
			"booking_id": bookingId,
			"reason":     "booking cancelled",
		})
	}

	fields := map[string]interface{}{
		"payment_status": dbm.BookingPaymentPaid,
		"payment_id":     payment.ID,
	}
	// Only a pending booking advances; confirmed or later bookings never regress.
	if booking.Status == dbm.BookingStatusPending {
		fields["status"] = dbm.BookingStatusConfirmed
	}
	if err := bookings.UpdateFields(ctx, bookingId, fields); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	r.log.Info("booking paid",
		zap.String("booking_id", bookingId.String()),
		zap.String("payment_id", payment.ID.String()))
	return nil
}

func (r *reconciler) settleEventSeat(ctx context.Context, tx *gorm.DB, payment *dbm.Payment, eventId uuid.UUID) error {
	guests := guestsFromMetadata(payment.Metadata)
	res, err := r.capacity.CommitPaidTx(ctx, tx, eventId, payment.UserID, guests, payment.ID)
	var held *SeatHeldError
	switch {
	case err == nil:
		r.log.Info("event seat committed",
			zap.String("event_id", eventId.String()),
			zap.String("payment_id", payment.ID.String()),
			zap.Int("attendees_count", res.AttendeesCount))
		return nil
	case errors.As(err, &held):
		return r.fault(ctx, tx, payment, dbm.FaultBookingNotPayable, map[string]any{
			"event_id": eventId,
			"reason":   "already paid",
			"paid_by":  held.PaymentID,
		})
	case errors.Is(err, utils.ErrAtCapacity):
		return r.fault(ctx, tx, payment, dbm.FaultCapacityUnavailable, map[string]any{"event_id": eventId, "guests_count": guests})
	case errors.Is(err, utils.ErrNotFound):
		return r.fault(ctx, tx, payment, dbm.FaultTargetMissing, map[string]any{"event_id": eventId})
	default:
		return err
	}
}

func (r *reconciler) refundBooking(ctx context.Context, tx *gorm.DB, payment *dbm.Payment, bookingId uuid.UUID) error {
	bookings := r.bookings.WithTx(tx)
	booking, err := bookings.FindByIdForUpdate(ctx, bookingId)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if booking == nil {
		r.log.Warn("refunded payment's booking no longer exists", zap.String("payment_id", payment.ID.String()))
		return nil
	}
	// The booking may have been settled by a different payment.
	if booking.PaymentID == nil || *booking.PaymentID != payment.ID {
		r.log.Warn("refunded payment does not hold its booking",
			zap.String("payment_id", payment.ID.String()),
			zap.String("booking_id", bookingId.String()))
		return nil
	}

	fields := map[string]interface{}{"payment_status": dbm.BookingPaymentRefunded}
	if !booking.Status.ProgressedPastConfirmed() {
		fields["status"] = dbm.BookingStatusCancelled
	}
	if err := bookings.UpdateFields(ctx, bookingId, fields); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return nil
}

func (r *reconciler) fault(ctx context.Context, tx *gorm.DB, payment *dbm.Payment, kind dbm.FaultKind, detail map[string]any) error {
	r.log.Error("reconciliation fault, manual repair required",
		zap.String("payment_id", payment.ID.String()),
		zap.String("reference", payment.Reference),
		zap.String("kind", string(kind)),
		zap.Any("detail", detail))

	if err := r.outbox.WithTx(tx).RecordFault(ctx, payment.ID, kind, detail); err != nil {
		return fmt.Errorf("%w: record fault: %v", utils.ErrDatabaseError, err)
	}
	return nil
}

// guestsFromMetadata reads the guest count Initialize normalized into the
// payment's metadata.
func guestsFromMetadata(raw []byte) int {
	if len(raw) == 0 {
		return 0
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		return 0
	}
	guests, err := ticketGuests(meta)
	if err != nil {
		return 0
	}
	return guests
}
