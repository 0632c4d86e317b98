package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	dbm "townsquare/internal/models/db_models"
	"townsquare/internal/repositories"
	"townsquare/internal/testutil"
)

func newReconcilerFor(db *gorm.DB) Reconciler {
	log := zap.NewNop()
	events := repositories.NewEventRepository(db)
	outbox := repositories.NewOutboxRepository(db)
	return NewReconciler(
		repositories.NewBookingRepository(db),
		NewCapacityService(db, events, log),
		outbox,
		log,
	)
}

func bookingPayment(userID, bookingID uuid.UUID) *dbm.Payment {
	p := &dbm.Payment{
		BaseModel: dbm.BaseModel{ID: uuid.New()},
		UserID:    userID,
		Amount:    decimal.NewFromInt(5000),
		Currency:  "NGN",
		Status:    dbm.PaymentStatusSuccess,
		Reference: "TSQ-TEST",
	}
	p.SetTarget(dbm.BookingTarget{ID: bookingID})
	return p
}

func setBooking(t *testing.T, db *gorm.DB, id uuid.UUID, fields map[string]interface{}) {
	t.Helper()
	if err := db.Model(&dbm.Booking{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		t.Fatalf("Failed to update booking: %v", err)
	}
}

func TestRefundKeepsProgressedBookingStatus(t *testing.T) {
	tests := []struct {
		from dbm.BookingStatus
		want dbm.BookingStatus
	}{
		{dbm.BookingStatusConfirmed, dbm.BookingStatusCancelled},
		{dbm.BookingStatusInProgress, dbm.BookingStatusInProgress},
		{dbm.BookingStatusCompleted, dbm.BookingStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			db := testutil.NewDB(t)
			rec := newReconcilerFor(db)
			user := uuid.New()
			booking := testutil.SeedBooking(t, db, user, "5000")
			payment := bookingPayment(user, booking.ID)
			setBooking(t, db, booking.ID, map[string]interface{}{
				"status":         tt.from,
				"payment_status": dbm.BookingPaymentPaid,
				"payment_id":     payment.ID,
			})

			err := db.Transaction(func(tx *gorm.DB) error {
				return rec.OnPaymentRefunded(context.Background(), tx, payment)
			})
			if err != nil {
				t.Fatalf("OnPaymentRefunded() error = %v", err)
			}

			b := testutil.ReloadBooking(t, db, booking.ID)
			if b.PaymentStatus != dbm.BookingPaymentRefunded {
				t.Errorf("PaymentStatus = %s, want refunded", b.PaymentStatus)
			}
			if b.Status != tt.want {
				t.Errorf("Status = %s, want %s", b.Status, tt.want)
			}
		})
	}
}

func TestSettleNeverRegressesBookingStatus(t *testing.T) {
	db := testutil.NewDB(t)
	rec := newReconcilerFor(db)
	user := uuid.New()
	booking := testutil.SeedBooking(t, db, user, "5000")
	setBooking(t, db, booking.ID, map[string]interface{}{"status": dbm.BookingStatusInProgress})
	payment := bookingPayment(user, booking.ID)

	err := db.Transaction(func(tx *gorm.DB) error {
		return rec.OnPaymentSettled(context.Background(), tx, payment)
	})
	if err != nil {
		t.Fatalf("OnPaymentSettled() error = %v", err)
	}

	b := testutil.ReloadBooking(t, db, booking.ID)
	if b.Status != dbm.BookingStatusInProgress || b.PaymentStatus != dbm.BookingPaymentPaid {
		t.Errorf("booking = %s/%s, want in-progress/paid", b.Status, b.PaymentStatus)
	}
}

func TestSettleRecordsFaultForUnpayableBooking(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, db *gorm.DB, id uuid.UUID)
		kind  dbm.FaultKind
	}{
		{
			name: "cancelled",
			setup: func(t *testing.T, db *gorm.DB, id uuid.UUID) {
				setBooking(t, db, id, map[string]interface{}{"status": dbm.BookingStatusCancelled})
			},
			kind: dbm.FaultBookingNotPayable,
		},
		{
			name: "paid by another payment",
			setup: func(t *testing.T, db *gorm.DB, id uuid.UUID) {
				setBooking(t, db, id, map[string]interface{}{"payment_status": dbm.BookingPaymentPaid, "payment_id": uuid.New()})
			},
			kind: dbm.FaultBookingNotPayable,
		},
		{
			name: "deleted",
			setup: func(t *testing.T, db *gorm.DB, id uuid.UUID) {
				if err := db.Unscoped().Delete(&dbm.Booking{}, "id = ?", id).Error; err != nil {
					t.Fatalf("Failed to delete booking: %v", err)
				}
			},
			kind: dbm.FaultTargetMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.NewDB(t)
			rec := newReconcilerFor(db)
			user := uuid.New()
			booking := testutil.SeedBooking(t, db, user, "5000")
			tt.setup(t, db, booking.ID)
			payment := bookingPayment(user, booking.ID)

			err := db.Transaction(func(tx *gorm.DB) error {
				return rec.OnPaymentSettled(context.Background(), tx, payment)
			})
			if err != nil {
				t.Fatalf("OnPaymentSettled() error = %v", err)
			}
			if n := testutil.CountRows(t, db, &dbm.ReconciliationFault{}, "payment_id = ? AND kind = ?", payment.ID, tt.kind); n != 1 {
				t.Errorf("%s faults = %d, want 1", tt.kind, n)
			}
		})
	}
}

func TestRefundIgnoresBookingHeldByAnotherPayment(t *testing.T) {
	db := testutil.NewDB(t)
	rec := newReconcilerFor(db)
	user := uuid.New()
	booking := testutil.SeedBooking(t, db, user, "5000")
	holder := uuid.New()
	setBooking(t, db, booking.ID, map[string]interface{}{
		"status":         dbm.BookingStatusConfirmed,
		"payment_status": dbm.BookingPaymentPaid,
		"payment_id":     holder,
	})

	err := db.Transaction(func(tx *gorm.DB) error {
		return rec.OnPaymentRefunded(context.Background(), tx, bookingPayment(user, booking.ID))
	})
	if err != nil {
		t.Fatalf("OnPaymentRefunded() error = %v", err)
	}

	b := testutil.ReloadBooking(t, db, booking.ID)
	if b.PaymentStatus != dbm.BookingPaymentPaid || b.Status != dbm.BookingStatusConfirmed {
		t.Errorf("booking = %s/%s, want untouched confirmed/paid", b.Status, b.PaymentStatus)
	}
}
