package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbm "townsquare/internal/models/db_models"
)

// SeedBooking inserts a pending, unpaid booking owned by userID.
func SeedBooking(t *testing.T, db *gorm.DB, userID uuid.UUID, price string) *dbm.Booking {
	t.Helper()
	b := &dbm.Booking{
		UserID:        userID,
		ProviderID:    uuid.New(),
		Status:        dbm.BookingStatusPending,
		PaymentStatus: dbm.BookingPaymentPending,
		ScheduledDate: "2026-11-02",
		ScheduledTime: "10:30",
		Price:         decimal.RequireFromString(price),
	}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("Failed to seed booking: %v", err)
	}
	return b
}

// SeedEvent inserts an event. maxAttendees < 0 means unbounded.
func SeedEvent(t *testing.T, db *gorm.DB, maxAttendees int, price string) *dbm.Event {
	t.Helper()
	e := &dbm.Event{
		OrganizerID: uuid.New(),
		Title:       "Community meetup",
		StartsAt:    1793000000,
		Price:       decimal.RequireFromString(price),
		Currency:    "NGN",
	}
	if maxAttendees >= 0 {
		m := maxAttendees
		e.MaxAttendees = &m
	}
	if err := db.Create(e).Error; err != nil {
		t.Fatalf("Failed to seed event: %v", err)
	}
	return e
}

func ReloadBooking(t *testing.T, db *gorm.DB, id uuid.UUID) *dbm.Booking {
	t.Helper()
	var b dbm.Booking
	if err := db.First(&b, "id = ?", id).Error; err != nil {
		t.Fatalf("Failed to reload booking %s: %v", id, err)
	}
	return &b
}

func ReloadEvent(t *testing.T, db *gorm.DB, id uuid.UUID) *dbm.Event {
	t.Helper()
	var e dbm.Event
	if err := db.First(&e, "id = ?", id).Error; err != nil {
		t.Fatalf("Failed to reload event %s: %v", id, err)
	}
	return &e
}

func CountRows(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return n
}
