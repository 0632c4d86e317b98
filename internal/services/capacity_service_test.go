package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	dbm "townsquare/internal/models/db_models"
	"townsquare/internal/repositories"
	"townsquare/internal/testutil"
	"townsquare/pkg/utils"
)

func newCapacity(t *testing.T) (*gorm.DB, CapacityService) {
	t.Helper()
	db := testutil.NewDB(t)
	return db, NewCapacityService(db, repositories.NewEventRepository(db), zap.NewNop())
}

func TestConcurrentRSVPNeverOvercommits(t *testing.T) {
	const capacity = 5
	const callers = 20

	db, svc := newCapacity(t)
	event := testutil.SeedEvent(t, db, capacity, "0")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		full     int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(context.Background(), event.ID, uuid.New(), 0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, utils.ErrAtCapacity):
				full++
			default:
				t.Errorf("Reserve() unexpected error = %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted != capacity || full != callers-capacity {
		t.Errorf("accepted=%d full=%d, want %d and %d", accepted, full, capacity, callers-capacity)
	}
	if n := testutil.CountRows(t, db, &dbm.EventAttendee{}, "event_id = ? AND rsvp_status = ?", event.ID, dbm.RSVPGoing); n != capacity {
		t.Errorf("going rows = %d, want %d", n, capacity)
	}
	if got := testutil.ReloadEvent(t, db, event.ID).AttendeesCount; got != capacity {
		t.Errorf("AttendeesCount = %d, want %d", got, capacity)
	}
}

func TestLastSeatRace(t *testing.T) {
	db, svc := newCapacity(t)
	event := testutil.SeedEvent(t, db, 1, "0")

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RSVP(context.Background(), event.ID, uuid.New(), dbm.RSVPGoing, 0)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, full int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, utils.ErrAtCapacity):
			full++
		default:
			t.Fatalf("RSVP() unexpected error = %v", err)
		}
	}
	if ok != 1 || full != 1 {
		t.Errorf("ok=%d full=%d, want 1 and 1", ok, full)
	}
}

func TestGuestsCountTowardsCapacity(t *testing.T) {
	db, svc := newCapacity(t)
	event := testutil.SeedEvent(t, db, 3, "0")
	ada, bob := uuid.New(), uuid.New()
	ctx := context.Background()

	res, err := svc.RSVP(ctx, event.ID, ada, dbm.RSVPGoing, 2)
	if err != nil {
		t.Fatalf("RSVP() error = %v", err)
	}
	if res.AttendeesCount != 3 {
		t.Errorf("AttendeesCount = %d, want 3", res.AttendeesCount)
	}

	if _, err := svc.RSVP(ctx, event.ID, bob, dbm.RSVPGoing, 0); !errors.Is(err, utils.ErrAtCapacity) {
		t.Fatalf("RSVP() on full event error = %v, want ErrAtCapacity", err)
	}

	// Shrinking a party is measured against the others' seats, not the old row.
	if res, err = svc.RSVP(ctx, event.ID, ada, dbm.RSVPGoing, 0); err != nil {
		t.Fatalf("RSVP() update error = %v", err)
	}
	if res.AttendeesCount != 1 {
		t.Errorf("AttendeesCount = %d, want 1", res.AttendeesCount)
	}
	if res, err = svc.RSVP(ctx, event.ID, bob, dbm.RSVPGoing, 1); err != nil {
		t.Fatalf("RSVP() error = %v", err)
	}
	if res.AttendeesCount != 3 {
		t.Errorf("AttendeesCount = %d, want 3", res.AttendeesCount)
	}
}

func TestMaybeDoesNotHoldASeat(t *testing.T) {
	db, svc := newCapacity(t)
	event := testutil.SeedEvent(t, db, 1, "0")
	ctx := context.Background()

	if _, err := svc.RSVP(ctx, event.ID, uuid.New(), dbm.RSVPMaybe, 4); err != nil {
		t.Fatalf("RSVP(maybe) error = %v", err)
	}
	res, err := svc.RSVP(ctx, event.ID, uuid.New(), dbm.RSVPGoing, 0)
	if err != nil {
		t.Fatalf("RSVP(going) error = %v", err)
	}
	if res.AttendeesCount != 1 {
		t.Errorf("AttendeesCount = %d, want 1", res.AttendeesCount)
	}
}

func TestUnboundedEvent(t *testing.T) {
	db, svc := newCapacity(t)
	event := testutil.SeedEvent(t, db, -1, "0")

	for i := 0; i < 10; i++ {
		if _, err := svc.Reserve(context.Background(), event.ID, uuid.New(), 3); err != nil {
			t.Fatalf("Reserve() error = %v", err)
		}
	}
	if got := testutil.ReloadEvent(t, db, event.ID).AttendeesCount; got != 40 {
		t.Errorf("AttendeesCount = %d, want 40", got)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	db, svc := newCapacity(t)
	event := testutil.SeedEvent(t, db, 2, "0")
	user := uuid.New()
	ctx := context.Background()

	if _, err := svc.Reserve(ctx, event.ID, user, 1); err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		res, err := svc.Release(ctx, event.ID, user)
		if err != nil {
			t.Fatalf("Release() call %d error = %v", i+1, err)
		}
		if res.AttendeesCount != 0 {
			t.Errorf("AttendeesCount = %d, want 0", res.AttendeesCount)
		}
	}

	if _, err := svc.Release(ctx, uuid.New(), user); !errors.Is(err, utils.ErrNotFound) {
		t.Errorf("Release() on missing event error = %v, want ErrNotFound", err)
	}
}

func TestPaidEventSeats(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewCapacityService(db, repositories.NewEventRepository(db), zap.NewNop())
	event := testutil.SeedEvent(t, db, 2, "1500")
	user := uuid.New()
	ctx := context.Background()

	if _, err := svc.RSVP(ctx, event.ID, user, dbm.RSVPGoing, 0); !errors.Is(err, utils.ErrValidation) {
		t.Fatalf("free RSVP to paid event error = %v, want ErrValidation", err)
	}
	if _, err := svc.RSVP(ctx, event.ID, user, dbm.RSVPMaybe, 0); err != nil {
		t.Fatalf("RSVP(maybe) error = %v", err)
	}

	paymentID := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.CommitPaidTx(ctx, tx, event.ID, user, 1, paymentID)
		return err
	})
	if err != nil {
		t.Fatalf("CommitPaidTx() error = %v", err)
	}
	if got := testutil.ReloadEvent(t, db, event.ID).AttendeesCount; got != 2 {
		t.Errorf("AttendeesCount = %d, want 2", got)
	}

	// The ticket holder may re-confirm within what they paid for.
	if _, err := svc.RSVP(ctx, event.ID, user, dbm.RSVPGoing, 1); err != nil {
		t.Errorf("RSVP() by ticket holder error = %v", err)
	}
	if _, err := svc.Release(ctx, event.ID, user); !errors.Is(err, utils.ErrInvalidState) {
		t.Errorf("Release() of paid seat error = %v, want ErrInvalidState", err)
	}

	// A refund for some other payment leaves the seat alone.
	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.ReleasePaidTx(ctx, tx, event.ID, user, uuid.New())
		return err
	})
	if err != nil {
		t.Fatalf("ReleasePaidTx() error = %v", err)
	}
	if got := testutil.ReloadEvent(t, db, event.ID).AttendeesCount; got != 2 {
		t.Errorf("AttendeesCount = %d, want 2", got)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.ReleasePaidTx(ctx, tx, event.ID, user, paymentID)
		return err
	})
	if err != nil {
		t.Fatalf("ReleasePaidTx() error = %v", err)
	}
	if got := testutil.ReloadEvent(t, db, event.ID).AttendeesCount; got != 0 {
		t.Errorf("AttendeesCount = %d, want 0", got)
	}
}

func TestCommitPaidKeepsSeatWithFirstPayment(t *testing.T) {
	db, svc := newCapacity(t)
	event := testutil.SeedEvent(t, db, 5, "1000")
	user := uuid.New()
	first, second := uuid.New(), uuid.New()
	ctx := context.Background()

	commit := func(paymentID uuid.UUID, guests int) error {
		return db.Transaction(func(tx *gorm.DB) error {
			_, err := svc.CommitPaidTx(ctx, tx, event.ID, user, guests, paymentID)
			return err
		})
	}

	if err := commit(first, 0); err != nil {
		t.Fatalf("CommitPaidTx() error = %v", err)
	}
	if err := commit(first, 0); err != nil {
		t.Fatalf("CommitPaidTx() repeat error = %v", err)
	}

	err := commit(second, 2)
	var held *SeatHeldError
	if !errors.As(err, &held) || held.PaymentID != first || !errors.Is(err, utils.ErrAlreadyPaid) {
		t.Fatalf("CommitPaidTx() by second payment error = %v, want seat held by %s", err, first)
	}
	if got := testutil.ReloadEvent(t, db, event.ID).AttendeesCount; got != 1 {
		t.Errorf("AttendeesCount = %d, want 1", got)
	}
}
