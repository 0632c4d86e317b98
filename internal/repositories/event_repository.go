package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	dbm "townsquare/internal/models/db_models"
)

type EventRepository interface {
	WithTx(tx *gorm.DB) EventRepository
	FindById(ctx context.Context, id uuid.UUID) (*dbm.Event, error)
	// FindByIdForUpdate takes the row lock that linearizes reservations for one event.
	FindByIdForUpdate(ctx context.Context, id uuid.UUID) (*dbm.Event, error)
	FindAttendee(ctx context.Context, eventId, userId uuid.UUID) (*dbm.EventAttendee, error)
	SaveAttendee(ctx context.Context, attendee *dbm.EventAttendee) error
	DeleteAttendee(ctx context.Context, eventId, userId uuid.UUID) (int64, error)
	CommittedSeats(ctx context.Context, eventId uuid.UUID, excludeUserId *uuid.UUID) (int, error)
	RecomputeAttendeesCount(ctx context.Context, eventId uuid.UUID) (int, error)
}

type eventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) WithTx(tx *gorm.DB) EventRepository {
	return &eventRepository{db: tx}
}

func (r *eventRepository) FindById(ctx context.Context, id uuid.UUID) (*dbm.Event, error) {
	return r.firstEvent(r.db.WithContext(ctx), id)
}

func (r *eventRepository) FindByIdForUpdate(ctx context.Context, id uuid.UUID) (*dbm.Event, error) {
	return r.firstEvent(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *eventRepository) FindAttendee(ctx context.Context, eventId, userId uuid.UUID) (*dbm.EventAttendee, error) {
	var attendee dbm.EventAttendee
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventId, userId).
		First(&attendee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attendee, nil
}

func (r *eventRepository) SaveAttendee(ctx context.Context, attendee *dbm.EventAttendee) error {
	return r.db.WithContext(ctx).Save(attendee).Error
}

// DeleteAttendee hard-deletes so the (event_id, user_id) pair can be reused.
func (r *eventRepository) DeleteAttendee(ctx context.Context, eventId, userId uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Unscoped().
		Where("event_id = ? AND user_id = ?", eventId, userId).
		Delete(&dbm.EventAttendee{})
	return res.RowsAffected, res.Error
}

// CommittedSeats sums going rows plus their guests, optionally ignoring one user's row.
func (r *eventRepository) CommittedSeats(ctx context.Context, eventId uuid.UUID, excludeUserId *uuid.UUID) (int, error) {
	qb := r.db.WithContext(ctx).
		Model(&dbm.EventAttendee{}).
		Select("COALESCE(SUM(1 + guests_count), 0)").
		Where("event_id = ? AND rsvp_status = ?", eventId, dbm.RSVPGoing)
	if excludeUserId != nil {
		qb = qb.Where("user_id <> ?", *excludeUserId)
	}

	var seats int64
	if err := qb.Scan(&seats).Error; err != nil {
		return 0, err
	}
	return int(seats), nil
}

func (r *eventRepository) RecomputeAttendeesCount(ctx context.Context, eventId uuid.UUID) (int, error) {
	seats, err := r.CommittedSeats(ctx, eventId, nil)
	if err != nil {
		return 0, err
	}
	err = r.db.WithContext(ctx).
		Model(&dbm.Event{}).
		Where("id = ?", eventId).
		Update("attendees_count", seats).Error
	return seats, err
}

func (r *eventRepository) firstEvent(q *gorm.DB, id uuid.UUID) (*dbm.Event, error) {
	var event dbm.Event
	if err := q.First(&event, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}
