package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	dbm "townsquare/internal/models/db_models"
)

type BookingRepository interface {
	WithTx(tx *gorm.DB) BookingRepository
	FindById(ctx context.Context, id uuid.UUID) (*dbm.Booking, error)
	FindByIdForUpdate(ctx context.Context, id uuid.UUID) (*dbm.Booking, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) WithTx(tx *gorm.DB) BookingRepository {
	return &bookingRepository{db: tx}
}

func (r *bookingRepository) FindById(ctx context.Context, id uuid.UUID) (*dbm.Booking, error) {
	return r.first(r.db.WithContext(ctx), id)
}

func (r *bookingRepository) FindByIdForUpdate(ctx context.Context, id uuid.UUID) (*dbm.Booking, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *bookingRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&dbm.Booking{BaseModel: dbm.BaseModel{ID: id}}).
		Updates(fields).Error
}

func (r *bookingRepository) first(q *gorm.DB, id uuid.UUID) (*dbm.Booking, error) {
	var booking dbm.Booking
	if err := q.First(&booking, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}
