package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	dbm "townsquare/internal/models/db_models"
)

type PaymentRepository interface {
	WithTx(tx *gorm.DB) PaymentRepository
	Create(ctx context.Context, payment *dbm.Payment) error
	FindById(ctx context.Context, id uuid.UUID) (*dbm.Payment, error)
	FindByIdForUpdate(ctx context.Context, id uuid.UUID) (*dbm.Payment, error)
	FindByReference(ctx context.Context, reference string) (*dbm.Payment, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	ListByUser(ctx context.Context, userId uuid.UUID, page, pageSize int) ([]dbm.Payment, int64, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) WithTx(tx *gorm.DB) PaymentRepository {
	return &paymentRepository{db: tx}
}

func (r *paymentRepository) Create(ctx context.Context, payment *dbm.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) FindById(ctx context.Context, id uuid.UUID) (*dbm.Payment, error) {
	return r.first(r.db.WithContext(ctx), "id = ?", id)
}

func (r *paymentRepository) FindByIdForUpdate(ctx context.Context, id uuid.UUID) (*dbm.Payment, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
}

// FindByReference matches our own reference first, then the gateway's.
func (r *paymentRepository) FindByReference(ctx context.Context, reference string) (*dbm.Payment, error) {
	payment, err := r.first(r.db.WithContext(ctx), "reference = ?", reference)
	if err != nil || payment != nil {
		return payment, err
	}
	return r.first(r.db.WithContext(ctx), "external_reference = ?", reference)
}

func (r *paymentRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&dbm.Payment{BaseModel: dbm.BaseModel{ID: id}}).
		Updates(fields).Error
}

func (r *paymentRepository) ListByUser(ctx context.Context, userId uuid.UUID, page, pageSize int) ([]dbm.Payment, int64, error) {
	qb := r.db.WithContext(ctx).Model(&dbm.Payment{}).Where("user_id = ?", userId)

	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []dbm.Payment
	err := qb.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

func (r *paymentRepository) first(q *gorm.DB, query string, args ...interface{}) (*dbm.Payment, error) {
	var payment dbm.Payment
	err := q.Where(query, args...).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}
