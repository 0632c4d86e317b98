package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	dbm "townsquare/internal/models/db_models"
)

type BankAccountRepository interface {
	WithTx(tx *gorm.DB) BankAccountRepository
	Create(ctx context.Context, account *dbm.BankAccount) error
	FindById(ctx context.Context, id uuid.UUID) (*dbm.BankAccount, error)
	FindByOwnerAndNumber(ctx context.Context, userId uuid.UUID, accountNumber, bankCode string) (*dbm.BankAccount, error)
	ListByUser(ctx context.Context, userId uuid.UUID) ([]dbm.BankAccount, error)
	// LockByUser locks every account the user owns; default changes go through it.
	LockByUser(ctx context.Context, userId uuid.UUID) ([]dbm.BankAccount, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	ClearDefault(ctx context.Context, userId uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type bankAccountRepository struct {
	db *gorm.DB
}

func NewBankAccountRepository(db *gorm.DB) BankAccountRepository {
	return &bankAccountRepository{db: db}
}

func (r *bankAccountRepository) WithTx(tx *gorm.DB) BankAccountRepository {
	return &bankAccountRepository{db: tx}
}

func (r *bankAccountRepository) Create(ctx context.Context, account *dbm.BankAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *bankAccountRepository) FindById(ctx context.Context, id uuid.UUID) (*dbm.BankAccount, error) {
	var account dbm.BankAccount
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *bankAccountRepository) FindByOwnerAndNumber(ctx context.Context, userId uuid.UUID, accountNumber, bankCode string) (*dbm.BankAccount, error) {
	var account dbm.BankAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND account_number = ? AND bank_code = ?", userId, accountNumber, bankCode).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *bankAccountRepository) ListByUser(ctx context.Context, userId uuid.UUID) ([]dbm.BankAccount, error) {
	var accounts []dbm.BankAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("is_default DESC").
		Order("created_at ASC").
		Find(&accounts).Error
	return accounts, err
}

func (r *bankAccountRepository) LockByUser(ctx context.Context, userId uuid.UUID) ([]dbm.BankAccount, error) {
	var accounts []dbm.BankAccount
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userId).
		Order("created_at ASC").
		Find(&accounts).Error
	return accounts, err
}

func (r *bankAccountRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&dbm.BankAccount{BaseModel: dbm.BaseModel{ID: id}}).
		Updates(fields).Error
}

func (r *bankAccountRepository) ClearDefault(ctx context.Context, userId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&dbm.BankAccount{}).
		Where("user_id = ? AND is_default = ?", userId, true).
		Update("is_default", false).Error
}

// Delete is a hard delete so the (user, number, bank) pair can be added again.
func (r *bankAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&dbm.BankAccount{}, "id = ?", id).Error
}
