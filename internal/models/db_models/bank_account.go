package db_models

import "github.com/google/uuid"

// BankAccount rows are hard-deleted. idx_bank_account_one_default allows at
// most one default account per user.
type BankAccount struct {
	BaseModel
	UserID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bank_account_owner;uniqueIndex:idx_bank_account_one_default,where:is_default = true" json:"user_id"`
	AccountNumber string    `gorm:"size:20;not null;uniqueIndex:idx_bank_account_owner" json:"account_number"`
	BankCode      string    `gorm:"size:16;not null;uniqueIndex:idx_bank_account_owner" json:"bank_code"`
	BankName      string    `json:"bank_name"`
	AccountName   string    `json:"account_name"`
	IsVerified    bool      `gorm:"not null;default:false" json:"is_verified"`
	IsDefault     bool      `gorm:"not null;default:false" json:"is_default"`
}
