package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"townsquare/internal/gateway"
	dbm "townsquare/internal/models/db_models"
	"townsquare/internal/repositories"
	mem "townsquare/pkg/memcache"
	"townsquare/pkg/utils"
)

const resolvedNameTTL = 6 * time.Hour

type CreateBankAccountInput struct {
	UserID        uuid.UUID
	AccountNumber string
	BankCode      string
	BankName      string
	AccountName   string
}

type BankAccountService interface {
	Create(ctx context.Context, in CreateBankAccountInput) (*dbm.BankAccount, error)
	Verify(ctx context.Context, accountId, requesterId uuid.UUID, accountNumber, bankCode string) (*dbm.BankAccount, error)
	Remove(ctx context.Context, accountId, requesterId uuid.UUID) error
	SetDefault(ctx context.Context, accountId, requesterId uuid.UUID) (*dbm.BankAccount, error)
	List(ctx context.Context, userId uuid.UUID) ([]dbm.BankAccount, error)
	Resolve(ctx context.Context, accountNumber, bankCode string) (*gateway.ResolvedAccount, error)
}

type bankAccountService struct {
	db       *gorm.DB
	accounts repositories.BankAccountRepository
	gateway  gateway.Client
	names    mem.ResolvedNameStore
	timeout  time.Duration
	log      *zap.Logger
}

func NewBankAccountService(
	db *gorm.DB,
	accounts repositories.BankAccountRepository,
	gw gateway.Client,
	names mem.ResolvedNameStore,
	timeout time.Duration,
	log *zap.Logger,
) BankAccountService {
	return &bankAccountService{
		db:       db,
		accounts: accounts,
		gateway:  gw,
		names:    names,
		timeout:  timeout,
		log:      log.Named("bank_accounts"),
	}
}

func (s *bankAccountService) Create(ctx context.Context, in CreateBankAccountInput) (*dbm.BankAccount, error) {
	in.AccountNumber = strings.TrimSpace(in.AccountNumber)
	in.BankCode = strings.TrimSpace(in.BankCode)
	if in.AccountNumber == "" || in.BankCode == "" {
		return nil, fmt.Errorf("%w: account number and bank code are required", utils.ErrValidation)
	}

	account := &dbm.BankAccount{
		UserID:        in.UserID,
		AccountNumber: in.AccountNumber,
		BankCode:      in.BankCode,
		BankName:      in.BankName,
	}

	// A resolve failure means "could not verify", never "invalid account".
	resolved, err := s.resolve(ctx, in.AccountNumber, in.BankCode)
	if err == nil {
		account.AccountName = resolved.AccountName
		account.IsVerified = true
	} else {
		s.log.Info("account name not resolved, keeping caller supplied name",
			zap.String("user_id", in.UserID.String()),
			zap.String("bank_code", in.BankCode),
			zap.Error(err))
		account.AccountName = strings.TrimSpace(in.AccountName)
		if account.AccountName == "" {
			return nil, fmt.Errorf("%w: account name is required when it cannot be resolved", utils.ErrValidation)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accounts := s.accounts.WithTx(tx)
		owned, err := accounts.LockByUser(ctx, in.UserID)
		if err != nil {
			return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		for _, a := range owned {
			if a.AccountNumber == account.AccountNumber && a.BankCode == account.BankCode {
				return fmt.Errorf("%w: bank account already registered", utils.ErrDuplicate)
			}
		}
		account.IsDefault = len(owned) == 0

		if err := s.insert(ctx, tx, account); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: bank account already registered", utils.ErrDuplicate)
			}
			return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("bank account added",
		zap.String("account_id", account.ID.String()),
		zap.Bool("verified", account.IsVerified),
		zap.Bool("default", account.IsDefault))
	return account, nil
}

// insert writes the account inside a savepoint. The lock in Create cannot see
// a concurrent first account for the same user, so losing the default slot to
// it on the unique index keeps this account as a non-default one.
func (s *bankAccountService) insert(ctx context.Context, tx *gorm.DB, account *dbm.BankAccount) error {
	create := func(sp *gorm.DB) error { return s.accounts.WithTx(sp).Create(ctx, account) }
	err := tx.Transaction(create)
	if errors.Is(err, gorm.ErrDuplicatedKey) && account.IsDefault {
		s.log.Info("default slot taken by a concurrent create",
			zap.String("user_id", account.UserID.String()))
		account.IsDefault = false
		err = tx.Transaction(create)
	}
	return err
}

func (s *bankAccountService) Verify(ctx context.Context, accountId, requesterId uuid.UUID, accountNumber, bankCode string) (*dbm.BankAccount, error) {
	account, err := s.owned(ctx, s.accounts, accountId, requesterId)
	if err != nil {
		return nil, err
	}
	if accountNumber == "" {
		accountNumber = account.AccountNumber
	}
	if bankCode == "" {
		bankCode = account.BankCode
	}
	if accountNumber != account.AccountNumber || bankCode != account.BankCode {
		return nil, fmt.Errorf("%w: account details do not match bank account %s", utils.ErrValidation, accountId)
	}

	// Verification always asks the gateway, never the cache.
	s.names.Forget(accountNumber, bankCode)
	resolved, err := s.resolve(ctx, accountNumber, bankCode)
	if err != nil {
		return nil, fmt.Errorf("%w: could not resolve account: %v", utils.ErrVerificationFailed, err)
	}

	if err := s.accounts.UpdateFields(ctx, account.ID, map[string]interface{}{
		"account_name": resolved.AccountName,
		"is_verified":  true,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	account.AccountName = resolved.AccountName
	account.IsVerified = true
	return account, nil
}

func (s *bankAccountService) Remove(ctx context.Context, accountId, requesterId uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accounts := s.accounts.WithTx(tx)
		account, err := s.owned(ctx, accounts, accountId, requesterId)
		if err != nil {
			return err
		}
		owned, err := accounts.LockByUser(ctx, requesterId)
		if err != nil {
			return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		if err := accounts.Delete(ctx, account.ID); err != nil {
			return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		if !account.IsDefault {
			return nil
		}

		// LockByUser returns the oldest first; it inherits the default.
		for _, a := range owned {
			if a.ID == account.ID {
				continue
			}
			if err := accounts.UpdateFields(ctx, a.ID, map[string]interface{}{"is_default": true}); err != nil {
				return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
			}
			s.log.Info("default bank account promoted", zap.String("account_id", a.ID.String()))
			break
		}
		return nil
	})
}

func (s *bankAccountService) SetDefault(ctx context.Context, accountId, requesterId uuid.UUID) (*dbm.BankAccount, error) {
	var account *dbm.BankAccount
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accounts := s.accounts.WithTx(tx)
		var err error
		account, err = s.owned(ctx, accounts, accountId, requesterId)
		if err != nil {
			return err
		}
		if _, err := accounts.LockByUser(ctx, requesterId); err != nil {
			return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		if err := accounts.ClearDefault(ctx, requesterId); err != nil {
			return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		if err := accounts.UpdateFields(ctx, account.ID, map[string]interface{}{"is_default": true}); err != nil {
			return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
		}
		account.IsDefault = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *bankAccountService) List(ctx context.Context, userId uuid.UUID) ([]dbm.BankAccount, error) {
	accounts, err := s.accounts.ListByUser(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	return accounts, nil
}

func (s *bankAccountService) Resolve(ctx context.Context, accountNumber, bankCode string) (*gateway.ResolvedAccount, error) {
	if accountNumber == "" || bankCode == "" {
		return nil, fmt.Errorf("%w: account number and bank code are required", utils.ErrValidation)
	}
	return s.resolve(ctx, accountNumber, bankCode)
}

func (s *bankAccountService) resolve(ctx context.Context, accountNumber, bankCode string) (*gateway.ResolvedAccount, error) {
	if name, ok := s.names.Get(accountNumber, bankCode); ok {
		return &gateway.ResolvedAccount{AccountName: name, AccountNumber: accountNumber}, nil
	}

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	resolved, err := s.gateway.ResolveAccount(rctx, accountNumber, bankCode)
	if err != nil {
		return nil, err
	}
	s.names.Set(accountNumber, bankCode, resolved.AccountName, resolvedNameTTL)
	return resolved, nil
}

func (s *bankAccountService) owned(ctx context.Context, accounts repositories.BankAccountRepository, accountId, requesterId uuid.UUID) (*dbm.BankAccount, error) {
	account, err := accounts.FindById(ctx, accountId)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: bank account %s", utils.ErrNotFound, accountId)
	}
	if account.UserID != requesterId {
		return nil, fmt.Errorf("%w: bank account %s", utils.ErrForbidden, accountId)
	}
	return account, nil
}
