package bank_account_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"townsquare/internal/config"
	"townsquare/internal/gateway"
	"townsquare/internal/repositories"
	"townsquare/internal/services"
	mem "townsquare/pkg/memcache"
)

var Module = fx.Provide(
	provideBankAccountRepo, provideBankAccountService)

func provideBankAccountRepo(db *gorm.DB) repositories.BankAccountRepository {
	return repositories.NewBankAccountRepository(db)
}

func provideBankAccountService(
	db *gorm.DB,
	accounts repositories.BankAccountRepository,
	gw gateway.Client,
	names mem.ResolvedNameStore,
	cfg config.App,
	log *zap.Logger,
) services.BankAccountService {
	return services.NewBankAccountService(db, accounts, gw, names, cfg.GatewayTimeout, log)
}
