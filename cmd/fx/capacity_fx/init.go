package capacity_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"townsquare/internal/repositories"
	"townsquare/internal/services"
)

var Module = fx.Provide(
	provideEventRepo, provideCapacityService)

func provideEventRepo(db *gorm.DB) repositories.EventRepository {
	return repositories.NewEventRepository(db)
}

func provideCapacityService(db *gorm.DB, events repositories.EventRepository, log *zap.Logger) services.CapacityService {
	return services.NewCapacityService(db, events, log)
}
