package payment_service_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"townsquare/internal/config"
	"townsquare/internal/gateway"
	"townsquare/internal/repositories"
	"townsquare/internal/services"
)

var Module = fx.Provide(
	providePaymentRepo,
	provideBookingRepo,
	provideOutboxRepo,
	provideReferenceGenerator,
	provideReconciler,
	providePaymentService,
)

func providePaymentRepo(db *gorm.DB) repositories.PaymentRepository {
	return repositories.NewPaymentRepository(db)
}

func provideBookingRepo(db *gorm.DB) repositories.BookingRepository {
	return repositories.NewBookingRepository(db)
}

func provideOutboxRepo(db *gorm.DB) repositories.OutboxRepository {
	return repositories.NewOutboxRepository(db)
}

func provideReferenceGenerator() services.ReferenceGenerator {
	return services.NewReferenceGenerator("TSQ")
}

func provideReconciler(
	bookings repositories.BookingRepository,
	capacity services.CapacityService,
	outbox repositories.OutboxRepository,
	log *zap.Logger,
) services.Reconciler {
	return services.NewReconciler(bookings, capacity, outbox, log)
}

func providePaymentService(
	db *gorm.DB,
	cfg config.App,
	gw gateway.Client,
	references services.ReferenceGenerator,
	payments repositories.PaymentRepository,
	bookings repositories.BookingRepository,
	events repositories.EventRepository,
	outbox repositories.OutboxRepository,
	reconciler services.Reconciler,
	log *zap.Logger,
) (services.PaymentService, error) {
	paymentCfg := services.PaymentConfig{
		DefaultCurrency: cfg.DefaultCurrency,
		CallbackURL:     cfg.PaystackCallbackURL,
		WebhookSecret:   cfg.PaystackSecretKey,
		GatewayTimeout:  cfg.GatewayTimeout,
	}
	return services.NewPaymentService(db, paymentCfg, gw, references, payments, bookings, events, outbox, reconciler, log)
}
