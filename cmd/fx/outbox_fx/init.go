package outbox_fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"townsquare/internal/config"
	"townsquare/internal/outbox"
	"townsquare/internal/repositories"
	"townsquare/pkg/mq"
)

var Module = fx.Invoke(startRelay)

// startRelay runs the outbox relay when a broker is configured. Without one
// the rows accumulate and are drained once RABBIT_URL is set.
func startRelay(lc fx.Lifecycle, cfg config.App, repo repositories.OutboxRepository, log *zap.Logger) {
	if cfg.RabbitURL == "" {
		log.Warn("RABBIT_URL not set, payment events stay in the outbox")
		return
	}

	var (
		pub   *mq.Publisher
		relay *outbox.Relay
	)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var err error
			pub, err = mq.NewPublisher(cfg.RabbitURL, cfg.PaymentExchange)
			if err != nil {
				return err
			}
			relay = outbox.NewRelay(repo, pub, outbox.Config{
				PollInterval: cfg.OutboxPollInterval,
				BatchSize:    cfg.OutboxBatchSize,
			}, log)
			relay.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if relay != nil {
				relay.Stop()
			}
			if pub != nil {
				return pub.Close()
			}
			return nil
		},
	})
}
