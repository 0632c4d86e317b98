package outbox

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"townsquare/internal/repositories"
)

// Sink is where relayed messages go; *mq.Publisher satisfies it.
type Sink interface {
	Publish(ctx context.Context, key, messageId string, body []byte) error
}

type Config struct {
	PollInterval time.Duration
	BatchSize    int
}

// Relay drains outbox rows written by the payment ledger and publishes them.
// Delivery is at least once: a crash between publish and MarkPublished
// re-sends the row, and consumers dedupe on the message id.
type Relay struct {
	repo repositories.OutboxRepository
	sink Sink
	cfg  Config
	log  *zap.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewRelay(repo repositories.OutboxRepository, sink Sink, cfg Config, log *zap.Logger) *Relay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Relay{repo: repo, sink: sink, cfg: cfg, log: log.Named("outbox")}
}

// RunOnce publishes one batch in creation order and stops at the first
// publish failure so later rows never overtake an earlier one.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	msgs, err := r.repo.ListUnpublished(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, m := range msgs {
		if err := r.sink.Publish(ctx, m.EventKey, m.ID.String(), m.Payload); err != nil {
			r.log.Warn("outbox publish failed",
				zap.String("message_id", m.ID.String()),
				zap.String("event", m.EventKey),
				zap.Int("attempts", m.Attempts+1),
				zap.Error(err))
			if markErr := r.repo.MarkAttemptFailed(ctx, m.ID, err); markErr != nil {
				r.log.Error("could not record outbox failure", zap.Error(markErr))
			}
			return sent, err
		}
		if err := r.repo.MarkPublished(ctx, m.ID); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func (r *Relay) Start() {
	r.stop = make(chan struct{})
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), r.cfg.PollInterval)
				n, err := r.RunOnce(ctx)
				cancel()
				if err != nil {
					r.log.Warn("outbox batch incomplete", zap.Int("sent", n), zap.Error(err))
				} else if n > 0 {
					r.log.Debug("outbox batch sent", zap.Int("sent", n))
				}
			}
		}
	}()
	r.log.Info("outbox relay started", zap.Duration("interval", r.cfg.PollInterval))
}

func (r *Relay) Stop() {
	if r.stop == nil {
		return
	}
	close(r.stop)
	r.wg.Wait()
	r.log.Info("outbox relay stopped")
}
