package tracing_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"townsquare/internal/config"
	"townsquare/pkg/obs"
)

var Module = fx.Invoke(startTracer)

func startTracer(lc fx.Lifecycle, cfg config.App, log *zap.Logger) error {
	shutdown, err := obs.InitTracer("townsquare", cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	if cfg.OTLPEndpoint == "" {
		log.Info("tracing disabled, no OTLP endpoint configured")
	}

	lc.Append(fx.StopHook(shutdown))
	return nil
}
