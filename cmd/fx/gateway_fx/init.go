package gateway_fx

import (
	"go.uber.org/fx"
	"townsquare/internal/config"
	"townsquare/internal/gateway"
	"townsquare/pkg/paystack"
)

var Module = fx.Provide(provideGateway)

func provideGateway(cfg config.App) (gateway.Client, error) {
	return paystack.NewClient(paystack.Config{
		SecretKey: cfg.PaystackSecretKey,
		BaseURL:   cfg.PaystackBaseURL,
		Timeout:   cfg.GatewayTimeout,
	})
}
