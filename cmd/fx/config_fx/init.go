package config_fx

import (
	"go.uber.org/fx"
	"townsquare/internal/config"
)

var Module = fx.Provide(config.Load)
