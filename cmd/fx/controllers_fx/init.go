package controllers_fx

import (
	"go.uber.org/fx"
	"townsquare/internal/api/controllers"
)

var Module = fx.Options(
	fx.Provide(controllers.NewPaymentController),
	fx.Provide(controllers.NewBankAccountController),
	fx.Provide(controllers.NewEventController))
