package controllersfx

import (
	"go.uber.org/fx"

	"wayfare/internal/api/controllers"
)

var Module = fx.Options(
	fx.Provide(controllers.NewJobsController))
