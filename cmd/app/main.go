package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/zap"

	advisorfx "wayfare/cmd/fx/advisor_fx"
	configfx "wayfare/cmd/fx/config_fx"
	controllersfx "wayfare/cmd/fx/controllers_fx"
	dbfx "wayfare/cmd/fx/db_fx"
	jobsfx "wayfare/cmd/fx/jobs_fx"
	loggerfx "wayfare/cmd/fx/logger_fx"
	mapsfx "wayfare/cmd/fx/maps_fx"
	plannerfx "wayfare/cmd/fx/planner_fx"
	queuefx "wayfare/cmd/fx/queue_fx"
	workerfx "wayfare/cmd/fx/worker_fx"
	"wayfare/internal/api/controllers"
	"wayfare/internal/config"
	"wayfare/internal/services"
	"wayfare/pkg/middleware"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	app := fx.New(
		configfx.Module,
		loggerfx.Module,
		dbfx.Module,
		queuefx.Module,
		mapsfx.Module,
		advisorfx.Module,
		plannerfx.Module,
		jobsfx.Module,
		workerfx.Module,
		controllersfx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
		fx.Invoke(StartWorker),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine, cfg *config.Config, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
				if err := engine.Run(":" + cfg.Server.Port); err != nil {
					logger.Fatal("Failed to start server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server")
			return nil
		},
	})
}

func StartWorker(lc fx.Lifecycle, worker services.PlanningWorkerInterface) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return worker.Start(context.Background())
		},
		OnStop: func(ctx context.Context) error {
			worker.Stop()
			return nil
		},
	})
}

func ProvideRouter(jobsController *controllers.JobsController) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceIDMiddleware())

	RegisterRoutes(r, jobsController)

	return r
}

func RegisterRoutes(r *gin.Engine, jobsController *controllers.JobsController) {
	v1 := r.Group("/api/v1")

	itineraries := v1.Group("/itineraries")
	// Auth is opt-in: deployments without a JWT secret run the API open.
	if os.Getenv("JWT_SECRET") != "" {
		itineraries.Use(middleware.JWTAuthMiddleware())
	}
	itineraries.POST("", jobsController.SubmitItinerary)
	itineraries.GET("/:jobId", jobsController.GetItineraryJob)
}
