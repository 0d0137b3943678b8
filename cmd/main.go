package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ptmquan/certprep/config"
	"github.com/ptmquan/certprep/database"
	_ "github.com/ptmquan/certprep/docs" // Swagger docs - auto-generated
	adminctrl "github.com/ptmquan/certprep/internal/controller/admin"
	userctrl "github.com/ptmquan/certprep/internal/controller/user"
	"github.com/ptmquan/certprep/internal/engine"
	"github.com/ptmquan/certprep/internal/logger"
	"github.com/ptmquan/certprep/internal/middleware"
	"github.com/ptmquan/certprep/internal/model"
	"github.com/ptmquan/certprep/internal/repository"
	"github.com/ptmquan/certprep/internal/service"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title CertPrep Test Session API
// @version 1.0
// @description Timed test-session engine for the certification platform: exam assignment, resumable sessions, scoring and delay-gated certificate issuance.
// @contact.name API Support
// @contact.email support@certprep.example
// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()

	app := fx.New(
		// Core application components
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewGinEngine,
			func() engine.Clock { return engine.SystemClock() },
		),

		// Repositories layer
		fx.Provide(
			repository.NewQuestionRepository,
			repository.NewExamAssignmentRepository,
			repository.NewSessionRepository,
			repository.NewAttemptRepository,
			repository.NewCandidateRepository,
			repository.NewSubmissionRepository,
		),

		// Services layer
		fx.Provide(
			service.NewAssignmentService,
			service.NewQuestionBankService,
			service.NewSessionService,
			service.NewSubmissionService,
			service.NewCertificateService,
			service.NewSweeperService,
		),

		// HTTP layer
		fx.Provide(
			middleware.NewAuth,
			userctrl.NewTestSessionController,
			adminctrl.NewAdminExamController,
		),

		fx.Invoke(AutoMigrateDB),
		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(StartSweeper),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine() *gin.Engine {
	r := gin.New()

	// Route zerolog through gin's request log.
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Be more specific in production
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages the server
// lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	auth *middleware.Auth,
	sessionCtrl *userctrl.TestSessionController,
	adminCtrl *adminctrl.AdminExamController,
) {
	api := router.Group("/api/v1")
	api.Use(auth.Authenticate())

	// Candidate routes: entitlement is a hard precondition in front of
	// every session operation.
	examGroup := api.Group("/exam")
	examGroup.Use(auth.RequireEntitled())
	{
		examGroup.GET("/session", sessionCtrl.GetSession)
		examGroup.POST("/session/start", sessionCtrl.StartSession)
		examGroup.PUT("/session", sessionCtrl.Checkpoint)
		examGroup.PUT("/session/answers", sessionCtrl.SubmitAnswer)
		examGroup.POST("/session/submit", sessionCtrl.SubmitTest)
		examGroup.GET("/attempts", sessionCtrl.GetAttempts)
		examGroup.GET("/attempts/:attempt_id", sessionCtrl.GetAttemptDetail)
	}
	api.GET("/certificate", auth.RequireEntitled(), sessionCtrl.GetCertificate)

	adminGroup := api.Group("/admin")
	adminGroup.Use(auth.RequireRole("admin"))
	{
		adminGroup.POST("/questions", adminCtrl.CreateQuestion)
		adminGroup.GET("/questions", adminCtrl.ListQuestions)
		adminGroup.POST("/exam-configs", adminCtrl.CreateExamConfiguration)
		adminGroup.POST("/exam-configs/:id/assign", adminCtrl.AssignExam)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("CertPrep API server starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

// StartSweeper ties the background sweeps to the application lifecycle.
func StartSweeper(lc fx.Lifecycle, sweeper *service.SweeperService) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return sweeper.Start()
		},
		OnStop: func(ctx context.Context) error {
			sweeper.Stop()
			return nil
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Question{},
		&model.ExamConfiguration{},
		&model.AssignedExam{},
		&model.OngoingTestSession{},
		&model.TestAttempt{},
		&model.CandidateProfile{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
