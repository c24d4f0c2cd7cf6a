package main

import (
	"context"
	"net/http"
	"time"

	"github.com/examguard/examguard/config"
	"github.com/examguard/examguard/database"
	adminctrl "github.com/examguard/examguard/internal/controller/admin"
	userctrl "github.com/examguard/examguard/internal/controller/user"
	"github.com/examguard/examguard/internal/logger"
	"github.com/examguard/examguard/internal/model"
	"github.com/examguard/examguard/internal/repository"
	"github.com/examguard/examguard/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Exam Attempt Control & Integrity Risk API
// @version 1.0
// @description Attempt lifecycle state machine, administrative overrides, and proctoring risk scoring for exam delivery.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewGinEngine,
		),

		fx.Provide(
			repository.NewAttemptRepository,
			repository.NewOverrideGrantRepository,
			repository.NewProctorEventRepository,
			repository.NewExamRepository,
			repository.NewCandidateRepository,
		),

		fx.Provide(
			service.NewTimerService,
			service.NewAttemptLifecycleService,
			service.NewAttemptQueryService,
			service.NewOverrideLedgerService,
			service.NewRiskScoringService,
			service.NewProctorEventService,
			service.NewIntegrityReportService,
			service.NewExamService,
			service.NewExpirySweeper,
		),

		fx.Provide(
			adminctrl.NewAttemptControlController,
			adminctrl.NewRiskReportController,
			adminctrl.NewExamAdminController,
			userctrl.NewAttemptSessionController,
		),

		fx.Invoke(AutoMigrateDB),
		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(StartExpirySweeper),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

func NewGinEngine() *gin.Engine {
	r := gin.New()

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
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-User"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	attemptControlCtrl *adminctrl.AttemptControlController,
	riskReportCtrl *adminctrl.RiskReportController,
	examAdminCtrl *adminctrl.ExamAdminController,
	sessionCtrl *userctrl.AttemptSessionController,
) {
	adminAPIGroup := router.Group("/api/v1/admin")
	{
		adminAPIGroup.POST("/exams", examAdminCtrl.CreateExam)
		adminAPIGroup.GET("/exams", examAdminCtrl.ListExams)
		adminAPIGroup.POST("/candidates", examAdminCtrl.CreateCandidate)

		adminAPIGroup.GET("/attempt-control", attemptControlCtrl.ListAttemptControl)
		adminAPIGroup.POST("/attempts/:attempt_id/force-end", attemptControlCtrl.ForceEndAttempt)
		adminAPIGroup.POST("/attempts/:attempt_id/terminate", attemptControlCtrl.TerminateAttempt)
		adminAPIGroup.POST("/attempts/:attempt_id/resume", attemptControlCtrl.ResumeAttempt)
		adminAPIGroup.POST("/attempts/:attempt_id/add-time", attemptControlCtrl.AddTimeToAttempt)
		adminAPIGroup.POST("/allow-new-attempt", attemptControlCtrl.AllowNewAttempt)

		adminAPIGroup.GET("/attempts/:attempt_id/risk", riskReportCtrl.GetRiskAssessment)
		adminAPIGroup.GET("/attempts/:attempt_id/report", riskReportCtrl.GetIntegrityReport)
		adminAPIGroup.GET("/triage", riskReportCtrl.GetTriageRecommendations)
	}

	userAPIGroup := router.Group("/api/v1")
	{
		userAPIGroup.POST("/exams/:exam_id/attempts", sessionCtrl.StartAttempt)
		userAPIGroup.GET("/attempts/:attempt_id", sessionCtrl.GetAttempt)
		userAPIGroup.POST("/attempts/:attempt_id/heartbeat", sessionCtrl.Heartbeat)
		userAPIGroup.POST("/attempts/:attempt_id/pause", sessionCtrl.PauseAttempt)
		userAPIGroup.POST("/attempts/:attempt_id/submit", sessionCtrl.SubmitAttempt)
		userAPIGroup.POST("/attempts/:attempt_id/events", sessionCtrl.IngestProctorEvents)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Exam attempt control API starting on port %s", cfg.Server.Port)
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

func StartExpirySweeper(lc fx.Lifecycle, sweeper *service.ExpirySweeper) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sweeper.Start(context.Background())
			return nil
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
		&model.Exam{},
		&model.Candidate{},
		&model.Attempt{},
		&model.OverrideGrant{},
		&model.ProctorEvent{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
