package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pcmindustrial/pcm/pkg/alerting"
	"github.com/pcmindustrial/pcm/pkg/apiserver/handlers"
	"github.com/pcmindustrial/pcm/pkg/apiserver/middleware"
	"github.com/pcmindustrial/pcm/pkg/auth"
	"github.com/pcmindustrial/pcm/pkg/config"
	"github.com/pcmindustrial/pcm/pkg/lifecycle"
	"github.com/pcmindustrial/pcm/pkg/model"
	"github.com/pcmindustrial/pcm/pkg/store/postgres"
	redisclient "github.com/pcmindustrial/pcm/pkg/store/redis"
)

type Server struct {
	router *gin.Engine
	db     *postgres.Store
	redis  *redisclient.Client
	cfg    *config.Config
	logger *zap.Logger
	tokens *auth.TokenManager
	engine *lifecycle.Engine
}

func NewServer(db *postgres.Store, redis *redisclient.Client, cfg *config.Config, logger *zap.Logger) *Server {
	s := &Server{
		db:     db,
		redis:  redis,
		cfg:    cfg,
		logger: logger,
		tokens: auth.NewTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL),
		engine: lifecycle.NewEngine(),
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(s.db, s.tokens, s.logger)
	r.POST("/api/v1/auth/login", authHandler.Login)

	api := r.Group("/api/v1")
	{
		api.Use(middleware.Auth(s.tokens, func(c *gin.Context, id uuid.UUID) (*model.User, error) {
			return postgres.NewUserRepository(s.db.DB()).GetByID(c.Request.Context(), id)
		}))

		callHandler := handlers.NewCallHandler(s.db, s.redis, s.engine, s.logger)
		api.POST("/calls", callHandler.Create)
		api.GET("/calls", callHandler.List)
		api.GET("/calls/:id", callHandler.Get)
		api.GET("/calls/:id/events", callHandler.ListEvents)
		api.GET("/calls/:id/technicians", callHandler.ListTechnicians)
		api.POST("/calls/:id/assign", callHandler.Assign)
		api.POST("/calls/:id/transfer", callHandler.Transfer)
		api.POST("/calls/:id/resolve", callHandler.Resolve)
		api.POST("/calls/:id/approve", callHandler.Approve)
		api.POST("/calls/:id/reject", callHandler.Reject)
		api.POST("/calls/:id/cancel", callHandler.Cancel)

		companyHandler := handlers.NewCompanyHandler(s.db, s.logger)
		api.GET("/companies", companyHandler.List)
		api.POST("/companies", companyHandler.Create)
		api.GET("/plants", companyHandler.ListPlants)
		api.POST("/plants", companyHandler.CreatePlant)

		teamHandler := handlers.NewTeamHandler(s.db, s.logger)
		api.GET("/teams", teamHandler.List)
		api.POST("/teams", teamHandler.Create)
		api.DELETE("/teams/:id", teamHandler.Delete)

		userHandler := handlers.NewUserHandler(s.db, s.logger)
		api.GET("/users", userHandler.List)
		api.POST("/users", userHandler.Create)
		api.DELETE("/users/:id", userHandler.Delete)

		equipmentHandler := handlers.NewEquipmentHandler(s.db, s.logger)
		api.GET("/equipment", equipmentHandler.List)
		api.POST("/equipment", equipmentHandler.Create)
		api.GET("/equipment/:id", equipmentHandler.Get)
		api.POST("/equipment/:id/failures", equipmentHandler.AddFailure)

		alertingService := alerting.NewService(
			postgres.NewAlertRuleRepository(s.db.DB()),
			postgres.NewEquipmentRepository(s.db.DB()),
			postgres.NewCallRepository(s.db.DB()),
			s.engine,
			s.logger,
		)
		alertHandler := handlers.NewAlertHandler(s.db, alertingService, s.logger)
		api.GET("/alert-rules", alertHandler.List)
		api.POST("/alert-rules", alertHandler.Create)
		api.PATCH("/alert-rules/:id", alertHandler.Update)
		api.POST("/alert-rules/readings", alertHandler.SubmitReading)

		analyticsHandler := handlers.NewAnalyticsHandler(s.db, s.logger)
		api.GET("/analytics/overview", analyticsHandler.Overview)
		api.GET("/analytics/downtime", analyticsHandler.Downtime)
		api.GET("/analytics/financial", analyticsHandler.Financial)
		api.GET("/analytics/reliability", analyticsHandler.Reliability)
		api.GET("/analytics/strategy", analyticsHandler.Strategy)
		api.GET("/analytics/process", analyticsHandler.Process)
		api.GET("/analytics/team", analyticsHandler.Team)

		notificationHandler := handlers.NewNotificationHandler(s.db, s.redis, s.logger)
		api.GET("/notifications", notificationHandler.List)
		api.POST("/notifications/:id/read", notificationHandler.MarkRead)
		api.GET("/notifications/stream", notificationHandler.Stream)

		permissionHandler := handlers.NewPermissionHandler(s.db, s.logger)
		api.GET("/permissions", permissionHandler.Get)
		api.PUT("/permissions", permissionHandler.Update)

		reportHandler := handlers.NewReportHandler(s.db, s.logger)
		api.GET("/reports/calls", reportHandler.ExportCalls)
	}

	s.router = r
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
