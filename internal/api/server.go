package api

import (
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/attendry/attendry-api/docs"
	v1 "github.com/attendry/attendry-api/internal/api/handler/v1"
	"github.com/attendry/attendry-api/internal/api/middleware"
	"github.com/attendry/attendry-api/internal/config"
	"github.com/attendry/attendry-api/internal/ratelimit"
	"github.com/attendry/attendry-api/internal/repository"
	"github.com/attendry/attendry-api/internal/repository/dao"
	"github.com/attendry/attendry-api/internal/service"
)

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine

	limiter  *ratelimit.Limiter
	qrPolicy ratelimit.Policy
}

func NewServer(conf *config.AppConfig, db *gorm.DB, rdb *redis.Client) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config:   conf,
		Router:   engine,
		limiter:  ratelimit.New(ratelimit.NewRedisStore(rdb), conf.RateLimit.Disabled, conf.RateLimit.FailOpen),
		qrPolicy: ratelimit.BucketPolicy("qr_validate", conf.RateLimit.QRCapacity, conf.RateLimit.QRRefillPerMinute),
	}

	s.MountMiddlewares()

	feedHandler := s.initFeedHandler(db)
	go feedHandler.Run()

	authHandler := s.initAuthHandler(db)
	userHandler := s.initUserHandler(db)
	eventHandler := s.initEventHandler(db, feedHandler)
	attendanceHandler := s.initAttendanceHandler(db, feedHandler)
	adminHandler := s.initAdminHandler(db)
	healthcheckHandler := v1.NewHealthcheckHandler(db, rdb)
	s.MountHandlers(authHandler, userHandler, eventHandler, attendanceHandler, adminHandler, feedHandler, healthcheckHandler)

	return s
}

func (s *Server) initAuthHandler(db *gorm.DB) *v1.AuthHandler {
	userDAO := dao.NewUserDAO(db)
	repo := repository.NewUserRepository(userDAO)
	svc := service.NewAuthService(repo)
	loginPolicy := ratelimit.WindowPolicy("login",
		s.Config.RateLimit.LoginAttempts,
		time.Duration(s.Config.RateLimit.LoginWindowMinutes)*time.Minute)
	handler := v1.NewAuthHandler(s.Config.API, svc, s.limiter, loginPolicy)

	return handler
}

func (s *Server) initUserHandler(db *gorm.DB) *v1.UserHandler {
	userDAO := dao.NewUserDAO(db)
	repo := repository.NewUserRepository(userDAO)
	svc := service.NewUserService(repo)
	handler := v1.NewUserHandler(svc)

	return handler
}

func (s *Server) initFeedHandler(db *gorm.DB) *v1.FeedHandler {
	uSvc := service.NewUserService(repository.NewUserRepository(dao.NewUserDAO(db)))
	handler := v1.NewFeedHandler(uSvc)

	return handler
}

func (s *Server) initEventHandler(db *gorm.DB, feedHandler *v1.FeedHandler) *v1.EventHandler {
	eventRepo := repository.NewEventRepository(dao.NewEventDAO(db))
	svc := service.NewEventService(eventRepo)
	lifecycleSvc := service.NewLifecycleService(eventRepo)
	attSvc := service.NewAttendanceService(repository.NewAttendanceRepository(dao.NewAttendanceDAO(db)), eventRepo, feedHandler)
	uSvc := service.NewUserService(repository.NewUserRepository(dao.NewUserDAO(db)))
	handler := v1.NewEventHandler(svc, lifecycleSvc, attSvc, uSvc)

	return handler
}

func (s *Server) initAttendanceHandler(db *gorm.DB, feedHandler *v1.FeedHandler) *v1.AttendanceHandler {
	attRepo := repository.NewAttendanceRepository(dao.NewAttendanceDAO(db))
	eventRepo := repository.NewEventRepository(dao.NewEventDAO(db))
	svc := service.NewAttendanceService(attRepo, eventRepo, feedHandler)
	uSvc := service.NewUserService(repository.NewUserRepository(dao.NewUserDAO(db)))
	handler := v1.NewAttendanceHandler(svc, uSvc)

	return handler
}

func (s *Server) initAdminHandler(db *gorm.DB) *v1.AdminHandler {
	lifecycleSvc := service.NewLifecycleService(repository.NewEventRepository(dao.NewEventDAO(db)))
	uSvc := service.NewUserService(repository.NewUserRepository(dao.NewUserDAO(db)))
	handler := v1.NewAdminHandler(lifecycleSvc, uSvc)

	return handler
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(
	authHandler *v1.AuthHandler,
	userHandler *v1.UserHandler,
	eventHandler *v1.EventHandler,
	attendanceHandler *v1.AttendanceHandler,
	adminHandler *v1.AdminHandler,
	feedHandler *v1.FeedHandler,
	healthcheckHandler *v1.HealthcheckHandler,
) {
	const basePath = "/api/v1"

	auth := s.Router.Group(basePath)
	{
		auth.POST("/auth/signup", authHandler.HandleSignup)
		auth.POST("/auth/login", authHandler.HandleLogin)
	}

	users := s.Router.Group(basePath, middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT())
	{
		users.GET("/users/:userID", userHandler.HandleGetUser)
	}

	events := s.Router.Group(basePath, middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT())
	{
		events.GET("/events", eventHandler.HandleListEvents)
		events.POST("/events", eventHandler.HandleCreateEvent)
		events.GET("/events/:eventID", eventHandler.HandleGetEvent)
		events.DELETE("/events/:eventID", eventHandler.HandleCancelEvent)
		events.GET("/events/:eventID/feed", feedHandler.HandleEventFeed)

		events.POST("/events/:eventID/attendance/check-in", attendanceHandler.HandleCheckIn)
		events.GET("/events/:eventID/attendance", attendanceHandler.HandleListEventAttendance)
		events.GET("/events/:eventID/attendance/summary", attendanceHandler.HandleAttendanceSummary)
		events.GET("/events/:eventID/attendance/export", attendanceHandler.HandleExportAttendance)

		events.GET("/attendance/:attendanceID", attendanceHandler.HandleGetAttendance)
		events.POST("/attendance/:attendanceID/check-out", attendanceHandler.HandleCheckOut)
		events.POST("/attendance/:attendanceID/approve", attendanceHandler.HandleApprove)
		events.POST("/attendance/:attendanceID/reject", attendanceHandler.HandleReject)
	}

	// QR validation carries its own per-IP budget; scanning bursts at venue
	// doors should not let one client starve the rest.
	qr := s.Router.Group(basePath,
		middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT(),
		middleware.RateLimit(s.limiter, s.qrPolicy))
	{
		qr.POST("/qr/validate", eventHandler.HandleValidateQRCode)
	}

	admin := s.Router.Group(basePath, middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT())
	{
		admin.POST("/admin/events/sweep", adminHandler.HandleSweep)
		admin.GET("/admin/events/pending-closure", adminHandler.HandleListPendingClosure)
	}

	s.Router.GET("/", healthcheckHandler.HandleHealthcheck)
	s.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "Attendry API"
	docs.SwaggerInfo.Description = "Geofenced attendance verification API."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
