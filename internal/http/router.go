package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/campuspulse-backend/internal/domain/auth"
	httpH "github.com/yungbote/campuspulse-backend/internal/http/handlers"
	httpMW "github.com/yungbote/campuspulse-backend/internal/http/middleware"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware
	AuthHandler    *httpH.AuthHandler
	StudentHandler *httpH.StudentHandler
	CampusHandler  *httpH.CampusHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	if cfg.AuthHandler != nil {
		api.POST("/login", cfg.AuthHandler.Login)
		api.POST("/student/keys", cfg.AuthHandler.NewRecoveryKey)
		api.POST("/student/login", cfg.AuthHandler.StudentLogin)
	}
	if cfg.AuthMiddleware == nil {
		return r
	}

	student := api.Group("/student")
	student.Use(cfg.AuthMiddleware.RequireRole(auth.RoleStudent))
	if h := cfg.StudentHandler; h != nil {
		student.GET("/intake", h.GetIntake)
		student.POST("/intake/next", h.Next())
		student.POST("/intake/back", h.Back())
		student.POST("/intake/abandon", h.Abandon)
		student.POST("/intake/submit", h.Submit)
		student.PUT("/intake/rating", h.SetRating)
		student.PUT("/intake/text", h.SetText)
		student.GET("/history", h.History)
		student.GET("/suggestions", h.Suggestions)
		student.POST("/sync", h.Sync)
	}

	campus := api.Group("/campus")
	campus.Use(cfg.AuthMiddleware.RequireRole(auth.RoleUniversity, auth.RoleAdmin))
	if h := cfg.CampusHandler; h != nil {
		campus.GET("/stats", h.Stats)
		campus.GET("/reports", h.Reports)
		campus.POST("/analysis", h.Analysis)
	}

	return r
}
