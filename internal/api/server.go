package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cocinarte/internal/app"
	"cocinarte/internal/auth"
	"cocinarte/internal/database"
	"cocinarte/internal/handlers"
	"cocinarte/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	router *gin.Engine
	app    *app.App
}

// HealthChecker reports database health for /health
type HealthChecker interface {
	HealthCheck(ctx context.Context) database.HealthCheck
}

type RouterConfig struct {
	Handlers       *handlers.Handlers
	Verifier       middleware.TokenVerifier
	Checker        auth.AuthorizationChecker
	Health         HealthChecker
	AllowedOrigins []string
	RequestTimeout time.Duration
}

func NewServer(a *app.App) *Server {
	gin.SetMode(a.Config.GinMode)

	router := NewRouter(RouterConfig{
		Handlers:       handlers.NewHandlers(a.Services),
		Verifier:       a.Verifier,
		Checker:        a.Checker,
		Health:         a.DB,
		AllowedOrigins: a.Config.AllowedOrigins,
		RequestTimeout: a.Config.RequestTimeout,
	})

	return &Server{router: router, app: a}
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.Logger(),
		middleware.Metrics(),
	)
	if cfg.RequestTimeout > 0 {
		router.Use(requestTimeout(cfg.RequestTimeout))
	}

	h := cfg.Handlers
	requireUser := middleware.RequireUser(cfg.Verifier)
	requireAdmin := middleware.RequireAdmin(cfg.Checker)

	api := router.Group("/api")
	{
		payments := api.Group("/payments")
		{
			payments.POST("/holds", h.CreateHold)
			payments.POST("/holds/verify", h.VerifyHold)
			payments.POST("/holds/cancel", h.CancelHold)
			payments.POST("/refunds", requireUser, requireAdmin, h.Refund)
		}

		classes := api.Group("/classes")
		{
			classes.GET("", h.ListClasses)
			classes.GET("/search", h.SearchClasses)
			classes.GET("/:id", h.GetClass)
		}

		api.GET("/me/bookings", requireUser, h.MyBookings)

		admin := api.Group("/admin", requireUser, requireAdmin)
		{
			admin.POST("/payments/capture", h.CaptureHold)
			admin.GET("/payments", h.ListPayments)

			admin.GET("/classes", h.AdminListClasses)
			admin.POST("/classes", h.CreateClass)
			admin.PUT("/classes/:id", h.UpdateClass)
			admin.DELETE("/classes/:id", h.DeleteClass)

			admin.GET("/students", h.ListStudents)
			admin.GET("/students/:id", h.GetStudent)
			admin.POST("/students", h.CreateStudent)
			admin.PUT("/students/:id", h.UpdateStudent)
			admin.DELETE("/students/:id", h.DeleteStudent)

			admin.GET("/bookings", h.ListBookings)
			admin.GET("/bookings/:id", h.GetBooking)
			admin.DELETE("/bookings/:id", h.DeleteBooking)
		}
	}

	router.GET("/health", healthCheck(cfg.Health))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// requestTimeout bounds each request's context; processor and database calls honour it
func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func healthCheck(checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if checker == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "cocinarte-api"})
			return
		}

		db := checker.HealthCheck(c.Request.Context())
		status := http.StatusOK
		overall := "ok"
		if db.Status != "healthy" {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}
		c.JSON(status, gin.H{"status": overall, "service": "cocinarte-api", "database": db})
	}
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", s.app.Config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
