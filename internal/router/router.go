package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cityclinic/booking-api/internal/handler"
	appointmenthandler "github.com/cityclinic/booking-api/internal/handler/appointment"
	authhandler "github.com/cityclinic/booking-api/internal/handler/auth"
	messagehandler "github.com/cityclinic/booking-api/internal/handler/message"
	notificationhandler "github.com/cityclinic/booking-api/internal/handler/notification"
	patienthandler "github.com/cityclinic/booking-api/internal/handler/patient"
	reviewhandler "github.com/cityclinic/booking-api/internal/handler/review"
	slothandler "github.com/cityclinic/booking-api/internal/handler/slot"
	"github.com/cityclinic/booking-api/internal/middleware"
)

type RouterConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	Timeout        time.Duration
	CORSConfig     middleware.CORSConfig
	MetricsPrefix  string
}

type Router struct {
	engine        *gin.Engine
	auth          *middleware.AuthMiddleware
	h             *handler.Handler
	authH         *authhandler.Handler
	appointmentH  *appointmenthandler.Handler
	reviewH       *reviewhandler.Handler
	slotH         *slothandler.Handler
	notificationH *notificationhandler.Handler
	messageH      *messagehandler.Handler
	patientH      *patienthandler.Handler
	metrics       *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	h *handler.Handler,
	authH *authhandler.Handler,
	appointmentH *appointmenthandler.Handler,
	reviewH *reviewhandler.Handler,
	slotH *slothandler.Handler,
	notificationH *notificationhandler.Handler,
	messageH *messagehandler.Handler,
	patientH *patienthandler.Handler,
	config RouterConfig,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	r := &Router{
		engine:        engine,
		auth:          auth,
		h:             h,
		authH:         authH,
		appointmentH:  appointmentH,
		reviewH:       reviewH,
		slotH:         slotH,
		notificationH: notificationH,
		messageH:      messageH,
		patientH:      patientH,
		metrics:       initRouterMetrics(config.MetricsPrefix),
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		r.metricsMiddleware(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.Timeout}),
	)

	engine.Use(middleware.CORS(config.CORSConfig))

	rateLimiter := middleware.NewRateLimiter(config.RateLimitRPS, config.RateLimitBurst)
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.setupHealthCheck(api)
	r.setupPublicRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.setupPatientRoutes(protected)
	r.setupAdminRoutes(protected)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.h.HealthCheck)
		health.GET("/ready", r.h.ReadyCheck)
	}
}

func (r *Router) setupPublicRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/signup", r.authH.Signup)
		auth.POST("/login", r.authH.Login)
		auth.POST("/admin/login", r.authH.AdminLogin)
		auth.POST("/admin/verify-otp", r.authH.VerifyOTP)
		auth.POST("/password-reset/request", r.authH.RequestPasswordReset)
		auth.POST("/password-reset/confirm", r.authH.ResetPassword)
	}

	rg.GET("/departments", r.h.Departments)
	rg.GET("/departments/:department/availability", r.slotH.Availability)

	rg.POST("/messages", r.messageH.Submit)
}

func (r *Router) setupPatientRoutes(rg *gin.RouterGroup) {
	patient := rg.Group("")
	patient.Use(r.auth.RequirePatient())
	{
		patient.GET("/patients/me", r.patientH.Me)
		patient.PATCH("/patients/me", r.patientH.UpdateMe)

		patient.POST("/appointments", r.appointmentH.Create)
		patient.GET("/appointments", r.appointmentH.ListMine)
		patient.GET("/appointments/:id", r.appointmentH.Get)
		patient.POST("/appointments/:id/cancel", r.appointmentH.Cancel)

		patient.GET("/notifications", r.notificationH.List)
		patient.POST("/notifications/:id/read", r.notificationH.MarkRead)
		patient.POST("/notifications/read-all", r.notificationH.MarkAllRead)
	}
}

func (r *Router) setupAdminRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(r.auth.RequireAdmin())
	{
		admin.GET("/appointments", r.reviewH.List)
		admin.GET("/appointments/pending", r.reviewH.ListPending)
		admin.POST("/appointments/:id/approve", r.reviewH.Approve)
		admin.POST("/appointments/:id/reject", r.reviewH.Reject)
		admin.POST("/appointments/:id/complete", r.reviewH.Complete)

		admin.GET("/departments/:department/slots", r.slotH.ListRange)
		admin.PUT("/departments/:department/slots", r.slotH.SetCapacity)
		admin.POST("/departments/:department/slots/close", r.slotH.CloseDay)

		admin.GET("/notifications", r.notificationH.AdminList)
		admin.GET("/notifications/live", r.notificationH.AdminLive)
		admin.POST("/notifications/:id/read", r.notificationH.AdminMarkRead)
		admin.POST("/notifications/read-all", r.notificationH.AdminMarkAllRead)
		admin.DELETE("/notifications/:id", r.notificationH.AdminDelete)

		admin.GET("/messages", r.messageH.List)
		admin.POST("/messages/:id/read", r.messageH.MarkRead)

		admin.GET("/patients", r.auth.RequireSuper(), r.patientH.List)
		admin.GET("/patients/:id", r.patientH.Get)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string) *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := fmt.Sprintf("%d", c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
