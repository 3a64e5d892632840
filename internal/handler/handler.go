package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/cityclinic/booking-api/internal/model"
)

// Handler serves the health endpoints. Liveness is unconditional; readiness
// checks the database and Redis.
type Handler struct {
	db    *sqlx.DB
	redis *redis.Client
}

func New(db *sqlx.DB, redisClient *redis.Client) *Handler {
	return &Handler{db: db, redis: redisClient}
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"status": "healthy",
		},
	})
}

// Departments lists the bookable departments for the public booking page.
func (h *Handler) Departments(c *gin.Context) {
	type entry struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	departments := make([]entry, 0, len(model.Departments))
	for _, d := range model.Departments {
		departments = append(departments, entry{Code: string(d), Name: d.DisplayName()})
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": departments})
}

func (h *Handler) ReadyCheck(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "database unavailable"})
		return
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "redis unavailable"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"status": "ready",
		},
	})
}
