package slot

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/cityclinic/booking-api/internal/handler"
	"github.com/cityclinic/booking-api/internal/middleware"
	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/service/slot"
	apperrors "github.com/cityclinic/booking-api/pkg/errors"
)

type Handler struct {
	service  *slot.Service
	validate *validator.Validate
}

func NewHandler(service *slot.Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

type setCapacityRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	// Counts maps a time label to the number of bookable units.
	Counts map[string]int `json:"counts" validate:"required,min=1"`
}

// Availability is the public read used by the booking page.
func (h *Handler) Availability(c *gin.Context) {
	dept, err := model.ParseDepartment(c.Param("department"))
	if err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	date := c.Query("date")
	if date == "" {
		handler.RespondWithError(c, apperrors.BadRequest("date is required", nil))
		return
	}

	day, err := h.service.GetDay(c.Request.Context(), dept, date)
	if err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{
		"department": day.Department,
		"date":       day.Date,
		"closed":     day.Closed,
		"slots":      day.Available(),
	}})
}

// SetCapacity reconciles a day's slots against the submitted counts. Booked
// units are never dropped by an edit.
func (h *Handler) SetCapacity(c *gin.Context) {
	admin := middleware.AdminFrom(c)
	dept, err := model.ParseDepartment(c.Param("department"))
	if err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	if admin == nil || !admin.CanManage(dept) {
		handler.RespondWithError(c, apperrors.Forbidden("department access required"))
		return
	}

	var req setCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	day, err := h.service.SetCapacity(c.Request.Context(), dept, req.Date, req.Counts)
	if err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": day})
}

// CloseDay marks a day unbookable.
func (h *Handler) CloseDay(c *gin.Context) {
	admin := middleware.AdminFrom(c)
	dept, err := model.ParseDepartment(c.Param("department"))
	if err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	if admin == nil || !admin.CanManage(dept) {
		handler.RespondWithError(c, apperrors.Forbidden("department access required"))
		return
	}

	var req struct {
		Date string `json:"date" validate:"required,datetime=2006-01-02"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	day, err := h.service.CloseDay(c.Request.Context(), dept, req.Date)
	if err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": day})
}

// ListRange returns the configured days in [from, to] for the admin calendar.
func (h *Handler) ListRange(c *gin.Context) {
	admin := middleware.AdminFrom(c)
	dept, err := model.ParseDepartment(c.Param("department"))
	if err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	if admin == nil || !admin.CanManage(dept) {
		handler.RespondWithError(c, apperrors.Forbidden("department access required"))
		return
	}

	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		handler.RespondWithError(c, apperrors.BadRequest("from and to are required", nil))
		return
	}

	days, err := h.service.ListRange(c.Request.Context(), dept, from, to)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": days})
}
