package review

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cityclinic/booking-api/internal/handler"
	"github.com/cityclinic/booking-api/internal/middleware"
	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/repository"
	"github.com/cityclinic/booking-api/internal/service/booking"
	"github.com/cityclinic/booking-api/internal/service/review"
	apperrors "github.com/cityclinic/booking-api/pkg/errors"
)

type Handler struct {
	service  *review.Service
	bookings *booking.Service
	validate *validator.Validate
}

func NewHandler(service *review.Service, bookings *booking.Service) *Handler {
	return &Handler{service: service, bookings: bookings, validate: validator.New()}
}

// ListPending returns the pending queue for the admin's department, or for
// all departments when the caller is the super admin.
func (h *Handler) ListPending(c *gin.Context) {
	admin := middleware.AdminFrom(c)
	if admin == nil {
		handler.RespondWithError(c, apperrors.Forbidden("admin access required"))
		return
	}

	appointments, err := h.service.ListPending(c.Request.Context(), admin)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": appointments})
}

// List returns appointments with optional filters, scoped to the admin's
// department unless the caller is the super admin.
func (h *Handler) List(c *gin.Context) {
	admin := middleware.AdminFrom(c)
	if admin == nil {
		handler.RespondWithError(c, apperrors.Forbidden("admin access required"))
		return
	}

	filters := &model.AppointmentFilters{}
	if admin.Role != model.AdminRoleSuper {
		filters.Department = admin.Department
	} else if dept := c.Query("department"); dept != "" {
		parsed, err := model.ParseDepartment(dept)
		if err != nil {
			handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
			return
		}
		filters.Department = parsed
	}
	if status := c.Query("status"); status != "" {
		filters.Status = model.AppointmentStatus(status)
	}
	if date := c.Query("date"); date != "" {
		filters.Date = date
	}
	if id := c.Query("patient_id"); id != "" {
		patientID, err := uuid.Parse(id)
		if err != nil {
			handler.RespondWithError(c, apperrors.BadRequest("invalid patient ID", err))
			return
		}
		filters.PatientID = patientID
	}

	appointments, err := h.bookings.List(c.Request.Context(), filters)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": appointments})
}

func (h *Handler) Approve(c *gin.Context) {
	admin := middleware.AdminFrom(c)
	if admin == nil {
		handler.RespondWithError(c, apperrors.Forbidden("admin access required"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondWithError(c, apperrors.BadRequest("invalid appointment ID", err))
		return
	}

	var req model.ApproveAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	apt, err := h.service.Approve(c.Request.Context(), admin, id, &req)
	if err != nil {
		handler.RespondWithError(c, reviewError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": apt})
}

func (h *Handler) Reject(c *gin.Context) {
	admin := middleware.AdminFrom(c)
	if admin == nil {
		handler.RespondWithError(c, apperrors.Forbidden("admin access required"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondWithError(c, apperrors.BadRequest("invalid appointment ID", err))
		return
	}

	var req model.RejectAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	apt, err := h.service.Reject(c.Request.Context(), admin, id, req.Reason)
	if err != nil {
		handler.RespondWithError(c, reviewError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": apt})
}

func (h *Handler) Complete(c *gin.Context) {
	admin := middleware.AdminFrom(c)
	if admin == nil {
		handler.RespondWithError(c, apperrors.Forbidden("admin access required"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondWithError(c, apperrors.BadRequest("invalid appointment ID", err))
		return
	}

	apt, err := h.service.Complete(c.Request.Context(), admin, id)
	if err != nil {
		handler.RespondWithError(c, reviewError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": apt})
}

func reviewError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("appointment", err)
	case errors.Is(err, review.ErrWrongDept):
		return apperrors.Forbidden(err.Error())
	case errors.Is(err, review.ErrNotPending),
		errors.Is(err, review.ErrNotApproved):
		return apperrors.Conflict(err.Error(), err)
	case errors.Is(err, review.ErrReasonRequired):
		return apperrors.BadRequest(err.Error(), err)
	default:
		return err
	}
}
