package appointment

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
	apperrors "github.com/cityclinic/booking-api/pkg/errors"
)

type Handler struct {
	service  *booking.Service
	validate *validator.Validate
}

func NewHandler(service *booking.Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

func (h *Handler) Create(c *gin.Context) {
	patientID := middleware.PatientIDFrom(c)
	if patientID == uuid.Nil {
		handler.RespondWithError(c, apperrors.Unauthorized("patient token required", nil))
		return
	}

	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	if _, err := model.ParseDepartment(req.Department); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	apt, err := h.service.Book(c.Request.Context(), patientID, &req)
	if err != nil {
		handler.RespondWithError(c, bookError(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": apt})
}

func (h *Handler) Cancel(c *gin.Context) {
	patientID := middleware.PatientIDFrom(c)
	if patientID == uuid.Nil {
		handler.RespondWithError(c, apperrors.Unauthorized("patient token required", nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondWithError(c, apperrors.BadRequest("invalid appointment ID", err))
		return
	}

	apt, err := h.service.Cancel(c.Request.Context(), patientID, id)
	if err != nil {
		handler.RespondWithError(c, cancelError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": apt})
}

func (h *Handler) Get(c *gin.Context) {
	patientID := middleware.PatientIDFrom(c)
	if patientID == uuid.Nil {
		handler.RespondWithError(c, apperrors.Unauthorized("patient token required", nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondWithError(c, apperrors.BadRequest("invalid appointment ID", err))
		return
	}

	apt, err := h.service.Get(c.Request.Context(), patientID, id)
	if err != nil {
		handler.RespondWithError(c, cancelError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": apt})
}

// ListMine returns the authenticated patient's appointment history.
func (h *Handler) ListMine(c *gin.Context) {
	patientID := middleware.PatientIDFrom(c)
	if patientID == uuid.Nil {
		handler.RespondWithError(c, apperrors.Unauthorized("patient token required", nil))
		return
	}

	filters := &model.AppointmentFilters{PatientID: patientID}
	if status := c.Query("status"); status != "" {
		filters.Status = model.AppointmentStatus(status)
	}

	appointments, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": appointments})
}

func bookError(err error) error {
	switch {
	case errors.Is(err, model.ErrSlotUnavailable),
		errors.Is(err, model.ErrDayClosed):
		return apperrors.Conflict(err.Error(), err)
	case errors.Is(err, model.ErrSlotNotFound):
		return apperrors.NotFound("slot", err)
	case errors.Is(err, booking.ErrPastDate):
		return apperrors.BadRequest(err.Error(), err)
	default:
		return err
	}
}

func cancelError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("appointment", err)
	case errors.Is(err, booking.ErrNotOwner):
		return apperrors.Forbidden(err.Error())
	case errors.Is(err, booking.ErrAlreadyCancelled),
		errors.Is(err, booking.ErrNotCancellable):
		return apperrors.Conflict(err.Error(), err)
	default:
		return err
	}
}
