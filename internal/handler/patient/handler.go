package patient

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cityclinic/booking-api/internal/handler"
	"github.com/cityclinic/booking-api/internal/middleware"
	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/repository"
	"github.com/cityclinic/booking-api/internal/service/patient"
	apperrors "github.com/cityclinic/booking-api/pkg/errors"
)

type Handler struct {
	service  *patient.Service
	validate *validator.Validate
}

func NewHandler(service *patient.Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

// Me returns the authenticated patient's profile.
func (h *Handler) Me(c *gin.Context) {
	patientID := middleware.PatientIDFrom(c)
	if patientID == uuid.Nil {
		handler.RespondWithError(c, apperrors.Unauthorized("patient token required", nil))
		return
	}

	p, err := h.service.Get(c.Request.Context(), patientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			handler.RespondWithError(c, apperrors.NotFound("patient", err))
			return
		}
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": p})
}

// UpdateMe applies partial profile changes for the authenticated patient.
func (h *Handler) UpdateMe(c *gin.Context) {
	patientID := middleware.PatientIDFrom(c)
	if patientID == uuid.Nil {
		handler.RespondWithError(c, apperrors.Unauthorized("patient token required", nil))
		return
	}

	var req model.UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	p, err := h.service.Update(c.Request.Context(), patientID, &req)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": p})
}

// List is the admin-facing patient directory.
func (h *Handler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	patients, err := h.service.List(c.Request.Context(), c.Query("search"), limit, offset)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": patients})
}

// Get returns one patient record for admins.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondWithError(c, apperrors.BadRequest("invalid patient ID", err))
		return
	}

	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			handler.RespondWithError(c, apperrors.NotFound("patient", err))
			return
		}
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": p})
}
