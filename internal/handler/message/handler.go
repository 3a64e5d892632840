package message

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/cityclinic/booking-api/internal/handler"
	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/service/message"
	apperrors "github.com/cityclinic/booking-api/pkg/errors"
)

type Handler struct {
	service  *message.Service
	validate *validator.Validate
}

func NewHandler(service *message.Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

// Submit accepts a contact-form message. The endpoint is public.
func (h *Handler) Submit(c *gin.Context) {
	var req model.CreateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	msg, err := h.service.Submit(c.Request.Context(), &req)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": msg})
}

func (h *Handler) List(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	messages, err := h.service.List(c.Request.Context(), unreadOnly, limit, offset)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": messages})
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondWithError(c, apperrors.BadRequest("invalid message ID", err))
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), id); err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
