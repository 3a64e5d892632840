package notification

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cityclinic/booking-api/internal/handler"
	"github.com/cityclinic/booking-api/internal/middleware"
	"github.com/cityclinic/booking-api/internal/service/notification"
	apperrors "github.com/cityclinic/booking-api/pkg/errors"
	"github.com/cityclinic/booking-api/pkg/messaging"
)

type Handler struct {
	service *notification.Service
	broker  messaging.Broker
}

func NewHandler(service *notification.Service, broker messaging.Broker) *Handler {
	return &Handler{service: service, broker: broker}
}

// List returns the authenticated patient's notification feed. The feed is
// assembled server side; clients only ever read it.
func (h *Handler) List(c *gin.Context) {
	patientID := middleware.PatientIDFrom(c)
	if patientID == uuid.Nil {
		handler.RespondWithError(c, apperrors.Unauthorized("patient token required", nil))
		return
	}

	unreadOnly := c.Query("unread") == "true"
	notifications, err := h.service.ListForPatient(c.Request.Context(), patientID, unreadOnly)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": notifications})
}

func (h *Handler) MarkRead(c *gin.Context) {
	patientID := middleware.PatientIDFrom(c)
	if patientID == uuid.Nil {
		handler.RespondWithError(c, apperrors.Unauthorized("patient token required", nil))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondWithError(c, apperrors.BadRequest("invalid notification ID", err))
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), patientID, id); err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	patientID := middleware.PatientIDFrom(c)
	if patientID == uuid.Nil {
		handler.RespondWithError(c, apperrors.Unauthorized("patient token required", nil))
		return
	}

	if err := h.service.MarkAllRead(c.Request.Context(), patientID); err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// AdminList returns the department inbox for the authenticated admin.
func (h *Handler) AdminList(c *gin.Context) {
	admin := middleware.AdminFrom(c)
	if admin == nil {
		handler.RespondWithError(c, apperrors.Forbidden("admin access required"))
		return
	}

	unreadOnly := c.Query("unread") == "true"
	notifications, err := h.service.ListForAdmin(c.Request.Context(), admin.Department, unreadOnly)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": notifications})
}

func (h *Handler) AdminMarkRead(c *gin.Context) {
	admin := middleware.AdminFrom(c)
	if admin == nil {
		handler.RespondWithError(c, apperrors.Forbidden("admin access required"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondWithError(c, apperrors.BadRequest("invalid notification ID", err))
		return
	}

	if err := h.service.MarkAdminRead(c.Request.Context(), admin.Department, id); err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) AdminMarkAllRead(c *gin.Context) {
	admin := middleware.AdminFrom(c)
	if admin == nil {
		handler.RespondWithError(c, apperrors.Forbidden("admin access required"))
		return
	}

	if err := h.service.MarkAllAdminRead(c.Request.Context(), admin.Department); err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) AdminDelete(c *gin.Context) {
	admin := middleware.AdminFrom(c)
	if admin == nil {
		handler.RespondWithError(c, apperrors.Forbidden("admin access required"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondWithError(c, apperrors.BadRequest("invalid notification ID", err))
		return
	}

	if err := h.service.DeleteAdminNotification(c.Request.Context(), admin.Department, id); err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// AdminLive streams department notifications over server-sent events. Each
// event mirrors what the dispatch worker published after committing the
// underlying inbox row.
func (h *Handler) AdminLive(c *gin.Context) {
	admin := middleware.AdminFrom(c)
	if admin == nil {
		handler.RespondWithError(c, apperrors.Forbidden("admin access required"))
		return
	}

	topic := fmt.Sprintf("admin:notifications:%s", admin.Department)
	messages, err := h.broker.Subscribe(c.Request.Context(), topic)
	if err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-messages:
			if !ok {
				return false
			}
			c.SSEvent("notification", string(msg))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
