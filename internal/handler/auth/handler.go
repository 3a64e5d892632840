package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/cityclinic/booking-api/internal/handler"
	"github.com/cityclinic/booking-api/internal/model"
	"github.com/cityclinic/booking-api/internal/service/auth"
	apperrors "github.com/cityclinic/booking-api/pkg/errors"
)

type Handler struct {
	service  *auth.Service
	validate *validator.Validate
}

func NewHandler(service *auth.Service) *Handler {
	return &Handler{service: service, validate: validator.New()}
}

func (h *Handler) Signup(c *gin.Context) {
	var req model.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	patient, token, err := h.service.Signup(c.Request.Context(), &req)
	if err != nil {
		handler.RespondWithError(c, authError(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": gin.H{
		"patient": patient,
		"token":   token,
	}})
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	patient, token, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		handler.RespondWithError(c, authError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{
		"patient": patient,
		"token":   token,
	}})
}

// AdminLogin is step one of the admin login: the password check. On success
// a verification code is emailed and the client proceeds to VerifyOTP.
func (h *Handler) AdminLogin(c *gin.Context) {
	var req model.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	if err := h.service.AdminLogin(c.Request.Context(), &req); err != nil {
		handler.RespondWithError(c, authError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{
		"message": "verification code sent",
	}})
}

func (h *Handler) VerifyOTP(c *gin.Context) {
	var req model.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	admin, token, err := h.service.VerifyAdminOTP(c.Request.Context(), &req)
	if err != nil {
		handler.RespondWithError(c, authError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{
		"admin": admin,
		"token": token,
	}})
}

func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	if err := h.service.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		handler.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{
		"message": "if the account exists, a reset code has been sent",
	}})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req model.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		handler.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), &req); err != nil {
		handler.RespondWithError(c, authError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{
		"message": "password updated",
	}})
}

func authError(err error) error {
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		return apperrors.Conflict(err.Error(), err)
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrOTPNotFound),
		errors.Is(err, auth.ErrOTPMismatch):
		return apperrors.Unauthorized(err.Error(), err)
	default:
		return err
	}
}
