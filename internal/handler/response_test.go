package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/cityclinic/booking-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func respond(t *testing.T, err error) (int, Response) {
	t.Helper()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RespondWithError(c, err)

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestRespondWithErrorMapsAppErrorCodes(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", apperrors.NotFound("appointment", nil), http.StatusNotFound, "appointment not found"},
		{"bad request", apperrors.BadRequest("date is required", nil), http.StatusBadRequest, "date is required"},
		{"unauthorized", apperrors.Unauthorized("patient token required", nil), http.StatusUnauthorized, "patient token required"},
		{"forbidden", apperrors.Forbidden("admin access required"), http.StatusForbidden, "admin access required"},
		{"conflict", apperrors.Conflict("slot unavailable", nil), http.StatusConflict, "slot unavailable"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := respond(t, tc.err)

			assert.Equal(t, tc.status, status)
			assert.Equal(t, "error", body.Status)
			assert.Equal(t, tc.message, body.Message)
		})
	}
}

func TestRespondWithErrorHidesUnexpectedErrors(t *testing.T) {
	status, body := respond(t, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "internal server error", body.Message)
	assert.NotContains(t, body.Message, "pq:")
}
