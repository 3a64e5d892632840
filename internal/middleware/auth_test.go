package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/cityclinic/booking-api/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func runRequireSuper(t *testing.T, admin *model.Admin) (*httptest.ResponseRecorder, bool) {
	t.Helper()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/patients", nil)
	if admin != nil {
		c.Set(contextAdmin, admin)
	}

	reached := false
	handlers := gin.HandlersChain{
		(&AuthMiddleware{}).RequireSuper(),
		func(c *gin.Context) { reached = true },
	}
	handlers[0](c)
	if !c.IsAborted() {
		handlers[1](c)
	}
	return rec, reached
}

func TestRequireSuperAllowsSuperAdmin(t *testing.T) {
	rec, reached := runRequireSuper(t, &model.Admin{Role: model.AdminRoleSuper, Active: true})

	assert.True(t, reached)
	assert.NotEqual(t, http.StatusForbidden, rec.Code)
}

func TestRequireSuperRejectsDepartmentAdmin(t *testing.T) {
	rec, reached := runRequireSuper(t, &model.Admin{
		Role:       model.AdminRoleDepartment,
		Department: model.DepartmentDental,
		Active:     true,
	})

	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "super admin access required")
}

func TestRequireSuperRejectsMissingAdmin(t *testing.T) {
	rec, reached := runRequireSuper(t, nil)

	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
