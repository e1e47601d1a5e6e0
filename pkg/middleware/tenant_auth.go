package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cjdquick/putaway-service/pkg/tenant"
)

// Tenant scope HTTP header names, set by the upstream identity layer
const (
	HeaderCompanyID  = "X-Company-ID"
	HeaderLocationID = "X-Location-ID"
	HeaderUserID     = "X-User-ID"
)

const contextKeyTenantScope = "tenantScope"

// TenantAuth extracts the tenant scope from request headers and adds it to
// both the Gin context and the request's Go context. Requests without a
// complete company/location pair are rejected; the data layer never scopes
// a query implicitly.
func TenantAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := &tenant.Scope{
			CompanyID:  c.GetHeader(HeaderCompanyID),
			LocationID: c.GetHeader(HeaderLocationID),
			UserID:     c.GetHeader(HeaderUserID),
		}

		if err := scope.Validate(); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "MISSING_TENANT_SCOPE",
				"message": "Company and location scope headers are required",
			})
			return
		}

		ctx := tenant.ToContext(c.Request.Context(), scope)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextKeyTenantScope, scope)

		c.Next()
	}
}

// GetTenantScope retrieves the tenant scope from Gin context
func GetTenantScope(c *gin.Context) *tenant.Scope {
	if val, exists := c.Get(contextKeyTenantScope); exists {
		if s, ok := val.(*tenant.Scope); ok {
			return s
		}
	}

	return &tenant.Scope{
		CompanyID:  tenant.GetCompanyID(c.Request.Context()),
		LocationID: tenant.GetLocationID(c.Request.Context()),
		UserID:     tenant.GetUserID(c.Request.Context()),
	}
}
