package cloudevents

import (
	"github.com/cjdquick/putaway-service/pkg/tenant"
)

// CloudEvents extension attribute names for tenant and business context
const (
	// Tenant context extensions (used in CloudEvents and message headers)
	ExtCompanyID  = "omscompanyid"
	ExtLocationID = "omslocationid"
	ExtUserID     = "omsuserid"

	// Business context extensions
	ExtCorrelationID = "omscorrelationid"
	ExtTaskNumber    = "omstasknumber"
	ExtGRNID         = "omsgrnid"
)

// SetTenantScope sets tenant scope extensions on an OMSCloudEvent
func (e *OMSCloudEvent) SetTenantScope(scope *tenant.Scope) {
	if scope == nil {
		return
	}
	e.CompanyID = scope.CompanyID
	e.LocationID = scope.LocationID
	e.UserID = scope.UserID
}

// GetTenantScope extracts the tenant scope from an OMSCloudEvent
func (e *OMSCloudEvent) GetTenantScope() *tenant.Scope {
	return &tenant.Scope{
		CompanyID:  e.CompanyID,
		LocationID: e.LocationID,
		UserID:     e.UserID,
	}
}

// WithTenantScope is a builder method that sets tenant scope and returns the event
func (e *OMSCloudEvent) WithTenantScope(scope *tenant.Scope) *OMSCloudEvent {
	e.SetTenantScope(scope)
	return e
}

// HasTenantScope returns true if both scoping fields are set
func (e *OMSCloudEvent) HasTenantScope() bool {
	return e.CompanyID != "" && e.LocationID != ""
}

// ValidateTenantScope validates that required tenant scope is present
func (e *OMSCloudEvent) ValidateTenantScope() error {
	return e.GetTenantScope().Validate()
}
