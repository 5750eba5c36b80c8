package types

import (
	"context"

	"github.com/samber/lo"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID ContextKey = "ctx_request_id"
	CtxTenantID  ContextKey = "ctx_tenant_id"
	CtxUserID    ContextKey = "ctx_user_id"
	CtxRoles     ContextKey = "ctx_roles"

	// HeaderRequestID is echoed back on every response
	HeaderRequestID = "X-Request-ID"
)

// RoleBillingAdmin is required for self-service billing mutations
const RoleBillingAdmin = "billing_admin"

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

func GetTenantID(ctx context.Context) string {
	if tenantID, ok := ctx.Value(CtxTenantID).(string); ok {
		return tenantID
	}
	return ""
}

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(CtxUserID).(string); ok {
		return userID
	}
	return ""
}

// GetRoles returns the roles attached to the authenticated actor
func GetRoles(ctx context.Context) []string {
	if roles, ok := ctx.Value(CtxRoles).([]string); ok {
		return roles
	}
	return []string{}
}

// HasRole reports whether the actor in ctx carries the given role
func HasRole(ctx context.Context, role string) bool {
	return lo.Contains(GetRoles(ctx), role)
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, CtxRequestID, requestID)
}

func SetTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, CtxTenantID, tenantID)
}

func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxUserID, userID)
}

func SetRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, CtxRoles, roles)
}
