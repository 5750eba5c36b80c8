package testutil

import (
	"context"

	"github.com/alumnity/alumnity/internal/types"
)

const (
	DefaultTenantID = "tenant_test_01"
	DefaultUserID   = "user_test_01"
)

func SetupContext() context.Context {
	ctx := context.Background()
	ctx = types.SetTenantID(ctx, DefaultTenantID)
	ctx = types.SetUserID(ctx, DefaultUserID)
	ctx = types.SetRoles(ctx, []string{types.RoleBillingAdmin})
	ctx = types.SetRequestID(ctx, types.GenerateUUID())
	return ctx
}
