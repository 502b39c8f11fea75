package middleware

import (
	"testing"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryAuthorizer builds an Authorizer on an in-memory enforcer so role
// checks run without a MongoDB-backed policy store.
func memoryAuthorizer(t *testing.T, superAdmins ...string) *Authorizer {
	t.Helper()
	m, err := casbinmodel.NewModelFromString(casbinModel)
	require.NoError(t, err)
	enforcer, err := casbin.NewEnforcer(m)
	require.NoError(t, err)

	admins := make(map[string]struct{}, len(superAdmins))
	for _, email := range superAdmins {
		admins[email] = struct{}{}
	}
	return &Authorizer{enforcer: enforcer, superAdmins: admins}
}

// TestAuthorizerProjectRoles tests role sync and enforcement end to end
func TestAuthorizerProjectRoles(t *testing.T) {
	authorizer := memoryAuthorizer(t)
	require.NoError(t, authorizer.SyncProjectRoles("project-1",
		[]string{"admin@example.com"},
		[]string{"reader@example.com"}))

	admin := &AuthenticatedUser{Email: "admin@example.com"}
	reader := &AuthenticatedUser{Email: "reader@example.com"}
	outsider := &AuthenticatedUser{Email: "outsider@example.com"}

	assert.NoError(t, authorizer.RequireProjectRead(admin, "project-1"))
	assert.NoError(t, authorizer.RequireProjectAdmin(admin, "project-1"))

	assert.NoError(t, authorizer.RequireProjectRead(reader, "project-1"))
	err := authorizer.RequireProjectAdmin(reader, "project-1")
	require.Error(t, err)
	assert.Equal(t, 403, statusOf(t, err))

	err = authorizer.RequireProjectRead(outsider, "project-1")
	require.Error(t, err)
	assert.Equal(t, 403, statusOf(t, err))

	// Membership in one project grants nothing elsewhere.
	err = authorizer.RequireProjectRead(admin, "project-2")
	require.Error(t, err)
	assert.Equal(t, 403, statusOf(t, err))
}

// TestAuthorizerRoleResync tests that a sync replaces the previous policy set
func TestAuthorizerRoleResync(t *testing.T) {
	authorizer := memoryAuthorizer(t)
	require.NoError(t, authorizer.SyncProjectRoles("project-1",
		[]string{"admin@example.com"},
		[]string{"reader@example.com"}))

	// The reader is dropped in the replacement list.
	require.NoError(t, authorizer.SyncProjectRoles("project-1",
		[]string{"admin@example.com"},
		nil))

	reader := &AuthenticatedUser{Email: "reader@example.com"}
	err := authorizer.RequireProjectRead(reader, "project-1")
	require.Error(t, err)
	assert.Equal(t, 403, statusOf(t, err))

	admin := &AuthenticatedUser{Email: "admin@example.com"}
	assert.NoError(t, authorizer.RequireProjectAdmin(admin, "project-1"))
}

// TestAuthorizerRemoveProjectRoles tests policy cleanup on project deletion
func TestAuthorizerRemoveProjectRoles(t *testing.T) {
	authorizer := memoryAuthorizer(t)
	require.NoError(t, authorizer.SyncProjectRoles("project-1",
		[]string{"admin@example.com"}, nil))
	require.NoError(t, authorizer.RemoveProjectRoles("project-1"))

	admin := &AuthenticatedUser{Email: "admin@example.com"}
	err := authorizer.RequireProjectRead(admin, "project-1")
	require.Error(t, err)
	assert.Equal(t, 403, statusOf(t, err))
}

// TestAuthorizerSuperAdmin tests the SUPER_ADMIN_EMAILS bypass
func TestAuthorizerSuperAdmin(t *testing.T) {
	authorizer := memoryAuthorizer(t, "root@example.com")

	assert.True(t, authorizer.IsSuperAdmin("root@example.com"))
	assert.True(t, authorizer.IsSuperAdmin("Root@Example.COM"))
	assert.False(t, authorizer.IsSuperAdmin("other@example.com"))

	// No policies exist, yet the super admin passes every check.
	root := &AuthenticatedUser{Email: "root@example.com"}
	assert.NoError(t, authorizer.RequireProjectRead(root, "project-1"))
	assert.NoError(t, authorizer.RequireProjectAdmin(root, "project-1"))
}

// TestAuthorizerNilUser tests that an unauthenticated caller is rejected
func TestAuthorizerNilUser(t *testing.T) {
	authorizer := memoryAuthorizer(t)
	err := authorizer.RequireProjectRead(nil, "project-1")
	require.Error(t, err)
	assert.Equal(t, 401, statusOf(t, err))
}
