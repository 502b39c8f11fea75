package middleware

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	mongodbadapter "github.com/casbin/mongodb-adapter/v3"
	"github.com/danielgtaylor/huma/v2"
	"go.mongodb.org/mongo-driver/mongo"
)

// Project roles assignable through project_users.
const (
	RoleAdmin    = "admin"
	RoleReadonly = "readonly"
)

// Actions checked against the policy store. Admins hold both; readonly
// members hold read only.
const (
	ActionRead  = "read"
	ActionWrite = "write"
)

// CasbinPoliciesCollection is the MongoDB collection backing the enforcer.
const CasbinPoliciesCollection = "casbin_policies"

// casbinModel is the ACL model: one policy row per (email, project, action).
const casbinModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// Authorizer enforces per-project roles through a Casbin policy store
// persisted in MongoDB. Policy rows are kept in sync with each project's
// project_users list. SUPER_ADMIN_EMAILS bypass all checks.
type Authorizer struct {
	enforcer    *casbin.Enforcer
	superAdmins map[string]struct{}
}

// NewAuthorizer builds the enforcer with the MongoDB adapter and loads the
// current policy set.
func NewAuthorizer(mongoClient *mongo.Client, databaseName string, superAdminEmails []string) (*Authorizer, error) {
	adapter, err := mongodbadapter.NewAdapterByDB(mongoClient, &mongodbadapter.AdapterConfig{
		DatabaseName:   databaseName,
		CollectionName: CasbinPoliciesCollection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin adapter: %w", err)
	}

	m, err := casbinmodel.NewModelFromString(casbinModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("failed to load casbin policies: %w", err)
	}

	superAdmins := make(map[string]struct{}, len(superAdminEmails))
	for _, email := range superAdminEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			superAdmins[email] = struct{}{}
		}
	}

	slog.Info("Casbin authorizer initialized",
		slog.String("collection", CasbinPoliciesCollection),
		slog.Int("super_admins", len(superAdmins)))

	return &Authorizer{enforcer: enforcer, superAdmins: superAdmins}, nil
}

// IsSuperAdmin reports whether the email is in SUPER_ADMIN_EMAILS.
func (a *Authorizer) IsSuperAdmin(email string) bool {
	_, ok := a.superAdmins[strings.ToLower(email)]
	return ok
}

// RequireProjectRead ensures the user may read the project (any role).
func (a *Authorizer) RequireProjectRead(user *AuthenticatedUser, projectUUID string) error {
	return a.requireAction(user, projectUUID, ActionRead)
}

// RequireProjectAdmin ensures the user may mutate the project (admin role).
func (a *Authorizer) RequireProjectAdmin(user *AuthenticatedUser, projectUUID string) error {
	return a.requireAction(user, projectUUID, ActionWrite)
}

func (a *Authorizer) requireAction(user *AuthenticatedUser, projectUUID, action string) error {
	if user == nil {
		return huma.Error401Unauthorized("Authentication required")
	}
	if a.IsSuperAdmin(user.Email) {
		return nil
	}

	allowed, err := a.enforcer.Enforce(user.Email, projectUUID, action)
	if err != nil {
		return huma.Error500InternalServerError("Authorization check failed", err)
	}
	if !allowed {
		return huma.Error403Forbidden(fmt.Sprintf("Insufficient permissions: project %s access requires the %s role", action, roleForAction(action)))
	}
	return nil
}

func roleForAction(action string) string {
	if action == ActionWrite {
		return RoleAdmin
	}
	return RoleAdmin + " or " + RoleReadonly
}

// SyncProjectRoles replaces the policy rows for a project with the given
// member lists. Admins receive read and write; readers receive read only.
func (a *Authorizer) SyncProjectRoles(projectUUID string, admins, readers []string) error {
	if _, err := a.enforcer.RemoveFilteredPolicy(1, projectUUID); err != nil {
		return fmt.Errorf("failed to clear project policies: %w", err)
	}

	for _, email := range admins {
		email = strings.ToLower(email)
		if _, err := a.enforcer.AddPolicy(email, projectUUID, ActionRead); err != nil {
			return fmt.Errorf("failed to add read policy for %s: %w", email, err)
		}
		if _, err := a.enforcer.AddPolicy(email, projectUUID, ActionWrite); err != nil {
			return fmt.Errorf("failed to add write policy for %s: %w", email, err)
		}
	}
	for _, email := range readers {
		email = strings.ToLower(email)
		if _, err := a.enforcer.AddPolicy(email, projectUUID, ActionRead); err != nil {
			return fmt.Errorf("failed to add read policy for %s: %w", email, err)
		}
	}
	return nil
}

// RemoveProjectRoles drops every policy row scoped to the project.
func (a *Authorizer) RemoveProjectRoles(projectUUID string) error {
	if _, err := a.enforcer.RemoveFilteredPolicy(1, projectUUID); err != nil {
		return fmt.Errorf("failed to remove project policies: %w", err)
	}
	return nil
}
