package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleOperator   = "operator"
	RoleSupervisor = "supervisor"
	RoleAnalyst    = "analyst"
	RoleSuperAdmin = "super_admin"
	RoleService    = "service_account" // hidden role, used by internal automation
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func IsHiddenRole(role string) bool { return role == RoleService }
