// ABOUTME: Role names used for global user roles and project memberships
// ABOUTME: The same vocabulary is stored in users.role and project_members.role, which stay independent

package store

const (
	RoleAdmin        = "admin"
	RoleProjectAdmin = "project_admin"
	RoleMember       = "member"
)

// AvailableRoles lists all valid role names.
var AvailableRoles = []string{
	RoleAdmin,
	RoleProjectAdmin,
	RoleMember,
}
