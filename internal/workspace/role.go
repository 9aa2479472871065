package workspace

import "sort"

// Role is a workspace-scoped role.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// Permission is a granular capability.
type Permission string

const (
	PermChatCreate       Permission = "chat:create"
	PermChatRead         Permission = "chat:read"
	PermChatUpdate       Permission = "chat:update"
	PermChatDelete       Permission = "chat:delete"
	PermModelView        Permission = "model:view"
	PermModelUseFree     Permission = "model:useFree"
	PermModelUsePremium  Permission = "model:usePremium"
	PermWorkspaceRead    Permission = "workspace:read"
	PermWorkspaceUpdate  Permission = "workspace:update"
	PermWorkspaceDelete  Permission = "workspace:delete"
	PermMemberInvite     Permission = "member:invite"
	PermMemberRemove     Permission = "member:remove"
	PermMemberRoleUpdate Permission = "member:roleUpdate"
	PermBillingView      Permission = "billing:view"
	PermBillingUpdate    Permission = "billing:update"
	PermAdminAccess      Permission = "admin:access"
)

func set(perms ...Permission) map[Permission]struct{} {
	m := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		m[p] = struct{}{}
	}
	return m
}

var rolePermissions = map[Role]map[Permission]struct{}{
	RoleOwner: set(
		PermChatCreate, PermChatRead, PermChatUpdate, PermChatDelete,
		PermModelView, PermModelUseFree, PermModelUsePremium,
		PermWorkspaceRead, PermWorkspaceUpdate, PermWorkspaceDelete,
		PermMemberInvite, PermMemberRemove, PermMemberRoleUpdate,
		PermBillingView, PermBillingUpdate,
		PermAdminAccess,
	),
	RoleAdmin: set(
		PermChatCreate, PermChatRead, PermChatUpdate, PermChatDelete,
		PermModelView, PermModelUseFree, PermModelUsePremium,
		PermWorkspaceRead, PermWorkspaceUpdate,
		PermMemberInvite, PermMemberRemove, PermMemberRoleUpdate,
		PermBillingView,
		PermAdminAccess,
	),
	RoleEditor: set(
		PermChatCreate, PermChatRead, PermChatUpdate, PermChatDelete,
		PermModelView, PermModelUseFree, PermModelUsePremium,
	),
	RoleViewer: set(
		PermChatRead,
		PermModelView, PermModelUseFree,
	),
}

// Can reports whether r grants p.
func (r Role) Can(p Permission) bool {
	_, ok := rolePermissions[r][p]
	return ok
}

// Permissions returns the sorted permission list of r.
func (r Role) Permissions() []Permission {
	perms := make([]Permission, 0, len(rolePermissions[r]))
	for p := range rolePermissions[r] {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}
