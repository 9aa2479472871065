package workspace_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daap14/tenantauth/internal/workspace"
)

func TestRole_Valid(t *testing.T) {
	for _, r := range []workspace.Role{workspace.RoleOwner, workspace.RoleAdmin, workspace.RoleEditor, workspace.RoleViewer} {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, workspace.Role("superuser").Valid())
	assert.False(t, workspace.Role("").Valid())
}

func TestRole_Can(t *testing.T) {
	tests := []struct {
		role workspace.Role
		perm workspace.Permission
		want bool
	}{
		{workspace.RoleOwner, workspace.PermWorkspaceDelete, true},
		{workspace.RoleOwner, workspace.PermBillingUpdate, true},
		{workspace.RoleAdmin, workspace.PermWorkspaceDelete, false},
		{workspace.RoleAdmin, workspace.PermBillingUpdate, false},
		{workspace.RoleAdmin, workspace.PermMemberRoleUpdate, true},
		{workspace.RoleAdmin, workspace.PermMemberInvite, true},
		{workspace.RoleEditor, workspace.PermModelUsePremium, true},
		{workspace.RoleEditor, workspace.PermMemberInvite, false},
		{workspace.RoleEditor, workspace.PermWorkspaceRead, false},
		{workspace.RoleViewer, workspace.PermChatRead, true},
		{workspace.RoleViewer, workspace.PermChatCreate, false},
		{workspace.RoleViewer, workspace.PermModelUsePremium, false},
		{workspace.Role("ghost"), workspace.PermChatRead, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.perm), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.Can(tt.perm))
		})
	}
}

func TestRole_PermissionsSortedAndNested(t *testing.T) {
	owner := workspace.RoleOwner.Permissions()
	assert.Len(t, owner, 16)
	assert.IsIncreasing(t, owner)

	for _, r := range []workspace.Role{workspace.RoleAdmin, workspace.RoleEditor, workspace.RoleViewer} {
		for _, p := range r.Permissions() {
			assert.True(t, workspace.RoleOwner.Can(p), "owner lacks %s granted to %s", p, r)
		}
	}
	assert.Empty(t, workspace.Role("ghost").Permissions())
}

func TestEnsureOwnerRetained(t *testing.T) {
	owner := workspace.RoleOwner
	admin := workspace.RoleAdmin

	tests := []struct {
		name    string
		current workspace.Role
		next    *workspace.Role
		owners  int
		wantErr bool
	}{
		{"demote last owner", workspace.RoleOwner, &admin, 1, true},
		{"remove last owner", workspace.RoleOwner, nil, 1, true},
		{"demote one of two owners", workspace.RoleOwner, &admin, 2, false},
		{"remove one of two owners", workspace.RoleOwner, nil, 2, false},
		{"owner stays owner", workspace.RoleOwner, &owner, 1, false},
		{"remove non-owner", workspace.RoleEditor, nil, 1, false},
		{"promote non-owner", workspace.RoleViewer, &owner, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := workspace.EnsureOwnerRetained(tt.current, tt.next, tt.owners)
			if tt.wantErr {
				assert.ErrorIs(t, err, workspace.ErrLastOwner)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
