package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daap14/tenantauth/internal/api/validation"
)

func fields(errs []validation.FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestStruct_RegisterRequest(t *testing.T) {
	valid := validation.RegisterRequest{
		TenantName: "Acme",
		TenantSlug: "acme",
		Email:      "owner@acme.test",
		Password:   "Sup3rSecret",
	}
	assert.Empty(t, validation.Struct(&valid))

	errs := validation.Struct(&validation.RegisterRequest{})
	assert.ElementsMatch(t, []string{"tenantName", "tenantSlug", "email", "password"}, fields(errs))
}

func TestStruct_UsesJSONNamesInMessages(t *testing.T) {
	errs := validation.Struct(&validation.RegisterRequest{
		TenantName: "Acme",
		TenantSlug: "Not A Slug",
		Email:      "nope",
		Password:   "x",
	})

	assert.Contains(t, errs, validation.FieldError{Field: "tenantSlug", Message: "tenantSlug must be 3-63 lowercase letters, digits or hyphens"})
	assert.Contains(t, errs, validation.FieldError{Field: "email", Message: "email must be a valid email address"})
}

func TestStruct_BlankNameRejected(t *testing.T) {
	errs := validation.Struct(&validation.CreateWorkspaceRequest{Name: "   ", Slug: "team-a"})

	assert.Equal(t, []validation.FieldError{{Field: "name", Message: "name is required"}}, errs)
}

func TestStruct_LoginTenantID(t *testing.T) {
	errs := validation.Struct(&validation.LoginRequest{TenantID: "abc", Email: "a@b.co", Password: "x"})
	assert.Equal(t, []string{"tenantId"}, fields(errs))

	ok := validation.Struct(&validation.LoginRequest{TenantSlug: "acme", Email: "a@b.co", Password: "x"})
	assert.Empty(t, ok)
}

func TestStruct_Roles(t *testing.T) {
	assert.Empty(t, validation.Struct(&validation.ChangeRoleRequest{Role: "viewer"}))

	errs := validation.Struct(&validation.ChangeRoleRequest{Role: "superuser"})
	assert.Equal(t, []validation.FieldError{{Field: "role", Message: "role must be one of owner, admin, editor, viewer"}}, errs)

	assert.Empty(t, validation.Struct(&validation.InviteRequest{Email: "x@y.io"}), "role is optional on invites")
}

func TestStruct_SetModelRequiresEnabled(t *testing.T) {
	assert.Equal(t, []string{"enabled"}, fields(validation.Struct(&validation.SetModelRequest{})))

	off := false
	assert.Empty(t, validation.Struct(&validation.SetModelRequest{Enabled: &off}))
}
