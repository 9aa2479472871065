package credential_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/tenantauth/internal/apperr"
	"github.com/daap14/tenantauth/internal/credential"
)

func TestValidatePassword_Valid(t *testing.T) {
	for _, p := range []string{"Passw0rd!", "Abcdefg1", "Sup3rSecretValue"} {
		t.Run(p, func(t *testing.T) {
			assert.NoError(t, credential.ValidatePassword(p))
		})
	}
}

func TestValidatePassword_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		password string
		problem  string
	}{
		{"too short", "Ab1", "must be at least 8 characters"},
		{"no upper", "abcdefg1", "must contain an uppercase letter"},
		{"no lower", "ABCDEFG1", "must contain a lowercase letter"},
		{"no digit", "Abcdefgh", "must contain a digit"},
		{"common", "Password1", "is too common"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := credential.ValidatePassword(tt.password)
			require.Error(t, err)

			ae, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, "WEAK_PASSWORD", ae.Code)
			assert.Contains(t, ae.Details, tt.problem)
		})
	}
}
