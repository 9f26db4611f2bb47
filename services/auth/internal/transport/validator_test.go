package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator(t *testing.T) {
	t.Parallel()

	v := NewValidator()

	tests := []struct {
		name    string
		in      any
		wantErr string
	}{
		{name: "valid login", in: LoginRequest{Email: "a@example.com", Password: "x"}},
		{name: "missing email", in: LoginRequest{Password: "x"}, wantErr: "email is required"},
		{name: "bad email", in: LoginRequest{Email: "nope", Password: "x"}, wantErr: "email must be a valid email"},
		{name: "missing refresh", in: RefreshRequest{}, wantErr: "refresh_token is required"},
		{name: "short password", in: CreateUserRequest{Name: "n", Email: "a@example.com", Password: "short", Role: "user"}, wantErr: "password must be at least 8 characters"},
		{name: "status needs login", in: ChangeStatusRequest{}, wantErr: "login_to_change is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := v.Validate(tt.in)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, Describe(err))
		})
	}
}

func TestDescribe_NonValidationError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "invalid body", Describe(errors.New("boom")))
}
