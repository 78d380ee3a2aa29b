package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vlago/helpdesk-backend/internal/core/domain"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{"valid password", "Sup3rSecret", true},
		{"too short", "Ab1", false},
		{"too long", strings.Repeat("Aa1", 50), false},
		{"no uppercase", "sup3rsecret", false},
		{"no lowercase", "SUP3RSECRET", false},
		{"no number", "SuperSecret", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := domain.ValidatePassword(tt.password)
			if tt.valid {
				assert.Empty(t, errs)
			} else {
				assert.NotEmpty(t, errs)
			}
		})
	}
}

func TestNewUser(t *testing.T) {
	t.Run("valid registration", func(t *testing.T) {
		user, err := domain.NewUser(domain.UserRegistrationParams{
			FullName: "Maria Souza",
			Email:    "maria@example.com",
			Password: "Sup3rSecret",
			Sector:   "Finance",
		})
		require.NoError(t, err)

		assert.NotEqual(t, "", user.ID.String())
		assert.Equal(t, domain.RoleCommon, user.Role, "role defaults to common")
		assert.True(t, user.IsActive)
		assert.NotEqual(t, "Sup3rSecret", user.PasswordHash)
		assert.True(t, user.CheckPassword("Sup3rSecret"))
		assert.False(t, user.CheckPassword("wrong"))
	})

	t.Run("explicit TI role", func(t *testing.T) {
		user, err := domain.NewUser(domain.UserRegistrationParams{
			FullName: "Joao Lima",
			Email:    "joao@example.com",
			Password: "Sup3rSecret",
			Role:     domain.RoleTI,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.RoleTI, user.Role)
	})

	t.Run("invalid role rejected", func(t *testing.T) {
		_, err := domain.NewUser(domain.UserRegistrationParams{
			FullName: "Eve",
			Email:    "eve@example.com",
			Password: "Sup3rSecret",
			Role:     domain.Role("superadmin"),
		})
		assert.Error(t, err)
	})

	t.Run("invalid email rejected", func(t *testing.T) {
		_, err := domain.NewUser(domain.UserRegistrationParams{
			FullName: "Bob",
			Email:    "not-an-email",
			Password: "Sup3rSecret",
		})
		assert.Error(t, err)
	})
}

func TestUser_Identity(t *testing.T) {
	user, err := domain.NewUser(domain.UserRegistrationParams{
		FullName: "Ana TI",
		Email:    "ana@example.com",
		Password: "Sup3rSecret",
		Role:     domain.RoleTI,
	})
	require.NoError(t, err)

	identity := user.Identity()
	assert.Equal(t, user.ID, identity.UserID)
	assert.Equal(t, domain.RoleTI, identity.Role)
}

func TestRole_IsValid(t *testing.T) {
	assert.True(t, domain.RoleCommon.IsValid())
	assert.True(t, domain.RoleTI.IsValid())
	assert.False(t, domain.Role("").IsValid())
	assert.False(t, domain.Role("admin").IsValid())
}
