package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vlago/helpdesk-backend/internal/core/domain"
	apperrors "github.com/vlago/helpdesk-backend/internal/core/errors"
	"github.com/vlago/helpdesk-backend/internal/core/mocks"
	"github.com/vlago/helpdesk-backend/internal/core/services"
)

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	validParams := domain.UserRegistrationParams{
		FullName: "Ana Souza",
		Email:    "ana@example.com",
		Password: "SecurePass123",
		Sector:   "finance",
	}

	t.Run("success", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		mockRepo.On("GetByEmail", ctx, validParams.Email).Return(nil, apperrors.ErrUserNotFound)
		mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).
			Run(func(args mock.Arguments) {
				user := args.Get(1).(*domain.User)
				assert.Equal(t, domain.RoleCommon, user.Role)
				assert.True(t, user.IsActive)
				assert.NotEqual(t, validParams.Password, user.PasswordHash)
			}).
			Return(&domain.User{
				ID:       uuid.New(),
				FullName: validParams.FullName,
				Email:    validParams.Email,
				Role:     domain.RoleCommon,
				IsActive: true,
			}, nil)

		user, err := svc.Register(ctx, validParams)

		require.NoError(t, err)
		assert.Equal(t, validParams.Email, user.Email)
		mockRepo.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		mockRepo.On("GetByEmail", ctx, validParams.Email).
			Return(&domain.User{ID: uuid.New(), Email: validParams.Email}, nil)

		user, err := svc.Register(ctx, validParams)

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrUserExists)
		mockRepo.AssertNotCalled(t, "Create")
	})

	t.Run("weak password is rejected before repo access", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		params := validParams
		params.Password = "short"

		user, err := svc.Register(ctx, params)

		assert.Nil(t, user)
		assert.Error(t, err)
		mockRepo.AssertNotCalled(t, "GetByEmail")
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	password := "SecurePass123"

	newStoredUser := func(t *testing.T, active bool) *domain.User {
		t.Helper()
		hash, err := domain.HashPassword(password)
		require.NoError(t, err)
		return &domain.User{
			ID:           uuid.New(),
			FullName:     "Ana Souza",
			Email:        "ana@example.com",
			PasswordHash: hash,
			Role:         domain.RoleCommon,
			IsActive:     active,
		}
	}

	t.Run("success", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		stored := newStoredUser(t, true)
		mockRepo.On("GetByEmail", ctx, stored.Email).Return(stored, nil)

		user, err := svc.Login(ctx, stored.Email, password)

		require.NoError(t, err)
		assert.Equal(t, stored.ID, user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		stored := newStoredUser(t, true)
		mockRepo.On("GetByEmail", ctx, stored.Email).Return(stored, nil)

		user, err := svc.Login(ctx, stored.Email, "WrongPass123")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("unknown email maps to invalid credentials", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		mockRepo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, apperrors.ErrUserNotFound)

		user, err := svc.Login(ctx, "ghost@example.com", password)

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("deactivated account cannot log in", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		stored := newStoredUser(t, false)
		mockRepo.On("GetByEmail", ctx, stored.Email).Return(stored, nil)

		user, err := svc.Login(ctx, stored.Email, password)

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrUserInactive)
	})
}

func TestAuthService_ResolveIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("active user resolves to identity", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		userID := uuid.New()
		mockRepo.On("GetByID", ctx, userID).
			Return(&domain.User{ID: userID, Role: domain.RoleTI, IsActive: true}, nil)

		identity, err := svc.ResolveIdentity(ctx, userID)

		require.NoError(t, err)
		assert.Equal(t, userID, identity.UserID)
		assert.Equal(t, domain.RoleTI, identity.Role)
	})

	t.Run("deleted user fails closed", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		userID := uuid.New()
		mockRepo.On("GetByID", ctx, userID).Return(nil, apperrors.ErrUserNotFound)

		identity, err := svc.ResolveIdentity(ctx, userID)

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.Equal(t, domain.Identity{}, identity)
	})

	t.Run("deactivated user fails closed", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		userID := uuid.New()
		mockRepo.On("GetByID", ctx, userID).
			Return(&domain.User{ID: userID, Role: domain.RoleCommon, IsActive: false}, nil)

		identity, err := svc.ResolveIdentity(ctx, userID)

		assert.ErrorIs(t, err, apperrors.ErrUserInactive)
		assert.Equal(t, domain.Identity{}, identity)
	})
}
