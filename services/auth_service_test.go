package services_test

import (
	"context"
	"testing"

	"github.com/Dosada05/forecast-league/models"
	"github.com/Dosada05/forecast-league/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthRegister(t *testing.T) {
	users := newFakeUserRepo()
	service := services.NewAuthService(users)

	user, err := service.Register(context.Background(), services.RegisterInput{
		Nickname: "alice",
		Email:    "  Alice@Example.COM ",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email, "email is normalized to lower case")
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "correct horse battery", user.PasswordHash, "password must be stored hashed")
}

func TestAuthRegisterShortPassword(t *testing.T) {
	service := services.NewAuthService(newFakeUserRepo())

	_, err := service.Register(context.Background(), services.RegisterInput{
		Nickname: "alice",
		Email:    "alice@example.com",
		Password: "short",
	})
	assert.ErrorIs(t, err, services.ErrPasswordTooShort)
}

func TestAuthRegisterConflicts(t *testing.T) {
	service := services.NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	_, err := service.Register(ctx, services.RegisterInput{
		Nickname: "alice", Email: "alice@example.com", Password: "long enough password",
	})
	require.NoError(t, err)

	_, err = service.Register(ctx, services.RegisterInput{
		Nickname: "someone else", Email: "alice@example.com", Password: "long enough password",
	})
	assert.ErrorIs(t, err, services.ErrUserEmailConflict)

	_, err = service.Register(ctx, services.RegisterInput{
		Nickname: "alice", Email: "other@example.com", Password: "long enough password",
	})
	assert.ErrorIs(t, err, services.ErrUserNicknameConflict)
}

func TestAuthLogin(t *testing.T) {
	service := services.NewAuthService(newFakeUserRepo())
	ctx := context.Background()

	_, err := service.Register(ctx, services.RegisterInput{
		Nickname: "alice", Email: "alice@example.com", Password: "long enough password",
	})
	require.NoError(t, err)

	user, err := service.Login(ctx, services.LoginInput{
		Email: "Alice@Example.com", Password: "long enough password",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Nickname)

	_, err = service.Login(ctx, services.LoginInput{
		Email: "alice@example.com", Password: "wrong password!!",
	})
	assert.ErrorIs(t, err, services.ErrAuthInvalidCredentials)

	_, err = service.Login(ctx, services.LoginInput{
		Email: "nobody@example.com", Password: "long enough password",
	})
	assert.ErrorIs(t, err, services.ErrAuthInvalidCredentials)
}
