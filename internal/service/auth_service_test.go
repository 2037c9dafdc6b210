package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/meowem-bao/do1ad-assignment2/internal/domain"
	"github.com/meowem-bao/do1ad-assignment2/internal/metrics"
	"github.com/meowem-bao/do1ad-assignment2/internal/password"
	"github.com/meowem-bao/do1ad-assignment2/internal/repository/repotest"
	"github.com/meowem-bao/do1ad-assignment2/internal/service"
	"github.com/meowem-bao/do1ad-assignment2/internal/validation"
)

var fastHash = password.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16, SaltLen: 8}

func newAuthService(t *testing.T) (*service.AuthService, *repotest.Users) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	users := repotest.NewUsers()
	svc := service.NewAuthService(users, password.NewHasher(fastHash), validation.New(), node, metrics.New("test"), zap.NewNop())
	return svc, users
}

func validRegistration() *validation.RegisterForm {
	return &validation.RegisterForm{
		Username:        "alice",
		Email:           "Alice@Example.com",
		Password:        "s3cretpass",
		ConfirmPassword: "s3cretpass",
	}
}

func TestRegisterCreatesUser(t *testing.T) {
	svc, users := newAuthService(t)

	user, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, "alice@example.com", user.Email)
	require.NotEqual(t, "s3cretpass", user.PasswordHash)
	require.Equal(t, 1, users.Len())
}

func TestRegisterAggregatesViolations(t *testing.T) {
	svc, users := newAuthService(t)

	_, err := svc.Register(context.Background(), &validation.RegisterForm{
		Username:        "ab",
		Email:           "not-an-email",
		Password:        "short",
		ConfirmPassword: "different",
	})
	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))
	require.Contains(t, verrs.For("username"), "between 3 and 50 characters")
	require.NotEmpty(t, verrs.For("email"))
	require.NotEmpty(t, verrs.For("password"))
	require.Equal(t, "Passwords do not match.", verrs.For("confirm_password"))
	require.Zero(t, users.Len())
}

func TestRegisterDuplicate(t *testing.T) {
	svc, users := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	dup := validRegistration()
	dup.Username = "ALICE"
	dup.Email = "other@example.com"
	_, err = svc.Register(ctx, dup)
	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))
	require.Equal(t, "Username or email already exists.", verrs.For("username"))

	dup = validRegistration()
	dup.Username = "bob"
	_, err = svc.Register(ctx, dup)
	require.True(t, errors.As(err, &verrs))
	require.Equal(t, 1, users.Len())
}

type racingUsers struct {
	*repotest.Users
}

// existence checks miss, the insert hits the unique constraint
func (racingUsers) UsernameExists(context.Context, string) (bool, error) { return false, nil }
func (racingUsers) EmailExists(context.Context, string) (bool, error) { return false, nil }

func TestRegisterMapsUniqueViolation(t *testing.T) {
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	users := repotest.NewUsers()
	svc := service.NewAuthService(racingUsers{users}, password.NewHasher(fastHash), validation.New(), node, nil, zap.NewNop())

	_, err = svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), validRegistration())
	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))
	require.Equal(t, validation.AlreadyExists(), verrs)
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	registered, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, &validation.LoginForm{Username: "Alice", Password: "s3cretpass"})
	require.NoError(t, err)
	require.Equal(t, registered.ID, user.ID)
	require.Equal(t, "alice", user.Username)
}

func TestAuthenticateIsIndistinguishable(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	_, wrongPassword := svc.Authenticate(ctx, &validation.LoginForm{Username: "alice", Password: "wrongpass1"})
	_, unknownUser := svc.Authenticate(ctx, &validation.LoginForm{Username: "mallory", Password: "wrongpass1"})

	require.ErrorIs(t, wrongPassword, domain.ErrInvalidCredentials)
	require.ErrorIs(t, unknownUser, domain.ErrInvalidCredentials)
	require.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestAuthenticateRequiresFields(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.Authenticate(context.Background(), &validation.LoginForm{})
	var verrs validation.Errors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 2)
}
