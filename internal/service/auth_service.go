package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/meowem-bao/do1ad-assignment2/internal/domain"
	"github.com/meowem-bao/do1ad-assignment2/internal/metrics"
	"github.com/meowem-bao/do1ad-assignment2/internal/password"
	"github.com/meowem-bao/do1ad-assignment2/internal/repository"
	"github.com/meowem-bao/do1ad-assignment2/internal/validation"
)

// AuthService registers and authenticates users.
type AuthService struct {
	users     repository.UserRepository
	hasher    *password.Hasher
	validator *validation.Validator
	node      *snowflake.Node
	metrics   *metrics.Metrics
	instrumentation
}

// NewAuthService wires dependencies.
func NewAuthService(users repository.UserRepository, hasher *password.Hasher, v *validation.Validator, node *snowflake.Node, m *metrics.Metrics, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:           users,
		hasher:          hasher,
		validator:       v,
		node:            node,
		metrics:         m,
		instrumentation: newInstrumentation(logger),
	}
}

// Register validates form, which is sanitized in place, and creates the
// account. Every rule violation comes back as validation.Errors, including a
// username or email that is already taken.
func (s *AuthService) Register(ctx context.Context, form *validation.RegisterForm) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Register")
	defer span.End()

	if err := s.validator.Check(form); err != nil {
		return domain.User{}, err
	}

	taken, err := s.taken(ctx, form.Username, form.Email)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, err
	}
	if taken {
		return domain.User{}, validation.AlreadyExists()
	}

	hash, err := s.hasher.Hash(form.Password)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, domain.User{
		ID:           s.node.Generate().Int64(),
		Username:     form.Username,
		Email:        form.Email,
		PasswordHash: hash,
	})
	if err != nil {
		// lost the race against a concurrent registration
		if errors.Is(err, domain.ErrAlreadyExists) {
			return domain.User{}, validation.AlreadyExists()
		}
		span.RecordError(err)
		return domain.User{}, err
	}

	span.SetAttributes(attribute.Int64("user.id", user.ID))
	s.metrics.Registration()
	s.audit("user.registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (s *AuthService) taken(ctx context.Context, username, email string) (bool, error) {
	exists, err := s.users.UsernameExists(ctx, username)
	if err != nil || exists {
		return exists, err
	}
	return s.users.EmailExists(ctx, email)
}

// Authenticate checks credentials. Unknown users and wrong passwords both
// yield domain.ErrInvalidCredentials after comparable work.
func (s *AuthService) Authenticate(ctx context.Context, form *validation.LoginForm) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Authenticate")
	defer span.End()

	if err := s.validator.Check(form); err != nil {
		return domain.User{}, err
	}

	user, err := s.users.GetByUsername(ctx, form.Username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.hasher.VerifyDummy(form.Password)
			s.loginFailed(form.Username)
			return domain.User{}, domain.ErrInvalidCredentials
		}
		span.RecordError(err)
		return domain.User{}, err
	}

	ok, err := s.hasher.Verify(form.Password, user.PasswordHash)
	if err != nil {
		// a corrupt stored hash is an operator problem, not a client one
		s.log().Error("verify password hash", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	if !ok {
		s.loginFailed(form.Username)
		return domain.User{}, domain.ErrInvalidCredentials
	}

	s.metrics.Login("success")
	s.audit("user.login.success", "user_id", user.ID)
	return user, nil
}

func (s *AuthService) loginFailed(username string) {
	s.metrics.Login("failure")
	s.audit("user.login.failure", "username", username)
}
