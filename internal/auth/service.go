package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/BuzzLyutic/tasksync/internal/model"
	"github.com/BuzzLyutic/tasksync/internal/repo"
)

var (
	ErrMissingFields = errors.New("email and password required")
	ErrEmailTaken    = errors.New("email already registered")
	ErrInvalidLogin  = errors.New("invalid credentials")
	ErrPasswordLong  = errors.New("password must be at most 72 bytes")
)

// Session is the register / login reply.
type Session struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

type Service struct {
	users  repo.UserRepository
	tokens *TokenManager
	logger *zap.Logger
	cost   int
}

func NewService(users repo.UserRepository, tokens *TokenManager, logger *zap.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		logger: logger,
		cost:   bcrypt.DefaultCost,
	}
}

func (s *Service) Register(ctx context.Context, name, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, ErrMissingFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return Session{}, ErrPasswordLong
	}
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, model.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: string(hash),
	})
	if errors.Is(err, repo.ErrorConflict) {
		return Session{}, ErrEmailTaken
	}
	if err != nil {
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return s.session(user)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, ErrMissingFields
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrorNotFound) {
		return Session{}, ErrInvalidLogin
	}
	if err != nil {
		return Session{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidLogin
	}

	return s.session(user)
}

// Me returns the account behind an owner id. The hash never leaves the
// package: model.User does not serialize it.
func (s *Service) Me(ctx context.Context, ownerID string) (model.User, error) {
	user, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (s *Service) session(user model.User) (Session, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return Session{}, err
	}
	return Session{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
