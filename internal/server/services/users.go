// Package services contains the server-side business logic: credential
// verification and registration, token issuance/refresh, conversation
// assembly against the AI upstreams, sentiment analysis, and image storage.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/avoronov/contenthub/internal/common"
	"github.com/avoronov/contenthub/internal/logging"
	"github.com/avoronov/contenthub/internal/server/models"
	"github.com/avoronov/contenthub/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// UserService handles registration and credential verification. It is the
// only component that touches password material; plaintext passwords are
// never logged or returned.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		logger:      logger.With("module", "user_service"),
	}
}

// Register creates a new user with the default role. Duplicate usernames
// yield common.ErrAlreadyExists.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Enabled:      true,
		Role:         models.RoleUser,
	}

	repo := s.repomanager.Users(s.db)
	created, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "username", username)
	return created, nil
}

// Verify checks a username/password pair against the stored credentials and
// returns the matching identity. Unknown users, disabled users, and wrong
// passwords all collapse into common.ErrAuthenticationFailed.
func (s *UserService) Verify(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)

	user, err := s.FindByUsername(ctx, username)
	if err != nil {
		return nil, common.ErrAuthenticationFailed
	}
	if !user.Enabled {
		return nil, common.ErrAuthenticationFailed
	}

	// bcrypt's comparison is constant-time.
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, common.ErrAuthenticationFailed
	}

	return user, nil
}

// FindByUsername resolves an identity by its unique username.
func (s *UserService) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, common.ErrInternal
	}
	return user, nil
}
