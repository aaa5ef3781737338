package services

import (
	"context"
	"time"

	"github.com/avoronov/contenthub/internal/common"
	"github.com/avoronov/contenthub/internal/logging"
	"github.com/avoronov/contenthub/internal/server/auth"
	"github.com/avoronov/contenthub/internal/server/models"
)

// CredentialVerifier checks a username/password pair and returns the
// matching identity, or common.ErrAuthenticationFailed.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// TokenPair holds the two tokens minted at login.
type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// SessionService mints access/refresh token pairs for verified credentials
// and exchanges a valid refresh token for a fresh access token. Refresh
// tokens are not rotated or revoked on use: they stay valid until expiry.
type SessionService struct {
	verifier        CredentialVerifier
	codec           *auth.Codec
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	logger          logging.Logger
}

func NewSessionService(verifier CredentialVerifier, codec *auth.Codec, accessTTL, refreshTTL time.Duration, logger logging.Logger) *SessionService {
	return &SessionService{
		verifier:        verifier,
		codec:           codec,
		accessTokenTTL:  accessTTL,
		refreshTokenTTL: refreshTTL,
		logger:          logger.With("module", "session_service"),
	}
}

// Login verifies credentials and mints a token pair for the subject.
func (s *SessionService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		return nil, common.ErrAuthenticationFailed
	}

	access, err := s.codec.Issue(user.Username, s.accessTokenTTL)
	if err != nil {
		return nil, common.ErrInternal
	}
	refresh, err := s.codec.Issue(user.Username, s.refreshTokenTTL)
	if err != nil {
		return nil, common.ErrInternal
	}

	s.logger.Info(ctx, "session started", "username", user.Username)
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh verifies a refresh token, re-resolves the subject against the
// user store, and mints a new access token. The refresh token itself is
// returned unchanged. Any failure, including a token whose subject no
// longer resolves, yields common.ErrInvalidRefreshToken.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	subject, err := s.codec.Verify(refreshToken)
	if err != nil {
		return nil, common.ErrInvalidRefreshToken
	}

	user, err := s.verifier.FindByUsername(ctx, subject)
	if err != nil || !user.Enabled {
		return nil, common.ErrInvalidRefreshToken
	}

	access, err := s.codec.Issue(user.Username, s.accessTokenTTL)
	if err != nil {
		return nil, common.ErrInvalidRefreshToken
	}

	return &TokenPair{AccessToken: access, RefreshToken: refreshToken}, nil
}
