// Package common defines shared sentinel errors used across the service
// layers. Callers should match them with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Generic service-level errors.
	ErrInternal = errors.New("internal error")

	// Token verification errors. All of them map to a generic 401 at the
	// HTTP boundary so the response does not reveal why the token failed.
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenMalformed   = errors.New("token malformed")
	ErrSignatureInvalid = errors.New("token signature invalid")

	// Credential and session errors.
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")

	// Conversation errors. Ownership mismatches return the same error as a
	// missing conversation so existence is never leaked to a non-owner.
	ErrConversationNotFound = errors.New("conversation not found")

	// Upstream AI call failures (timeout, non-2xx, undecodable body).
	ErrAIService = errors.New("ai service error")
)
