package models

import (
	"fmt"
	"time"
)

// TurnRole identifies who authored a turn in the downstream chat format.
type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleSystem    TurnRole = "system"
	TurnRoleAssistant TurnRole = "assistant"
)

// ParseTurnRole validates a stored turn role value.
func ParseTurnRole(s string) (TurnRole, error) {
	switch TurnRole(s) {
	case TurnRoleUser, TurnRoleSystem, TurnRoleAssistant:
		return TurnRole(s), nil
	default:
		return "", fmt.Errorf("unknown turn role %q", s)
	}
}

// TurnSource names the backend that produced a turn.
type TurnSource string

const (
	SourceOpenAI    TurnSource = "openai"
	SourceGoogleNLP TurnSource = "google_nlp"
)

// ContentKind classifies what a turn's content is.
type ContentKind string

const (
	ContentText      ContentKind = "text"
	ContentSummary   ContentKind = "summary"
	ContentSentiment ContentKind = "sentiment_analysis"
	ContentImage     ContentKind = "image"
)

// Conversation is an ordered dialogue owned by a single user. It is created
// on the first turn and lives until explicitly deleted; deleting it cascades
// to its turns.
type Conversation struct {
	ID        int64
	UserID    int64
	CreatedAt time.Time
}

// Turn is one message inside a conversation. Turns are immutable and
// append-only; GeneratedAt is the ordering key.
type Turn struct {
	ID             int64
	ConversationID int64
	UserID         int64
	Role           TurnRole
	Source         TurnSource
	Kind           ContentKind
	Content        string
	GeneratedAt    time.Time
}
