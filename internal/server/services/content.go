package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avoronov/contenthub/internal/common"
	"github.com/avoronov/contenthub/internal/dbx"
	"github.com/avoronov/contenthub/internal/logging"
	"github.com/avoronov/contenthub/internal/server/aiclient"
	"github.com/avoronov/contenthub/internal/server/models"
	"github.com/avoronov/contenthub/internal/server/repositories/repomanager"
)

// SystemPreface opens every assembled request so the upstream model has a
// stable instruction regardless of the stored history.
const SystemPreface = "You are a helpful assistant."

// SummarizerPreface replaces the generic preface for summarization requests.
const SummarizerPreface = "You are a highly proficient text summarizer. Your task is to generate concise, accurate summaries of provided content. Make sure the summaries are no longer than 100 words. Summarize in a neutral tone and focus on the main ideas of the text without losing key information."

// Summarization parameters. Low temperature/top_p keep summaries close to
// the source text; max tokens bounds the summary length.
const (
	summaryMaxTokens   = 150
	summaryTemperature = 0.3
	summaryTopP        = 0.4
	summaryChoices     = 1
)

// ContentService owns conversations and their turns: it assembles stored
// history into upstream chat requests, persists both sides of each exchange,
// and enforces per-user ownership of every conversation it touches.
type ContentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ai          aiclient.Caller
	model       string
	logger      logging.Logger

	// now is a seam for tests that need deterministic turn ordering.
	now func() time.Time
}

func NewContentService(db *sql.DB, m repomanager.RepositoryManager, ai aiclient.Caller, model string, logger logging.Logger) *ContentService {
	return &ContentService{
		db:          db,
		repomanager: m,
		ai:          ai,
		model:       model,
		logger:      logger.With("module", "content_service"),
		now:         time.Now,
	}
}

// ownedConversation loads a conversation and checks it belongs to userID.
// A conversation owned by someone else is reported exactly like a missing
// one, so existence is never leaked across users.
func (s *ContentService) ownedConversation(ctx context.Context, db dbx.DBTX, userID, conversationID int64) (*models.Conversation, error) {
	conv, err := s.repomanager.Conversations(db).GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrConversationNotFound
		}
		return nil, common.ErrInternal
	}
	if conv.UserID != userID {
		return nil, common.ErrConversationNotFound
	}
	return conv, nil
}

// StartConversation creates an empty conversation for the user.
func (s *ContentService) StartConversation(ctx context.Context, userID int64) (*models.Conversation, error) {
	conv, err := s.repomanager.Conversations(s.db).Create(ctx, &models.Conversation{UserID: userID})
	if err != nil {
		return nil, common.ErrInternal
	}
	s.logger.Info(ctx, "conversation started", "user_id", userID, "conversation_id", conv.ID)
	return conv, nil
}

// assembleMessages maps stored turns onto the upstream chat format, oldest
// first, with the system preface prepended. Every stored turn becomes
// exactly one message; nothing is merged, truncated or windowed.
func assembleMessages(turns []*models.Turn) []aiclient.Message {
	msgs := make([]aiclient.Message, 0, len(turns)+1)
	msgs = append(msgs, aiclient.TextMessage(string(models.TurnRoleSystem), SystemPreface))
	for _, t := range turns {
		msgs = append(msgs, aiclient.TextMessage(string(t.Role), t.Content))
	}
	return msgs
}

// ContinueConversation appends the user's message to an existing
// conversation, sends the full history to the chat upstream, persists the
// assistant's reply as a new turn and returns it.
//
// The user's turn is committed before the upstream call, so a failing
// upstream still leaves the user's message in history. The assistant turn is
// persisted in its own transaction afterwards.
func (s *ContentService) ContinueConversation(ctx context.Context, userID, conversationID int64, text string) (*models.Turn, error) {
	if _, err := s.ownedConversation(ctx, s.db, userID, conversationID); err != nil {
		return nil, err
	}

	userTurn := &models.Turn{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           models.TurnRoleUser,
		Source:         models.SourceOpenAI,
		Kind:           models.ContentText,
		Content:        text,
		GeneratedAt:    s.now(),
	}
	if _, err := s.repomanager.Turns(s.db).Create(ctx, userTurn); err != nil {
		return nil, common.ErrInternal
	}

	history, err := s.repomanager.Turns(s.db).ListByUserAndConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, common.ErrInternal
	}

	reply, err := s.complete(ctx, assembleMessages(history), 0, 0, 0, 0)
	if err != nil {
		return nil, err
	}

	assistantTurn := &models.Turn{
		ConversationID: conversationID,
		UserID:         userID,
		Role:           models.TurnRoleAssistant,
		Source:         models.SourceOpenAI,
		Kind:           models.ContentText,
		Content:        reply,
		GeneratedAt:    s.now(),
	}
	created, err := s.repomanager.Turns(s.db).Create(ctx, assistantTurn)
	if err != nil {
		return nil, common.ErrInternal
	}
	return created, nil
}

// GenerateText runs a one-shot prompt in a fresh conversation and returns
// the assistant's reply. The conversation and both turns are written in a
// single transaction once the upstream has answered.
func (s *ContentService) GenerateText(ctx context.Context, userID int64, prompt string) (*models.Turn, error) {
	msgs := []aiclient.Message{
		aiclient.TextMessage(string(models.TurnRoleSystem), SystemPreface),
		aiclient.TextMessage(string(models.TurnRoleUser), prompt),
	}
	reply, err := s.complete(ctx, msgs, 0, 0, 0, 0)
	if err != nil {
		return nil, err
	}
	return s.persistExchange(ctx, userID, prompt, reply, models.ContentText)
}

// SummarizeText asks the upstream for a short summary of the given text and
// records the exchange as a new conversation.
func (s *ContentService) SummarizeText(ctx context.Context, userID int64, text string) (*models.Turn, error) {
	msgs := []aiclient.Message{
		aiclient.TextMessage(string(models.TurnRoleSystem), SummarizerPreface),
		aiclient.TextMessage(string(models.TurnRoleUser), text),
	}
	summary, err := s.complete(ctx, msgs, summaryMaxTokens, summaryTemperature, summaryTopP, summaryChoices)
	if err != nil {
		return nil, err
	}
	return s.persistExchange(ctx, userID, text, summary, models.ContentSummary)
}

// complete posts an assembled chat request and extracts the assistant reply.
// Zero-valued tuning parameters are omitted from the wire request.
func (s *ContentService) complete(ctx context.Context, msgs []aiclient.Message, maxTokens int, temperature, topP float64, n int) (string, error) {
	req := aiclient.TextRequest{
		Model:       s.model,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
		N:           n,
	}
	var resp aiclient.TextResponse
	if err := s.ai.Post(ctx, aiclient.ChatCompletionsPath, req, &resp); err != nil {
		s.logger.Error(ctx, "chat upstream call failed", "error", err.Error())
		return "", fmt.Errorf("%w: %v", common.ErrAIService, err)
	}
	reply, ok := resp.LastAssistantText()
	if !ok {
		return "", fmt.Errorf("%w: response carries no assistant message", common.ErrAIService)
	}
	return reply, nil
}

// persistExchange writes a fresh conversation with the user prompt and the
// produced reply atomically.
func (s *ContentService) persistExchange(ctx context.Context, userID int64, prompt, reply string, kind models.ContentKind) (*models.Turn, error) {
	var out *models.Turn
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		conv, err := s.repomanager.Conversations(tx).Create(ctx, &models.Conversation{UserID: userID})
		if err != nil {
			return err
		}
		if _, err := s.repomanager.Turns(tx).Create(ctx, &models.Turn{
			ConversationID: conv.ID,
			UserID:         userID,
			Role:           models.TurnRoleUser,
			Source:         models.SourceOpenAI,
			Kind:           models.ContentText,
			Content:        prompt,
			GeneratedAt:    s.now(),
		}); err != nil {
			return err
		}
		out, err = s.repomanager.Turns(tx).Create(ctx, &models.Turn{
			ConversationID: conv.ID,
			UserID:         userID,
			Role:           models.TurnRoleAssistant,
			Source:         models.SourceOpenAI,
			Kind:           kind,
			Content:        reply,
			GeneratedAt:    s.now(),
		})
		return err
	})
	if err != nil {
		return nil, common.ErrInternal
	}
	return out, nil
}

// ListConversations returns all conversations owned by the user.
func (s *ContentService) ListConversations(ctx context.Context, userID int64) ([]*models.Conversation, error) {
	convs, err := s.repomanager.Conversations(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, common.ErrInternal
	}
	return convs, nil
}

// ListTurns returns the turns of one of the user's conversations in
// chronological order.
func (s *ContentService) ListTurns(ctx context.Context, userID, conversationID int64) ([]*models.Turn, error) {
	if _, err := s.ownedConversation(ctx, s.db, userID, conversationID); err != nil {
		return nil, err
	}
	turns, err := s.repomanager.Turns(s.db).ListByUserAndConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, common.ErrInternal
	}
	return turns, nil
}

// DeleteConversation removes one of the user's conversations together with
// its turns.
func (s *ContentService) DeleteConversation(ctx context.Context, userID, conversationID int64) error {
	if _, err := s.ownedConversation(ctx, s.db, userID, conversationID); err != nil {
		return err
	}
	if err := s.repomanager.Conversations(s.db).Delete(ctx, conversationID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrConversationNotFound
		}
		return common.ErrInternal
	}
	s.logger.Info(ctx, "conversation deleted", "user_id", userID, "conversation_id", conversationID)
	return nil
}
